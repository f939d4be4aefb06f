package meta

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultTree []byte

// Load parses a YAML document mapping top-level refs to nodes.
func Load(data []byte) (*Tree, error) {
	var roots map[string]*Node
	if err := yaml.Unmarshal(data, &roots); err != nil {
		return nil, fmt.Errorf("meta: parse: %w", err)
	}
	for ref, n := range roots {
		if n == nil {
			return nil, fmt.Errorf("meta: ref %q is empty", ref)
		}
	}
	return NewTree(roots), nil
}

// LoadFile reads and parses the tree at path.
func LoadFile(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("meta: read %s: %w", path, err)
	}
	return Load(data)
}

// Default returns the tree shipped with the binary.
func Default() *Tree {
	t, err := Load(defaultTree)
	if err != nil {
		panic(err)
	}
	return t
}

package meta

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	tree, err := Load([]byte(`
_:
  items:
    - type: input
      text: Name
      required: true
      attr: {name: who, size: 20}
    - type: uniSelect
      attr: {name: pick}
      items:
        - {key: a, text: Alpha}
        - {key: b}
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	in, err := tree.Resolve(Path{"_", "items", "0"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if in.Kind() != KindInput || !in.Required || in.Name() != "who" || in.Attr["size"] != "20" {
		t.Errorf("input decoded as %+v", in)
	}
	sel, _ := tree.Resolve(Path{"_", "items", "1"})
	if got := sel.Items[0].OptionText(); got != "Alpha" {
		t.Errorf("option text = %q, want Alpha", got)
	}
	if got := sel.Items[1].OptionText(); got != "b" {
		t.Errorf("option text fallback = %q, want b", got)
	}
	root, _ := tree.Resolve(Path{"_"})
	if root.Kind() != KindBlock {
		t.Errorf("root kind = %q, want block default", root.Kind())
	}
}

func TestLoadRejectsEmptyRef(t *testing.T) {
	if _, err := Load([]byte("_:\n")); err == nil {
		t.Fatal("expected error for empty ref")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.yaml")
	if err := os.WriteFile(path, []byte("home:\n  type: header\n  text: Hi\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tree, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if refs := tree.Refs(); len(refs) != 1 || refs[0] != "home" {
		t.Errorf("Refs = %v", refs)
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaultTree(t *testing.T) {
	tree := Default()
	for _, ref := range []string{"_", "search", "cart", "book", "survey"} {
		if _, err := tree.Resolve(Path{ref}); err != nil {
			t.Errorf("default tree lacks %q: %v", ref, err)
		}
	}
}

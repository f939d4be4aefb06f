// Package meta holds the declarative UI description consumed by the renderer.
//
// A Tree maps top-level refs to nodes. Nodes are addressed only by Path;
// the tree is never mutated after loading, so a single Tree can back any
// number of independent render passes.
package meta

import "sort"

// Kind names a node type.
type Kind string

const (
	KindBlock       Kind = "block"
	KindForm        Kind = "form"
	KindHeader      Kind = "header"
	KindInput       Kind = "input"
	KindLink        Kind = "link"
	KindMultiSelect Kind = "multiSelect"
	KindPara        Kind = "para"
	KindSegment     Kind = "segment"
	KindSubmit      Kind = "submit"
	KindUniSelect   Kind = "uniSelect"
)

// Attrs maps HTML attribute names to values.
type Attrs map[string]string

// Clone returns a copy of a that callers may modify freely.
func (a Attrs) Clone() Attrs {
	out := make(Attrs, len(a)+3)
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Node is one element of the UI description. Option entries of select
// nodes are nodes too, carrying Key and Text.
type Node struct {
	Type     Kind    `yaml:"type,omitempty" json:"type,omitempty"`
	Attr     Attrs   `yaml:"attr,omitempty" json:"attr,omitempty"`
	Items    []*Node `yaml:"items,omitempty" json:"items,omitempty"`
	Text     *string `yaml:"text,omitempty" json:"text,omitempty"`
	Required bool    `yaml:"required,omitempty" json:"required,omitempty"`
	Level    int     `yaml:"level,omitempty" json:"level,omitempty"`
	SubType  string  `yaml:"subType,omitempty" json:"subType,omitempty"`
	Ref      string  `yaml:"ref,omitempty" json:"ref,omitempty"`
	Key      string  `yaml:"key,omitempty" json:"key,omitempty"`
	Action   string  `yaml:"action,omitempty" json:"action,omitempty"`
}

// Kind returns the node type, defaulting to block.
func (n *Node) Kind() Kind {
	if n.Type == "" {
		return KindBlock
	}
	return n.Type
}

// HasText reports whether the node declares text, even an empty one.
func (n *Node) HasText() bool {
	return n.Text != nil
}

// Label returns the node text or "".
func (n *Node) Label() string {
	if n.Text == nil {
		return ""
	}
	return *n.Text
}

// Name returns the form field name declared in attr.
func (n *Node) Name() string {
	return n.Attr["name"]
}

// OptionText returns the visible text of an option node, falling back to its key.
func (n *Node) OptionText() string {
	if n.Text != nil && *n.Text != "" {
		return *n.Text
	}
	return n.Key
}

// Tree is a loaded UI description.
type Tree struct {
	roots map[string]*Node
}

// NewTree wraps roots into a Tree.
func NewTree(roots map[string]*Node) *Tree {
	if roots == nil {
		roots = make(map[string]*Node)
	}
	return &Tree{roots: roots}
}

// Refs returns the sorted top-level refs.
func (t *Tree) Refs() []string {
	refs := make([]string, 0, len(t.roots))
	for ref := range t.roots {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// Str is a convenience for building nodes with text in code and tests.
func Str(s string) *string { return &s }

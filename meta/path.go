package meta

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotFound is returned when a path does not address anything in the tree.
var ErrNotFound = errors.New("not found")

const (
	segSelf   = "."
	segParent = ".."
	segItems  = "items"
)

// Path addresses a value in a Tree. Index segments are decimal strings.
type Path []string

// Normalize folds "." and ".." out of p. ".." at the root is a no-op.
func (p Path) Normalize() Path {
	out := make(Path, 0, len(p))
	for _, seg := range p {
		switch seg {
		case segSelf:
		case segParent:
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, seg)
		}
	}
	return out
}

// Join returns a new path with segs appended; p is left untouched.
func (p Path) Join(segs ...string) Path {
	out := make(Path, 0, len(p)+len(segs))
	out = append(out, p...)
	return append(out, segs...)
}

// Child addresses the i-th entry of the node's items.
func (p Path) Child(i int) Path {
	return p.Join(segItems, strconv.Itoa(i))
}

// Parent addresses the node enclosing the node at p.
func (p Path) Parent() Path {
	return p.Join(segParent, segParent)
}

// ID is the DOM id derived from the normalized path.
func (p Path) ID() string {
	return "/" + strings.Join(p.Normalize(), "/")
}

// ParseID is the inverse of ID.
func ParseID(id string) Path {
	id = strings.Trim(id, "/")
	if id == "" {
		return Path{}
	}
	return Path(strings.Split(id, "/"))
}

// Value is anything a path can address: the tree root, a node or a node's
// items list.
type Value interface {
	lookup(seg string) (Value, bool)
}

// Items is the child list of a node.
type Items []*Node

func (t *Tree) lookup(seg string) (Value, bool) {
	n, ok := t.roots[seg]
	if !ok || n == nil {
		return nil, false
	}
	return n, true
}

func (n *Node) lookup(seg string) (Value, bool) {
	if seg != segItems || n.Items == nil {
		return nil, false
	}
	return Items(n.Items), true
}

func (it Items) lookup(seg string) (Value, bool) {
	i, err := strconv.Atoi(seg)
	if err != nil || i < 0 || i >= len(it) || it[i] == nil {
		return nil, false
	}
	return it[i], true
}

// Lookup normalizes p and walks it from the root one segment at a time.
func (t *Tree) Lookup(p Path) (Value, error) {
	var cur Value = t
	for _, seg := range p.Normalize() {
		next, ok := cur.lookup(seg)
		if !ok {
			return nil, fmt.Errorf("meta: path %s: %w", p.ID(), ErrNotFound)
		}
		cur = next
	}
	return cur, nil
}

// Resolve is Lookup restricted to nodes.
func (t *Tree) Resolve(p Path) (*Node, error) {
	v, err := t.Lookup(p)
	if err != nil {
		return nil, err
	}
	n, ok := v.(*Node)
	if !ok {
		return nil, fmt.Errorf("meta: path %s is not a node: %w", p.ID(), ErrNotFound)
	}
	return n, nil
}

// KindOf returns the type of v. Anything that is not a node renders as a block.
func KindOf(v Value) Kind {
	if n, ok := v.(*Node); ok {
		return n.Kind()
	}
	return KindBlock
}

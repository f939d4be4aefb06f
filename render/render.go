// Package render turns a metadata tree into HTML.
//
// Rendering is a recursive walk: each node is resolved by path, its type
// picks a routine, and the routine appends elements to the parent it was
// given. Every walk happens inside a Pass, which owns the attributes it
// computes and the form controls it produces; the tree itself is read-only.
package render

import (
	"bytes"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/eringen/bookstore/meta"
)

const (
	// DefaultRef is rendered when no ref query parameter is given.
	DefaultRef = "_"

	nUniSelect   = 4 // below this many options a uniSelect renders as radios
	nMultiSelect = 4 // below this many options a multiSelect renders as checkboxes

	defaultSubmitPath = "/submit"
)

type routine func(p *Pass, n *meta.Node, path meta.Path, parent *html.Node)

// Renderer maps node types to routines.
type Renderer struct {
	tree     *meta.Tree
	routines map[meta.Kind]routine
}

// New returns a Renderer over tree.
func New(tree *meta.Tree) *Renderer {
	return &Renderer{
		tree: tree,
		routines: map[meta.Kind]routine{
			meta.KindBlock:       block,
			meta.KindForm:        form,
			meta.KindHeader:      header,
			meta.KindInput:       input,
			meta.KindLink:        link,
			meta.KindMultiSelect: multiSelect,
			meta.KindPara:        para,
			meta.KindSegment:     segment,
			meta.KindSubmit:      submit,
			meta.KindUniSelect:   uniSelect,
		},
	}
}

// Tree returns the tree the renderer walks.
func (r *Renderer) Tree() *meta.Tree {
	return r.tree
}

// Control is a named form control produced by a pass.
type Control struct {
	Name     string
	Label    string
	Multi    bool
	Required bool
}

// Notice is feedback shown under a form after a submission.
type Notice struct {
	Message string
	Error   bool
	Lines   []string
}

// Pass is one independent walk over the tree.
type Pass struct {
	r          *Renderer
	base       *url.URL
	submitPath string
	csrf       string
	values     map[string][]string
	errors     map[string]string
	notices    map[string]Notice

	attrs    map[string]meta.Attrs
	controls map[string]Control
	order    []string
}

// PassOption configures a Pass.
type PassOption func(*Pass)

// WithBaseURL sets the URL link hrefs are derived from.
func WithBaseURL(u *url.URL) PassOption {
	return func(p *Pass) {
		if u != nil {
			cp := *u
			p.base = &cp
		}
	}
}

// WithSubmitPath sets the URL path forms post to (default "/submit").
func WithSubmitPath(path string) PassOption {
	return func(p *Pass) {
		if path != "" {
			p.submitPath = path
		}
	}
}

// WithCSRF adds a hidden _csrf field to every form.
func WithCSRF(token string) PassOption {
	return func(p *Pass) {
		p.csrf = token
	}
}

// WithValues pre-fills controls with previously submitted values.
func WithValues(values map[string][]string) PassOption {
	return func(p *Pass) {
		p.values = values
	}
}

// WithErrors fills the error slots of the named fields.
func WithErrors(errs map[string]string) PassOption {
	return func(p *Pass) {
		p.errors = errs
	}
}

// WithNotice attaches a notice to the form whose id is formID.
func WithNotice(formID string, n Notice) PassOption {
	return func(p *Pass) {
		if p.notices == nil {
			p.notices = make(map[string]Notice)
		}
		p.notices[formID] = n
	}
}

// NewPass starts an independent render pass.
func (r *Renderer) NewPass(opts ...PassOption) *Pass {
	p := &Pass{
		r:          r,
		submitPath: defaultSubmitPath,
		attrs:      make(map[string]meta.Attrs),
		controls:   make(map[string]Control),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Render appends the rendering of the node at path to parent. Missing
// paths and unknown types produce a visible placeholder instead of failing.
func (p *Pass) Render(path meta.Path, parent *html.Node) {
	v, err := p.r.tree.Lookup(path)
	n, ok := v.(*meta.Node)
	if err != nil || !ok {
		parent.AppendChild(placeholder(fmt.Sprintf("Path %s not found", path.ID())))
		return
	}
	fn, ok := p.r.routines[n.Kind()]
	if !ok {
		parent.AppendChild(placeholder(fmt.Sprintf("type %s not supported", n.Kind())))
		return
	}
	fn(p, n, path, parent)
}

// Fragment renders path and returns the resulting HTML.
func (p *Pass) Fragment(path meta.Path) (string, error) {
	root := element("div", nil)
	p.Render(path, root)
	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// Attrs returns the attributes computed for the element with id during this pass.
func (p *Pass) Attrs(id string) (meta.Attrs, bool) {
	a, ok := p.attrs[id]
	return a, ok
}

// Controls returns the controls produced so far, in document order.
func (p *Pass) Controls() []Control {
	out := make([]Control, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, p.controls[name])
	}
	return out
}

// IsMulti reports whether the named control collects a list of values.
func (p *Pass) IsMulti(name string) bool {
	return p.controls[name].Multi
}

// Check applies the required-field rule to submitted values and returns
// messages keyed by field name.
func (p *Pass) Check(values map[string][]string) map[string]string {
	errs := make(map[string]string)
	for _, c := range p.Controls() {
		if !c.Required {
			continue
		}
		if msg := RequiredMessage(c.Label, strings.Join(values[c.Name], "")); msg != "" {
			errs[c.Name] = msg
		}
	}
	return errs
}

// RequiredMessage is the check wired to required controls on blur.
func RequiredMessage(label, value string) string {
	if strings.TrimSpace(value) == "" {
		return "The field " + label + " must be specified."
	}
	return ""
}

func (p *Pass) compute(id string, base meta.Attrs) meta.Attrs {
	a := base.Clone()
	p.attrs[id] = a
	return a
}

func (p *Pass) register(c Control) {
	if c.Name == "" {
		return
	}
	prev, seen := p.controls[c.Name]
	if !seen {
		p.order = append(p.order, c.Name)
	}
	// Several controls may share a name, as with a row of checkboxes.
	c.Multi = c.Multi || prev.Multi
	c.Required = c.Required || prev.Required
	p.controls[c.Name] = c
}

func (p *Pass) value(name string) []string {
	return p.values[name]
}

func (p *Pass) refURL(ref string) string {
	if p.base == nil {
		return "?ref=" + url.QueryEscape(ref)
	}
	u := *p.base
	q := u.Query()
	q.Set("ref", ref)
	u.RawQuery = q.Encode()
	return u.String()
}

func (p *Pass) submitURL(formID string) string {
	return p.submitPath + "?path=" + url.QueryEscape(formID)
}

func element(tag string, attrs meta.Attrs) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		n.Attr = append(n.Attr, html.Attribute{Key: k, Val: attrs[k]})
	}
	return n
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func withText(n *html.Node, s string) *html.Node {
	if s != "" {
		n.AppendChild(textNode(s))
	}
	return n
}

func placeholder(msg string) *html.Node {
	return withText(element("p", meta.Attrs{"class": "unsupported"}), msg)
}

package render

import (
	"fmt"
	"slices"
	"strconv"

	"golang.org/x/net/html"

	"github.com/eringen/bookstore/meta"
)

// items renders n as <tag> holding the rendering of each child and
// appends it to parent.
func items(tag string, p *Pass, n *meta.Node, path meta.Path, parent *html.Node) *html.Node {
	e := element(tag, p.compute(path.ID(), n.Attr))
	for i := range n.Items {
		p.Render(path.Child(i), e)
	}
	parent.AppendChild(e)
	return e
}

func block(p *Pass, n *meta.Node, path meta.Path, parent *html.Node) {
	items("div", p, n, path, parent)
}

func para(p *Pass, n *meta.Node, path meta.Path, parent *html.Node) {
	items("p", p, n, path, parent)
}

func segment(p *Pass, n *meta.Node, path meta.Path, parent *html.Node) {
	if n.HasText() {
		e := element("span", p.compute(path.ID(), n.Attr))
		parent.AppendChild(withText(e, n.Label()))
		return
	}
	items("span", p, n, path, parent)
}

func header(p *Pass, n *meta.Node, path meta.Path, parent *html.Node) {
	level := n.Level
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	e := element("h"+strconv.Itoa(level), p.compute(path.ID(), n.Attr))
	parent.AppendChild(withText(e, n.Label()))
}

func link(p *Pass, n *meta.Node, path meta.Path, parent *html.Node) {
	parentKind := meta.KindBlock
	if v, err := p.r.tree.Lookup(path.Parent()); err == nil {
		parentKind = meta.KindOf(v)
	}
	ref := n.Ref
	if ref == "" {
		ref = DefaultRef
	}
	attrs := p.compute(path.ID(), n.Attr)
	attrs["href"] = p.refURL(ref)
	attrs["data-parent"] = string(parentKind)
	parent.AppendChild(withText(element("a", attrs), n.Label()))
}

func input(p *Pass, n *meta.Node, path meta.Path, parent *html.Node) {
	id := path.ID()
	name := n.Name()
	parent.AppendChild(label(id, n))

	attrs := p.compute(id, n.Attr)
	attrs["id"] = id
	attrs["type"] = "text"
	if n.SubType != "" {
		attrs["type"] = n.SubType
	}
	checkable := attrs["type"] == "checkbox" || attrs["type"] == "radio"
	switch vals := p.value(name); {
	case checkable:
		if attrs["value"] == "" {
			attrs["value"] = "on"
		}
		if slices.Contains(vals, attrs["value"]) {
			attrs["checked"] = "checked"
		}
	case len(vals) > 0 && attrs["type"] != "password":
		attrs["value"] = vals[len(vals)-1]
	}
	slot := id + "-err"
	if n.Required {
		wireRequired(attrs, n, slot)
	}

	div := element("div", nil)
	div.AppendChild(element("input", attrs))
	if n.Required {
		div.AppendChild(errorSlot(slot, p.errors[name]))
	}
	parent.AppendChild(div)
	multi := attrs["type"] == "checkbox" || hasMultiple(attrs)
	p.register(Control{Name: name, Label: n.Label(), Multi: multi, Required: n.Required})
}

func uniSelect(p *Pass, n *meta.Node, path meta.Path, parent *html.Node) {
	choice(p, n, path, parent, false)
}

func multiSelect(p *Pass, n *meta.Node, path meta.Path, parent *html.Node) {
	choice(p, n, path, parent, true)
}

// choice renders a select node as a radio/checkbox group when it has few
// options and as a dropdown otherwise.
func choice(p *Pass, n *meta.Node, path meta.Path, parent *html.Node, multi bool) {
	threshold, groupType := nUniSelect, "radio"
	if multi {
		threshold, groupType = nMultiSelect, "checkbox"
	}
	id := path.ID()
	name := n.Name()
	chosen := make(map[string]bool)
	for _, v := range p.value(name) {
		chosen[v] = true
	}
	msg := p.errors[name]

	parent.AppendChild(label(id, n))
	div := element("div", nil)

	if len(n.Items) < threshold {
		group := element("div", meta.Attrs{"class": "fieldset"})
		div.AppendChild(group)
		for i, opt := range n.Items {
			optID := fmt.Sprintf("%s-%d", id, i)
			if opt == nil {
				group.AppendChild(placeholder("Option " + optID + " is empty"))
				continue
			}
			attrs := p.compute(optID, n.Attr)
			attrs["id"] = optID
			attrs["type"] = groupType
			attrs["value"] = opt.Key
			if chosen[opt.Key] {
				attrs["checked"] = "checked"
			}
			slot := optID + "-err"
			if n.Required {
				wireRequired(attrs, n, slot)
			}
			group.AppendChild(withText(element("label", meta.Attrs{"for": optID}), opt.OptionText()))
			group.AppendChild(element("input", attrs))
			if n.Required {
				div.AppendChild(errorSlot(slot, msg))
				msg = ""
			}
		}
	} else {
		attrs := p.compute(id, n.Attr)
		attrs["id"] = id
		if multi {
			attrs["multiple"] = "multiple"
		}
		slot := id + "-err"
		if n.Required {
			wireRequired(attrs, n, slot)
		}
		sel := element("select", attrs)
		for _, opt := range n.Items {
			if opt == nil {
				continue
			}
			oattrs := meta.Attrs{"value": opt.Key}
			if chosen[opt.Key] {
				oattrs["selected"] = "selected"
			}
			sel.AppendChild(withText(element("option", oattrs), opt.OptionText()))
		}
		div.AppendChild(sel)
		if n.Required {
			div.AppendChild(errorSlot(slot, msg))
		}
	}

	parent.AppendChild(div)
	p.register(Control{Name: name, Label: n.Label(), Multi: multi || hasMultiple(n.Attr), Required: n.Required})
}

// hasMultiple reports whether attrs carry a set multiple attribute.
func hasMultiple(attrs meta.Attrs) bool {
	v, ok := attrs["multiple"]
	return ok && v != "false"
}

func form(p *Pass, n *meta.Node, path meta.Path, parent *html.Node) {
	id := path.ID()
	attrs := p.compute(id, n.Attr)
	attrs["id"] = id
	attrs["method"] = "post"
	attrs["action"] = p.submitURL(id)
	if n.Action != "" {
		attrs["data-action"] = n.Action
	}
	f := element("form", attrs)
	if p.csrf != "" {
		f.AppendChild(element("input", meta.Attrs{"type": "hidden", "name": "_csrf", "value": p.csrf}))
	}
	for i := range n.Items {
		p.Render(path.Child(i), f)
	}
	if notice, ok := p.notices[id]; ok {
		f.AppendChild(noticeBlock(notice))
	}
	parent.AppendChild(f)
}

func submit(p *Pass, n *meta.Node, path meta.Path, parent *html.Node) {
	parent.AppendChild(element("div", nil))
	attrs := p.compute(path.ID(), n.Attr)
	attrs["type"] = "submit"
	text := n.Label()
	if text == "" {
		text = "submit"
	}
	parent.AppendChild(withText(element("button", attrs), text))
}

func label(forID string, n *meta.Node) *html.Node {
	text := n.Label()
	if n.Required {
		text += "*"
	}
	return withText(element("label", meta.Attrs{"for": forID}), text)
}

func wireRequired(attrs meta.Attrs, n *meta.Node, slot string) {
	attrs["data-required"] = "true"
	attrs["data-label"] = n.Label()
	attrs["data-error"] = slot
}

func errorSlot(id, msg string) *html.Node {
	return withText(element("div", meta.Attrs{"class": "error", "id": id}), msg)
}

func noticeBlock(n Notice) *html.Node {
	class := "notice"
	if n.Error {
		class += " error"
	}
	div := withText(element("div", meta.Attrs{"class": class}), n.Message)
	if len(n.Lines) > 0 {
		ul := element("ul", nil)
		for _, line := range n.Lines {
			ul.AppendChild(withText(element("li", nil), line))
		}
		div.AppendChild(ul)
	}
	return div
}

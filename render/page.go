package render

import (
	"context"
	"io"

	"github.com/a-h/templ"
	"golang.org/x/net/html"

	"github.com/eringen/bookstore/meta"
)

// Page returns a templ component rendering a complete HTML document whose
// body is the rendering of the top-level ref.
func (p *Pass) Page(title, ref string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		doc, body := document(title)
		p.Render(meta.Path{ref}, body)
		return html.Render(w, doc)
	})
}

func document(title string) (doc, body *html.Node) {
	doc = &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := element("html", meta.Attrs{"lang": "en"})
	head := element("head", nil)
	head.AppendChild(element("meta", meta.Attrs{"charset": "utf-8"}))
	head.AppendChild(element("meta", meta.Attrs{"name": "viewport", "content": "width=device-width, initial-scale=1"}))
	head.AppendChild(withText(element("title", nil), title))
	head.AppendChild(element("link", meta.Attrs{"rel": "stylesheet", "href": "/public/style.css"}))
	head.AppendChild(element("script", meta.Attrs{"src": "/public/form.js", "defer": "defer"}))

	body = element("body", nil)
	root.AppendChild(head)
	root.AppendChild(body)
	doc.AppendChild(root)
	return doc, body
}

// MessagePage returns a document with a heading and a paragraph, used for
// error pages.
func MessagePage(title, message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		doc, body := document(title)
		body.AppendChild(withText(element("h1", nil), title))
		p := withText(element("p", nil), message+" ")
		a := withText(element("a", meta.Attrs{"href": "/"}), "Home")
		p.AppendChild(a)
		body.AppendChild(p)
		return html.Render(w, doc)
	})
}

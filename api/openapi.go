package api

import (
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"

	"github.com/eringen/bookstore/model"
)

var (
	docOnce sync.Once
	doc     *openapi3.T
)

// OpenAPI describes the REST endpoints.
func OpenAPI() *openapi3.T {
	docOnce.Do(func() { doc = buildOpenAPI() })
	return doc
}

func (h *Handler) handleOpenAPI(c echo.Context) error {
	return c.JSON(http.StatusOK, OpenAPI())
}

func buildOpenAPI() *openapi3.T {
	str := openapi3.NewStringSchema
	link := openapi3.NewObjectSchema().
		WithProperty("rel", str()).
		WithProperty("name", str()).
		WithProperty("href", str())
	links := openapi3.NewArraySchema().WithItems(link)
	envelope := openapi3.NewObjectSchema().
		WithProperty("status", openapi3.NewIntegerSchema()).
		WithProperty("errors", openapi3.NewArraySchema().WithItems(
			openapi3.NewObjectSchema().
				WithProperty("code", str()).
				WithProperty("message", str()).
				WithProperty("name", str())))
	book := openapi3.NewObjectSchema().
		WithProperty("isbn", str()).
		WithProperty("title", str()).
		WithProperty("authors", openapi3.NewArraySchema().WithItems(str())).
		WithProperty("publisher", str()).
		WithProperty("year", openapi3.NewIntegerSchema()).
		WithProperty("pages", openapi3.NewIntegerSchema()).
		WithProperty("_lastModified", openapi3.NewDateTimeSchema()).
		WithProperty("links", links)
	bookList := openapi3.NewObjectSchema().
		WithProperty("links", links).
		WithProperty("result", openapi3.NewArraySchema().WithItems(book))
	cart := openapi3.NewObjectSchema().
		WithProperty("_lastModified", openapi3.NewDateTimeSchema()).
		WithProperty("links", links).
		WithProperty("result", openapi3.NewArraySchema().WithItems(
			openapi3.NewObjectSchema().
				WithProperty("sku", str()).
				WithProperty("nUnits", openapi3.NewIntegerSchema()).
				WithProperty("links", links)))
	cartItem := openapi3.NewObjectSchema().
		WithProperty("sku", str()).
		WithProperty("nUnits", openapi3.NewIntegerSchema().WithMin(0)).
		WithRequired([]string{"sku", "nUnits"})
	bookBody := openapi3.NewObjectSchema().
		WithProperty("title", str()).
		WithProperty("authors", openapi3.NewArraySchema().WithItems(str())).
		WithProperty("publisher", str()).
		WithProperty("year", openapi3.NewIntegerSchema()).
		WithProperty("pages", openapi3.NewIntegerSchema().WithMin(1)).
		WithRequired([]string{"title", "authors", "publisher", "year", "pages"})

	op := func(id, summary string, status int, desc string, body *openapi3.Schema, params ...*openapi3.Parameter) *openapi3.Operation {
		o := openapi3.NewOperation()
		o.OperationID = id
		o.Summary = summary
		resp := openapi3.NewResponse().WithDescription(desc)
		if body != nil {
			resp = resp.WithJSONSchema(body)
		}
		o.Responses = openapi3.NewResponses(
			openapi3.WithStatus(status, &openapi3.ResponseRef{Value: resp}),
			openapi3.WithName("default", openapi3.NewResponse().WithDescription("error envelope").WithJSONSchema(envelope)),
		)
		for _, p := range params {
			o.AddParameter(p)
		}
		return o
	}
	withBody := func(o *openapi3.Operation, s *openapi3.Schema) *openapi3.Operation {
		o.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchema(s)}
		return o
	}
	pathParam := func(name string) *openapi3.Parameter {
		return openapi3.NewPathParameter(name).WithSchema(str())
	}

	findBooks := op("findBooks", "Search books by isbn and/or title and author words", http.StatusOK, "page of books", bookList,
		openapi3.NewQueryParameter("isbn").WithSchema(str()),
		openapi3.NewQueryParameter("authorsTitleSearch").WithSchema(str()),
		openapi3.NewQueryParameter("_index").WithSchema(openapi3.NewIntegerSchema().WithMin(0)),
		openapi3.NewQueryParameter("_count").WithSchema(openapi3.NewIntegerSchema().WithMin(1).WithMax(model.MaxCount)),
	)
	putBook := withBody(op("addBook", "Add or replace a book", http.StatusNoContent, "saved", nil, pathParam("isbn")), bookBody)
	putBook.AddParameter(openapi3.NewHeaderParameter("X-Admin-Token").WithSchema(str()))

	return &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   "Bookstore API",
			Version: "1.0.0",
		},
		Paths: openapi3.NewPaths(
			openapi3.WithPath(Prefix, &openapi3.PathItem{
				Get: op("base", "Hypermedia root", http.StatusOK, "links to collections",
					openapi3.NewObjectSchema().WithProperty("links", links)),
			}),
			openapi3.WithPath(Prefix+"/carts", &openapi3.PathItem{
				Post: op("newCart", "Create a cart", http.StatusCreated, "created; Location holds the cart URL", nil),
			}),
			openapi3.WithPath(Prefix+"/carts/{id}", &openapi3.PathItem{
				Get:   op("getCart", "Get cart contents", http.StatusOK, "cart", cart, pathParam("id")),
				Patch: withBody(op("cartItem", "Set units of one item; zero removes it", http.StatusOK, "updated", nil, pathParam("id")), cartItem),
			}),
			openapi3.WithPath(Prefix+"/books", &openapi3.PathItem{Get: findBooks}),
			openapi3.WithPath(Prefix+"/books/{isbn}", &openapi3.PathItem{
				Get: op("getBook", "Get one book", http.StatusOK, "book", bookList, pathParam("isbn")),
				Put: putBook,
			}),
		),
	}
}

// Package api maps the bookstore REST endpoints onto model actions.
package api

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/bookstore/metrics"
	"github.com/eringen/bookstore/model"
)

// Prefix is the path all API routes live under.
const Prefix = "/api"

const (
	books = "books"
	carts = "carts"
)

// Link is a hypermedia link.
type Link struct {
	Rel  string `json:"rel"`
	Name string `json:"name"`
	Href string `json:"href"`
}

type bookResult struct {
	model.Book
	Links []Link `json:"links"`
}

type cartItem struct {
	SKU    string `json:"sku"`
	NUnits int    `json:"nUnits"`
	Links  []Link `json:"links"`
}

type cartResponse struct {
	LastModified time.Time  `json:"_lastModified"`
	Links        []Link     `json:"links"`
	Result       []cartItem `json:"result"`
}

type listResponse struct {
	Links  []Link       `json:"links"`
	Result []bookResult `json:"result"`
}

// Handler serves the REST endpoints.
type Handler struct {
	model      *model.Model
	limiter    *Limiter
	adminToken string
}

// Option configures a Handler.
type Option func(*Handler)

// WithCartLimit limits cart creation to max per window per client IP.
func WithCartLimit(max int, window time.Duration) Option {
	return func(h *Handler) {
		if max > 0 && window > 0 {
			h.limiter = NewLimiter(max, window)
		}
	}
}

// WithAdminToken requires token in X-Admin-Token for catalog writes.
func WithAdminToken(token string) Option {
	return func(h *Handler) { h.adminToken = token }
}

// New returns a Handler over m.
func New(m *model.Model, opts ...Option) *Handler {
	h := &Handler{model: m}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Close stops background work.
func (h *Handler) Close() {
	if h.limiter != nil {
		h.limiter.Stop()
	}
}

// RegisterRoutes mounts the API on e under Prefix.
func (h *Handler) RegisterRoutes(e *echo.Echo) *echo.Group {
	g := e.Group(Prefix)
	g.GET("", h.handleBase)
	g.POST("/"+carts, h.handleCreateCart)
	g.PATCH("/"+carts+"/:id", h.handleUpdateCart)
	g.GET("/"+carts+"/:id", h.handleGetCart)
	g.GET("/"+books, h.handleFindBooks)
	g.GET("/"+books+"/:isbn", h.handleGetBook)
	g.PUT("/"+books+"/:isbn", h.handlePutBook, h.RequireAdmin)
	g.GET("/openapi.json", h.handleOpenAPI)
	return g
}

// RequireAdmin rejects requests without the admin token when one is set.
func (h *Handler) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.adminToken == "" {
			return next(c)
		}
		got := c.Request().Header.Get("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.adminToken)) != 1 {
			env := envelope(http.StatusUnauthorized, CodeUnauthorized, "admin token required", "")
			return c.JSON(env.Status, env)
		}
		return next(c)
	}
}

func (h *Handler) handleBase(c echo.Context) error {
	self := selfURL(c)
	return c.JSON(http.StatusOK, map[string][]Link{
		"links": {
			{Rel: "self", Name: "self", Href: self},
			{Rel: "collection", Name: books, Href: baseURL(c) + "/" + books},
			{Rel: "collection", Name: carts, Href: baseURL(c) + "/" + carts},
		},
	})
}

func (h *Handler) handleCreateCart(c echo.Context) error {
	if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
		env := envelope(http.StatusTooManyRequests, CodeTooManyRequests, "too many carts created, try again later", "")
		return c.JSON(env.Status, env)
	}
	id, err := h.model.NewCart(c.Request().Context(), model.Values{})
	observe("newCart", err)
	if err != nil {
		return WriteError(c, err)
	}
	c.Response().Header().Set(echo.HeaderLocation, baseURL(c)+"/"+carts+"/"+url.PathEscape(id))
	return c.NoContent(http.StatusCreated)
}

func (h *Handler) handleUpdateCart(c echo.Context) error {
	values, err := bindValues(c)
	if err != nil {
		return WriteError(c, err)
	}
	values["cartId"] = c.Param("id")
	err = h.model.CartItem(c.Request().Context(), values)
	observe("cartItem", err)
	if err != nil {
		return WriteError(c, err)
	}
	return c.NoContent(http.StatusOK)
}

func (h *Handler) handleGetCart(c echo.Context) error {
	cart, err := h.model.GetCart(c.Request().Context(), model.Values{"cartId": c.Param("id")})
	observe("getCart", err)
	if err != nil {
		return WriteError(c, err)
	}
	skus := make([]string, 0, len(cart.Items))
	for sku := range cart.Items {
		skus = append(skus, sku)
	}
	sort.Strings(skus)
	resp := cartResponse{
		LastModified: cart.LastModified,
		Links:        []Link{{Rel: "self", Name: "self", Href: selfURL(c)}},
		Result:       make([]cartItem, 0, len(skus)),
	}
	for _, sku := range skus {
		resp.Result = append(resp.Result, cartItem{
			SKU:    sku,
			NUnits: cart.Items[sku],
			Links:  []Link{{Rel: "item", Name: "book", Href: bookURL(c, sku)}},
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) handleGetBook(c echo.Context) error {
	isbn := c.Param("isbn")
	found, err := h.model.FindBooks(c.Request().Context(), model.Values{"isbn": isbn})
	observe("findBooks", err)
	if err != nil {
		return WriteError(c, err)
	}
	if len(found) == 0 {
		return WriteError(c, model.Errors{{Code: model.CodeBadID, Message: "no book for isbn " + isbn, Name: "isbn"}})
	}
	return c.JSON(http.StatusOK, listResponse{
		Links:  []Link{{Rel: "self", Name: "self", Href: selfURL(c)}},
		Result: h.withLinks(c, found[:1]),
	})
}

// handleFindBooks asks for one book more than the page size to learn
// whether a next page exists.
func (h *Handler) handleFindBooks(c echo.Context) error {
	query := c.QueryParams()
	values := model.Values{}
	for name := range query {
		values[name] = query.Get(name)
	}
	index, count := 0, model.DefaultCount
	if n, err := strconv.Atoi(query.Get("_index")); err == nil {
		index = n
	}
	n, err := strconv.Atoi(query.Get("_count"))
	switch {
	case !query.Has("_count"):
		values["_count"] = count + 1
	case err == nil && n > 0 && n <= model.MaxCount:
		count = n
		values["_count"] = n + 1
	case err == nil:
		return WriteError(c, model.Errors{{
			Code:    model.CodeBadFieldValue,
			Message: fmt.Sprintf("Count must be between 1 and %d", model.MaxCount),
			Name:    "_count",
		}})
	}

	found, err := h.model.FindBooks(c.Request().Context(), values)
	observe("findBooks", err)
	if err != nil {
		return WriteError(c, err)
	}

	resp := listResponse{Links: []Link{{Rel: "self", Name: "self", Href: selfURL(c)}}}
	if len(found) > count {
		found = found[:count]
		resp.Links = append(resp.Links, Link{Rel: "next", Name: "next", Href: pageURL(c, query, index+count)})
	}
	if index > 0 {
		prev := index - count
		if prev < 0 {
			prev = 0
		}
		resp.Links = append(resp.Links, Link{Rel: "prev", Name: "prev", Href: pageURL(c, query, prev)})
	}
	resp.Result = h.withLinks(c, found)
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) handlePutBook(c echo.Context) error {
	values, err := bindValues(c)
	if err != nil {
		return WriteError(c, err)
	}
	isbn := c.Param("isbn")
	if v, ok := values["isbn"]; ok && v != isbn {
		return WriteError(c, model.Errors{{
			Code:    model.CodeBadFieldValue,
			Message: "ISBN in body does not match URL",
			Name:    "isbn",
		}})
	}
	values["isbn"] = isbn
	_, err = h.model.AddBook(c.Request().Context(), values)
	observe("addBook", err)
	if err != nil {
		return WriteError(c, err)
	}
	c.Response().Header().Set(echo.HeaderLocation, bookURL(c, isbn))
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) withLinks(c echo.Context, found []model.Book) []bookResult {
	out := make([]bookResult, len(found))
	for i, b := range found {
		out[i] = bookResult{
			Book:  b,
			Links: []Link{{Rel: "details", Name: "book", Href: bookURL(c, b.ISBN)}},
		}
	}
	return out
}

// bindValues decodes a JSON object body. Path and query parameters are
// not bound.
func bindValues(c echo.Context) (model.Values, error) {
	values := model.Values{}
	if c.Request().ContentLength == 0 {
		return values, nil
	}
	if err := (&echo.DefaultBinder{}).BindBody(c, &values); err != nil {
		return nil, model.Errors{{Code: model.CodeFormError, Message: "request body must be a JSON object"}}
	}
	return values, nil
}

func observe(action string, err error) {
	code := ""
	if err != nil {
		code = CodeServerError
		if errs, ok := model.AsErrors(err); ok {
			code = errs[0].Code
		}
	}
	metrics.ObserveAction(action, code)
}

func selfURL(c echo.Context) string {
	return c.Scheme() + "://" + c.Request().Host + c.Request().RequestURI
}

func baseURL(c echo.Context) string {
	return c.Scheme() + "://" + c.Request().Host + Prefix
}

func bookURL(c echo.Context, isbn string) string {
	return baseURL(c) + "/" + books + "/" + url.PathEscape(isbn)
}

func pageURL(c echo.Context, query url.Values, index int) string {
	q := url.Values{}
	for name, v := range query {
		q[name] = v
	}
	q.Set("_index", strconv.Itoa(index))
	return baseURL(c) + "/" + books + "?" + q.Encode()
}

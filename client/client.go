// Package client talks to the bookstore REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/eringen/bookstore/model"
)

// Link is a hypermedia link carried by API responses.
type Link struct {
	Rel  string `json:"rel"`
	Name string `json:"name"`
	Href string `json:"href"`
}

// Book is a catalog entry as served by the API.
type Book struct {
	model.Book
	Links []Link `json:"links,omitempty"`
}

// CartItem is one line of a cart.
type CartItem struct {
	SKU    string `json:"sku"`
	NUnits int    `json:"nUnits"`
	Links  []Link `json:"links,omitempty"`
}

// Cart is a cart as served by the API.
type Cart struct {
	LastModified time.Time  `json:"_lastModified"`
	Links        []Link     `json:"links"`
	Result       []CartItem `json:"result"`
}

// BookPage is one page of search results.
type BookPage struct {
	Links  []Link `json:"links"`
	Result []Book `json:"result"`
}

// Link returns the href of the link with rel, if present.
func (p BookPage) Link(rel string) (string, bool) {
	for _, l := range p.Links {
		if l.Rel == rel {
			return l.Href, true
		}
	}
	return "", false
}

// APIError is a non-2xx response carrying the error envelope.
type APIError struct {
	Status int           `json:"status"`
	Errors []model.Error `json:"errors"`
}

func (e *APIError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Message
	}
	return fmt.Sprintf("api status %d: %s", e.Status, strings.Join(msgs, "; "))
}

// Client issues requests against an API rooted at a base URL such as
// http://localhost:3000/api.
type Client struct {
	base       *url.URL
	http       *http.Client
	adminToken string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithAdminToken sets the X-Admin-Token sent with catalog writes.
func WithAdminToken(token string) Option {
	return func(c *Client) { c.adminToken = token }
}

// New returns a Client for the API at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("api url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api url %q must be absolute", baseURL)
	}
	c := &Client{base: u, http: &http.Client{Timeout: 10 * time.Second}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewCart creates a cart and returns its id, taken from the Location header.
func (c *Client) NewCart(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, c.url("carts"), nil, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	loc := resp.Header.Get("Location")
	if loc == "" {
		return "", fmt.Errorf("create cart: no Location header")
	}
	return path.Base(loc), nil
}

// UpdateCartItem sets the units of sku in the cart.
func (c *Client) UpdateCartItem(ctx context.Context, cartID string, fields map[string]any) error {
	resp, err := c.do(ctx, http.MethodPatch, c.url("carts", cartID), fields, nil)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// GetCart fetches the cart with id.
func (c *Client) GetCart(ctx context.Context, cartID string) (Cart, error) {
	var cart Cart
	return cart, c.getJSON(ctx, c.url("carts", cartID), &cart)
}

// GetBook fetches the book with isbn.
func (c *Client) GetBook(ctx context.Context, isbn string) (Book, error) {
	var page BookPage
	if err := c.getJSON(ctx, c.url("books", isbn), &page); err != nil {
		return Book{}, err
	}
	if len(page.Result) == 0 {
		return Book{}, fmt.Errorf("book %s: empty result", isbn)
	}
	return page.Result[0], nil
}

// FindBooks searches the catalog. Query keys are the findBooks fields.
func (c *Client) FindBooks(ctx context.Context, query url.Values) (BookPage, error) {
	u := c.url("books")
	u.RawQuery = query.Encode()
	return c.FindBooksAt(ctx, u.String())
}

// FindBooksAt follows a next or prev link returned by FindBooks.
func (c *Client) FindBooksAt(ctx context.Context, href string) (BookPage, error) {
	u, err := url.Parse(href)
	if err != nil {
		return BookPage{}, err
	}
	var page BookPage
	return page, c.getJSON(ctx, u, &page)
}

// PutBook adds or replaces the book with isbn.
func (c *Client) PutBook(ctx context.Context, isbn string, fields map[string]any) error {
	hdr := http.Header{}
	if c.adminToken != "" {
		hdr.Set("X-Admin-Token", c.adminToken)
	}
	resp, err := c.do(ctx, http.MethodPut, c.url("books", isbn), fields, hdr)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

func (c *Client) url(segs ...string) *url.URL {
	return c.base.JoinPath(segs...)
}

func (c *Client) getJSON(ctx context.Context, u *url.URL, out any) error {
	resp, err := c.do(ctx, http.MethodGet, u, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", u.Path, err)
	}
	return nil
}

// do sends the request and turns non-2xx responses into *APIError.
func (c *Client) do(ctx context.Context, method string, u *url.URL, body any, hdr http.Header) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return nil, err
	}
	for k, v := range hdr {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		apiErr := &APIError{Status: resp.StatusCode}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err := json.Unmarshal(data, apiErr); err != nil || len(apiErr.Errors) == 0 {
			apiErr.Errors = []model.Error{{Code: "SERVER_ERROR", Message: http.StatusText(resp.StatusCode)}}
		}
		apiErr.Status = resp.StatusCode
		return nil, apiErr
	}
	return resp, nil
}

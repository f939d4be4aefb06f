package model

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Model validates action requests and carries them out against a Storage.
type Model struct {
	store Storage
	newID func() string
	clock *clock
}

// Option configures a Model.
type Option func(*Model)

// WithIDGenerator replaces the cart id generator.
func WithIDGenerator(fn func() string) Option {
	return func(m *Model) { m.newID = fn }
}

// WithClock replaces the time source used for _lastModified.
func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.clock.now = now }
}

// New returns a Model backed by s.
func New(s Storage, opts ...Option) *Model {
	m := &Model{
		store: s,
		newID: func() string { return uuid.New().String() },
		clock: &clock{now: time.Now},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Actions lists the names accepted by Do.
func Actions() []string {
	return []string{"newCart", "cartItem", "getCart", "addBook", "findBooks"}
}

// Do runs the named action with raw field values.
func (m *Model) Do(ctx context.Context, action string, raw Values) (any, error) {
	switch action {
	case "newCart":
		return m.NewCart(ctx, raw)
	case "cartItem":
		return nil, m.CartItem(ctx, raw)
	case "getCart":
		return m.GetCart(ctx, raw)
	case "addBook":
		return m.AddBook(ctx, raw)
	case "findBooks":
		return m.FindBooks(ctx, raw)
	}
	return nil, Errors{{Code: CodeBadAct, Message: fmt.Sprintf("unknown action %q", action)}}
}

// NewCart creates an empty cart and returns its id.
func (m *Model) NewCart(ctx context.Context, raw Values) (string, error) {
	if _, err := validate("newCart", raw); err != nil {
		return "", err
	}
	id := m.newID()
	if err := m.store.CreateCart(ctx, id, m.clock.next()); err != nil {
		return "", dbError(err)
	}
	return id, nil
}

// CartItem sets the units of sku in cart cartId. Zero units removes the
// item. Both the cart and the book must exist.
func (m *Model) CartItem(ctx context.Context, raw Values) error {
	v, err := validate("cartItem", raw)
	if err != nil {
		return err
	}
	cartID, sku, units := v["cartId"].(string), v["sku"].(string), v["nUnits"].(int)

	hasBook, err := m.store.HasBook(ctx, sku)
	if err != nil {
		return dbError(err)
	}
	if !hasBook {
		errs := Errors{{Code: CodeBadID, Message: fmt.Sprintf("unknown sku %s", sku), Name: "sku"}}
		_, found, err := m.store.Cart(ctx, cartID)
		if err != nil {
			return dbError(err)
		}
		if !found {
			errs = append(Errors{unknownCart(cartID)}, errs...)
		}
		return errs
	}

	found, err := m.store.UpdateCartItem(ctx, cartID, sku, units, m.clock.next())
	if err != nil {
		return dbError(err)
	}
	if !found {
		return Errors{unknownCart(cartID)}
	}
	return nil
}

// GetCart returns the contents of cart cartId.
func (m *Model) GetCart(ctx context.Context, raw Values) (Cart, error) {
	v, err := validate("getCart", raw)
	if err != nil {
		return Cart{}, err
	}
	cartID := v["cartId"].(string)
	cart, found, err := m.store.Cart(ctx, cartID)
	if err != nil {
		return Cart{}, dbError(err)
	}
	if !found {
		return Cart{}, Errors{unknownCart(cartID)}
	}
	if cart.Items == nil {
		cart.Items = map[string]int{}
	}
	return cart, nil
}

// AddBook inserts or overwrites the book keyed by isbn and returns the isbn.
func (m *Model) AddBook(ctx context.Context, raw Values) (string, error) {
	v, err := validate("addBook", raw)
	if err != nil {
		return "", err
	}
	b := Book{
		ISBN:         v["isbn"].(string),
		Title:        v["title"].(string),
		Authors:      v["authors"].([]string),
		Publisher:    v["publisher"].(string),
		Year:         v["year"].(int),
		Pages:        v["pages"].(int),
		LastModified: m.clock.next(),
	}
	if err := m.store.PutBook(ctx, b); err != nil {
		return "", dbError(err)
	}
	return b.ISBN, nil
}

// FindBooks returns books matching isbn and/or the words of
// authorsTitleSearch, sorted by title and paged by _index and _count.
func (m *Model) FindBooks(ctx context.Context, raw Values) ([]Book, error) {
	v, err := validate("findBooks", raw)
	if err != nil {
		return nil, err
	}
	q := BookQuery{Index: 0, Count: DefaultCount}
	q.ISBN, _ = v["isbn"].(string)
	q.Search, _ = v["authorsTitleSearch"].(string)
	if q.ISBN == "" && q.Search == "" {
		return nil, Errors{{Code: CodeFormError, Message: "At least one search field must be specified."}}
	}
	if n, ok := v["_index"].(int); ok {
		q.Index = n
	}
	if n, ok := v["_count"].(int); ok {
		q.Count = n
	}
	books, err := m.store.FindBooks(ctx, q)
	if err != nil {
		return nil, dbError(err)
	}
	if books == nil {
		books = []Book{}
	}
	return books, nil
}

// RecentBooks returns up to limit books, most recently modified first.
func (m *Model) RecentBooks(ctx context.Context, limit int) ([]Book, error) {
	books, err := m.store.RecentBooks(ctx, limit)
	if err != nil {
		return nil, dbError(err)
	}
	return books, nil
}

// Clear removes all carts and books.
func (m *Model) Clear(ctx context.Context) error {
	if err := m.store.Clear(ctx); err != nil {
		return dbError(err)
	}
	return nil
}

// Close releases the storage.
func (m *Model) Close() error {
	return m.store.Close()
}

func unknownCart(id string) Error {
	return Error{Code: CodeBadID, Message: fmt.Sprintf("unknown cart %s", id), Name: "cartId"}
}

// clock hands out strictly increasing UTC timestamps at millisecond
// resolution, matching what the storage backends round trip.
type clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func (c *clock) next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC().Truncate(time.Millisecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Millisecond)
	}
	c.last = t
	return t
}

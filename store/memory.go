package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/eringen/bookstore/model"
)

// Memory is an in-process backend used by tests and "memory:" URLs.
type Memory struct {
	mu    sync.RWMutex
	carts map[string]model.Cart
	books map[string]model.Book
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		carts: make(map[string]model.Cart),
		books: make(map[string]model.Book),
	}
}

func (m *Memory) CreateCart(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[id] = model.Cart{LastModified: at, Items: map[string]int{}}
	return nil
}

func (m *Memory) UpdateCartItem(_ context.Context, cartID, sku string, units int, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[cartID]
	if !ok {
		return false, nil
	}
	if units == 0 {
		delete(cart.Items, sku)
	} else {
		cart.Items[sku] = units
	}
	cart.LastModified = at
	m.carts[cartID] = cart
	return true, nil
}

func (m *Memory) Cart(_ context.Context, id string) (model.Cart, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cart, ok := m.carts[id]
	if !ok {
		return model.Cart{}, false, nil
	}
	items := make(map[string]int, len(cart.Items))
	for k, v := range cart.Items {
		items[k] = v
	}
	return model.Cart{LastModified: cart.LastModified, Items: items}, true, nil
}

func (m *Memory) HasBook(_ context.Context, isbn string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.books[isbn]
	return ok, nil
}

func (m *Memory) PutBook(_ context.Context, b model.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.Authors = append([]string(nil), b.Authors...)
	m.books[b.ISBN] = b
	return nil
}

func (m *Memory) FindBooks(_ context.Context, q model.BookQuery) ([]model.Book, error) {
	terms := SearchTerms(q.Search)
	if q.Search != "" && len(terms) == 0 {
		return []model.Book{}, nil
	}
	m.mu.RLock()
	var matches []model.Book
	for _, b := range m.books {
		if q.ISBN != "" && b.ISBN != q.ISBN {
			continue
		}
		if len(terms) > 0 && !matchesAny(b, terms) {
			continue
		}
		matches = append(matches, cloneBook(b))
	}
	m.mu.RUnlock()
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Title != matches[j].Title {
			return matches[i].Title < matches[j].Title
		}
		return matches[i].ISBN < matches[j].ISBN
	})
	return page(matches, q.Index, q.Count), nil
}

// cloneBook copies b so callers cannot reach the stored authors.
func cloneBook(b model.Book) model.Book {
	b.Authors = append([]string(nil), b.Authors...)
	return b
}

func matchesAny(b model.Book, terms []string) bool {
	words := make(map[string]bool)
	for _, w := range SearchTerms(b.Title + " " + strings.Join(b.Authors, " ")) {
		words[w] = true
	}
	for _, t := range terms {
		if words[t] {
			return true
		}
	}
	return false
}

func (m *Memory) RecentBooks(_ context.Context, limit int) ([]model.Book, error) {
	m.mu.RLock()
	books := make([]model.Book, 0, len(m.books))
	for _, b := range m.books {
		books = append(books, cloneBook(b))
	}
	m.mu.RUnlock()
	sort.Slice(books, func(i, j int) bool {
		return books[i].LastModified.After(books[j].LastModified)
	})
	return page(books, 0, limit), nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts = make(map[string]model.Cart)
	m.books = make(map[string]model.Book)
	return nil
}

func (m *Memory) Close() error { return nil }

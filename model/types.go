package model

import (
	"context"
	"time"
)

// Values is a raw field-name to value mapping as received from a caller.
// Values are strings, numbers or lists of strings.
type Values map[string]any

// Book is a catalog entry keyed by ISBN.
type Book struct {
	ISBN         string    `json:"isbn" bson:"isbn"`
	Title        string    `json:"title" bson:"title"`
	Authors      []string  `json:"authors" bson:"authors"`
	Publisher    string    `json:"publisher" bson:"publisher"`
	Year         int       `json:"year" bson:"year"`
	Pages        int       `json:"pages" bson:"pages"`
	LastModified time.Time `json:"_lastModified" bson:"_lastModified"`
}

// Cart maps SKUs to positive unit counts.
type Cart struct {
	LastModified time.Time      `json:"_lastModified"`
	Items        map[string]int `json:"items"`
}

// BookQuery selects books by exact ISBN and/or words in title and authors.
type BookQuery struct {
	ISBN   string
	Search string
	Index  int
	Count  int
}

// Storage persists carts and books. Implementations report a missing
// cart through the found result rather than an error.
type Storage interface {
	CreateCart(ctx context.Context, id string, at time.Time) error
	// UpdateCartItem sets units of sku in the cart; zero units removes it.
	UpdateCartItem(ctx context.Context, cartID, sku string, units int, at time.Time) (found bool, err error)
	Cart(ctx context.Context, id string) (Cart, bool, error)
	HasBook(ctx context.Context, isbn string) (bool, error)
	// PutBook inserts the book or overwrites the one with the same ISBN.
	PutBook(ctx context.Context, b Book) error
	// FindBooks returns matches sorted by title, paged by q.Index and q.Count.
	FindBooks(ctx context.Context, q BookQuery) ([]Book, error)
	// RecentBooks returns up to limit books, most recently modified first.
	RecentBooks(ctx context.Context, limit int) ([]Book, error)
	Clear(ctx context.Context) error
	Close() error
}

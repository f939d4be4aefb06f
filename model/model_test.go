package model_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/eringen/bookstore/model"
	"github.com/eringen/bookstore/store"
)

func newModel(t *testing.T, opts ...model.Option) *model.Model {
	t.Helper()
	m := model.New(store.NewMemory(), opts...)
	t.Cleanup(func() { m.Close() })
	return m
}

func bookValues(isbn, title string) model.Values {
	return model.Values{
		"isbn":      isbn,
		"title":     title,
		"authors":   []any{"Alan Donovan", "Brian Kernighan"},
		"publisher": "Addison-Wesley",
		"year":      float64(2015),
		"pages":     "380",
	}
}

func codes(t *testing.T, err error) []string {
	t.Helper()
	errs, ok := model.AsErrors(err)
	if !ok {
		t.Fatalf("error %v is not model.Errors", err)
	}
	var out []string
	for _, e := range errs {
		out = append(out, e.Code+":"+e.Name)
	}
	return out
}

func TestNewCartIDsAreUnique(t *testing.T) {
	m := newModel(t)
	ctx := context.Background()
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id, err := m.NewCart(ctx, nil)
		if err != nil {
			t.Fatalf("NewCart: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate cart id %s", id)
		}
		seen[id] = true
	}
}

func TestCartLifecycle(t *testing.T) {
	m := newModel(t)
	ctx := context.Background()
	if _, err := m.AddBook(ctx, bookValues("978-0134190440", "The Go Programming Language")); err != nil {
		t.Fatalf("AddBook: %v", err)
	}
	id, err := m.NewCart(ctx, model.Values{})
	if err != nil {
		t.Fatalf("NewCart: %v", err)
	}
	created, err := m.GetCart(ctx, model.Values{"cartId": id})
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}

	if err := m.CartItem(ctx, model.Values{"cartId": id, "sku": "978-0134190440", "nUnits": "2"}); err != nil {
		t.Fatalf("CartItem: %v", err)
	}
	cart, err := m.GetCart(ctx, model.Values{"cartId": id})
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if diff := cmp.Diff(map[string]int{"978-0134190440": 2}, cart.Items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
	if !cart.LastModified.After(created.LastModified) {
		t.Errorf("_lastModified %v not after %v", cart.LastModified, created.LastModified)
	}

	if err := m.CartItem(ctx, model.Values{"cartId": id, "sku": "978-0134190440", "nUnits": 0}); err != nil {
		t.Fatalf("CartItem remove: %v", err)
	}
	cart, _ = m.GetCart(ctx, model.Values{"cartId": id})
	if len(cart.Items) != 0 {
		t.Errorf("items after removal = %v", cart.Items)
	}
}

func TestCartItemBadIDs(t *testing.T) {
	m := newModel(t)
	ctx := context.Background()
	id, _ := m.NewCart(ctx, nil)

	err := m.CartItem(ctx, model.Values{"cartId": id, "sku": "1234567890", "nUnits": 1})
	if diff := cmp.Diff([]string{"BAD_ID:sku"}, codes(t, err)); diff != "" {
		t.Errorf("unknown sku (-want +got):\n%s", diff)
	}

	err = m.CartItem(ctx, model.Values{"cartId": "nope", "sku": "1234567890", "nUnits": 1})
	if diff := cmp.Diff([]string{"BAD_ID:cartId", "BAD_ID:sku"}, codes(t, err)); diff != "" {
		t.Errorf("unknown cart and sku (-want +got):\n%s", diff)
	}

	m.AddBook(ctx, bookValues("1234567890", "Known"))
	err = m.CartItem(ctx, model.Values{"cartId": "nope", "sku": "1234567890", "nUnits": 1})
	if diff := cmp.Diff([]string{"BAD_ID:cartId"}, codes(t, err)); diff != "" {
		t.Errorf("unknown cart (-want +got):\n%s", diff)
	}

	_, err = m.GetCart(ctx, model.Values{"cartId": "nope"})
	if diff := cmp.Diff([]string{"BAD_ID:cartId"}, codes(t, err)); diff != "" {
		t.Errorf("GetCart (-want +got):\n%s", diff)
	}
}

func TestValidationErrors(t *testing.T) {
	m := newModel(t)
	ctx := context.Background()
	tests := []struct {
		name   string
		action string
		values model.Values
		want   []string
	}{
		{"forbidden _id", "newCart", model.Values{"_id": "x"}, []string{"BAD_FIELD:_id"}},
		{"unknown field", "getCart", model.Values{"cartId": "c", "color": "red"}, []string{"BAD_FIELD:color"}},
		{"missing", "cartItem", model.Values{"cartId": "c"}, []string{"MISSING_FIELD:sku", "MISSING_FIELD:nUnits"}},
		{"negative units", "cartItem", model.Values{"cartId": "c", "sku": "1234567890", "nUnits": -1}, []string{"BAD_FIELD_VALUE:nUnits"}},
		{"bad isbn", "addBook", func() model.Values { v := bookValues("12-34", "T"); return v }(), []string{"BAD_FIELD_VALUE:isbn"}},
		{"bad year", "addBook", func() model.Values { v := bookValues("1234567890", "T"); v["year"] = 1200; return v }(), []string{"BAD_FIELD_VALUE:year"}},
		{"blank title", "addBook", func() model.Values { v := bookValues("1234567890", "T"); v["title"] = "  "; return v }(), []string{"MISSING_FIELD:title"}},
		{"no search fields", "findBooks", model.Values{"_count": 3}, []string{"FORM_ERROR:"}},
		{"bad count", "findBooks", model.Values{"isbn": "1234567890", "_count": "zero"}, []string{"BAD_FIELD_VALUE:_count"}},
		{"unknown action", "deleteBook", model.Values{}, []string{"BAD_ACT:"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Do(ctx, tt.action, tt.values)
			if diff := cmp.Diff(tt.want, codes(t, err)); diff != "" {
				t.Errorf("codes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMissingFieldMessageUsesLabel(t *testing.T) {
	m := newModel(t)
	_, err := m.GetCart(context.Background(), model.Values{})
	errs, _ := model.AsErrors(err)
	if len(errs) != 1 || errs[0].Message != "The field Cart ID must be specified." {
		t.Errorf("errors = %+v", errs)
	}
}

func TestAddBookSanitizesAndSplitsAuthors(t *testing.T) {
	m := newModel(t)
	ctx := context.Background()
	v := bookValues("123456789X", "<b>Go</b> &amp; You")
	v["authors"] = "Rob Pike; Ken Thompson ;"
	if _, err := m.AddBook(ctx, v); err != nil {
		t.Fatalf("AddBook: %v", err)
	}
	books, err := m.FindBooks(ctx, model.Values{"isbn": "123456789X"})
	if err != nil {
		t.Fatalf("FindBooks: %v", err)
	}
	if len(books) != 1 {
		t.Fatalf("len = %d", len(books))
	}
	if books[0].Title != "Go & You" {
		t.Errorf("Title = %q", books[0].Title)
	}
	if diff := cmp.Diff([]string{"Rob Pike", "Ken Thompson"}, books[0].Authors); diff != "" {
		t.Errorf("authors (-want +got):\n%s", diff)
	}
}

func TestAddBookRoundTripRefreshesTimestamp(t *testing.T) {
	m := newModel(t)
	ctx := context.Background()
	if _, err := m.AddBook(ctx, bookValues("1234567890", "First")); err != nil {
		t.Fatalf("AddBook: %v", err)
	}
	first, _ := m.FindBooks(ctx, model.Values{"isbn": "1234567890"})
	isbn, err := m.AddBook(ctx, bookValues("1234567890", "Second"))
	if err != nil || isbn != "1234567890" {
		t.Fatalf("AddBook = %q, %v", isbn, err)
	}
	second, _ := m.FindBooks(ctx, model.Values{"isbn": "1234567890"})
	if len(second) != 1 || second[0].Title != "Second" {
		t.Fatalf("after update = %+v", second)
	}
	if !second[0].LastModified.After(first[0].LastModified) {
		t.Errorf("_lastModified %v not after %v", second[0].LastModified, first[0].LastModified)
	}
}

func TestFindBooksPaging(t *testing.T) {
	m := newModel(t)
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		if _, err := m.AddBook(ctx, bookValues(fmt.Sprintf("10000000%02d", i), fmt.Sprintf("Go %02d", i))); err != nil {
			t.Fatalf("AddBook: %v", err)
		}
	}
	page, err := m.FindBooks(ctx, model.Values{"authorsTitleSearch": "kernighan"})
	if err != nil {
		t.Fatalf("FindBooks: %v", err)
	}
	if len(page) != model.DefaultCount {
		t.Errorf("default page len = %d, want %d", len(page), model.DefaultCount)
	}
	past, err := m.FindBooks(ctx, model.Values{"authorsTitleSearch": "kernighan", "_index": "15"})
	if err != nil {
		t.Fatalf("FindBooks past end: %v", err)
	}
	if past == nil || len(past) != 0 {
		t.Errorf("past end = %#v, want empty", past)
	}
}

type failingStore struct{ model.Storage }

func (failingStore) CreateCart(context.Context, string, time.Time) error {
	return errors.New("disk full")
}

func TestStorageFailureIsDB(t *testing.T) {
	m := model.New(failingStore{store.NewMemory()})
	_, err := m.NewCart(context.Background(), nil)
	if diff := cmp.Diff([]string{"DB:"}, codes(t, err)); diff != "" {
		t.Errorf("codes (-want +got):\n%s", diff)
	}
}

func TestClockIsStrictlyIncreasing(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := newModel(t, model.WithClock(func() time.Time { return fixed }))
	ctx := context.Background()
	a, _ := m.NewCart(ctx, nil)
	b, _ := m.NewCart(ctx, nil)
	ca, _ := m.GetCart(ctx, model.Values{"cartId": a})
	cb, _ := m.GetCart(ctx, model.Values{"cartId": b})
	if !cb.LastModified.After(ca.LastModified) {
		t.Errorf("%v not after %v", cb.LastModified, ca.LastModified)
	}
}

func TestWithIDGenerator(t *testing.T) {
	m := newModel(t, model.WithIDGenerator(func() string { return "fixed" }))
	id, err := m.NewCart(context.Background(), nil)
	if err != nil || id != "fixed" {
		t.Errorf("NewCart = %q, %v", id, err)
	}
}

// Package store holds the storage backends behind model.Storage.
package store

import (
	"context"
	"strings"
	"unicode"

	"github.com/eringen/bookstore/model"
)

// Open returns the backend selected by url: "memory:" keeps everything in
// process, mongodb:// and mongodb+srv:// URLs connect to MongoDB using
// database dbName, anything else is a SQLite file path.
func Open(ctx context.Context, url, dbName string) (model.Storage, error) {
	switch {
	case url == "memory:":
		return NewMemory(), nil
	case strings.HasPrefix(url, "mongodb://"), strings.HasPrefix(url, "mongodb+srv://"):
		return OpenMongo(ctx, url, dbName)
	default:
		return OpenSQLite(ctx, url)
	}
}

// SearchTerms splits a free-text search into words. Punctuation separates
// words and is dropped.
func SearchTerms(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// ftsQuery builds an FTS5 MATCH expression where any term may match.
// Terms are quoted so that FTS5 operators in user input are literal.
func ftsQuery(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + t + `"`
	}
	return strings.Join(quoted, " OR ")
}

func page(books []model.Book, index, count int) []model.Book {
	if index >= len(books) {
		return []model.Book{}
	}
	end := len(books)
	if count > 0 && index+count < end {
		end = index + count
	}
	return books[index:end]
}

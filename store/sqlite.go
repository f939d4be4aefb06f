package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eringen/bookstore/model"
)

// SQLite stores carts and books in a SQLite database with an FTS5 index
// over book titles and authors.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path, ensures the data
// directory exists, and creates the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets readers proceed during writes; busy_timeout makes writers
	// wait instead of failing with SQLITE_BUSY.
	if _, err := db.ExecContext(ctx, `
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA foreign_keys=ON;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &SQLite{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS books (
    isbn TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    authors TEXT NOT NULL,
    publisher TEXT NOT NULL,
    year INTEGER NOT NULL,
    pages INTEGER NOT NULL,
    modified INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS books_title ON books (title, isbn);
CREATE INDEX IF NOT EXISTS books_modified ON books (modified);
CREATE VIRTUAL TABLE IF NOT EXISTS books_fts USING fts5 (isbn UNINDEXED, title, authors);
CREATE TABLE IF NOT EXISTS carts (
    id TEXT PRIMARY KEY,
    modified INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS cart_items (
    cart_id TEXT NOT NULL REFERENCES carts (id) ON DELETE CASCADE,
    sku TEXT NOT NULL,
    units INTEGER NOT NULL,
    PRIMARY KEY (cart_id, sku)
);
`)
	return err
}

func (s *SQLite) CreateCart(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO carts (id, modified) VALUES (?, ?)`, id, at.UnixMilli())
	return err
}

func (s *SQLite) UpdateCartItem(ctx context.Context, cartID, sku string, units int, at time.Time) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE carts SET modified = ? WHERE id = ?`, at.UnixMilli(), cartID)
	if err != nil {
		return false, err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return false, err
	}
	if units == 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = ? AND sku = ?`, cartID, sku)
	} else {
		_, err = tx.ExecContext(ctx, `
INSERT INTO cart_items (cart_id, sku, units) VALUES (?, ?, ?)
ON CONFLICT (cart_id, sku) DO UPDATE SET units = excluded.units`, cartID, sku, units)
	}
	if err != nil {
		return false, err
	}
	return true, tx.Commit()
}

func (s *SQLite) Cart(ctx context.Context, id string) (model.Cart, bool, error) {
	var modified int64
	err := s.db.QueryRowContext(ctx, `SELECT modified FROM carts WHERE id = ?`, id).Scan(&modified)
	if err == sql.ErrNoRows {
		return model.Cart{}, false, nil
	}
	if err != nil {
		return model.Cart{}, false, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT sku, units FROM cart_items WHERE cart_id = ? ORDER BY sku`, id)
	if err != nil {
		return model.Cart{}, false, err
	}
	defer rows.Close()

	cart := model.Cart{LastModified: time.UnixMilli(modified).UTC(), Items: map[string]int{}}
	for rows.Next() {
		var sku string
		var units int
		if err := rows.Scan(&sku, &units); err != nil {
			return model.Cart{}, false, err
		}
		cart.Items[sku] = units
	}
	return cart, true, rows.Err()
}

func (s *SQLite) HasBook(ctx context.Context, isbn string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM books WHERE isbn = ?`, isbn).Scan(&n)
	return n > 0, err
}

func (s *SQLite) PutBook(ctx context.Context, b model.Book) error {
	authors, err := json.Marshal(b.Authors)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO books (isbn, title, authors, publisher, year, pages, modified) VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (isbn) DO UPDATE SET
    title = excluded.title, authors = excluded.authors, publisher = excluded.publisher,
    year = excluded.year, pages = excluded.pages, modified = excluded.modified`,
		b.ISBN, b.Title, string(authors), b.Publisher, b.Year, b.Pages, b.LastModified.UnixMilli()); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM books_fts WHERE isbn = ?`, b.ISBN); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO books_fts (isbn, title, authors) VALUES (?, ?, ?)`,
		b.ISBN, b.Title, strings.Join(b.Authors, " ")); err != nil {
		return err
	}
	return tx.Commit()
}

const bookColumns = `b.isbn, b.title, b.authors, b.publisher, b.year, b.pages, b.modified`

func (s *SQLite) FindBooks(ctx context.Context, q model.BookQuery) ([]model.Book, error) {
	var where []string
	var args []any
	if q.ISBN != "" {
		where = append(where, `b.isbn = ?`)
		args = append(args, q.ISBN)
	}
	if q.Search != "" {
		terms := SearchTerms(q.Search)
		if len(terms) == 0 {
			return []model.Book{}, nil
		}
		where = append(where, `b.isbn IN (SELECT isbn FROM books_fts WHERE books_fts MATCH ?)`)
		args = append(args, ftsQuery(terms))
	}
	query := `SELECT ` + bookColumns + ` FROM books b`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY b.title, b.isbn LIMIT ? OFFSET ?`
	args = append(args, q.Count, q.Index)
	return s.queryBooks(ctx, query, args...)
}

func (s *SQLite) RecentBooks(ctx context.Context, limit int) ([]model.Book, error) {
	return s.queryBooks(ctx, `SELECT `+bookColumns+` FROM books b ORDER BY b.modified DESC LIMIT ?`, limit)
}

func (s *SQLite) queryBooks(ctx context.Context, query string, args ...any) ([]model.Book, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := []model.Book{}
	for rows.Next() {
		var b model.Book
		var authors string
		var modified int64
		if err := rows.Scan(&b.ISBN, &b.Title, &authors, &b.Publisher, &b.Year, &b.Pages, &modified); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(authors), &b.Authors); err != nil {
			return nil, fmt.Errorf("book %s authors: %w", b.ISBN, err)
		}
		b.LastModified = time.UnixMilli(modified).UTC()
		books = append(books, b)
	}
	return books, rows.Err()
}

func (s *SQLite) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
DELETE FROM cart_items;
DELETE FROM carts;
DELETE FROM books_fts;
DELETE FROM books;
`)
	return err
}

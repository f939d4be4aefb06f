package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/eringen/bookstore/model"
)

const (
	booksCollection = "books"
	cartsCollection = "carts"
)

// Mongo stores carts and books in a MongoDB database. Books carry a text
// index over title and authors.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
	books  *mongo.Collection
	carts  *mongo.Collection
}

type cartDoc struct {
	ID           string         `bson:"_id"`
	LastModified time.Time      `bson:"_lastModified"`
	Items        map[string]int `bson:"items"`
}

// OpenMongo connects to url and prepares database dbName.
func OpenMongo(ctx context.Context, url, dbName string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, fmt.Errorf("cannot connect to URL %q: %w", url, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("cannot connect to URL %q: %w", url, err)
	}
	db := client.Database(dbName)
	m := &Mongo{
		client: client,
		db:     db,
		books:  db.Collection(booksCollection),
		carts:  db.Collection(cartsCollection),
	}
	if err := m.ensureIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	_, err := m.books.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "isbn", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "title", Value: "text"}, {Key: "authors", Value: "text"}}},
		{Keys: bson.D{{Key: "title", Value: 1}}},
		{Keys: bson.D{{Key: "_lastModified", Value: -1}}},
	})
	return err
}

// Close disconnects the client.
func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *Mongo) CreateCart(ctx context.Context, id string, at time.Time) error {
	_, err := m.carts.InsertOne(ctx, cartDoc{ID: id, LastModified: at, Items: map[string]int{}})
	return err
}

func (m *Mongo) UpdateCartItem(ctx context.Context, cartID, sku string, units int, at time.Time) (bool, error) {
	update := bson.M{"$set": bson.M{"_lastModified": at}}
	if units == 0 {
		update["$unset"] = bson.M{"items." + sku: ""}
	} else {
		update["$set"].(bson.M)["items."+sku] = units
	}
	res, err := m.carts.UpdateOne(ctx, bson.M{"_id": cartID}, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (m *Mongo) Cart(ctx context.Context, id string) (model.Cart, bool, error) {
	var doc cartDoc
	err := m.carts.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Cart{}, false, nil
	}
	if err != nil {
		return model.Cart{}, false, err
	}
	if doc.Items == nil {
		doc.Items = map[string]int{}
	}
	return model.Cart{LastModified: doc.LastModified.UTC(), Items: doc.Items}, true, nil
}

func (m *Mongo) HasBook(ctx context.Context, isbn string) (bool, error) {
	n, err := m.books.CountDocuments(ctx, bson.M{"isbn": isbn}, options.Count().SetLimit(1))
	return n > 0, err
}

func (m *Mongo) PutBook(ctx context.Context, b model.Book) error {
	_, err := m.books.UpdateOne(ctx,
		bson.M{"isbn": b.ISBN},
		bson.M{"$set": b},
		options.Update().SetUpsert(true))
	return err
}

var bookProjection = bson.M{"_id": 0}

func (m *Mongo) FindBooks(ctx context.Context, q model.BookQuery) ([]model.Book, error) {
	filter := bson.M{}
	if q.ISBN != "" {
		filter["isbn"] = q.ISBN
	}
	if q.Search != "" {
		terms := SearchTerms(q.Search)
		if len(terms) == 0 {
			return []model.Book{}, nil
		}
		filter["$text"] = bson.M{"$search": strings.Join(terms, " ")}
	}
	opts := options.Find().
		SetProjection(bookProjection).
		SetSort(bson.D{{Key: "title", Value: 1}, {Key: "isbn", Value: 1}}).
		SetSkip(int64(q.Index)).
		SetLimit(int64(q.Count))
	return m.findBooks(ctx, filter, opts)
}

func (m *Mongo) RecentBooks(ctx context.Context, limit int) ([]model.Book, error) {
	opts := options.Find().
		SetProjection(bookProjection).
		SetSort(bson.D{{Key: "_lastModified", Value: -1}}).
		SetLimit(int64(limit))
	return m.findBooks(ctx, bson.M{}, opts)
}

func (m *Mongo) findBooks(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]model.Book, error) {
	cur, err := m.books.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	books := []model.Book{}
	if err := cur.All(ctx, &books); err != nil {
		return nil, err
	}
	for i := range books {
		books[i].LastModified = books[i].LastModified.UTC()
	}
	return books, nil
}

func (m *Mongo) Clear(ctx context.Context) error {
	if _, err := m.carts.DeleteMany(ctx, bson.M{}); err != nil {
		return err
	}
	_, err := m.books.DeleteMany(ctx, bson.M{})
	return err
}

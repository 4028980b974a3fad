// Package mongostore implements the repository contracts on MongoDB. Every
// mutation is a single-document update; guarded transitions filter on the
// status they expect, so a lost race matches nothing.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/repository"
)

const (
	catalogCollection = "menu_items"
	couponCollection  = "coupons"
	orderCollection   = "orders"
	userCollection    = "users"
)

// New builds a repository.Store on db. The caller owns the client; Close
// disconnects it.
func New(client *mongo.Client, db *mongo.Database) *repository.Store {
	return &repository.Store{
		Catalog: &CatalogRepository{coll: db.Collection(catalogCollection)},
		Coupons: &CouponRepository{coll: db.Collection(couponCollection), now: time.Now},
		Orders:  &OrderRepository{coll: db.Collection(orderCollection), now: time.Now},
		Users:   &UserRepository{coll: db.Collection(userCollection)},
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		Close: client.Disconnect,
	}
}

// EnsureIndexes creates the unique and lookup indexes the repositories rely
// on. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		orderCollection: {
			{Keys: bson.D{{Key: "gatewayOrderId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "userEmail", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "userEmail", Value: 1}, {Key: "couponCode", Value: 1}, {Key: "paymentStatus", Value: 1}}},
		},
		userCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for name, idx := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	return err
}

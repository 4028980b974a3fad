package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/models"
)

// CatalogRepository stores menu items keyed by item id
type CatalogRepository struct {
	coll *mongo.Collection
}

func (r *CatalogRepository) GetAll(ctx context.Context) ([]models.CatalogItem, error) {
	return r.find(ctx, bson.M{})
}

func (r *CatalogRepository) GetByID(ctx context.Context, id string) (*models.CatalogItem, error) {
	var doc catalogDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	item, err := doc.model()
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *CatalogRepository) GetMany(ctx context.Context, ids []string) (map[string]models.CatalogItem, error) {
	items, err := r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.CatalogItem, len(items))
	for _, item := range items {
		out[item.ID] = item
	}
	return out, nil
}

func (r *CatalogRepository) Upsert(ctx context.Context, item models.CatalogItem) error {
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": item.ID}, newCatalogDoc(item), options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert menu item: %w", err)
	}
	return nil
}

func (r *CatalogRepository) find(ctx context.Context, filter bson.M) ([]models.CatalogItem, error) {
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find menu items: %w", err)
	}
	var docs []catalogDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode menu items: %w", err)
	}

	items := make([]models.CatalogItem, 0, len(docs))
	for _, d := range docs {
		item, err := d.model()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

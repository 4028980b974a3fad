package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/models"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/repository"
)

// CouponRepository stores coupons keyed by normalized code
type CouponRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var doc couponDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": code}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	return doc.model()
}

func (r *CouponRepository) List(ctx context.Context) ([]models.Coupon, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find coupons: %w", err)
	}
	var docs []couponDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode coupons: %w", err)
	}

	coupons := make([]models.Coupon, 0, len(docs))
	for _, d := range docs {
		c, err := d.model()
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, *c)
	}
	return coupons, nil
}

func (r *CouponRepository) Create(ctx context.Context, c *models.Coupon) error {
	now := r.now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, newCouponDoc(c)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert coupon: %w", err)
	}
	return nil
}

// Update rewrites the editable fields; usageCount and createdAt are left
// as stored.
func (r *CouponRepository) Update(ctx context.Context, c *models.Coupon) error {
	c.UpdatedAt = r.now().UTC()
	set := bson.M{
		"discountType":  string(c.DiscountType),
		"discountValue": c.DiscountValue,
		"isActive":      c.IsActive,
		"updatedAt":     c.UpdatedAt,
	}
	unset := bson.M{}
	optional := map[string]any{
		"minOrderValue": c.MinOrderValue,
		"maxDiscount":   c.MaxDiscount,
		"expiryDate":    c.ExpiryDate,
		"usageLimit":    c.UsageLimit,
	}
	for field, v := range optional {
		switch p := v.(type) {
		case *int64:
			if p == nil {
				unset[field] = ""
			} else {
				set[field] = *p
			}
		case *time.Time:
			if p == nil {
				unset[field] = ""
			} else {
				set[field] = *p
			}
		}
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": c.Code}, update)
	if err != nil {
		return fmt.Errorf("update coupon: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *CouponRepository) Delete(ctx context.Context, code string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": code})
	if err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *CouponRepository) IncrementUsage(ctx context.Context, code string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": code}, bson.M{
		"$inc": bson.M{"usageCount": 1},
		"$set": bson.M{"updatedAt": r.now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("increment coupon usage: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

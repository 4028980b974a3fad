package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/models"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/repository"
)

// OrderRepository stores orders keyed by order id
type OrderRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func (r *OrderRepository) Insert(ctx context.Context, o *models.Order) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = r.now().UTC()
	}
	o.UpdatedAt = o.CreatedAt

	if _, err := r.coll.InsertOne(ctx, newOrderDoc(o)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *OrderRepository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	return r.findOne(ctx, bson.M{"gatewayOrderId": gatewayOrderID})
}

func (r *OrderRepository) List(ctx context.Context, f repository.OrderFilter) ([]models.Order, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(repository.EffectiveLimit(f.Limit)))

	cur, err := r.coll.Find(ctx, listFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}

	orders := make([]models.Order, 0, len(docs))
	for _, d := range docs {
		o, err := d.model()
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, nil
}

func (r *OrderRepository) CountCouponUsage(ctx context.Context, email, code string, statuses []models.PaymentStatus) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{
		"userEmail":     email,
		"couponCode":    code,
		"paymentStatus": bson.M{"$in": statusStrings(statuses)},
	})
	if err != nil {
		return 0, fmt.Errorf("count coupon usage: %w", err)
	}
	return n, nil
}

// PromoteVerified matches only promotable payment states, so of two
// concurrent callers exactly one sees its update applied.
func (r *OrderRepository) PromoteVerified(ctx context.Context, gatewayOrderID, paymentID string, at time.Time) (*repository.Promotion, error) {
	var doc orderDoc
	err := r.coll.FindOneAndUpdate(ctx, promotableFilter(gatewayOrderID), promotionUpdate(paymentID, at.UTC()),
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)

	if errors.Is(err, mongo.ErrNoDocuments) {
		current, err := r.GetByGatewayOrderID(ctx, gatewayOrderID)
		if err != nil {
			return nil, err
		}
		return &repository.Promotion{Order: current}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("promote order: %w", err)
	}

	o, err := doc.model()
	if err != nil {
		return nil, err
	}
	return &repository.Promotion{Order: o, Promoted: true}, nil
}

func (r *OrderRepository) MarkPaymentFailed(ctx context.Context, gatewayOrderID string) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"gatewayOrderId": gatewayOrderID, "paymentStatus": string(models.PaymentPending)},
		bson.M{"$set": bson.M{"paymentStatus": string(models.PaymentFailed), "updatedAt": r.now().UTC()}},
	)
	if err != nil {
		return false, fmt.Errorf("mark payment failed: %w", err)
	}
	if res.MatchedCount == 1 {
		return true, nil
	}

	if _, err := r.GetByGatewayOrderID(ctx, gatewayOrderID); err != nil {
		return false, err
	}
	return false, nil
}

func (r *OrderRepository) TransitionStatus(ctx context.Context, id string, from models.OrderStatus, patch repository.StatusPatch) (*models.Order, error) {
	var doc orderDoc
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": string(from)},
		bson.M{"$set": transitionSet(patch, r.now().UTC())},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)

	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, repository.ErrStaleStatus
	}
	if err != nil {
		return nil, fmt.Errorf("transition order status: %w", err)
	}
	return doc.model()
}

func (r *OrderRepository) findOne(ctx context.Context, filter bson.M) (*models.Order, error) {
	var doc orderDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	return doc.model()
}

func listFilter(f repository.OrderFilter) bson.M {
	filter := bson.M{}
	if f.UserEmail != "" {
		filter["userEmail"] = f.UserEmail
	}
	if len(f.PaymentStatuses) > 0 {
		filter["paymentStatus"] = bson.M{"$in": statusStrings(f.PaymentStatuses)}
	}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}
	return filter
}

func promotableFilter(gatewayOrderID string) bson.M {
	return bson.M{
		"gatewayOrderId": gatewayOrderID,
		"paymentStatus":  bson.M{"$in": statusStrings(repository.PromotableStatuses)},
	}
}

// promotionUpdate is an aggregation pipeline so the new fulfillment status
// can depend on the stored one: unset or placed becomes placed, anything
// further along is kept.
func promotionUpdate(paymentID string, at time.Time) mongo.Pipeline {
	status := bson.M{"$cond": bson.A{
		bson.M{"$in": bson.A{
			bson.M{"$ifNull": bson.A{"$status", ""}},
			bson.A{string(models.StatusUnset), string(models.StatusPlaced)},
		}},
		string(models.StatusPlaced),
		"$status",
	}}

	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "paymentStatus", Value: string(models.PaymentVerified)},
			{Key: "gatewayPaymentId", Value: paymentID},
			{Key: "verifiedAt", Value: at},
			{Key: "updatedAt", Value: at},
			{Key: "status", Value: status},
		}}},
	}
}

func transitionSet(patch repository.StatusPatch, now time.Time) bson.M {
	set := bson.M{
		"status":    string(patch.Status),
		"updatedAt": now,
	}
	if patch.PaymentStatus != "" {
		set["paymentStatus"] = string(patch.PaymentStatus)
	}
	if patch.CanceledAt != nil {
		set["canceledAt"] = patch.CanceledAt.UTC()
	}
	return set
}

func statusStrings(statuses []models.PaymentStatus) bson.A {
	out := make(bson.A, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

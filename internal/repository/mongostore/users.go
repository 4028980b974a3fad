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

// UserRepository stores accounts keyed by user id
type UserRepository struct {
	coll *mongo.Collection
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "email", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	users := make([]models.User, 0, len(docs))
	for _, d := range docs {
		u, err := d.model()
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, nil
}

// Upsert writes u, keeping the creation time of an existing record.
func (r *UserRepository) Upsert(ctx context.Context, u *models.User) error {
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": u.ID}, bson.M{
		"$set": bson.M{
			"email":  u.Email,
			"name":   u.Name,
			"admin":  u.Admin,
			"banned": u.Banned,
		},
		"$setOnInsert": bson.M{"createdAt": createdAt},
	}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (r *UserRepository) SetAdmin(ctx context.Context, id string, admin bool) error {
	return r.setFlag(ctx, id, "admin", admin)
}

func (r *UserRepository) SetBanned(ctx context.Context, id string, banned bool) error {
	return r.setFlag(ctx, id, "banned", banned)
}

func (r *UserRepository) setFlag(ctx context.Context, id, field string, value bool) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{field: value}})
	if err != nil {
		return fmt.Errorf("set %s: %w", field, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	return doc.model()
}

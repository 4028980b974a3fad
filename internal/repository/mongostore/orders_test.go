package mongostore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/models"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/repository"
)

func orderD(t *testing.T, o *models.Order) bson.D {
	t.Helper()
	raw, err := bson.Marshal(newOrderDoc(o))
	require.NoError(t, err)
	var d bson.D
	require.NoError(t, bson.Unmarshal(raw, &d))
	return d
}

func TestOrderRepository_PromoteVerified(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mt.Run("applied", func(mt *mtest.T) {
		repo := &OrderRepository{coll: mt.Coll, now: time.Now}

		promoted := sampleOrder()
		promoted.PaymentStatus = models.PaymentVerified
		promoted.Status = models.StatusPlaced
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: orderD(t, promoted)}})

		res, err := repo.PromoteVerified(context.Background(), "order_abc", "pay_1", at)
		require.NoError(t, err)
		assert.True(t, res.Promoted)
		assert.Equal(t, models.PaymentVerified, res.Order.PaymentStatus)
		assert.Equal(t, models.StatusPlaced, res.Order.Status)
	})

	// a second verification finds nothing promotable and must not report a
	// promotion, so the coupon usage is not counted again
	mt.Run("already paid", func(mt *mtest.T) {
		repo := &OrderRepository{coll: mt.Coll, now: time.Now}

		current := sampleOrder()
		current.PaymentStatus = models.PaymentVerified
		current.Status = models.StatusPreparing
		mt.AddMockResponses(
			bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}},
			mtest.CreateCursorResponse(0, "db.orders", mtest.FirstBatch, orderD(t, current)),
		)

		res, err := repo.PromoteVerified(context.Background(), "order_abc", "pay_2", at)
		require.NoError(t, err)
		assert.False(t, res.Promoted)
		assert.Equal(t, models.PaymentVerified, res.Order.PaymentStatus)
		assert.Equal(t, models.StatusPreparing, res.Order.Status)
	})

	mt.Run("unknown order", func(mt *mtest.T) {
		repo := &OrderRepository{coll: mt.Coll, now: time.Now}

		mt.AddMockResponses(
			bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}},
			mtest.CreateCursorResponse(0, "db.orders", mtest.FirstBatch),
		)

		_, err := repo.PromoteVerified(context.Background(), "order_missing", "pay_1", at)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

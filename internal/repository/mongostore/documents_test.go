package mongostore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/models"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/repository"
)

func sampleOrder() *models.Order {
	verified := time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)
	return &models.Order{
		ID:        "o-1",
		UserEmail: "alice@example.com",
		UserName:  "Alice",
		Address:   "221B Baker Street",
		Cart: []models.PricedLine{{
			ItemID: "6", Name: "Margherita Pizza", BasePrice: 299, UnitPrice: 299,
			Size:      &models.SizeOption{Name: "Large", ExtraPrice: 120},
			Extras:    []models.ExtraOption{{Name: "Olives", ExtraPrice: 30}},
			LineTotal: 449,
		}},
		Subtotal: 449, Tax: 22, Total: 441, DiscountAmount: 30, CouponCode: "SAVE10",
		Currency:       "INR",
		GatewayOrderID: "order_abc",
		SecurityHash:   "deadbeef",
		PaymentStatus:  models.PaymentVerified,
		Status:         models.StatusPlaced,
		CreatedAt:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt:      verified,
		VerifiedAt:     &verified,
	}
}

// Documents survive a real BSON encode and decode, including the
// fingerprint that the JSON view hides.
func TestOrderDoc_BSONRoundTrip(t *testing.T) {
	want := sampleOrder()

	raw, err := bson.Marshal(newOrderDoc(want))
	require.NoError(t, err)

	var doc orderDoc
	require.NoError(t, bson.Unmarshal(raw, &doc))
	got, err := doc.model()
	require.NoError(t, err)

	assert.Equal(t, want, got)
	assert.Equal(t, "deadbeef", got.SecurityHash)
}

func TestOrderDoc_RejectsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *orderDoc)
	}{
		{"unknown payment status", func(d *orderDoc) { d.PaymentStatus = "paid" }},
		{"unknown status", func(d *orderDoc) { d.Status = "shipped" }},
		{"no owner", func(d *orderDoc) { d.UserEmail = "" }},
		{"no gateway order", func(d *orderDoc) { d.GatewayOrderID = "" }},
		{"negative total", func(d *orderDoc) { d.Total = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := newOrderDoc(sampleOrder())
			tt.mutate(&doc)
			_, err := doc.model()
			assert.ErrorIs(t, err, repository.ErrInvalidRecord)
		})
	}
}

func TestCouponDoc(t *testing.T) {
	limit := int64(2)
	c := &models.Coupon{Code: "SAVE10", DiscountType: models.DiscountFixed, DiscountValue: 30, UsageLimit: &limit, IsActive: true, UsageCount: 4}

	got, err := newCouponDoc(c).model()
	require.NoError(t, err)
	assert.Equal(t, c.Code, got.Code)
	assert.Equal(t, int64(2), *got.UsageLimit)
	assert.Equal(t, int64(4), got.UsageCount)

	bad := newCouponDoc(c)
	bad.DiscountType = "bogo"
	_, err = bad.model()
	assert.ErrorIs(t, err, repository.ErrInvalidRecord)
}

func TestCatalogDoc(t *testing.T) {
	for _, item := range repository.DefaultMenu() {
		got, err := newCatalogDoc(item).model()
		require.NoError(t, err)
		assert.Equal(t, item, got)
	}

	_, err := catalogDoc{ID: "x", BasePrice: 10}.model()
	assert.ErrorIs(t, err, repository.ErrInvalidRecord)
}

func TestListFilter(t *testing.T) {
	assert.Equal(t, bson.M{}, listFilter(repository.OrderFilter{}))

	got := listFilter(repository.OrderFilter{
		UserEmail:       "alice@example.com",
		PaymentStatuses: models.HistoryStatuses,
		Status:          models.StatusPlaced,
	})
	assert.Equal(t, bson.M{
		"userEmail":     "alice@example.com",
		"paymentStatus": bson.M{"$in": bson.A{"verified", "completed", "refund_initiated"}},
		"status":        "placed",
	}, got)
}

func TestTransitionSet(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	set := transitionSet(repository.StatusPatch{Status: models.StatusPreparing}, now)
	assert.Equal(t, bson.M{"status": "preparing", "updatedAt": now}, set)

	set = transitionSet(repository.StatusPatch{
		Status:        models.StatusCanceled,
		PaymentStatus: models.PaymentRefundInitiated,
		CanceledAt:    &now,
	}, now)
	assert.Equal(t, "refund_initiated", set["paymentStatus"])
	assert.Equal(t, now, set["canceledAt"])
}

func TestPromotableFilter(t *testing.T) {
	assert.Equal(t, bson.M{
		"gatewayOrderId": "order_abc",
		"paymentStatus":  bson.M{"$in": bson.A{"pending", "failed"}},
	}, promotableFilter("order_abc"))
}

// resolveStatus evaluates the status expression of the promotion pipeline
// against a stored status. A nil stored value means the field is absent.
func resolveStatus(t *testing.T, expr any, stored *string) string {
	t.Helper()
	field := func(v any) string {
		s, ok := v.(string)
		require.True(t, ok, "expected string operand, got %T", v)
		if s == "$status" {
			require.NotNil(t, stored, "absent status must be defaulted before use")
			return *stored
		}
		return s
	}

	cond, ok := expr.(bson.M)["$cond"].(bson.A)
	require.True(t, ok)
	require.Len(t, cond, 3)

	in, ok := cond[0].(bson.M)["$in"].(bson.A)
	require.True(t, ok)
	require.Len(t, in, 2)

	ifNull, ok := in[0].(bson.M)["$ifNull"].(bson.A)
	require.True(t, ok)
	require.Equal(t, "$status", ifNull[0])
	current := field(ifNull[1])
	if stored != nil {
		current = *stored
	}

	for _, candidate := range in[1].(bson.A) {
		if candidate == current {
			return field(cond[1])
		}
	}
	return field(cond[2])
}

func TestPromotionUpdate(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pipeline := promotionUpdate("pay_1", at)
	require.Len(t, pipeline, 1)
	require.Equal(t, "$set", pipeline[0][0].Key)

	set := map[string]any{}
	for _, e := range pipeline[0][0].Value.(bson.D) {
		set[e.Key] = e.Value
	}
	assert.Equal(t, "verified", set["paymentStatus"])
	assert.Equal(t, "pay_1", set["gatewayPaymentId"])
	assert.Equal(t, at, set["verifiedAt"])
	assert.Equal(t, at, set["updatedAt"])

	str := func(s string) *string { return &s }
	tests := []struct {
		name   string
		stored *string
		want   string
	}{
		{"absent", nil, "placed"},
		{"unset", str(""), "placed"},
		{"placed", str("placed"), "placed"},
		{"confirmed is kept", str("confirmed"), "confirmed"},
		{"preparing is kept", str("preparing"), "preparing"},
		{"out for delivery is kept", str("out_for_delivery"), "out_for_delivery"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveStatus(t, set["status"], tt.stored))
		})
	}
}

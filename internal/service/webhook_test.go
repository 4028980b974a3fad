package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/models"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/payment"
)

func webhookBody(event, gatewayOrderID, paymentID string) []byte {
	return []byte(fmt.Sprintf(`{"event":%q,"payload":{"payment":{"entity":{"id":%q,"order_id":%q,"status":"captured"}}}}`,
		event, paymentID, gatewayOrderID))
}

func TestOrderService_HandleWebhook_Captured(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	intent, in := f.checkout(t, alice, "SAVE10")

	body := webhookBody(EventPaymentCaptured, intent.GatewayOrderID, in.GatewayPaymentID)
	res, err := f.svc.HandleWebhook(ctx, body, payment.SignWebhook(webhookSecret, body))
	require.NoError(t, err)
	assert.True(t, res.Handled)

	stored := f.stored(t, intent.Order.ID)
	assert.Equal(t, models.PaymentVerified, stored.PaymentStatus)
	assert.Equal(t, models.StatusPlaced, stored.Status)
	assert.Equal(t, int64(1), f.usage(t, "SAVE10"))

	// the client callback arriving afterwards must not count the coupon again
	v, err := f.svc.VerifyPayment(ctx, in)
	require.NoError(t, err)
	assert.False(t, v.Promoted)
	assert.Equal(t, int64(1), f.usage(t, "SAVE10"))
}

func TestOrderService_HandleWebhook_OrderPaid(t *testing.T) {
	f := newFixture(t)
	intent, _ := f.checkout(t, alice, "")

	body := []byte(fmt.Sprintf(`{"event":"order.paid","payload":{"payment":{"entity":{"id":"pay_1"}},"order":{"entity":{"id":%q}}}}`, intent.GatewayOrderID))
	res, err := f.svc.HandleWebhook(context.Background(), body, payment.SignWebhook(webhookSecret, body))
	require.NoError(t, err)
	assert.True(t, res.Handled)
	assert.Equal(t, "pay_1", f.stored(t, intent.Order.ID).GatewayPaymentID)
}

func TestOrderService_HandleWebhook_Failed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	intent, in := f.checkout(t, alice, "")

	body := webhookBody(EventPaymentFailed, intent.GatewayOrderID, "pay_x")
	res, err := f.svc.HandleWebhook(ctx, body, payment.SignWebhook(webhookSecret, body))
	require.NoError(t, err)
	assert.True(t, res.Handled)
	assert.Equal(t, models.PaymentFailed, f.stored(t, intent.Order.ID).PaymentStatus)

	// a later successful payment for the same gateway order still verifies
	_, err = f.svc.VerifyPayment(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentVerified, f.stored(t, intent.Order.ID).PaymentStatus)

	// and a late failure does not undo it
	res, err = f.svc.HandleWebhook(ctx, body, payment.SignWebhook(webhookSecret, body))
	require.NoError(t, err)
	assert.False(t, res.Handled)
	assert.Equal(t, models.PaymentVerified, f.stored(t, intent.Order.ID).PaymentStatus)
}

func TestOrderService_HandleWebhook_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	intent, _ := f.checkout(t, alice, "")
	body := webhookBody(EventPaymentCaptured, intent.GatewayOrderID, "pay_1")

	_, err := f.svc.HandleWebhook(ctx, body, payment.SignWebhook("wrong", body))
	assert.ErrorIs(t, err, ErrInvalidWebhookSignature)
	assert.Equal(t, models.PaymentPending, f.stored(t, intent.Order.ID).PaymentStatus)

	_, err = f.svc.HandleWebhook(ctx, body, "")
	assert.ErrorIs(t, err, ErrInvalidWebhookSignature)

	garbage := []byte("not json")
	_, err = f.svc.HandleWebhook(ctx, garbage, payment.SignWebhook(webhookSecret, garbage))
	assert.Error(t, err)
}

func TestOrderService_HandleWebhook_Acknowledged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		body []byte
	}{
		{"unknown event", []byte(`{"event":"refund.processed","payload":{}}`)},
		{"unknown order", webhookBody(EventPaymentCaptured, "order_nope", "pay_1")},
		{"failure for unknown order", webhookBody(EventPaymentFailed, "order_nope", "pay_1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.svc.HandleWebhook(ctx, tt.body, payment.SignWebhook(webhookSecret, tt.body))
			require.NoError(t, err)
			assert.False(t, res.Handled)
		})
	}
}

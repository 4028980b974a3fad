package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/apperr"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/payment"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/repository"
)

const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventOrderPaid       = "order.paid"
)

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// WebhookResult reports what a webhook delivery did
type WebhookResult struct {
	Event   string `json:"event"`
	Handled bool   `json:"handled"`
}

// HandleWebhook processes a gateway webhook. The body is authenticated by
// its signature, so captured payments are promoted without the fingerprint
// check. Unknown events and unknown orders are acknowledged.
func (s *OrderService) HandleWebhook(ctx context.Context, body []byte, signature string) (*WebhookResult, error) {
	if !payment.VerifyWebhook(s.payment.WebhookSecret, body, signature) {
		s.log.WarnContext(ctx, "webhook signature mismatch", "body_bytes", len(body))
		return nil, ErrInvalidWebhookSignature
	}

	var evt webhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, apperr.Wrap(apperr.Validation, "Malformed webhook payload", err)
	}

	gatewayOrderID := evt.Payload.Payment.Entity.OrderID
	if gatewayOrderID == "" {
		gatewayOrderID = evt.Payload.Order.Entity.ID
	}
	result := &WebhookResult{Event: evt.Event}

	switch evt.Event {
	case EventPaymentCaptured, EventOrderPaid:
		if gatewayOrderID == "" || evt.Payload.Payment.Entity.ID == "" {
			return nil, apperr.New(apperr.Validation, "Webhook payload is missing payment or order id")
		}
		_, err := s.promote(ctx, gatewayOrderID, evt.Payload.Payment.Entity.ID)
		if errors.Is(err, ErrOrderNotFound) {
			s.log.WarnContext(ctx, "webhook for unknown order", "event", evt.Event, "gateway_order_id", gatewayOrderID)
			return result, nil
		}
		if err != nil {
			return nil, err
		}
		result.Handled = true

	case EventPaymentFailed:
		changed, err := s.orders.MarkPaymentFailed(ctx, gatewayOrderID)
		if errors.Is(err, repository.ErrNotFound) {
			s.log.WarnContext(ctx, "webhook for unknown order", "event", evt.Event, "gateway_order_id", gatewayOrderID)
			return result, nil
		}
		if err != nil {
			return nil, fmt.Errorf("mark payment failed: %w", err)
		}
		if changed {
			s.log.InfoContext(ctx, "payment failed", "gateway_order_id", gatewayOrderID)
		}
		result.Handled = changed

	default:
		s.log.DebugContext(ctx, "ignoring webhook event", "event", evt.Event)
	}

	return result, nil
}

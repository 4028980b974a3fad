// Package payment talks to the payment gateway and checks the signatures
// the gateway attaches to checkout callbacks and webhooks.
package payment

import (
	"context"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/apperr"
)

// ErrGatewayUnavailable is returned when the gateway cannot create an order.
var ErrGatewayUnavailable = apperr.New(apperr.Gateway, "Payment gateway unavailable")

// GatewayOrder is the gateway's handle for a pending payment
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Gateway creates payable orders. Amounts are in the smallest currency unit.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*GatewayOrder, error)
}

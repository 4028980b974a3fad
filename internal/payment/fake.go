package payment

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// FakeGateway issues order ids locally. It is used for development and tests.
type FakeGateway struct {
	mu     sync.Mutex
	orders []GatewayOrder
	// Err, when set, is returned by every CreateOrder call.
	Err error
}

// NewFakeGateway creates a fake gateway
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{}
}

func (g *FakeGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*GatewayOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Err != nil {
		return nil, g.Err
	}
	order := GatewayOrder{
		ID:       "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14],
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
	}
	g.orders = append(g.orders, order)
	return &order, nil
}

// Orders returns the orders created so far
func (g *FakeGateway) Orders() []GatewayOrder {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]GatewayOrder(nil), g.orders...)
}

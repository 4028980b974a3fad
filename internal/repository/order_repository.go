package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/models"
)

// InMemoryOrderRepository implements OrderRepository with in-memory storage.
// A single mutex makes every guarded update a compare-and-swap.
type InMemoryOrderRepository struct {
	mu        sync.RWMutex
	orders    map[string]models.Order
	byGateway map[string]string
	now       func() time.Time
}

// NewInMemoryOrderRepository creates an empty order repository
func NewInMemoryOrderRepository() *InMemoryOrderRepository {
	return &InMemoryOrderRepository{
		orders:    make(map[string]models.Order),
		byGateway: make(map[string]string),
		now:       time.Now,
	}
}

func (r *InMemoryOrderRepository) Insert(ctx context.Context, o *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[o.ID]; exists {
		return ErrDuplicate
	}
	if o.GatewayOrderID != "" {
		if _, exists := r.byGateway[o.GatewayOrderID]; exists {
			return ErrDuplicate
		}
		r.byGateway[o.GatewayOrderID] = o.ID
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = r.now().UTC()
	}
	o.UpdatedAt = o.CreatedAt
	r.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (r *InMemoryOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	o = cloneOrder(o)
	return &o, nil
}

func (r *InMemoryOrderRepository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byGateway[gatewayOrderID]
	if !ok {
		return nil, ErrNotFound
	}
	o := cloneOrder(r.orders[id])
	return &o, nil
}

func (r *InMemoryOrderRepository) List(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Order, 0)
	for _, o := range r.orders {
		if f.UserEmail != "" && o.UserEmail != f.UserEmail {
			continue
		}
		if len(f.PaymentStatuses) > 0 && !slices.Contains(f.PaymentStatuses, o.PaymentStatus) {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, cloneOrder(o))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit := EffectiveLimit(f.Limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *InMemoryOrderRepository) CountCouponUsage(ctx context.Context, email, code string, statuses []models.PaymentStatus) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, o := range r.orders {
		if o.UserEmail == email && o.CouponCode == code && slices.Contains(statuses, o.PaymentStatus) {
			n++
		}
	}
	return n, nil
}

func (r *InMemoryOrderRepository) PromoteVerified(ctx context.Context, gatewayOrderID, paymentID string, at time.Time) (*Promotion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byGateway[gatewayOrderID]
	if !ok {
		return nil, ErrNotFound
	}
	o := r.orders[id]
	if !Promotable(o.PaymentStatus) {
		current := cloneOrder(o)
		return &Promotion{Order: &current}, nil
	}

	verifiedAt := at.UTC()
	o.PaymentStatus = models.PaymentVerified
	o.GatewayPaymentID = paymentID
	o.VerifiedAt = &verifiedAt
	o.Status = PromotedStatus(o.Status)
	o.UpdatedAt = verifiedAt
	r.orders[id] = o

	promoted := cloneOrder(o)
	return &Promotion{Order: &promoted, Promoted: true}, nil
}

func (r *InMemoryOrderRepository) MarkPaymentFailed(ctx context.Context, gatewayOrderID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byGateway[gatewayOrderID]
	if !ok {
		return false, ErrNotFound
	}
	o := r.orders[id]
	if o.PaymentStatus != models.PaymentPending {
		return false, nil
	}
	o.PaymentStatus = models.PaymentFailed
	o.UpdatedAt = r.now().UTC()
	r.orders[id] = o
	return true, nil
}

func (r *InMemoryOrderRepository) TransitionStatus(ctx context.Context, id string, from models.OrderStatus, patch StatusPatch) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	if o.Status != from {
		return nil, ErrStaleStatus
	}

	o.Status = patch.Status
	if patch.PaymentStatus != "" {
		o.PaymentStatus = patch.PaymentStatus
	}
	if patch.CanceledAt != nil {
		canceledAt := patch.CanceledAt.UTC()
		o.CanceledAt = &canceledAt
	}
	o.UpdatedAt = r.now().UTC()
	r.orders[id] = o

	updated := cloneOrder(o)
	return &updated, nil
}

func cloneOrder(o models.Order) models.Order {
	cart := make([]models.PricedLine, len(o.Cart))
	for i, line := range o.Cart {
		if line.Size != nil {
			size := *line.Size
			line.Size = &size
		}
		line.Extras = append([]models.ExtraOption(nil), line.Extras...)
		cart[i] = line
	}
	o.Cart = cart
	if o.VerifiedAt != nil {
		t := *o.VerifiedAt
		o.VerifiedAt = &t
	}
	if o.CanceledAt != nil {
		t := *o.CanceledAt
		o.CanceledAt = &t
	}
	return o
}

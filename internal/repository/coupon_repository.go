package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/models"
)

// InMemoryCouponRepository implements CouponRepository with in-memory storage
type InMemoryCouponRepository struct {
	mu      sync.RWMutex
	coupons map[string]models.Coupon
	now     func() time.Time
}

// NewInMemoryCouponRepository creates an empty coupon repository
func NewInMemoryCouponRepository() *InMemoryCouponRepository {
	return &InMemoryCouponRepository{
		coupons: make(map[string]models.Coupon),
		now:     time.Now,
	}
}

func (r *InMemoryCouponRepository) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.coupons[code]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r *InMemoryCouponRepository) List(ctx context.Context) ([]models.Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Coupon, 0, len(r.coupons))
	for _, c := range r.coupons {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *InMemoryCouponRepository) Create(ctx context.Context, c *models.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.coupons[c.Code]; exists {
		return ErrDuplicate
	}
	now := r.now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	r.coupons[c.Code] = *c
	return nil
}

func (r *InMemoryCouponRepository) Update(ctx context.Context, c *models.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.coupons[c.Code]
	if !ok {
		return ErrNotFound
	}
	c.UsageCount = existing.UsageCount
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = r.now().UTC()
	r.coupons[c.Code] = *c
	return nil
}

func (r *InMemoryCouponRepository) Delete(ctx context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.coupons[code]; !ok {
		return ErrNotFound
	}
	delete(r.coupons, code)
	return nil
}

func (r *InMemoryCouponRepository) IncrementUsage(ctx context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.coupons[code]
	if !ok {
		return ErrNotFound
	}
	c.UsageCount++
	c.UpdatedAt = r.now().UTC()
	r.coupons[code] = c
	return nil
}

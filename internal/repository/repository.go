// Package repository defines the storage contracts used by the services and
// provides in-memory implementations. Persistent backends live in the
// mongostore and pgstore subpackages.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
	// ErrStaleStatus is returned by guarded updates when the stored status
	// no longer matches the one the caller observed.
	ErrStaleStatus = errors.New("order status changed concurrently")
	// ErrInvalidRecord is returned when a stored document fails validation
	// on read.
	ErrInvalidRecord = errors.New("stored record is malformed")
)

// CatalogRepository provides read access to menu items. Upsert exists for
// seeding only.
type CatalogRepository interface {
	GetAll(ctx context.Context) ([]models.CatalogItem, error)
	GetByID(ctx context.Context, id string) (*models.CatalogItem, error)
	// GetMany returns the items found, keyed by id. Missing ids are absent.
	GetMany(ctx context.Context, ids []string) (map[string]models.CatalogItem, error)
	Upsert(ctx context.Context, item models.CatalogItem) error
}

// CouponRepository stores coupons keyed by their normalized code
type CouponRepository interface {
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	List(ctx context.Context) ([]models.Coupon, error)
	Create(ctx context.Context, c *models.Coupon) error
	// Update rewrites the admin-editable fields. UsageCount is untouched.
	Update(ctx context.Context, c *models.Coupon) error
	Delete(ctx context.Context, code string) error
	IncrementUsage(ctx context.Context, code string) error
}

// OrderFilter narrows order listings. Zero values mean "any".
type OrderFilter struct {
	UserEmail       string
	PaymentStatuses []models.PaymentStatus
	Status          models.OrderStatus
	Limit           int
}

// StatusPatch is applied by TransitionStatus
type StatusPatch struct {
	Status        models.OrderStatus
	PaymentStatus models.PaymentStatus // empty leaves payment status unchanged
	CanceledAt    *time.Time
}

// Promotion is the outcome of PromoteVerified
type Promotion struct {
	Order    *models.Order
	Promoted bool // false when the order was already paid or refunded
}

// OrderRepository stores orders. Cart lines are written once by Insert and
// never rewritten.
type OrderRepository interface {
	Insert(ctx context.Context, o *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error)
	// List returns orders newest first.
	List(ctx context.Context, f OrderFilter) ([]models.Order, error)
	CountCouponUsage(ctx context.Context, email, code string, statuses []models.PaymentStatus) (int64, error)
	// PromoteVerified atomically marks a pending or failed order as verified.
	// The status moves to placed only when it is unset or already placed.
	PromoteVerified(ctx context.Context, gatewayOrderID, paymentID string, at time.Time) (*Promotion, error)
	// MarkPaymentFailed moves a pending order to failed. It reports whether
	// a change was made.
	MarkPaymentFailed(ctx context.Context, gatewayOrderID string) (bool, error)
	// TransitionStatus applies patch only if the stored status equals from.
	TransitionStatus(ctx context.Context, id string, from models.OrderStatus, patch StatusPatch) (*models.Order, error)
}

// UserRepository stores back-office user records
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Upsert(ctx context.Context, u *models.User) error
	SetAdmin(ctx context.Context, id string, admin bool) error
	SetBanned(ctx context.Context, id string, banned bool) error
}

// Store bundles the repositories of one backend.
type Store struct {
	Catalog CatalogRepository
	Coupons CouponRepository
	Orders  OrderRepository
	Users   UserRepository
	// Ping reports whether the backend is reachable.
	Ping func(ctx context.Context) error
	// Close releases the backend's connection pool.
	Close func(ctx context.Context) error
}

// Promotable reports whether an order in payment state p may be promoted
// to verified.
func Promotable(p models.PaymentStatus) bool {
	return p == models.PaymentPending || p == models.PaymentFailed
}

// PromotableStatuses lists the payment states PromoteVerified accepts.
var PromotableStatuses = []models.PaymentStatus{models.PaymentPending, models.PaymentFailed}

// PromotedStatus returns the fulfillment status after verification.
func PromotedStatus(current models.OrderStatus) models.OrderStatus {
	if current == models.StatusUnset || current == models.StatusPlaced {
		return models.StatusPlaced
	}
	return current
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// EffectiveLimit clamps a requested limit.
func EffectiveLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

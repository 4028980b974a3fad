// Package coupon decides whether a coupon applies to an order and how much
// it takes off. It never mutates coupons; usage counts are incremented by
// the payment verifier once an order is paid.
package coupon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/models"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/repository"
)

// Reason identifies why a coupon was rejected
type Reason string

const (
	ReasonMissingCode   Reason = "missing_code"
	ReasonNotFound      Reason = "not_found"
	ReasonInactive      Reason = "inactive"
	ReasonExpired       Reason = "expired"
	ReasonUsageLimit    Reason = "usage_limit_reached"
	ReasonMinOrderValue Reason = "min_order_value_not_met"
)

// Rejection is returned by Validate when a coupon does not apply
type Rejection struct {
	Code    string
	Reason  Reason
	Message string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("coupon %s rejected: %s", r.Code, r.Reason)
}

// Store looks up coupons by normalized code
type Store interface {
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
}

// UsageCounter counts a user's paid orders that used a coupon
type UsageCounter interface {
	CountCouponUsage(ctx context.Context, email, code string, statuses []models.PaymentStatus) (int64, error)
}

// Result is an applied coupon. A zero Result means no discount.
type Result struct {
	Code     string
	Discount int64
	Coupon   *models.Coupon
}

// Evaluator validates coupon codes against activity, expiry, per-user
// usage and minimum order constraints
type Evaluator struct {
	coupons Store
	usage   UsageCounter
	now     func() time.Time
	log     *slog.Logger
}

// NewEvaluator creates a new coupon evaluator
func NewEvaluator(coupons Store, usage UsageCounter) *Evaluator {
	return &Evaluator{
		coupons: coupons,
		usage:   usage,
		now:     time.Now,
		log:     slog.Default(),
	}
}

// WithClock overrides the evaluator's time source
func (e *Evaluator) WithClock(now func() time.Time) *Evaluator {
	e.now = now
	return e
}

// WithLogger sets the logger used for degraded evaluations
func (e *Evaluator) WithLogger(log *slog.Logger) *Evaluator {
	e.log = log
	return e
}

// Evaluate is used while creating an order. A rejected or unknown coupon
// yields a zero Result and no error, so checkout continues without a
// discount. A store failure is logged and degrades the same way; only a
// canceled or expired request context is returned as an error.
func (e *Evaluator) Evaluate(ctx context.Context, code string, subtotal int64, email string) (Result, error) {
	if models.NormalizeCouponCode(code) == "" {
		return Result{}, nil
	}

	res, err := e.Validate(ctx, code, subtotal, email)
	var rejection *Rejection
	if errors.As(err, &rejection) {
		return Result{}, nil
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		e.log.WarnContext(ctx, "coupon lookup failed, continuing without discount",
			"code", models.NormalizeCouponCode(code),
			"error", err,
		)
		return Result{}, nil
	}
	return res, nil
}

// Validate checks code for the standalone validation endpoint. Rejections
// are returned as *Rejection.
func (e *Evaluator) Validate(ctx context.Context, code string, subtotal int64, email string) (Result, error) {
	normalized := models.NormalizeCouponCode(code)
	if normalized == "" {
		return Result{}, &Rejection{Reason: ReasonMissingCode, Message: "Coupon code is required"}
	}

	c, err := e.coupons.GetByCode(ctx, normalized)
	if errors.Is(err, repository.ErrNotFound) {
		return Result{}, reject(normalized, ReasonNotFound, "Invalid coupon code")
	}
	if err != nil {
		return Result{}, fmt.Errorf("load coupon %s: %w", normalized, err)
	}

	if !c.IsActive {
		return Result{}, reject(normalized, ReasonInactive, "Coupon is no longer active")
	}
	if c.Expired(e.now()) {
		return Result{}, reject(normalized, ReasonExpired, "Coupon has expired")
	}

	if c.UsageLimit != nil {
		used, err := e.usage.CountCouponUsage(ctx, email, normalized, models.PaidStatuses)
		if err != nil {
			return Result{}, fmt.Errorf("count usage of %s: %w", normalized, err)
		}
		if used >= *c.UsageLimit {
			return Result{}, reject(normalized, ReasonUsageLimit, "You have already used this coupon the maximum number of times")
		}
	}

	if c.MinOrderValue != nil && subtotal < *c.MinOrderValue {
		return Result{}, reject(normalized, ReasonMinOrderValue, fmt.Sprintf("Minimum order value of %d required", *c.MinOrderValue))
	}

	return Result{
		Code:     normalized,
		Discount: Discount(c, subtotal),
		Coupon:   c,
	}, nil
}

// Discount computes the amount c takes off subtotal. Percentage discounts
// round halves up and are capped by MaxDiscount; fixed discounts never
// exceed the subtotal.
func Discount(c *models.Coupon, subtotal int64) int64 {
	switch c.DiscountType {
	case models.DiscountPercentage:
		d := decimal.NewFromInt(subtotal).
			Mul(decimal.NewFromInt(c.DiscountValue)).
			Div(decimal.NewFromInt(100)).
			Round(0).
			IntPart()
		if c.MaxDiscount != nil && d > *c.MaxDiscount {
			d = *c.MaxDiscount
		}
		return d
	case models.DiscountFixed:
		return min(c.DiscountValue, subtotal)
	default:
		return 0
	}
}

func reject(code string, reason Reason, message string) *Rejection {
	return &Rejection{Code: code, Reason: reason, Message: message}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/coupon"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/models"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/repository"
)

// CouponService serves coupon validation for shoppers and coupon management
// for admins
type CouponService struct {
	repo      repository.CouponRepository
	evaluator *coupon.Evaluator
	log       *slog.Logger
	now       func() time.Time
}

// NewCouponService creates a new coupon service
func NewCouponService(repo repository.CouponRepository, evaluator *coupon.Evaluator, log *slog.Logger) *CouponService {
	return &CouponService{
		repo:      repo,
		evaluator: evaluator,
		log:       log,
		now:       time.Now,
	}
}

// ValidateInput asks whether a code applies to a cart subtotal
type ValidateInput struct {
	Code     string `json:"code" validate:"required,max=64"`
	Subtotal int64  `json:"subtotal" validate:"gte=0"`
}

// CouponSummary is the shopper-facing part of a coupon
type CouponSummary struct {
	Code          string              `json:"code"`
	DiscountType  models.DiscountType `json:"discountType"`
	DiscountValue int64               `json:"discountValue"`
	MaxDiscount   *int64              `json:"maxDiscount,omitempty"`
}

// ValidateResult answers a coupon validation request
type ValidateResult struct {
	Valid    bool           `json:"valid"`
	Message  string         `json:"message"`
	Discount int64          `json:"discount,omitempty"`
	Coupon   *CouponSummary `json:"coupon,omitempty"`
}

// Validate reports whether the code applies for the caller. Rejections are
// answered with valid=false rather than an error.
func (s *CouponService) Validate(ctx context.Context, principal *models.Principal, in ValidateInput) (*ValidateResult, error) {
	if err := requireUser(principal); err != nil {
		return nil, err
	}

	res, err := s.evaluator.Validate(ctx, in.Code, in.Subtotal, principal.Email)
	var rejection *coupon.Rejection
	if errors.As(err, &rejection) {
		return &ValidateResult{Valid: false, Message: rejection.Message}, nil
	}
	if err != nil {
		return nil, err
	}

	return &ValidateResult{
		Valid:    true,
		Message:  "Coupon applied",
		Discount: res.Discount,
		Coupon: &CouponSummary{
			Code:          res.Coupon.Code,
			DiscountType:  res.Coupon.DiscountType,
			DiscountValue: res.Coupon.DiscountValue,
			MaxDiscount:   res.Coupon.MaxDiscount,
		},
	}, nil
}

// CouponInput creates a coupon
type CouponInput struct {
	Code          string              `json:"code" validate:"required,alphanum,max=32"`
	DiscountType  models.DiscountType `json:"discountType" validate:"required,oneof=percentage fixed"`
	DiscountValue int64               `json:"discountValue" validate:"gt=0"`
	MinOrderValue *int64              `json:"minOrderValue,omitempty" validate:"omitempty,gte=0"`
	MaxDiscount   *int64              `json:"maxDiscount,omitempty" validate:"omitempty,gt=0"`
	ExpiryDate    *time.Time          `json:"expiryDate,omitempty"`
	UsageLimit    *int64              `json:"usageLimit,omitempty" validate:"omitempty,gt=0"`
	IsActive      *bool               `json:"isActive,omitempty"`
}

// CouponPatch updates a coupon. Nil fields are left unchanged.
type CouponPatch struct {
	DiscountType  *models.DiscountType `json:"discountType,omitempty" validate:"omitempty,oneof=percentage fixed"`
	DiscountValue *int64               `json:"discountValue,omitempty" validate:"omitempty,gt=0"`
	MinOrderValue *int64               `json:"minOrderValue,omitempty" validate:"omitempty,gte=0"`
	MaxDiscount   *int64               `json:"maxDiscount,omitempty" validate:"omitempty,gt=0"`
	ExpiryDate    *time.Time           `json:"expiryDate,omitempty"`
	UsageLimit    *int64               `json:"usageLimit,omitempty" validate:"omitempty,gt=0"`
	IsActive      *bool                `json:"isActive,omitempty"`
}

// List returns every coupon
func (s *CouponService) List(ctx context.Context, principal *models.Principal) ([]models.Coupon, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	coupons, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	return coupons, nil
}

// Get returns a coupon by code
func (s *CouponService) Get(ctx context.Context, principal *models.Principal, code string) (*models.Coupon, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	return s.get(ctx, code)
}

// Create stores a new coupon. Codes are stored upper-cased.
func (s *CouponService) Create(ctx context.Context, principal *models.Principal, in CouponInput) (*models.Coupon, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	c := &models.Coupon{
		Code:          models.NormalizeCouponCode(in.Code),
		DiscountType:  in.DiscountType,
		DiscountValue: in.DiscountValue,
		MinOrderValue: in.MinOrderValue,
		MaxDiscount:   in.MaxDiscount,
		ExpiryDate:    in.ExpiryDate,
		UsageLimit:    in.UsageLimit,
		IsActive:      in.IsActive == nil || *in.IsActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := checkCoupon(c); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrCouponExists
		}
		return nil, fmt.Errorf("create coupon: %w", err)
	}

	s.log.InfoContext(ctx, "coupon created", "code", c.Code, "by", principal.Email)
	return c, nil
}

// Update applies patch to the coupon with code. The usage count is never
// changed here.
func (s *CouponService) Update(ctx context.Context, principal *models.Principal, code string, patch CouponPatch) (*models.Coupon, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}

	c, err := s.get(ctx, code)
	if err != nil {
		return nil, err
	}

	if patch.DiscountType != nil {
		c.DiscountType = *patch.DiscountType
	}
	if patch.DiscountValue != nil {
		c.DiscountValue = *patch.DiscountValue
	}
	if patch.MinOrderValue != nil {
		c.MinOrderValue = patch.MinOrderValue
	}
	if patch.MaxDiscount != nil {
		c.MaxDiscount = patch.MaxDiscount
	}
	if patch.ExpiryDate != nil {
		c.ExpiryDate = patch.ExpiryDate
	}
	if patch.UsageLimit != nil {
		c.UsageLimit = patch.UsageLimit
	}
	if patch.IsActive != nil {
		c.IsActive = *patch.IsActive
	}
	c.UpdatedAt = s.now().UTC()

	if err := checkCoupon(c); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("update coupon: %w", err)
	}

	s.log.InfoContext(ctx, "coupon updated", "code", c.Code, "by", principal.Email)
	return c, nil
}

// Delete removes a coupon
func (s *CouponService) Delete(ctx context.Context, principal *models.Principal, code string) error {
	if err := requireAdmin(principal); err != nil {
		return err
	}

	normalized := models.NormalizeCouponCode(code)
	if err := s.repo.Delete(ctx, normalized); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCouponNotFound
		}
		return fmt.Errorf("delete coupon: %w", err)
	}

	s.log.InfoContext(ctx, "coupon deleted", "code", normalized, "by", principal.Email)
	return nil
}

func (s *CouponService) get(ctx context.Context, code string) (*models.Coupon, error) {
	c, err := s.repo.GetByCode(ctx, models.NormalizeCouponCode(code))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCouponNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load coupon: %w", err)
	}
	return c, nil
}

func checkCoupon(c *models.Coupon) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCoupon, err)
	}
	return nil
}

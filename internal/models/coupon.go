package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DiscountType selects how a coupon's DiscountValue is applied
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Valid reports whether d is a known discount type.
func (d DiscountType) Valid() bool {
	return d == DiscountPercentage || d == DiscountFixed
}

// Coupon is a discount code managed by admins.
// UsageLimit is enforced per user; UsageCount is the global tally of
// verified orders that used the coupon.
type Coupon struct {
	Code          string       `json:"code"`
	DiscountType  DiscountType `json:"discountType"`
	DiscountValue int64        `json:"discountValue"`
	MinOrderValue *int64       `json:"minOrderValue,omitempty"`
	MaxDiscount   *int64       `json:"maxDiscount,omitempty"`
	ExpiryDate    *time.Time   `json:"expiryDate,omitempty"`
	UsageLimit    *int64       `json:"usageLimit,omitempty"`
	IsActive      bool         `json:"isActive"`
	UsageCount    int64        `json:"usageCount"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// NormalizeCouponCode trims and upper-cases a coupon code.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Expired reports whether the coupon's expiry date is before now.
func (c *Coupon) Expired(now time.Time) bool {
	return c.ExpiryDate != nil && c.ExpiryDate.Before(now)
}

// Validate checks the definition rules shared by admin edits and seeding.
func (c *Coupon) Validate() error {
	switch {
	case c.Code == "":
		return errors.New("code is required")
	case !c.DiscountType.Valid():
		return fmt.Errorf("unknown discount type %q", c.DiscountType)
	case c.DiscountValue <= 0:
		return errors.New("discount value must be positive")
	case c.DiscountType == DiscountPercentage && c.DiscountValue > 100:
		return errors.New("percentage cannot exceed 100")
	}
	return nil
}

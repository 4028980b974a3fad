package pgstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/models"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/repository"
)

const couponColumns = `code, discount_type, discount_value, min_order_value, max_discount,
       expiry_date, usage_limit, is_active, usage_count, created_at, updated_at`

// CouponRepository stores coupons keyed by normalized code
type CouponRepository struct {
	db  *sql.DB
	now func() time.Time
}

func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+couponColumns+` FROM coupons WHERE code = $1`, code)
	c, err := scanCoupon(row)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (r *CouponRepository) List(ctx context.Context) ([]models.Coupon, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+couponColumns+` FROM coupons ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("query coupons: %w", err)
	}
	defer rows.Close()

	coupons := make([]models.Coupon, 0)
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, *c)
	}
	return coupons, rows.Err()
}

func (r *CouponRepository) Create(ctx context.Context, c *models.Coupon) error {
	now := r.now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	query := `
		INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		c.Code, string(c.DiscountType), c.DiscountValue,
		nullInt(c.MinOrderValue), nullInt(c.MaxDiscount), nullTime(c.ExpiryDate), nullInt(c.UsageLimit),
		c.IsActive, c.UsageCount, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert coupon: %w", err)
	}
	return nil
}

// Update rewrites the editable columns; usage_count and created_at are left
// as stored.
func (r *CouponRepository) Update(ctx context.Context, c *models.Coupon) error {
	c.UpdatedAt = r.now().UTC()
	query := `
		UPDATE coupons SET
		    discount_type = $2,
		    discount_value = $3,
		    min_order_value = $4,
		    max_discount = $5,
		    expiry_date = $6,
		    usage_limit = $7,
		    is_active = $8,
		    updated_at = $9
		WHERE code = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		c.Code, string(c.DiscountType), c.DiscountValue,
		nullInt(c.MinOrderValue), nullInt(c.MaxDiscount), nullTime(c.ExpiryDate), nullInt(c.UsageLimit),
		c.IsActive, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update coupon: %w", err)
	}
	return requireOne(res)
}

func (r *CouponRepository) Delete(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM coupons WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}
	return requireOne(res)
}

func (r *CouponRepository) IncrementUsage(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE coupons SET usage_count = usage_count + 1, updated_at = $2 WHERE code = $1`,
		code, r.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("increment coupon usage: %w", err)
	}
	return requireOne(res)
}

func scanCoupon(s scanner) (*models.Coupon, error) {
	var (
		c                        models.Coupon
		discountType             string
		minOrder, maxDisc, limit sql.NullInt64
		expiry                   sql.NullTime
	)
	err := s.Scan(&c.Code, &discountType, &c.DiscountValue, &minOrder, &maxDisc,
		&expiry, &limit, &c.IsActive, &c.UsageCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	c.DiscountType = models.DiscountType(discountType)
	if !c.DiscountType.Valid() {
		return nil, fmt.Errorf("%w: coupon %q has discount type %q", repository.ErrInvalidRecord, c.Code, discountType)
	}
	c.MinOrderValue = intPtr(minOrder)
	c.MaxDiscount = intPtr(maxDisc)
	c.UsageLimit = intPtr(limit)
	c.ExpiryDate = timePtr(expiry)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

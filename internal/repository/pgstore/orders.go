package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/models"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/repository"
)

const orderColumns = `id, user_email, user_name, address, cart, subtotal, tax, delivery_fee,
       coupon_code, discount_amount, total, currency, gateway_order_id, gateway_payment_id,
       security_hash, payment_status, status, created_at, updated_at, verified_at, canceled_at`

// promoteQuery only matches promotable payment states, so of two concurrent
// callers exactly one gets a row back. An unset or placed status becomes
// placed; anything further along is kept.
const promoteQuery = `
	UPDATE orders SET
	    payment_status = $3,
	    gateway_payment_id = $4,
	    verified_at = $5,
	    updated_at = $5,
	    status = CASE WHEN status IN ('', $6) THEN $6 ELSE status END
	WHERE gateway_order_id = $1 AND payment_status = ANY($2)
	RETURNING ` + orderColumns

// OrderRepository stores orders keyed by order id
type OrderRepository struct {
	db  *sql.DB
	now func() time.Time
}

func (r *OrderRepository) Insert(ctx context.Context, o *models.Order) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = r.now().UTC()
	}
	o.UpdatedAt = o.CreatedAt

	cart, err := json.Marshal(nonNil(o.Cart))
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}

	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`
	_, err = r.db.ExecContext(ctx, query,
		o.ID, o.UserEmail, o.UserName, o.Address, cart, o.Subtotal, o.Tax, o.DeliveryFee,
		o.CouponCode, o.DiscountAmount, o.Total, o.Currency, o.GatewayOrderID, o.GatewayPaymentID,
		o.SecurityHash, string(o.PaymentStatus), string(o.Status), o.CreatedAt.UTC(), o.UpdatedAt.UTC(),
		nullTime(o.VerifiedAt), nullTime(o.CanceledAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	return r.queryOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *OrderRepository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	return r.queryOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE gateway_order_id = $1`, gatewayOrderID)
}

func (r *OrderRepository) List(ctx context.Context, f repository.OrderFilter) ([]models.Order, error) {
	query, args := listQuery(f)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]models.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (r *OrderRepository) CountCouponUsage(ctx context.Context, email, code string, statuses []models.PaymentStatus) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE user_email = $1 AND coupon_code = $2 AND payment_status = ANY($3)`,
		email, code, pq.Array(statusStrings(statuses)),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count coupon usage: %w", err)
	}
	return n, nil
}

func (r *OrderRepository) PromoteVerified(ctx context.Context, gatewayOrderID, paymentID string, at time.Time) (*repository.Promotion, error) {
	row := r.db.QueryRowContext(ctx, promoteQuery,
		gatewayOrderID,
		pq.Array(statusStrings(repository.PromotableStatuses)),
		string(models.PaymentVerified),
		paymentID,
		at.UTC(),
		string(models.StatusPlaced),
	)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		current, err := r.GetByGatewayOrderID(ctx, gatewayOrderID)
		if err != nil {
			return nil, err
		}
		return &repository.Promotion{Order: current}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("promote order: %w", err)
	}
	return &repository.Promotion{Order: o, Promoted: true}, nil
}

func (r *OrderRepository) MarkPaymentFailed(ctx context.Context, gatewayOrderID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET payment_status = $2, updated_at = $3 WHERE gateway_order_id = $1 AND payment_status = $4`,
		gatewayOrderID, string(models.PaymentFailed), r.now().UTC(), string(models.PaymentPending),
	)
	if err != nil {
		return false, fmt.Errorf("mark payment failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		return true, nil
	}

	if _, err := r.GetByGatewayOrderID(ctx, gatewayOrderID); err != nil {
		return false, err
	}
	return false, nil
}

func (r *OrderRepository) TransitionStatus(ctx context.Context, id string, from models.OrderStatus, patch repository.StatusPatch) (*models.Order, error) {
	query, args := transitionQuery(id, from, patch, r.now().UTC())
	o, err := scanOrder(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, repository.ErrStaleStatus
	}
	if err != nil {
		return nil, fmt.Errorf("transition order status: %w", err)
	}
	return o, nil
}

func (r *OrderRepository) queryOne(ctx context.Context, query, arg string) (*models.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, notFound(err)
	}
	return o, nil
}

// listQuery builds the SELECT for f with positional arguments, newest first.
func listQuery(f repository.OrderFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.UserEmail != "" {
		add("user_email = $%d", f.UserEmail)
	}
	if len(f.PaymentStatuses) > 0 {
		add("payment_status = ANY($%d)", pq.Array(statusStrings(f.PaymentStatuses)))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + orderColumns + ` FROM orders`)
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	args = append(args, repository.EffectiveLimit(f.Limit))
	fmt.Fprintf(&b, " ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))
	return b.String(), args
}

// transitionQuery is guarded on the status the caller observed.
func transitionQuery(id string, from models.OrderStatus, patch repository.StatusPatch, now time.Time) (string, []any) {
	set := []string{"status = $3", "updated_at = $4"}
	args := []any{id, string(from), string(patch.Status), now}

	if patch.PaymentStatus != "" {
		args = append(args, string(patch.PaymentStatus))
		set = append(set, fmt.Sprintf("payment_status = $%d", len(args)))
	}
	if patch.CanceledAt != nil {
		args = append(args, patch.CanceledAt.UTC())
		set = append(set, fmt.Sprintf("canceled_at = $%d", len(args)))
	}

	query := `UPDATE orders SET ` + strings.Join(set, ", ") +
		` WHERE id = $1 AND status = $2 RETURNING ` + orderColumns
	return query, args
}

func scanOrder(s scanner) (*models.Order, error) {
	var (
		o                  models.Order
		cart               []byte
		payment, status    string
		verified, canceled sql.NullTime
	)
	err := s.Scan(&o.ID, &o.UserEmail, &o.UserName, &o.Address, &cart, &o.Subtotal, &o.Tax, &o.DeliveryFee,
		&o.CouponCode, &o.DiscountAmount, &o.Total, &o.Currency, &o.GatewayOrderID, &o.GatewayPaymentID,
		&o.SecurityHash, &payment, &status, &o.CreatedAt, &o.UpdatedAt, &verified, &canceled)
	if err != nil {
		return nil, err
	}

	o.PaymentStatus = models.PaymentStatus(payment)
	if !o.PaymentStatus.Valid() {
		return nil, fmt.Errorf("%w: order %s has payment status %q", repository.ErrInvalidRecord, o.ID, payment)
	}
	o.Status = models.OrderStatus(status)
	if !o.Status.Valid() {
		return nil, fmt.Errorf("%w: order %s has status %q", repository.ErrInvalidRecord, o.ID, status)
	}
	if err := json.Unmarshal(cart, &o.Cart); err != nil {
		return nil, fmt.Errorf("%w: order %s cart: %v", repository.ErrInvalidRecord, o.ID, err)
	}
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	o.VerifiedAt = timePtr(verified)
	o.CanceledAt = timePtr(canceled)
	return &o, nil
}

func statusStrings(statuses []models.PaymentStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

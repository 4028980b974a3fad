package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/apperr"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/coupon"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/models"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/payment"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/pricing"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/repository"
)

// PaymentConfig is the gateway account the order service signs against
type PaymentConfig struct {
	Currency      string
	KeyID         string
	KeySecret     string
	WebhookSecret string
}

// OrderService handles the checkout, verification and fulfillment workflow
type OrderService struct {
	engine     *pricing.Engine
	coupons    *coupon.Evaluator
	couponRepo repository.CouponRepository
	orders     repository.OrderRepository
	gateway    payment.Gateway
	payment    PaymentConfig
	log        *slog.Logger
	now        func() time.Time
}

// NewOrderService creates a new order service
func NewOrderService(
	engine *pricing.Engine,
	coupons *coupon.Evaluator,
	couponRepo repository.CouponRepository,
	orders repository.OrderRepository,
	gateway payment.Gateway,
	cfg PaymentConfig,
	log *slog.Logger,
) *OrderService {
	return &OrderService{
		engine:     engine,
		coupons:    coupons,
		couponRepo: couponRepo,
		orders:     orders,
		gateway:    gateway,
		payment:    cfg,
		log:        log,
		now:        time.Now,
	}
}

// CreateIntentInput is the checkout request
type CreateIntentInput struct {
	Name       string            `json:"name" validate:"max=120"`
	Address    string            `json:"address" validate:"required,max=500"`
	Cart       []models.CartLine `json:"cart" validate:"required,min=1,max=50,dive"`
	CouponCode string            `json:"couponCode,omitempty" validate:"max=64"`
}

// Intent is returned to the client to open the gateway checkout
type Intent struct {
	GatewayOrderID string           `json:"gatewayOrderId"`
	Amount         int64            `json:"amount"`
	Currency       string           `json:"currency"`
	KeyID          string           `json:"keyId"`
	SecurityHash   string           `json:"securityHash"`
	Order          models.OrderView `json:"order"`
}

// CreateIntent prices the cart, opens a gateway order for the total and
// stores a pending order bound to the cart by its fingerprint. Every call
// creates a new order.
func (s *OrderService) CreateIntent(ctx context.Context, principal *models.Principal, in CreateIntentInput) (*Intent, error) {
	if err := requireWriter(principal); err != nil {
		return nil, err
	}

	quote, err := s.engine.Quote(ctx, principal, in.Cart)
	if err != nil {
		return nil, err
	}

	applied, err := s.coupons.Evaluate(ctx, in.CouponCode, quote.Subtotal, principal.Email)
	if err != nil {
		return nil, fmt.Errorf("evaluate coupon: %w", err)
	}
	total := quote.Total(applied.Discount)

	orderID := uuid.NewString()
	gwOrder, err := s.gateway.CreateOrder(ctx, total*100, s.payment.Currency, orderID)
	if err != nil {
		s.log.ErrorContext(ctx, "gateway order creation failed", "order_id", orderID, "amount", total*100, "error", err)
		if apperr.KindOf(err) == apperr.Internal {
			err = fmt.Errorf("%w: %v", payment.ErrGatewayUnavailable, err)
		}
		return nil, err
	}

	hash, err := Fingerprint(quote.Lines, total)
	if err != nil {
		return nil, err
	}

	name := in.Name
	if name == "" {
		name = principal.Name
	}

	order := &models.Order{
		ID:             orderID,
		UserEmail:      principal.Email,
		UserName:       name,
		Address:        in.Address,
		Cart:           quote.Lines,
		Subtotal:       quote.Subtotal,
		Tax:            quote.Tax,
		DeliveryFee:    quote.DeliveryFee,
		CouponCode:     applied.Code,
		DiscountAmount: applied.Discount,
		Total:          total,
		Currency:       s.payment.Currency,
		GatewayOrderID: gwOrder.ID,
		SecurityHash:   hash,
		PaymentStatus:  models.PaymentPending,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.orders.Insert(ctx, order); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	s.log.InfoContext(ctx, "order intent created",
		"order_id", order.ID,
		"gateway_order_id", gwOrder.ID,
		"total", total,
		"coupon", applied.Code,
	)

	return &Intent{
		GatewayOrderID: gwOrder.ID,
		Amount:         gwOrder.Amount,
		Currency:       s.payment.Currency,
		KeyID:          s.payment.KeyID,
		SecurityHash:   hash,
		Order:          models.NewOrderView(order),
	}, nil
}

// VerifyInput is the signed checkout callback echoed by the client
type VerifyInput struct {
	GatewayOrderID   string `json:"gatewayOrderId" validate:"required"`
	GatewayPaymentID string `json:"gatewayPaymentId" validate:"required"`
	Signature        string `json:"signature" validate:"required"`
	SecurityHash     string `json:"securityHash" validate:"required"`
	OrderID          string `json:"orderId"`
}

// Verification is the outcome of a successful verification
type Verification struct {
	OrderID       string               `json:"orderId"`
	PaymentStatus models.PaymentStatus `json:"paymentStatus"`
	Status        models.OrderStatus   `json:"status"`
	// Promoted is false when the order had already been verified.
	Promoted bool `json:"-"`
}

// VerifyPayment checks the gateway signature and the cart fingerprint, then
// marks the order paid. Repeated calls succeed without counting the coupon
// twice.
func (s *OrderService) VerifyPayment(ctx context.Context, in VerifyInput) (*Verification, error) {
	if !payment.VerifyPayment(s.payment.KeySecret, in.GatewayOrderID, in.GatewayPaymentID, in.Signature) {
		s.log.WarnContext(ctx, "payment signature mismatch",
			"gateway_order_id", in.GatewayOrderID,
			"gateway_payment_id", in.GatewayPaymentID,
		)
		return nil, ErrInvalidSignature
	}

	order, err := s.orders.GetByGatewayOrderID(ctx, in.GatewayOrderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(order.SecurityHash), []byte(in.SecurityHash)) != 1 ||
		(in.OrderID != "" && in.OrderID != order.ID) {
		s.log.WarnContext(ctx, "order fingerprint mismatch",
			"order_id", order.ID,
			"claimed_order_id", in.OrderID,
			"gateway_order_id", in.GatewayOrderID,
			"user_email", order.UserEmail,
		)
		return nil, ErrTamperDetected
	}

	return s.promote(ctx, in.GatewayOrderID, in.GatewayPaymentID)
}

// promote marks the order verified and, on the first successful promotion
// only, counts the coupon.
func (s *OrderService) promote(ctx context.Context, gatewayOrderID, paymentID string) (*Verification, error) {
	res, err := s.orders.PromoteVerified(ctx, gatewayOrderID, paymentID, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("promote order: %w", err)
	}

	order := res.Order
	if res.Promoted && order.CouponCode != "" {
		if err := s.couponRepo.IncrementUsage(ctx, order.CouponCode); err != nil {
			// the order stays paid
			s.log.ErrorContext(ctx, "failed to count coupon usage",
				"order_id", order.ID,
				"coupon", order.CouponCode,
				"error", err,
			)
		}
	}

	if res.Promoted {
		s.log.InfoContext(ctx, "payment verified", "order_id", order.ID, "gateway_payment_id", paymentID)
	} else {
		s.log.InfoContext(ctx, "payment already recorded", "order_id", order.ID, "payment_status", order.PaymentStatus)
	}

	return &Verification{
		OrderID:       order.ID,
		PaymentStatus: order.PaymentStatus,
		Status:        order.Status,
		Promoted:      res.Promoted,
	}, nil
}

// Cancel cancels an order on behalf of its owner or an admin. A canceled
// order is left as is.
func (s *OrderService) Cancel(ctx context.Context, principal *models.Principal, orderID string) (*models.OrderView, error) {
	if err := requireWriter(principal); err != nil {
		return nil, err
	}

	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !principal.CanAccessOrder(order) {
		return nil, ErrForbidden
	}
	if order.Status == models.StatusCanceled {
		view := models.NewOrderView(order)
		return &view, nil
	}
	if !models.CanCancel(order.Status) {
		return nil, ErrIllegalTransition
	}

	canceledAt := s.now().UTC()
	updated, err := s.orders.TransitionStatus(ctx, order.ID, order.Status, repository.StatusPatch{
		Status:        models.StatusCanceled,
		PaymentStatus: models.PaymentRefundInitiated,
		CanceledAt:    &canceledAt,
	})
	if err != nil {
		return nil, s.transitionError(err)
	}

	s.log.InfoContext(ctx, "order canceled",
		"order_id", order.ID,
		"by", principal.Email,
		"previous_status", order.Status,
	)
	view := models.NewOrderView(updated)
	return &view, nil
}

// SetStatus moves a paid order forward through fulfillment. Only admins may
// call it. Canceling goes through Cancel.
func (s *OrderService) SetStatus(ctx context.Context, principal *models.Principal, orderID, status string) (*models.OrderView, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}

	target, err := models.ParseOrderStatus(status)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStatus, err)
	}
	if target == models.StatusCanceled {
		return s.Cancel(ctx, principal, orderID)
	}

	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == target {
		view := models.NewOrderView(order)
		return &view, nil
	}
	if order.Status.IsTerminal() {
		return nil, ErrIllegalTransition
	}
	if !order.PaymentStatus.IsPaid() {
		return nil, ErrNotPaid
	}
	if !models.CanAdvance(order.Status, target) {
		return nil, ErrIllegalTransition
	}

	patch := repository.StatusPatch{Status: target}
	if target == models.StatusCompleted {
		patch.PaymentStatus = models.PaymentCompleted
	}
	updated, err := s.orders.TransitionStatus(ctx, order.ID, order.Status, patch)
	if err != nil {
		return nil, s.transitionError(err)
	}

	s.log.InfoContext(ctx, "order status updated",
		"order_id", order.ID,
		"from", order.Status,
		"to", target,
		"by", principal.Email,
	)
	view := models.NewOrderView(updated)
	return &view, nil
}

// GetOrder returns an order to its owner or an admin
func (s *OrderService) GetOrder(ctx context.Context, principal *models.Principal, orderID string) (*models.OrderView, error) {
	if err := requireUser(principal); err != nil {
		return nil, err
	}

	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !principal.CanAccessOrder(order) {
		return nil, ErrForbidden
	}
	view := models.NewOrderView(order)
	return &view, nil
}

// ListMyOrders returns the caller's paid, completed and refunded orders,
// newest first
func (s *OrderService) ListMyOrders(ctx context.Context, principal *models.Principal) ([]models.OrderView, error) {
	if err := requireUser(principal); err != nil {
		return nil, err
	}

	orders, err := s.orders.List(ctx, repository.OrderFilter{
		UserEmail:       principal.Email,
		PaymentStatuses: models.HistoryStatuses,
		Limit:           repository.DefaultListLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return models.NewOrderViews(orders), nil
}

// ListFilter narrows the admin order listing
type ListFilter struct {
	Status        string
	PaymentStatus string
	UserEmail     string
	Limit         int
}

// ListOrders returns orders across all users for admins
func (s *OrderService) ListOrders(ctx context.Context, principal *models.Principal, f ListFilter) ([]models.OrderView, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}

	filter := repository.OrderFilter{UserEmail: f.UserEmail, Limit: f.Limit}
	if f.Status != "" {
		st, err := models.ParseOrderStatus(f.Status)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidStatus, err)
		}
		filter.Status = st
	}
	if f.PaymentStatus != "" {
		ps := models.PaymentStatus(f.PaymentStatus)
		if !ps.Valid() {
			return nil, fmt.Errorf("%w: unknown payment status %q", ErrInvalidStatus, f.PaymentStatus)
		}
		filter.PaymentStatuses = []models.PaymentStatus{ps}
	}

	orders, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return models.NewOrderViews(orders), nil
}

func (s *OrderService) load(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", orderID, err)
	}
	return order, nil
}

func (s *OrderService) transitionError(err error) error {
	switch {
	case errors.Is(err, repository.ErrStaleStatus):
		return ErrStatusConflict
	case errors.Is(err, repository.ErrNotFound):
		return ErrOrderNotFound
	default:
		return fmt.Errorf("update order status: %w", err)
	}
}

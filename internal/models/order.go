package models

import (
	"fmt"
	"time"
)

// CartLine is a client-submitted cart entry. It carries references only;
// prices are always resolved server-side.
type CartLine struct {
	ItemID string   `json:"itemId" validate:"required,max=64"`
	Size   string   `json:"size,omitempty" validate:"max=64"`
	Extras []string `json:"extras,omitempty" validate:"max=20,dive,required,max=64"`
}

// PricedLine is the frozen snapshot of a cart line at order time
type PricedLine struct {
	ItemID    string        `json:"itemId"`
	Name      string        `json:"name"`
	ImageURL  string        `json:"imageUrl,omitempty"`
	BasePrice int64         `json:"basePrice"`
	UnitPrice int64         `json:"unitPrice"`
	Size      *SizeOption   `json:"size,omitempty"`
	Extras    []ExtraOption `json:"extras,omitempty"`
	LineTotal int64         `json:"lineTotal"`
}

// PaymentStatus tracks the gateway side of an order
type PaymentStatus string

const (
	PaymentPending         PaymentStatus = "pending"
	PaymentVerified        PaymentStatus = "verified"
	PaymentCompleted       PaymentStatus = "completed"
	PaymentFailed          PaymentStatus = "failed"
	PaymentRefundInitiated PaymentStatus = "refund_initiated"
)

var (
	// PaidStatuses are the payment states that count toward coupon usage.
	PaidStatuses = []PaymentStatus{PaymentVerified, PaymentCompleted}
	// HistoryStatuses are the payment states shown in a user's order history.
	HistoryStatuses = []PaymentStatus{PaymentVerified, PaymentCompleted, PaymentRefundInitiated}
)

// IsPaid reports whether the payment has been verified.
func (p PaymentStatus) IsPaid() bool {
	return p == PaymentVerified || p == PaymentCompleted
}

// Valid reports whether p is a known payment status.
func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentVerified, PaymentCompleted, PaymentFailed, PaymentRefundInitiated:
		return true
	}
	return false
}

// OrderStatus is the fulfillment state of an order. The zero value means
// the order has not been placed yet (payment pending).
type OrderStatus string

const (
	StatusUnset          OrderStatus = ""
	StatusPlaced         OrderStatus = "placed"
	StatusConfirmed      OrderStatus = "confirmed"
	StatusPreparing      OrderStatus = "preparing"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusCompleted      OrderStatus = "completed"
	StatusCanceled       OrderStatus = "canceled"
)

var statusRank = map[OrderStatus]int{
	StatusUnset:          0,
	StatusPlaced:         1,
	StatusConfirmed:      2,
	StatusPreparing:      3,
	StatusOutForDelivery: 4,
	StatusCompleted:      5,
}

// ParseOrderStatus accepts only the named statuses; the unset status is not
// a valid target.
func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(s)
	if st == StatusCanceled {
		return st, nil
	}
	if _, ok := statusRank[st]; ok && st != StatusUnset {
		return st, nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// Valid reports whether s is a known status, including unset.
func (s OrderStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok || s == StatusCanceled
}

// Rank returns the fulfillment rank. Canceled has rank -1.
func (s OrderStatus) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

// IsTerminal reports whether no further transition is allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// CanAdvance reports whether from -> to is a forward fulfillment step.
// Cancellation is handled by CanCancel.
func CanAdvance(from, to OrderStatus) bool {
	if from.IsTerminal() || to == StatusCanceled || to == StatusUnset {
		return false
	}
	return to.Rank() > from.Rank()
}

// CanCancel reports whether an order in status s may be canceled.
func CanCancel(s OrderStatus) bool {
	return !s.IsTerminal()
}

// Order is the persisted order aggregate.
type Order struct {
	ID               string        `json:"id"`
	UserEmail        string        `json:"userEmail"`
	UserName         string        `json:"userName"`
	Address          string        `json:"address"`
	Cart             []PricedLine  `json:"cart"`
	Subtotal         int64         `json:"subtotal"`
	Tax              int64         `json:"tax"`
	DeliveryFee      int64         `json:"deliveryFee"`
	CouponCode       string        `json:"couponCode,omitempty"`
	DiscountAmount   int64         `json:"discountAmount"`
	Total            int64         `json:"total"`
	Currency         string        `json:"currency"`
	GatewayOrderID   string        `json:"gatewayOrderId"`
	GatewayPaymentID string        `json:"gatewayPaymentId,omitempty"`
	SecurityHash     string        `json:"-"`
	PaymentStatus    PaymentStatus `json:"paymentStatus"`
	Status           OrderStatus   `json:"status"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
	VerifiedAt       *time.Time    `json:"verifiedAt,omitempty"`
	CanceledAt       *time.Time    `json:"canceledAt,omitempty"`
}

// OwnedBy reports whether email owns the order.
func (o *Order) OwnedBy(email string) bool {
	return email != "" && o.UserEmail == email
}

// OrderView is the client-facing representation of an order. It never
// carries the integrity fingerprint.
type OrderView struct {
	ID               string       `json:"id"`
	UserEmail        string       `json:"userEmail"`
	UserName         string       `json:"userName"`
	Address          string       `json:"address"`
	Cart             []PricedLine `json:"cart"`
	Subtotal         int64        `json:"subtotal"`
	Tax              int64        `json:"tax"`
	DeliveryFee      int64        `json:"deliveryFee"`
	CouponCode       *string      `json:"couponCode"`
	DiscountAmount   int64        `json:"discountAmount"`
	Total            int64        `json:"total"`
	Currency         string       `json:"currency"`
	GatewayOrderID   string       `json:"gatewayOrderId"`
	GatewayPaymentID string       `json:"gatewayPaymentId,omitempty"`
	PaymentStatus    string       `json:"paymentStatus"`
	Status           string       `json:"status,omitempty"`
	CreatedAt        string       `json:"createdAt"`
	UpdatedAt        string       `json:"updatedAt,omitempty"`
	VerifiedAt       string       `json:"verifiedAt,omitempty"`
	CanceledAt       string       `json:"canceledAt,omitempty"`
}

// NewOrderView builds the sanitized view of o.
func NewOrderView(o *Order) OrderView {
	v := OrderView{
		ID:               o.ID,
		UserEmail:        o.UserEmail,
		UserName:         o.UserName,
		Address:          o.Address,
		Cart:             o.Cart,
		Subtotal:         o.Subtotal,
		Tax:              o.Tax,
		DeliveryFee:      o.DeliveryFee,
		DiscountAmount:   o.DiscountAmount,
		Total:            o.Total,
		Currency:         o.Currency,
		GatewayOrderID:   o.GatewayOrderID,
		GatewayPaymentID: o.GatewayPaymentID,
		PaymentStatus:    string(o.PaymentStatus),
		Status:           string(o.Status),
		CreatedAt:        formatTime(o.CreatedAt),
		UpdatedAt:        formatTime(o.UpdatedAt),
	}
	if v.Cart == nil {
		v.Cart = []PricedLine{}
	}
	if o.CouponCode != "" {
		code := o.CouponCode
		v.CouponCode = &code
	}
	if o.VerifiedAt != nil {
		v.VerifiedAt = formatTime(*o.VerifiedAt)
	}
	if o.CanceledAt != nil {
		v.CanceledAt = formatTime(*o.CanceledAt)
	}
	return v
}

// NewOrderViews maps a slice of orders to views.
func NewOrderViews(orders []Order) []OrderView {
	views := make([]OrderView, 0, len(orders))
	for i := range orders {
		views = append(views, NewOrderView(&orders[i]))
	}
	return views
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

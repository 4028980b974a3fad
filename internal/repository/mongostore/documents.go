package mongostore

import (
	"fmt"
	"time"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/models"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/repository"
)

type optionDoc struct {
	Name       string `bson:"name"`
	ExtraPrice int64  `bson:"extraPrice"`
}

type catalogDoc struct {
	ID            string      `bson:"_id"`
	Name          string      `bson:"name"`
	Description   string      `bson:"description,omitempty"`
	Category      string      `bson:"category,omitempty"`
	ImageURL      string      `bson:"imageUrl,omitempty"`
	BasePrice     int64       `bson:"basePrice"`
	DiscountPrice *int64      `bson:"discountPrice,omitempty"`
	Sizes         []optionDoc `bson:"sizes,omitempty"`
	Extras        []optionDoc `bson:"extras,omitempty"`
}

type couponDoc struct {
	Code          string     `bson:"_id"`
	DiscountType  string     `bson:"discountType"`
	DiscountValue int64      `bson:"discountValue"`
	MinOrderValue *int64     `bson:"minOrderValue,omitempty"`
	MaxDiscount   *int64     `bson:"maxDiscount,omitempty"`
	ExpiryDate    *time.Time `bson:"expiryDate,omitempty"`
	UsageLimit    *int64     `bson:"usageLimit,omitempty"`
	IsActive      bool       `bson:"isActive"`
	UsageCount    int64      `bson:"usageCount"`
	CreatedAt     time.Time  `bson:"createdAt"`
	UpdatedAt     time.Time  `bson:"updatedAt"`
}

type lineDoc struct {
	ItemID    string      `bson:"itemId"`
	Name      string      `bson:"name"`
	ImageURL  string      `bson:"imageUrl,omitempty"`
	BasePrice int64       `bson:"basePrice"`
	UnitPrice int64       `bson:"unitPrice"`
	Size      *optionDoc  `bson:"size,omitempty"`
	Extras    []optionDoc `bson:"extras,omitempty"`
	LineTotal int64       `bson:"lineTotal"`
}

type orderDoc struct {
	ID               string     `bson:"_id"`
	UserEmail        string     `bson:"userEmail"`
	UserName         string     `bson:"userName"`
	Address          string     `bson:"address"`
	Cart             []lineDoc  `bson:"cart"`
	Subtotal         int64      `bson:"subtotal"`
	Tax              int64      `bson:"tax"`
	DeliveryFee      int64      `bson:"deliveryFee"`
	CouponCode       string     `bson:"couponCode,omitempty"`
	DiscountAmount   int64      `bson:"discountAmount"`
	Total            int64      `bson:"total"`
	Currency         string     `bson:"currency"`
	GatewayOrderID   string     `bson:"gatewayOrderId"`
	GatewayPaymentID string     `bson:"gatewayPaymentId,omitempty"`
	SecurityHash     string     `bson:"securityHash"`
	PaymentStatus    string     `bson:"paymentStatus"`
	Status           string     `bson:"status"`
	CreatedAt        time.Time  `bson:"createdAt"`
	UpdatedAt        time.Time  `bson:"updatedAt"`
	VerifiedAt       *time.Time `bson:"verifiedAt,omitempty"`
	CanceledAt       *time.Time `bson:"canceledAt,omitempty"`
}

type userDoc struct {
	ID        string    `bson:"_id"`
	Email     string    `bson:"email"`
	Name      string    `bson:"name"`
	Admin     bool      `bson:"admin"`
	Banned    bool      `bson:"banned"`
	CreatedAt time.Time `bson:"createdAt"`
}

func invalid(kind, id, format string, args ...any) error {
	return fmt.Errorf("%w: %s %q: %s", repository.ErrInvalidRecord, kind, id, fmt.Sprintf(format, args...))
}

func toOptionDocs[T models.SizeOption | models.ExtraOption](opts []T) []optionDoc {
	if len(opts) == 0 {
		return nil
	}
	out := make([]optionDoc, len(opts))
	for i, o := range opts {
		out[i] = optionDoc(o)
	}
	return out
}

func sizesFrom(docs []optionDoc) []models.SizeOption {
	if len(docs) == 0 {
		return nil
	}
	out := make([]models.SizeOption, len(docs))
	for i, d := range docs {
		out[i] = models.SizeOption(d)
	}
	return out
}

func extrasFrom(docs []optionDoc) []models.ExtraOption {
	if len(docs) == 0 {
		return nil
	}
	out := make([]models.ExtraOption, len(docs))
	for i, d := range docs {
		out[i] = models.ExtraOption(d)
	}
	return out
}

func newCatalogDoc(item models.CatalogItem) catalogDoc {
	return catalogDoc{
		ID:            item.ID,
		Name:          item.Name,
		Description:   item.Description,
		Category:      item.Category,
		ImageURL:      item.ImageURL,
		BasePrice:     item.BasePrice,
		DiscountPrice: item.DiscountPrice,
		Sizes:         toOptionDocs(item.Sizes),
		Extras:        toOptionDocs(item.Extras),
	}
}

func (d catalogDoc) model() (models.CatalogItem, error) {
	if d.Name == "" {
		return models.CatalogItem{}, invalid("menu item", d.ID, "missing name")
	}
	if d.BasePrice < 0 || (d.DiscountPrice != nil && *d.DiscountPrice < 0) {
		return models.CatalogItem{}, invalid("menu item", d.ID, "negative price")
	}
	return models.CatalogItem{
		ID:            d.ID,
		Name:          d.Name,
		Description:   d.Description,
		Category:      d.Category,
		ImageURL:      d.ImageURL,
		BasePrice:     d.BasePrice,
		DiscountPrice: d.DiscountPrice,
		Sizes:         sizesFrom(d.Sizes),
		Extras:        extrasFrom(d.Extras),
	}, nil
}

func newCouponDoc(c *models.Coupon) couponDoc {
	return couponDoc{
		Code:          c.Code,
		DiscountType:  string(c.DiscountType),
		DiscountValue: c.DiscountValue,
		MinOrderValue: c.MinOrderValue,
		MaxDiscount:   c.MaxDiscount,
		ExpiryDate:    c.ExpiryDate,
		UsageLimit:    c.UsageLimit,
		IsActive:      c.IsActive,
		UsageCount:    c.UsageCount,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func (d couponDoc) model() (*models.Coupon, error) {
	dt := models.DiscountType(d.DiscountType)
	if !dt.Valid() {
		return nil, invalid("coupon", d.Code, "unknown discount type %q", d.DiscountType)
	}
	if d.DiscountValue < 0 || d.UsageCount < 0 {
		return nil, invalid("coupon", d.Code, "negative amount")
	}
	return &models.Coupon{
		Code:          d.Code,
		DiscountType:  dt,
		DiscountValue: d.DiscountValue,
		MinOrderValue: d.MinOrderValue,
		MaxDiscount:   d.MaxDiscount,
		ExpiryDate:    utcPtr(d.ExpiryDate),
		UsageLimit:    d.UsageLimit,
		IsActive:      d.IsActive,
		UsageCount:    d.UsageCount,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}, nil
}

func newOrderDoc(o *models.Order) orderDoc {
	cart := make([]lineDoc, len(o.Cart))
	for i, l := range o.Cart {
		cart[i] = lineDoc{
			ItemID:    l.ItemID,
			Name:      l.Name,
			ImageURL:  l.ImageURL,
			BasePrice: l.BasePrice,
			UnitPrice: l.UnitPrice,
			Extras:    toOptionDocs(l.Extras),
			LineTotal: l.LineTotal,
		}
		if l.Size != nil {
			s := optionDoc(*l.Size)
			cart[i].Size = &s
		}
	}
	return orderDoc{
		ID:               o.ID,
		UserEmail:        o.UserEmail,
		UserName:         o.UserName,
		Address:          o.Address,
		Cart:             cart,
		Subtotal:         o.Subtotal,
		Tax:              o.Tax,
		DeliveryFee:      o.DeliveryFee,
		CouponCode:       o.CouponCode,
		DiscountAmount:   o.DiscountAmount,
		Total:            o.Total,
		Currency:         o.Currency,
		GatewayOrderID:   o.GatewayOrderID,
		GatewayPaymentID: o.GatewayPaymentID,
		SecurityHash:     o.SecurityHash,
		PaymentStatus:    string(o.PaymentStatus),
		Status:           string(o.Status),
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		VerifiedAt:       o.VerifiedAt,
		CanceledAt:       o.CanceledAt,
	}
}

// model validates the stored document. A malformed order is never handed
// to the services.
func (d orderDoc) model() (*models.Order, error) {
	ps := models.PaymentStatus(d.PaymentStatus)
	if !ps.Valid() {
		return nil, invalid("order", d.ID, "unknown payment status %q", d.PaymentStatus)
	}
	st := models.OrderStatus(d.Status)
	if !st.Valid() {
		return nil, invalid("order", d.ID, "unknown status %q", d.Status)
	}
	if d.UserEmail == "" || d.GatewayOrderID == "" {
		return nil, invalid("order", d.ID, "missing owner or gateway order id")
	}
	if d.Total < 0 || d.Subtotal < 0 {
		return nil, invalid("order", d.ID, "negative amount")
	}

	cart := make([]models.PricedLine, len(d.Cart))
	for i, l := range d.Cart {
		cart[i] = models.PricedLine{
			ItemID:    l.ItemID,
			Name:      l.Name,
			ImageURL:  l.ImageURL,
			BasePrice: l.BasePrice,
			UnitPrice: l.UnitPrice,
			Extras:    extrasFrom(l.Extras),
			LineTotal: l.LineTotal,
		}
		if l.Size != nil {
			s := models.SizeOption(*l.Size)
			cart[i].Size = &s
		}
	}

	return &models.Order{
		ID:               d.ID,
		UserEmail:        d.UserEmail,
		UserName:         d.UserName,
		Address:          d.Address,
		Cart:             cart,
		Subtotal:         d.Subtotal,
		Tax:              d.Tax,
		DeliveryFee:      d.DeliveryFee,
		CouponCode:       d.CouponCode,
		DiscountAmount:   d.DiscountAmount,
		Total:            d.Total,
		Currency:         d.Currency,
		GatewayOrderID:   d.GatewayOrderID,
		GatewayPaymentID: d.GatewayPaymentID,
		SecurityHash:     d.SecurityHash,
		PaymentStatus:    ps,
		Status:           st,
		CreatedAt:        d.CreatedAt.UTC(),
		UpdatedAt:        d.UpdatedAt.UTC(),
		VerifiedAt:       utcPtr(d.VerifiedAt),
		CanceledAt:       utcPtr(d.CanceledAt),
	}, nil
}

func newUserDoc(u *models.User) userDoc {
	return userDoc(*u)
}

func (d userDoc) model() (*models.User, error) {
	if d.Email == "" {
		return nil, invalid("user", d.ID, "missing email")
	}
	u := models.User(d)
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// Package pricing recomputes cart prices from the catalog. Client-supplied
// prices never enter this package: a cart line is only a reference to a
// menu item, a size name and extra names.
package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/apperr"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/models"
)

var (
	ErrUnauthenticated = apperr.New(apperr.Authentication, "authentication required")
	ErrEmptyCart       = apperr.New(apperr.Validation, "cart must contain at least one item")
	ErrItemNotFound    = apperr.New(apperr.NotFound, "menu item not found")
	ErrInvalidSize     = apperr.New(apperr.Validation, "invalid size")
	ErrInvalidExtra    = apperr.New(apperr.Validation, "invalid extra")
)

// CatalogReader is the read-only catalog view the engine needs
type CatalogReader interface {
	GetMany(ctx context.Context, ids []string) (map[string]models.CatalogItem, error)
}

// Config holds the pricing constants
type Config struct {
	TaxRate               float64
	DeliveryFee           int64
	FreeDeliveryThreshold int64
}

// DefaultConfig returns the storefront's pricing constants
func DefaultConfig() Config {
	return Config{
		TaxRate:               0.05,
		DeliveryFee:           50,
		FreeDeliveryThreshold: 400,
	}
}

// Quote is the server-side price of a cart
type Quote struct {
	Lines       []models.PricedLine
	Subtotal    int64
	Tax         int64
	DeliveryFee int64
}

// Total applies a discount and clamps the result at zero.
func (q Quote) Total(discount int64) int64 {
	total := q.Subtotal + q.Tax + q.DeliveryFee - discount
	if total < 0 {
		return 0
	}
	return total
}

// Engine prices carts against the live catalog
type Engine struct {
	catalog CatalogReader
	taxRate decimal.Decimal
	cfg     Config
}

// NewEngine creates a pricing engine
func NewEngine(catalog CatalogReader, cfg Config) *Engine {
	return &Engine{
		catalog: catalog,
		taxRate: decimal.NewFromFloat(cfg.TaxRate),
		cfg:     cfg,
	}
}

// Quote resolves every line against the catalog and computes subtotal, tax
// and delivery fee. Any unknown item, size or extra fails the whole quote.
func (e *Engine) Quote(ctx context.Context, principal *models.Principal, lines []models.CartLine) (*Quote, error) {
	if principal == nil || principal.Email == "" {
		return nil, ErrUnauthenticated
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	ids := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ItemID]; ok {
			continue
		}
		seen[line.ItemID] = struct{}{}
		ids = append(ids, line.ItemID)
	}

	items, err := e.catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load catalog items: %w", err)
	}

	q := &Quote{Lines: make([]models.PricedLine, 0, len(lines))}
	for i, line := range lines {
		item, ok := items[line.ItemID]
		if !ok {
			return nil, lineError(apperr.NotFound, ErrItemNotFound, i, "menu item %q not found", line.ItemID)
		}
		priced, err := priceLine(i, &item, line)
		if err != nil {
			return nil, err
		}
		q.Lines = append(q.Lines, priced)
		q.Subtotal += priced.LineTotal
	}

	q.Tax = e.Tax(q.Subtotal)
	q.DeliveryFee = e.DeliveryFee(q.Subtotal)
	return q, nil
}

// Tax returns round(subtotal * rate), rounding halves away from zero.
func (e *Engine) Tax(subtotal int64) int64 {
	return decimal.NewFromInt(subtotal).Mul(e.taxRate).Round(0).IntPart()
}

// DeliveryFee is waived at or above the free delivery threshold.
func (e *Engine) DeliveryFee(subtotal int64) int64 {
	if subtotal >= e.cfg.FreeDeliveryThreshold {
		return 0
	}
	return e.cfg.DeliveryFee
}

func priceLine(i int, item *models.CatalogItem, line models.CartLine) (models.PricedLine, error) {
	unit := item.EffectivePrice()
	priced := models.PricedLine{
		ItemID:    item.ID,
		Name:      item.Name,
		ImageURL:  item.ImageURL,
		BasePrice: item.BasePrice,
		UnitPrice: unit,
		LineTotal: unit,
	}

	if line.Size != "" {
		size, ok := item.FindSize(line.Size)
		if !ok {
			return priced, lineError(apperr.Validation, ErrInvalidSize, i, "size %q is not offered for %s", line.Size, item.Name)
		}
		priced.Size = &size
		priced.LineTotal += size.ExtraPrice
	}

	for _, name := range line.Extras {
		extra, ok := item.FindExtra(name)
		if !ok {
			return priced, lineError(apperr.Validation, ErrInvalidExtra, i, "extra %q is not offered for %s", name, item.Name)
		}
		priced.Extras = append(priced.Extras, extra)
		priced.LineTotal += extra.ExtraPrice
	}

	return priced, nil
}

// lineError names the offending cart line (1-based) in the client message
// while keeping the sentinel reachable through errors.Is.
func lineError(kind apperr.Kind, sentinel error, i int, format string, args ...any) error {
	msg := fmt.Sprintf("cart line %d: ", i+1) + fmt.Sprintf(format, args...)
	return apperr.Wrap(kind, msg, sentinel)
}

package models

// SizeOption is a selectable size for a menu item, priced on top of the base price
type SizeOption struct {
	Name       string `json:"name"`
	ExtraPrice int64  `json:"extraPrice"`
}

// ExtraOption is an add-on for a menu item
type ExtraOption struct {
	Name       string `json:"name"`
	ExtraPrice int64  `json:"extraPrice"`
}

// CatalogItem represents a menu item. Prices are whole currency units.
type CatalogItem struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	Category      string        `json:"category,omitempty"`
	ImageURL      string        `json:"imageUrl,omitempty"`
	BasePrice     int64         `json:"basePrice"`
	DiscountPrice *int64        `json:"discountPrice,omitempty"`
	Sizes         []SizeOption  `json:"sizes,omitempty"`
	Extras        []ExtraOption `json:"extras,omitempty"`
}

// EffectivePrice returns the discount price when it undercuts the base price.
func (c *CatalogItem) EffectivePrice() int64 {
	if c.DiscountPrice != nil && *c.DiscountPrice < c.BasePrice {
		return *c.DiscountPrice
	}
	return c.BasePrice
}

// FindSize looks up a size by exact name.
func (c *CatalogItem) FindSize(name string) (SizeOption, bool) {
	for _, s := range c.Sizes {
		if s.Name == name {
			return s, true
		}
	}
	return SizeOption{}, false
}

// FindExtra looks up an extra by exact name.
func (c *CatalogItem) FindExtra(name string) (ExtraOption, bool) {
	for _, e := range c.Extras {
		if e.Name == name {
			return e, true
		}
	}
	return ExtraOption{}, false
}

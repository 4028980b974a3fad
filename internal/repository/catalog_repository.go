package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/models"
)

// InMemoryCatalogRepository implements CatalogRepository with in-memory storage
type InMemoryCatalogRepository struct {
	mu    sync.RWMutex
	items map[string]models.CatalogItem
}

// NewInMemoryCatalogRepository creates a catalog holding the given items
func NewInMemoryCatalogRepository(items ...models.CatalogItem) *InMemoryCatalogRepository {
	r := &InMemoryCatalogRepository{
		items: make(map[string]models.CatalogItem, len(items)),
	}
	for _, item := range items {
		r.items[item.ID] = cloneCatalogItem(item)
	}
	return r
}

// DefaultMenu is the demo menu used when no seed files are configured
func DefaultMenu() []models.CatalogItem {
	regular := []models.SizeOption{
		{Name: "Regular", ExtraPrice: 0},
		{Name: "Medium", ExtraPrice: 60},
		{Name: "Large", ExtraPrice: 120},
	}
	toppings := []models.ExtraOption{
		{Name: "Extra Cheese", ExtraPrice: 40},
		{Name: "Jalapenos", ExtraPrice: 25},
		{Name: "Olives", ExtraPrice: 30},
	}
	discounted := func(v int64) *int64 { return &v }

	return []models.CatalogItem{
		{ID: "1", Name: "Chicken Waffle", Category: "Waffle", BasePrice: 249},
		{ID: "2", Name: "Belgian Waffle", Category: "Waffle", BasePrice: 199, DiscountPrice: discounted(179)},
		{ID: "3", Name: "Chocolate Waffle", Category: "Waffle", BasePrice: 219},
		{ID: "4", Name: "Caesar Salad", Category: "Salad", BasePrice: 179, Extras: []models.ExtraOption{{Name: "Grilled Chicken", ExtraPrice: 80}}},
		{ID: "5", Name: "Greek Salad", Category: "Salad", BasePrice: 189},
		{ID: "6", Name: "Margherita Pizza", Category: "Pizza", BasePrice: 299, Sizes: regular, Extras: toppings},
		{ID: "7", Name: "Pepperoni Pizza", Category: "Pizza", BasePrice: 379, Sizes: regular, Extras: toppings},
		{ID: "8", Name: "Veggie Pizza", Category: "Pizza", BasePrice: 329, DiscountPrice: discounted(299), Sizes: regular, Extras: toppings},
		{ID: "9", Name: "Classic Burger", Category: "Burger", BasePrice: 229, Extras: []models.ExtraOption{{Name: "Extra Patty", ExtraPrice: 90}, {Name: "Extra Cheese", ExtraPrice: 40}}},
		{ID: "10", Name: "Masala Fries", Category: "Sides", BasePrice: 99, Sizes: []models.SizeOption{{Name: "Small", ExtraPrice: 0}, {Name: "Large", ExtraPrice: 50}}},
	}
}

// GetAll returns all items ordered by id
func (r *InMemoryCatalogRepository) GetAll(ctx context.Context) ([]models.CatalogItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]models.CatalogItem, 0, len(r.items))
	for _, item := range r.items {
		items = append(items, cloneCatalogItem(item))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// GetByID returns an item by its ID
func (r *InMemoryCatalogRepository) GetByID(ctx context.Context, id string) (*models.CatalogItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, exists := r.items[id]
	if !exists {
		return nil, ErrNotFound
	}
	item = cloneCatalogItem(item)
	return &item, nil
}

// GetMany returns the items found for ids
func (r *InMemoryCatalogRepository) GetMany(ctx context.Context, ids []string) (map[string]models.CatalogItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	found := make(map[string]models.CatalogItem, len(ids))
	for _, id := range ids {
		if item, ok := r.items[id]; ok {
			found[id] = cloneCatalogItem(item)
		}
	}
	return found, nil
}

// Upsert inserts or replaces an item
func (r *InMemoryCatalogRepository) Upsert(ctx context.Context, item models.CatalogItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ID] = cloneCatalogItem(item)
	return nil
}

func cloneCatalogItem(item models.CatalogItem) models.CatalogItem {
	if item.DiscountPrice != nil {
		v := *item.DiscountPrice
		item.DiscountPrice = &v
	}
	item.Sizes = append([]models.SizeOption(nil), item.Sizes...)
	item.Extras = append([]models.ExtraOption(nil), item.Extras...)
	return item
}

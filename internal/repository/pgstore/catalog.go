package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/models"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/repository"
)

const catalogColumns = `id, name, description, category, image_url, base_price, discount_price, sizes, extras`

// CatalogRepository stores menu items
type CatalogRepository struct {
	db *sql.DB
}

func (r *CatalogRepository) GetAll(ctx context.Context) ([]models.CatalogItem, error) {
	return r.query(ctx, `SELECT `+catalogColumns+` FROM menu_items ORDER BY id`)
}

func (r *CatalogRepository) GetByID(ctx context.Context, id string) (*models.CatalogItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+catalogColumns+` FROM menu_items WHERE id = $1`, id)
	item, err := scanCatalogItem(row)
	if err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (r *CatalogRepository) GetMany(ctx context.Context, ids []string) (map[string]models.CatalogItem, error) {
	items, err := r.query(ctx, `SELECT `+catalogColumns+` FROM menu_items WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.CatalogItem, len(items))
	for _, item := range items {
		out[item.ID] = item
	}
	return out, nil
}

func (r *CatalogRepository) Upsert(ctx context.Context, item models.CatalogItem) error {
	sizes, err := json.Marshal(nonNil(item.Sizes))
	if err != nil {
		return err
	}
	extras, err := json.Marshal(nonNil(item.Extras))
	if err != nil {
		return err
	}

	query := `
		INSERT INTO menu_items (` + catalogColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
		    name = EXCLUDED.name,
		    description = EXCLUDED.description,
		    category = EXCLUDED.category,
		    image_url = EXCLUDED.image_url,
		    base_price = EXCLUDED.base_price,
		    discount_price = EXCLUDED.discount_price,
		    sizes = EXCLUDED.sizes,
		    extras = EXCLUDED.extras
	`
	_, err = r.db.ExecContext(ctx, query,
		item.ID, item.Name, item.Description, item.Category, item.ImageURL,
		item.BasePrice, nullInt(item.DiscountPrice), sizes, extras,
	)
	if err != nil {
		return fmt.Errorf("upsert menu item: %w", err)
	}
	return nil
}

func (r *CatalogRepository) query(ctx context.Context, query string, args ...any) ([]models.CatalogItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query menu items: %w", err)
	}
	defer rows.Close()

	items := make([]models.CatalogItem, 0)
	for rows.Next() {
		item, err := scanCatalogItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanCatalogItem(s scanner) (models.CatalogItem, error) {
	var (
		item          models.CatalogItem
		discount      sql.NullInt64
		sizes, extras []byte
	)
	if err := s.Scan(&item.ID, &item.Name, &item.Description, &item.Category, &item.ImageURL,
		&item.BasePrice, &discount, &sizes, &extras); err != nil {
		return item, err
	}
	item.DiscountPrice = intPtr(discount)
	if err := json.Unmarshal(sizes, &item.Sizes); err != nil {
		return item, fmt.Errorf("%w: menu item %q sizes: %v", repository.ErrInvalidRecord, item.ID, err)
	}
	if err := json.Unmarshal(extras, &item.Extras); err != nil {
		return item, fmt.Errorf("%w: menu item %q extras: %v", repository.ErrInvalidRecord, item.ID, err)
	}
	if len(item.Sizes) == 0 {
		item.Sizes = nil
	}
	if len(item.Extras) == 0 {
		item.Extras = nil
	}
	return item, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

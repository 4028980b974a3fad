package service

import (
	"context"
	"errors"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/models"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/repository"
)

// CatalogService handles business logic for the menu
type CatalogService struct {
	repo repository.CatalogRepository
}

// NewCatalogService creates a new catalog service
func NewCatalogService(repo repository.CatalogRepository) *CatalogService {
	return &CatalogService{
		repo: repo,
	}
}

// ListMenu returns all menu items
func (s *CatalogService) ListMenu(ctx context.Context) ([]models.CatalogItem, error) {
	return s.repo.GetAll(ctx)
}

// GetMenuItem returns a menu item by ID
func (s *CatalogService) GetMenuItem(ctx context.Context, id string) (*models.CatalogItem, error) {
	item, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrMenuNotFound
	}
	return item, err
}

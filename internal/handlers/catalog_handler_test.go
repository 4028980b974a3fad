package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/models"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/repository"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/service"
	"github.com/Lixing-Zhang/food-ordering/backend/pkg/logger"
)

func newCatalogHandler() *CatalogHandler {
	repo := repository.NewInMemoryCatalogRepository(repository.DefaultMenu()...)
	return NewCatalogHandler(service.NewCatalogService(repo), logger.NewWithWriter(io.Discard, "error"))
}

func TestListMenu(t *testing.T) {
	handler := newCatalogHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/menu", nil)
	w := httptest.NewRecorder()

	handler.ListMenu(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var items []models.CatalogItem
	if err := json.NewDecoder(w.Body).Decode(&items); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(items) != 10 {
		t.Errorf("expected 10 menu items, got %d", len(items))
	}
}

func TestGetMenuItem(t *testing.T) {
	handler := newCatalogHandler()

	// Create router to handle URL params
	r := chi.NewRouter()
	r.Get("/api/menu/{itemId}", handler.GetMenuItem)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantName   string
		wantError  string
	}{
		{"existing item", "/api/menu/6", http.StatusOK, "Margherita Pizza", ""},
		{"unknown item", "/api/menu/999", http.StatusNotFound, "", "Menu item not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, w.Code)
			}

			if tt.wantError != "" {
				var resp errorResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if resp.Success || resp.Error != tt.wantError {
					t.Errorf("expected error %q, got %+v", tt.wantError, resp)
				}
				return
			}

			var item models.CatalogItem
			if err := json.NewDecoder(w.Body).Decode(&item); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if item.Name != tt.wantName {
				t.Errorf("expected name %q, got %q", tt.wantName, item.Name)
			}
			if len(item.Sizes) == 0 {
				t.Error("expected pizza sizes to be returned")
			}
		})
	}
}

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/service"
)

// CatalogHandler serves the public menu
type CatalogHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(service *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		logger:  logger,
	}
}

// ListMenu handles GET /api/menu
func (h *CatalogHandler) ListMenu(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListMenu(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, items, h.logger)
}

// GetMenuItem handles GET /api/menu/{itemId}
func (h *CatalogHandler) GetMenuItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemId")
	if itemID == "" {
		WriteError(w, http.StatusBadRequest, "Invalid ID supplied", h.logger)
		return
	}

	item, err := h.service.GetMenuItem(r.Context(), itemID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, item, h.logger)
}

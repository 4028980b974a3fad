package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/models"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/service"
)

// OrderHandler handles order-related HTTP requests
type OrderHandler struct {
	orderService *service.OrderService
	log          *slog.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *service.OrderService, log *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		log:          log,
	}
}

// VerifyResponse is returned by the verification endpoint
type VerifyResponse struct {
	Success       bool   `json:"success"`
	OrderID       string `json:"orderId"`
	PaymentStatus string `json:"paymentStatus"`
	Status        string `json:"status,omitempty"`
}

// OrderActionResponse is returned by cancel and status updates
type OrderActionResponse struct {
	Success bool             `json:"success"`
	Order   models.OrderView `json:"order"`
}

// CreateOrder handles POST /api/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req service.CreateIntentInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, h.log)
		return
	}

	intent, err := h.orderService.CreateIntent(r.Context(), principalFrom(r), req)
	if err != nil {
		writeServiceError(w, r, err, h.log)
		return
	}

	WriteJSON(w, http.StatusCreated, intent, h.log)
}

// VerifyPayment handles POST /api/orders/verify. The request is
// authenticated by the gateway signature it carries.
func (h *OrderHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req service.VerifyInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, h.log)
		return
	}

	res, err := h.orderService.VerifyPayment(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err, h.log)
		return
	}

	WriteJSON(w, http.StatusOK, VerifyResponse{
		Success:       true,
		OrderID:       res.OrderID,
		PaymentStatus: string(res.PaymentStatus),
		Status:        string(res.Status),
	}, h.log)
}

// ListMyOrders handles GET /api/orders
func (h *OrderHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderService.ListMyOrders(r.Context(), principalFrom(r))
	if err != nil {
		writeServiceError(w, r, err, h.log)
		return
	}

	WriteJSON(w, http.StatusOK, orders, h.log)
}

// GetOrder handles GET /api/orders/{orderId}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderService.GetOrder(r.Context(), principalFrom(r), chi.URLParam(r, "orderId"))
	if err != nil {
		writeServiceError(w, r, err, h.log)
		return
	}

	WriteJSON(w, http.StatusOK, order, h.log)
}

// CancelOrder handles PATCH /api/orders/{orderId}/cancel
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderService.Cancel(r.Context(), principalFrom(r), chi.URLParam(r, "orderId"))
	if err != nil {
		writeServiceError(w, r, err, h.log)
		return
	}

	WriteJSON(w, http.StatusOK, OrderActionResponse{Success: true, Order: *order}, h.log)
}

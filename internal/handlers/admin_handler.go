package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/service"
)

// AdminHandler serves the back-office order and user endpoints
type AdminHandler struct {
	orders *service.OrderService
	users  *service.UserService
	log    *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(orders *service.OrderService, users *service.UserService, log *slog.Logger) *AdminHandler {
	return &AdminHandler{orders: orders, users: users, log: log}
}

// SetStatusRequest is the body of a status update
type SetStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// SetAdminRequest is the body of an admin flag update
type SetAdminRequest struct {
	Admin *bool `json:"admin" validate:"required"`
}

// SetBannedRequest is the body of a banned flag update
type SetBannedRequest struct {
	Banned *bool `json:"banned" validate:"required"`
}

// ListOrders handles GET /api/admin/orders?status=&paymentStatus=&email=&limit=
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := service.ListFilter{
		Status:        q.Get("status"),
		PaymentStatus: q.Get("paymentStatus"),
		UserEmail:     q.Get("email"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			WriteError(w, http.StatusBadRequest, "limit must be a positive integer", h.log)
			return
		}
		filter.Limit = limit
	}

	orders, err := h.orders.ListOrders(r.Context(), principalFrom(r), filter)
	if err != nil {
		writeServiceError(w, r, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, orders, h.log)
}

// SetOrderStatus handles PATCH /api/admin/orders/{orderId}/status
func (h *AdminHandler) SetOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req SetStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, h.log)
		return
	}

	order, err := h.orders.SetStatus(r.Context(), principalFrom(r), chi.URLParam(r, "orderId"), req.Status)
	if err != nil {
		writeServiceError(w, r, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, OrderActionResponse{Success: true, Order: *order}, h.log)
}

// ListUsers handles GET /api/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context(), principalFrom(r))
	if err != nil {
		writeServiceError(w, r, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, users, h.log)
}

// SetUserAdmin handles PATCH /api/admin/users/{userId}/admin
func (h *AdminHandler) SetUserAdmin(w http.ResponseWriter, r *http.Request) {
	var req SetAdminRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, h.log)
		return
	}

	u, err := h.users.SetAdmin(r.Context(), principalFrom(r), chi.URLParam(r, "userId"), *req.Admin)
	if err != nil {
		writeServiceError(w, r, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, u, h.log)
}

// SetUserBanned handles PATCH /api/admin/users/{userId}/banned
func (h *AdminHandler) SetUserBanned(w http.ResponseWriter, r *http.Request) {
	var req SetBannedRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, h.log)
		return
	}

	u, err := h.users.SetBanned(r.Context(), principalFrom(r), chi.URLParam(r, "userId"), *req.Banned)
	if err != nil {
		writeServiceError(w, r, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, u, h.log)
}

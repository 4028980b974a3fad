package apidoc

import (
	"net/http"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/handlers"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/models"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/service"
)

// Access describes who may call a route
type Access int

const (
	Public Access = iota
	User
	Admin
	Signed
)

// Route documents one HTTP endpoint
type Route struct {
	Method   string
	Path     string
	Summary  string
	Access   Access
	Request  any
	Response any
	Status   int
}

// Routes lists every endpoint the server registers
var Routes = []Route{
	{http.MethodGet, "/health", "Service health", Public, nil, handlers.HealthResponse{}, http.StatusOK},

	{http.MethodGet, "/api/menu", "List menu items", Public, nil, []models.CatalogItem{}, http.StatusOK},
	{http.MethodGet, "/api/menu/{itemId}", "Get a menu item", Public, nil, models.CatalogItem{}, http.StatusOK},

	{http.MethodPost, "/api/orders", "Create an order intent", User, service.CreateIntentInput{}, service.Intent{}, http.StatusCreated},
	{http.MethodGet, "/api/orders", "List my orders", User, nil, []models.OrderView{}, http.StatusOK},
	{http.MethodPost, "/api/orders/verify", "Verify a payment callback", Signed, service.VerifyInput{}, handlers.VerifyResponse{}, http.StatusOK},
	{http.MethodGet, "/api/orders/{orderId}", "Get an order", User, nil, models.OrderView{}, http.StatusOK},
	{http.MethodPatch, "/api/orders/{orderId}/cancel", "Cancel an order", User, nil, handlers.OrderActionResponse{}, http.StatusOK},
	{http.MethodPost, "/api/payments/webhook", "Gateway webhook", Signed, nil, service.WebhookResult{}, http.StatusOK},

	{http.MethodPost, "/api/coupons/validate", "Validate a coupon", User, service.ValidateInput{}, service.ValidateResult{}, http.StatusOK},

	{http.MethodGet, "/api/admin/orders", "List all orders", Admin, nil, []models.OrderView{}, http.StatusOK},
	{http.MethodPatch, "/api/admin/orders/{orderId}/status", "Set order status", Admin, handlers.SetStatusRequest{}, handlers.OrderActionResponse{}, http.StatusOK},
	{http.MethodGet, "/api/admin/coupons", "List coupons", Admin, nil, []models.Coupon{}, http.StatusOK},
	{http.MethodPost, "/api/admin/coupons", "Create a coupon", Admin, service.CouponInput{}, models.Coupon{}, http.StatusCreated},
	{http.MethodGet, "/api/admin/coupons/{code}", "Get a coupon", Admin, nil, models.Coupon{}, http.StatusOK},
	{http.MethodPatch, "/api/admin/coupons/{code}", "Update a coupon", Admin, service.CouponPatch{}, models.Coupon{}, http.StatusOK},
	{http.MethodDelete, "/api/admin/coupons/{code}", "Delete a coupon", Admin, nil, nil, http.StatusNoContent},
	{http.MethodGet, "/api/admin/users", "List users", Admin, nil, []models.User{}, http.StatusOK},
	{http.MethodPatch, "/api/admin/users/{userId}/admin", "Grant or revoke admin", Admin, handlers.SetAdminRequest{}, models.User{}, http.StatusOK},
	{http.MethodPatch, "/api/admin/users/{userId}/banned", "Ban or reinstate a user", Admin, handlers.SetBannedRequest{}, models.User{}, http.StatusOK},

	{http.MethodGet, "/api/openapi.json", "This document as JSON", Public, nil, nil, http.StatusOK},
	{http.MethodGet, "/api/openapi.yaml", "This document as YAML", Public, nil, nil, http.StatusOK},
}

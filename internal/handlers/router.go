package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/middleware"
)

// RouterConfig collects the handlers and middleware the router mounts
type RouterConfig struct {
	Logger         *slog.Logger
	Authenticator  *middleware.Authenticator
	AllowedOrigins []string
	RequestTimeout time.Duration

	Health  *HealthHandler
	Catalog *CatalogHandler
	Orders  *OrderHandler
	Payment *PaymentHandler
	Coupons *CouponHandler
	Admin   *AdminHandler
	Docs    *DocsHandler
}

// NewRouter wires every route onto a chi router
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(chimiddleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id", SignatureHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", cfg.Health.ServeHTTP)

	// Public routes
	r.Get("/api/menu", cfg.Catalog.ListMenu)
	r.Get("/api/menu/{itemId}", cfg.Catalog.GetMenuItem)
	r.Post("/api/orders/verify", cfg.Orders.VerifyPayment)
	r.Post("/api/payments/webhook", cfg.Payment.Webhook)
	r.Get("/api/openapi.json", cfg.Docs.JSON)
	r.Get("/api/openapi.yaml", cfg.Docs.YAML)

	// Signed-in users
	r.Group(func(r chi.Router) {
		r.Use(cfg.Authenticator.Authenticate)
		r.Use(middleware.RejectBannedWrites)

		r.Post("/api/orders", cfg.Orders.CreateOrder)
		r.Get("/api/orders", cfg.Orders.ListMyOrders)
		r.Get("/api/orders/{orderId}", cfg.Orders.GetOrder)
		r.Patch("/api/orders/{orderId}/cancel", cfg.Orders.CancelOrder)
		r.Post("/api/coupons/validate", cfg.Coupons.ValidateCoupon)

		// Back office
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Get("/api/admin/orders", cfg.Admin.ListOrders)
			r.Patch("/api/admin/orders/{orderId}/status", cfg.Admin.SetOrderStatus)

			r.Get("/api/admin/coupons", cfg.Coupons.ListCoupons)
			r.Post("/api/admin/coupons", cfg.Coupons.CreateCoupon)
			r.Get("/api/admin/coupons/{code}", cfg.Coupons.GetCoupon)
			r.Patch("/api/admin/coupons/{code}", cfg.Coupons.UpdateCoupon)
			r.Delete("/api/admin/coupons/{code}", cfg.Coupons.DeleteCoupon)

			r.Get("/api/admin/users", cfg.Admin.ListUsers)
			r.Patch("/api/admin/users/{userId}/admin", cfg.Admin.SetUserAdmin)
			r.Patch("/api/admin/users/{userId}/banned", cfg.Admin.SetUserBanned)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "Not found", cfg.Logger)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", cfg.Logger)
	})

	return r
}

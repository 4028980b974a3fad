package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/service"
)

// SignatureHeader carries the webhook body signature
const SignatureHeader = "X-Razorpay-Signature"

// PaymentHandler receives gateway webhooks
type PaymentHandler struct {
	orderService *service.OrderService
	log          *slog.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(orderService *service.OrderService, log *slog.Logger) *PaymentHandler {
	return &PaymentHandler{orderService: orderService, log: log}
}

// Webhook handles POST /api/payments/webhook
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body", h.log)
		return
	}

	res, err := h.orderService.HandleWebhook(r.Context(), body, r.Header.Get(SignatureHeader))
	if err != nil {
		writeServiceError(w, r, err, h.log)
		return
	}

	WriteJSON(w, http.StatusOK, res, h.log)
}

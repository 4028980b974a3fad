package service

import "github.com/Lixing-Zhang/food-ordering/backend/internal/apperr"

var (
	ErrUnauthenticated = apperr.New(apperr.Authentication, "Authentication required")
	ErrBanned          = apperr.New(apperr.Authorization, "Account is suspended")
	ErrAdminOnly       = apperr.New(apperr.Authorization, "Admin access required")
	ErrForbidden       = apperr.New(apperr.Authorization, "You do not have access to this order")

	ErrOrderNotFound = apperr.New(apperr.NotFound, "Order not found")

	ErrInvalidSignature        = apperr.New(apperr.Integrity, "Invalid payment signature")
	ErrTamperDetected          = apperr.New(apperr.Integrity, "Order integrity check failed")
	ErrInvalidWebhookSignature = apperr.New(apperr.Integrity, "Invalid webhook signature")

	ErrInvalidStatus     = apperr.New(apperr.Validation, "Invalid order status")
	ErrNotPaid           = apperr.New(apperr.Conflict, "Order has not been paid")
	ErrIllegalTransition = apperr.New(apperr.Conflict, "Order status cannot move backwards or leave a final state")
	ErrStatusConflict    = apperr.New(apperr.Conflict, "Order was modified concurrently, please retry")

	ErrCouponNotFound  = apperr.New(apperr.NotFound, "Coupon not found")
	ErrCouponExists    = apperr.New(apperr.Conflict, "Coupon code already exists")
	ErrInvalidCoupon   = apperr.New(apperr.Validation, "Invalid coupon definition")
	ErrUserNotFound    = apperr.New(apperr.NotFound, "User not found")
	ErrMenuNotFound    = apperr.New(apperr.NotFound, "Menu item not found")
	ErrSelfAdminChange = apperr.New(apperr.Validation, "Admins cannot change their own admin or banned flag")
)

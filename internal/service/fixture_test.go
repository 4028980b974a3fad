package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/coupon"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/models"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/payment"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/pricing"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/repository"
	"github.com/Lixing-Zhang/food-ordering/backend/pkg/logger"
)

const (
	keySecret     = "rzp_secret"
	webhookSecret = "whsec_test"
)

var (
	alice   = &models.Principal{UserID: "u-alice", Email: "alice@example.com", Name: "Alice"}
	bob     = &models.Principal{UserID: "u-bob", Email: "bob@example.com", Name: "Bob"}
	admin   = &models.Principal{UserID: "u-admin", Email: "admin@example.com", Name: "Admin", Admin: true}
	banned  = &models.Principal{UserID: "u-banned", Email: "banned@example.com", Banned: true}
	largeA  = []models.CartLine{{ItemID: "A", Size: "Large"}}
	address = "221B Baker Street"
)

type fixture struct {
	orders   *repository.InMemoryOrderRepository
	coupons  *repository.InMemoryCouponRepository
	users    *repository.InMemoryUserRepository
	gateway  *payment.FakeGateway
	svc      *OrderService
	couponSv *CouponService
	userSv   *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	catalog := repository.NewInMemoryCatalogRepository(
		models.CatalogItem{
			ID: "A", Name: "Farmhouse Pizza", BasePrice: 200,
			Sizes:  []models.SizeOption{{Name: "Regular"}, {Name: "Large", ExtraPrice: 50}},
			Extras: []models.ExtraOption{{Name: "Cheese", ExtraPrice: 30}},
		},
		models.CatalogItem{ID: "B", Name: "Garlic Bread", BasePrice: 100},
	)

	minOrder := int64(100)
	coupons := repository.NewInMemoryCouponRepository()
	require.NoError(t, coupons.Create(ctx, &models.Coupon{
		Code: "SAVE10", DiscountType: models.DiscountFixed, DiscountValue: 30, MinOrderValue: &minOrder, IsActive: true,
	}))

	orders := repository.NewInMemoryOrderRepository()
	users := repository.NewInMemoryUserRepository(
		models.User{ID: alice.UserID, Email: alice.Email},
		models.User{ID: bob.UserID, Email: bob.Email},
		models.User{ID: admin.UserID, Email: admin.Email, Admin: true},
	)
	gateway := payment.NewFakeGateway()
	log := logger.NewWithWriter(io.Discard, "error")

	evaluator := coupon.NewEvaluator(coupons, orders).WithLogger(log)
	engine := pricing.NewEngine(catalog, pricing.DefaultConfig())

	return &fixture{
		orders:  orders,
		coupons: coupons,
		users:   users,
		gateway: gateway,
		svc: NewOrderService(engine, evaluator, coupons, orders, gateway, PaymentConfig{
			Currency:      "INR",
			KeyID:         "rzp_test_key",
			KeySecret:     keySecret,
			WebhookSecret: webhookSecret,
		}, log),
		couponSv: NewCouponService(coupons, evaluator, log),
		userSv:   NewUserService(users, log),
	}
}

// checkout creates an intent and returns it together with a valid
// verification request for it.
func (f *fixture) checkout(t *testing.T, p *models.Principal, code string) (*Intent, VerifyInput) {
	t.Helper()
	intent, err := f.svc.CreateIntent(context.Background(), p, CreateIntentInput{
		Address: address, Cart: largeA, CouponCode: code,
	})
	require.NoError(t, err)

	paymentID := "pay_" + intent.Order.ID[:8]
	return intent, VerifyInput{
		GatewayOrderID:   intent.GatewayOrderID,
		GatewayPaymentID: paymentID,
		Signature:        payment.SignPayment(keySecret, intent.GatewayOrderID, paymentID),
		SecurityHash:     intent.SecurityHash,
		OrderID:          intent.Order.ID,
	}
}

// paid runs a full checkout and verification.
func (f *fixture) paid(t *testing.T, p *models.Principal) *Intent {
	t.Helper()
	intent, in := f.checkout(t, p, "")
	_, err := f.svc.VerifyPayment(context.Background(), in)
	require.NoError(t, err)
	return intent
}

func (f *fixture) usage(t *testing.T, code string) int64 {
	t.Helper()
	c, err := f.coupons.GetByCode(context.Background(), code)
	require.NoError(t, err)
	return c.UsageCount
}

func (f *fixture) stored(t *testing.T, id string) *models.Order {
	t.Helper()
	o, err := f.orders.GetByID(context.Background(), id)
	require.NoError(t, err)
	return o
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/apperr"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/models"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/payment"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/pricing"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/repository"
)

func TestOrderService_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	intent, in := f.checkout(t, alice, "save10")

	assert.Equal(t, int64(28300), intent.Amount)
	assert.Equal(t, "INR", intent.Currency)
	assert.Equal(t, "rzp_test_key", intent.KeyID)

	view := intent.Order
	assert.Equal(t, int64(250), view.Subtotal)
	assert.Equal(t, int64(13), view.Tax)
	assert.Equal(t, int64(50), view.DeliveryFee)
	assert.Equal(t, int64(30), view.DiscountAmount)
	assert.Equal(t, int64(283), view.Total)
	require.NotNil(t, view.CouponCode)
	assert.Equal(t, "SAVE10", *view.CouponCode)
	assert.Equal(t, "pending", view.PaymentStatus)
	assert.Empty(t, view.Status)

	gw := f.gateway.Orders()
	require.Len(t, gw, 1)
	assert.Equal(t, int64(28300), gw[0].Amount)
	assert.Equal(t, view.ID, gw[0].Receipt)

	stored := f.stored(t, view.ID)
	want, err := Fingerprint(stored.Cart, 283)
	require.NoError(t, err)
	assert.Equal(t, want, stored.SecurityHash)
	assert.Equal(t, want, intent.SecurityHash)

	res, err := f.svc.VerifyPayment(ctx, in)
	require.NoError(t, err)
	assert.True(t, res.Promoted)
	assert.Equal(t, models.PaymentVerified, res.PaymentStatus)
	assert.Equal(t, models.StatusPlaced, res.Status)
	assert.Equal(t, int64(1), f.usage(t, "SAVE10"))

	stored = f.stored(t, view.ID)
	assert.Equal(t, in.GatewayPaymentID, stored.GatewayPaymentID)
	assert.NotNil(t, stored.VerifiedAt)
}

func TestOrderService_VerifyPayment_Idempotent(t *testing.T) {
	f := newFixture(t)
	_, in := f.checkout(t, alice, "SAVE10")

	for i := 0; i < 3; i++ {
		res, err := f.svc.VerifyPayment(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, i == 0, res.Promoted)
	}
	assert.Equal(t, int64(1), f.usage(t, "SAVE10"))
}

func TestOrderService_VerifyPayment_ConcurrentCallbacks(t *testing.T) {
	f := newFixture(t)
	_, in := f.checkout(t, alice, "SAVE10")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		promoted int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.VerifyPayment(context.Background(), in)
			if err != nil {
				t.Error(err)
				return
			}
			if res.Promoted {
				mu.Lock()
				promoted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, promoted)
	assert.Equal(t, int64(1), f.usage(t, "SAVE10"))
}

func TestOrderService_VerifyPayment_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(in *VerifyInput)
		wantErr error
	}{
		{
			name: "altered signature byte",
			mutate:  func(in *VerifyInput) { in.Signature = flipFirst(in.Signature) },
			wantErr: ErrInvalidSignature,
		},
		{
			name:    "signature for another payment",
			mutate:  func(in *VerifyInput) { in.GatewayPaymentID = "pay_other" },
			wantErr: ErrInvalidSignature,
		},
		{
			name:    "tampered hash",
			mutate:  func(in *VerifyInput) { in.SecurityHash = flipFirst(in.SecurityHash) },
			wantErr: ErrTamperDetected,
		},
		{
			name:    "foreign order reference",
			mutate:  func(in *VerifyInput) { in.OrderID = "someone-elses-order" },
			wantErr: ErrTamperDetected,
		},
		{
			name: "unknown gateway order",
			mutate: func(in *VerifyInput) {
				in.GatewayOrderID = "order_missing"
				in.Signature = payment.SignPayment(keySecret, in.GatewayOrderID, in.GatewayPaymentID)
			},
			wantErr: ErrOrderNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			intent, in := f.checkout(t, alice, "SAVE10")
			tt.mutate(&in)

			res, err := f.svc.VerifyPayment(context.Background(), in)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.wantErr)

			stored := f.stored(t, intent.Order.ID)
			assert.Equal(t, models.PaymentPending, stored.PaymentStatus)
			assert.Equal(t, models.StatusUnset, stored.Status)
			assert.Equal(t, int64(0), f.usage(t, "SAVE10"))
		})
	}
}

func flipFirst(s string) string {
	b := []byte(s)
	if b[0] == 'a' {
		b[0] = 'b'
	} else {
		b[0] = 'a'
	}
	return string(b)
}

func TestOrderService_VerifyPayment_IntegrityKind(t *testing.T) {
	f := newFixture(t)
	_, in := f.checkout(t, alice, "")
	in.Signature = "deadbeef"

	_, err := f.svc.VerifyPayment(context.Background(), in)
	assert.Equal(t, apperr.Integrity, apperr.KindOf(err))
	assert.Equal(t, 400, apperr.HTTPStatus(apperr.KindOf(err)))
}

func TestOrderService_CreateIntent_Failures(t *testing.T) {
	t.Run("gateway down persists nothing", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.Err = errors.New("connection refused")

		_, err := f.svc.CreateIntent(context.Background(), alice, CreateIntentInput{Address: address, Cart: largeA})
		require.Error(t, err)
		assert.Equal(t, apperr.Gateway, apperr.KindOf(err))

		all, err := f.orders.List(context.Background(), repository.OrderFilter{})
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("pricing error persists nothing", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.CreateIntent(context.Background(), alice, CreateIntentInput{
			Address: address, Cart: []models.CartLine{{ItemID: "A", Size: "Huge"}},
		})
		assert.ErrorIs(t, err, pricing.ErrInvalidSize)
		assert.Empty(t, f.gateway.Orders())
	})

	t.Run("anonymous", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.CreateIntent(context.Background(), nil, CreateIntentInput{Address: address, Cart: largeA})
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("banned", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.CreateIntent(context.Background(), banned, CreateIntentInput{Address: address, Cart: largeA})
		assert.ErrorIs(t, err, ErrBanned)
	})
}

func TestOrderService_CreateIntent_RejectedCouponIsDropped(t *testing.T) {
	f := newFixture(t)

	for _, code := range []string{"NOPE", "   "} {
		intent, err := f.svc.CreateIntent(context.Background(), alice, CreateIntentInput{
			Address: address, Cart: largeA, CouponCode: code,
		})
		require.NoError(t, err)
		assert.Nil(t, intent.Order.CouponCode)
		assert.Equal(t, int64(0), intent.Order.DiscountAmount)
		assert.Equal(t, int64(313), intent.Order.Total)
		assert.Equal(t, int64(31300), intent.Amount)
	}
}

func TestOrderService_CreateIntent_NameDefaultsToPrincipal(t *testing.T) {
	f := newFixture(t)
	intent, _ := f.checkout(t, alice, "")
	assert.Equal(t, "Alice", intent.Order.UserName)
	assert.Equal(t, alice.Email, intent.Order.UserEmail)
}

func TestFingerprint(t *testing.T) {
	cart := []models.PricedLine{{ItemID: "A", Name: "Farmhouse Pizza", BasePrice: 200, UnitPrice: 200, Size: &models.SizeOption{Name: "Large", ExtraPrice: 50}, LineTotal: 250}}

	first, err := Fingerprint(cart, 283)
	require.NoError(t, err)
	again, err := Fingerprint(cart, 283)
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Len(t, first, 64)

	otherTotal, err := Fingerprint(cart, 282)
	require.NoError(t, err)
	assert.NotEqual(t, first, otherTotal)

	changed := []models.PricedLine{cart[0]}
	changed[0].LineTotal = 251
	otherCart, err := Fingerprint(changed, 283)
	require.NoError(t, err)
	assert.NotEqual(t, first, otherCart)

	extra := append([]models.PricedLine{}, cart[0], cart[0])
	twoLines, err := Fingerprint(extra, 283)
	require.NoError(t, err)
	assert.NotEqual(t, first, twoLines)
}

func TestOrderService_GetOrder_Authorization(t *testing.T) {
	f := newFixture(t)
	intent := f.paid(t, alice)
	ctx := context.Background()

	tests := []struct {
		name      string
		principal *models.Principal
		wantErr   error
	}{
		{"owner", alice, nil},
		{"admin", admin, nil},
		{"stranger", bob, ErrForbidden},
		{"anonymous", nil, ErrUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := f.svc.GetOrder(ctx, tt.principal, intent.Order.ID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, view)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, intent.Order.ID, view.ID)
		})
	}

	_, err := f.svc.GetOrder(ctx, admin, "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderService_ListMyOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	statuses := []models.PaymentStatus{
		models.PaymentPending, models.PaymentVerified, models.PaymentFailed,
		models.PaymentCompleted, models.PaymentRefundInitiated,
	}
	for i, st := range statuses {
		require.NoError(t, f.orders.Insert(ctx, &models.Order{
			ID: string(rune('a' + i)), UserEmail: alice.Email, PaymentStatus: st,
			GatewayOrderID: "gw_" + string(rune('a'+i)), CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, f.orders.Insert(ctx, &models.Order{
		ID: "z", UserEmail: bob.Email, PaymentStatus: models.PaymentVerified, GatewayOrderID: "gw_z", CreatedAt: base,
	}))

	views, err := f.svc.ListMyOrders(ctx, alice)
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, []string{"e", "d", "b"}, []string{views[0].ID, views[1].ID, views[2].ID})

	for i := 0; i < 60; i++ {
		require.NoError(t, f.orders.Insert(ctx, &models.Order{
			ID: fmt.Sprintf("bulk-%02d", i), UserEmail: bob.Email, PaymentStatus: models.PaymentVerified,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
	views, err = f.svc.ListMyOrders(ctx, bob)
	require.NoError(t, err)
	assert.Len(t, views, 50)

	_, err = f.svc.ListMyOrders(ctx, nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestOrderService_ListOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.paid(t, alice)
	f.paid(t, bob)
	f.checkout(t, bob, "")

	all, err := f.svc.ListOrders(ctx, admin, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	pending, err := f.svc.ListOrders(ctx, admin, ListFilter{PaymentStatus: "pending"})
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	placed, err := f.svc.ListOrders(ctx, admin, ListFilter{Status: "placed", UserEmail: bob.Email})
	require.NoError(t, err)
	assert.Len(t, placed, 1)

	_, err = f.svc.ListOrders(ctx, admin, ListFilter{Status: "shipped"})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = f.svc.ListOrders(ctx, alice, ListFilter{})
	assert.ErrorIs(t, err, ErrAdminOnly)
}

func TestOrderService_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("owner and admin may cancel", func(t *testing.T) {
		for _, p := range []*models.Principal{alice, admin} {
			f := newFixture(t)
			f.svc.now = fixedClock(time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC))
			intent := f.paid(t, alice)

			view, err := f.svc.Cancel(ctx, p, intent.Order.ID)
			require.NoError(t, err)
			assert.Equal(t, "canceled", view.Status)
			assert.Equal(t, "refund_initiated", view.PaymentStatus)
			assert.Equal(t, "2026-04-01T09:00:00Z", view.CanceledAt)
		}
	})

	t.Run("stranger may not", func(t *testing.T) {
		f := newFixture(t)
		intent := f.paid(t, alice)

		_, err := f.svc.Cancel(ctx, bob, intent.Order.ID)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.Equal(t, models.StatusPlaced, f.stored(t, intent.Order.ID).Status)
	})

	t.Run("coupon usage is kept", func(t *testing.T) {
		f := newFixture(t)
		_, in := f.checkout(t, alice, "SAVE10")
		_, err := f.svc.VerifyPayment(ctx, in)
		require.NoError(t, err)

		_, err = f.svc.Cancel(ctx, alice, in.OrderID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), f.usage(t, "SAVE10"))
	})

	t.Run("cancel twice is a no-op", func(t *testing.T) {
		f := newFixture(t)
		intent := f.paid(t, alice)
		first, err := f.svc.Cancel(ctx, alice, intent.Order.ID)
		require.NoError(t, err)
		second, err := f.svc.Cancel(ctx, alice, intent.Order.ID)
		require.NoError(t, err)
		assert.Equal(t, first.CanceledAt, second.CanceledAt)
	})

	t.Run("completed orders stay completed", func(t *testing.T) {
		f := newFixture(t)
		intent := f.paid(t, alice)
		_, err := f.svc.SetStatus(ctx, admin, intent.Order.ID, "completed")
		require.NoError(t, err)

		_, err = f.svc.Cancel(ctx, alice, intent.Order.ID)
		assert.ErrorIs(t, err, ErrIllegalTransition)
	})

	t.Run("unpaid checkout is marked for refund", func(t *testing.T) {
		f := newFixture(t)
		intent, _ := f.checkout(t, alice, "SAVE10")

		view, err := f.svc.Cancel(ctx, alice, intent.Order.ID)
		require.NoError(t, err)
		assert.Equal(t, "refund_initiated", view.PaymentStatus)
		assert.Empty(t, view.VerifiedAt, "never paid")
		assert.Equal(t, int64(0), f.usage(t, "SAVE10"))
		assert.False(t, repository.Promotable(f.stored(t, intent.Order.ID).PaymentStatus))
	})

	t.Run("late verification keeps cancellation", func(t *testing.T) {
		f := newFixture(t)
		_, in := f.checkout(t, alice, "SAVE10")
		_, err := f.svc.Cancel(ctx, alice, in.OrderID)
		require.NoError(t, err)

		res, err := f.svc.VerifyPayment(ctx, in)
		require.NoError(t, err)
		assert.False(t, res.Promoted)
		assert.Equal(t, models.StatusCanceled, res.Status)
		assert.Equal(t, int64(0), f.usage(t, "SAVE10"))
	})
}

func TestOrderService_SetStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("forward progression", func(t *testing.T) {
		f := newFixture(t)
		intent := f.paid(t, alice)

		for _, st := range []string{"confirmed", "preparing", "out_for_delivery", "completed"} {
			view, err := f.svc.SetStatus(ctx, admin, intent.Order.ID, st)
			require.NoError(t, err, st)
			assert.Equal(t, st, view.Status)
		}
		assert.Equal(t, models.PaymentCompleted, f.stored(t, intent.Order.ID).PaymentStatus)
	})

	t.Run("skipping ahead is allowed", func(t *testing.T) {
		f := newFixture(t)
		intent := f.paid(t, alice)
		view, err := f.svc.SetStatus(ctx, admin, intent.Order.ID, "out_for_delivery")
		require.NoError(t, err)
		assert.Equal(t, "out_for_delivery", view.Status)
		assert.Equal(t, "verified", view.PaymentStatus)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		f := newFixture(t)
		intent := f.paid(t, alice)
		view, err := f.svc.SetStatus(ctx, admin, intent.Order.ID, "placed")
		require.NoError(t, err)
		assert.Equal(t, "placed", view.Status)
	})

	t.Run("canceled routes to cancel", func(t *testing.T) {
		f := newFixture(t)
		intent := f.paid(t, alice)
		view, err := f.svc.SetStatus(ctx, admin, intent.Order.ID, "canceled")
		require.NoError(t, err)
		assert.Equal(t, "canceled", view.Status)
		assert.Equal(t, "refund_initiated", view.PaymentStatus)
	})

	tests := []struct {
		name      string
		principal *models.Principal
		prepare   func(t *testing.T, f *fixture, id string)
		status    string
		pay       bool
		wantErr   error
	}{
		{name: "not admin", principal: alice, status: "confirmed", pay: true, wantErr: ErrAdminOnly},
		{name: "unknown status", principal: admin, status: "shipped", pay: true, wantErr: ErrInvalidStatus},
		{name: "unset is not a target", principal: admin, status: "", pay: true, wantErr: ErrInvalidStatus},
		{name: "unpaid order", principal: admin, status: "confirmed", pay: false, wantErr: ErrNotPaid},
		{
			name: "backwards", principal: admin, status: "confirmed", pay: true, wantErr: ErrIllegalTransition,
			prepare: func(t *testing.T, f *fixture, id string) {
				_, err := f.svc.SetStatus(context.Background(), admin, id, "preparing")
				require.NoError(t, err)
			},
		},
		{
			name: "out of canceled", principal: admin, status: "confirmed", pay: true, wantErr: ErrIllegalTransition,
			prepare: func(t *testing.T, f *fixture, id string) {
				_, err := f.svc.Cancel(context.Background(), admin, id)
				require.NoError(t, err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			var id string
			if tt.pay {
				id = f.paid(t, alice).Order.ID
			} else {
				intent, _ := f.checkout(t, alice, "")
				id = intent.Order.ID
			}
			if tt.prepare != nil {
				tt.prepare(t, f, id)
			}
			before := f.stored(t, id)

			_, err := f.svc.SetStatus(ctx, tt.principal, id, tt.status)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before.Status, f.stored(t, id).Status)
		})
	}
}

// staleOrders loses every status race.
type staleOrders struct {
	repository.OrderRepository
}

func (staleOrders) TransitionStatus(context.Context, string, models.OrderStatus, repository.StatusPatch) (*models.Order, error) {
	return nil, repository.ErrStaleStatus
}

func TestOrderService_SetStatus_LostRace(t *testing.T) {
	f := newFixture(t)
	intent := f.paid(t, alice)
	f.svc.orders = staleOrders{f.orders}

	_, err := f.svc.SetStatus(context.Background(), admin, intent.Order.ID, "confirmed")
	assert.ErrorIs(t, err, ErrStatusConflict)
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))
}

package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/apperr"
)

func TestRazorpayGateway_CreateOrder(t *testing.T) {
	var got createOrderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_abc","amount":28300,"currency":"INR","receipt":"r1","status":"created"}`))
	}))
	defer srv.Close()

	gw := NewRazorpayGateway(srv.URL+"/", "rzp_test_key", "secret", time.Second)
	order, err := gw.CreateOrder(context.Background(), 28300, "INR", "r1")
	require.NoError(t, err)

	assert.Equal(t, createOrderRequest{Amount: 28300, Currency: "INR", Receipt: "r1"}, got)
	assert.Equal(t, "order_abc", order.ID)
	assert.Equal(t, int64(28300), order.Amount)
}

func TestRazorpayGateway_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantMsg string
	}{
		{
			name: "gateway error body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too small"}}`))
			},
			wantMsg: "amount too small",
		},
		{
			name: "unexpected status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantMsg: "unexpected status 500",
		},
		{
			name: "missing id",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"amount":100}`))
			},
			wantMsg: "no order id",
		},
		{
			name: "slow gateway",
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(200 * time.Millisecond)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			gw := NewRazorpayGateway(srv.URL, "k", "s", 50*time.Millisecond)
			order, err := gw.CreateOrder(context.Background(), 100, "INR", "r")
			require.Error(t, err)
			assert.Nil(t, order)
			assert.True(t, errors.Is(err, ErrGatewayUnavailable))
			assert.Equal(t, apperr.Gateway, apperr.KindOf(err))
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestFakeGateway(t *testing.T) {
	gw := NewFakeGateway()

	a, err := gw.CreateOrder(context.Background(), 100, "INR", "r1")
	require.NoError(t, err)
	b, err := gw.CreateOrder(context.Background(), 200, "INR", "r2")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Len(t, gw.Orders(), 2)

	gw.Err = ErrGatewayUnavailable
	_, err = gw.CreateOrder(context.Background(), 100, "INR", "r3")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

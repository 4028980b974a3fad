package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/models"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/repository"
	"github.com/Lixing-Zhang/food-ordering/backend/pkg/logger"
)

var secret = []byte("test-secret")

func echoPrincipal() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := PrincipalFrom(r.Context())
		if p == nil {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.Header().Set("X-Email", p.Email)
		if p.Admin {
			w.Header().Set("X-Admin", "true")
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticator_Authenticate(t *testing.T) {
	users := repository.NewInMemoryUserRepository(
		models.User{ID: "u-promoted", Email: "promoted@example.com", Admin: true},
		models.User{ID: "u-demoted", Email: "demoted@example.com", Admin: false},
	)
	auth := NewAuthenticator(secret, users, logger.NewWithWriter(io.Discard, "error"))
	handler := auth.Authenticate(echoPrincipal())

	token := func(u models.User, ttl time.Duration) string {
		tok, err := IssueToken(secret, u, ttl)
		require.NoError(t, err)
		return tok
	}
	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Email: "a@example.com", RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	foreign, err := IssueToken([]byte("other-secret"), models.User{ID: "u1", Email: "a@example.com"}, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantEmail  string
		wantAdmin  bool
	}{
		{"valid token", "Bearer " + token(models.User{ID: "u1", Email: "a@example.com"}, time.Hour), http.StatusOK, "a@example.com", false},
		{"lowercase scheme", "bearer " + token(models.User{ID: "u1", Email: "a@example.com"}, time.Hour), http.StatusOK, "a@example.com", false},
		{"record grants admin", "Bearer " + token(models.User{ID: "u-promoted", Email: "promoted@example.com"}, time.Hour), http.StatusOK, "promoted@example.com", true},
		{"record revokes admin", "Bearer " + token(models.User{ID: "u-demoted", Email: "demoted@example.com", Admin: true}, time.Hour), http.StatusOK, "demoted@example.com", false},
		{"missing header", "", http.StatusUnauthorized, "", false},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "", false},
		{"expired", "Bearer " + token(models.User{ID: "u1", Email: "a@example.com"}, -time.Minute), http.StatusUnauthorized, "", false},
		{"wrong secret", "Bearer " + foreign, http.StatusUnauthorized, "", false},
		{"alg none", "Bearer " + noneToken, http.StatusUnauthorized, "", false},
		{"no email claim", "Bearer " + token(models.User{ID: "u1"}, time.Hour), http.StatusUnauthorized, "", false},
		{"garbage", "Bearer not.a.jwt", http.StatusUnauthorized, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantEmail, w.Header().Get("X-Email"))
				assert.Equal(t, tt.wantAdmin, w.Header().Get("X-Admin") == "true")
			} else {
				assert.Contains(t, w.Body.String(), `"error"`)
			}
		})
	}
}

func TestAuthenticator_ParseToken_Expired(t *testing.T) {
	auth := NewAuthenticator(secret, nil, logger.NewWithWriter(io.Discard, "error"))
	tok, err := IssueToken(secret, models.User{ID: "u1", Email: "a@example.com"}, -time.Minute)
	require.NoError(t, err)

	_, err = auth.ParseToken(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin(echoPrincipal())

	tests := []struct {
		name       string
		principal  *models.Principal
		wantStatus int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"customer", &models.Principal{Email: "a@example.com"}, http.StatusForbidden},
		{"admin", &models.Principal{Email: "admin@example.com", Admin: true}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
			if tt.principal != nil {
				req = req.WithContext(WithPrincipal(context.Background(), tt.principal))
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRejectBannedWrites(t *testing.T) {
	handler := RejectBannedWrites(echoPrincipal())
	bannedUser := &models.Principal{Email: "b@example.com", Banned: true}

	tests := []struct {
		method     string
		principal  *models.Principal
		wantStatus int
	}{
		{http.MethodGet, bannedUser, http.StatusOK},
		{http.MethodPost, bannedUser, http.StatusForbidden},
		{http.MethodPatch, bannedUser, http.StatusForbidden},
		{http.MethodPost, &models.Principal{Email: "a@example.com"}, http.StatusOK},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, "/api/orders", nil)
		req = req.WithContext(WithPrincipal(context.Background(), tt.principal))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, tt.wantStatus, w.Code, "%s banned=%v", tt.method, tt.principal.Banned)
	}
}

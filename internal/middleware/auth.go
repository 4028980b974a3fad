package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/models"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/repository"
)

var (
	ErrTokenMissing  = errors.New("authentication token missing")
	ErrTokenInvalid  = errors.New("authentication token invalid")
	ErrTokenExpired  = errors.New("authentication token expired")
	ErrInvalidClaims = errors.New("invalid token claims")
)

type contextKey string

const principalContextKey contextKey = "principal"

// Claims are the bearer token claims issued by the identity provider
type Claims struct {
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	Admin  bool   `json:"admin,omitempty"`
	Banned bool   `json:"banned,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator validates HS256 bearer tokens. When a user record exists for
// the token subject, its admin and banned flags override the claims.
type Authenticator struct {
	secret []byte
	users  repository.UserRepository
	log    *slog.Logger
}

// NewAuthenticator creates an authenticator. users may be nil.
func NewAuthenticator(secret []byte, users repository.UserRepository, log *slog.Logger) *Authenticator {
	return &Authenticator{secret: secret, users: users, log: log}
}

// Authenticate rejects requests without a valid bearer token and stores the
// caller's principal in the request context.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := extractToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		claims, err := a.ParseToken(token)
		if err != nil {
			a.log.DebugContext(r.Context(), "rejected bearer token", "error", err)
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		principal, err := a.resolve(r.Context(), claims)
		if err != nil {
			a.log.ErrorContext(r.Context(), "failed to load user record", "subject", claims.Subject, "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// ParseToken validates a token and returns its claims
func (a *Authenticator) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

func (a *Authenticator) resolve(ctx context.Context, claims *Claims) (*models.Principal, error) {
	p := &models.Principal{
		UserID: claims.Subject,
		Email:  claims.Email,
		Name:   claims.Name,
		Admin:  claims.Admin,
		Banned: claims.Banned,
	}
	if a.users == nil {
		return p, nil
	}

	u, err := a.users.GetByID(ctx, claims.Subject)
	if errors.Is(err, repository.ErrNotFound) {
		return p, nil
	}
	if err != nil {
		return nil, err
	}
	p.Admin = u.Admin
	p.Banned = u.Banned
	if p.Name == "" {
		p.Name = u.Name
	}
	return p, nil
}

// IssueToken signs an HS256 token for u
func IssueToken(secret []byte, u models.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:  u.Email,
		Name:   u.Name,
		Admin:  u.Admin,
		Banned: u.Banned,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// RequireAdmin allows only admin principals through
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := PrincipalFrom(r.Context())
		if p == nil {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		if !p.Admin {
			writeError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RejectBannedWrites refuses state-changing requests from banned principals.
// Reads stay available.
func RejectBannedWrites(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := PrincipalFrom(r.Context())
		if p != nil && p.Banned && !isReadOnly(r.Method) {
			writeError(w, http.StatusForbidden, "Account is suspended")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithPrincipal stores p in ctx
func WithPrincipal(ctx context.Context, p *models.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFrom returns the authenticated caller, or nil
func PrincipalFrom(ctx context.Context) *models.Principal {
	p, _ := ctx.Value(principalContextKey).(*models.Principal)
	return p
}

func extractToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func isReadOnly(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

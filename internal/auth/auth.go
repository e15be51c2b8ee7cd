// internal/auth/auth.go
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"libris/internal/apperr"
	"libris/internal/httpx"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var (
	ErrAuthRequired  = apperr.New(apperr.KindUnauthorized, "auth_required", "authentication required")
	ErrInvalidToken  = apperr.New(apperr.KindUnauthorized, "invalid_token", "invalid or expired token")
	ErrAdminRequired = apperr.Forbidden("administrator privileges required")
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HMAC signed bearer tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for the user valid for the configured TTL.
func (t *Tokens) Issue(userID uuid.UUID, role string) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies a token and returns its principal.
func (t *Tokens) Parse(raw string) (Principal, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return Principal{}, apperr.Wrap(apperr.KindUnauthorized, ErrInvalidToken.Code, ErrInvalidToken.Message, err)
	}

	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return Principal{}, apperr.Wrap(apperr.KindUnauthorized, ErrInvalidToken.Code, ErrInvalidToken.Message, err)
	}
	if c.Role != RoleUser && c.Role != RoleAdmin {
		return Principal{}, ErrInvalidToken
	}

	return Principal{UserID: userID, Role: c.Role}, nil
}

type contextKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext returns the principal attached by Middleware, if any.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok
}

// Middleware attaches the principal of a valid bearer token to the request
// context. Requests without a token pass through anonymously; requests with a
// bad token are rejected.
func Middleware(tokens *Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				httpx.WriteError(w, ErrInvalidToken)
				return
			}

			p, err := tokens.Parse(raw)
			if err != nil {
				httpx.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireUser rejects anonymous requests.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			httpx.WriteError(w, ErrAuthRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests from anyone but administrators.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := FromContext(r.Context())
		if !ok {
			httpx.WriteError(w, ErrAuthRequired)
			return
		}
		if !p.IsAdmin() {
			httpx.WriteError(w, ErrAdminRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MustPrincipal returns the principal of a request that went through
// RequireUser. It reports ErrAuthRequired otherwise.
func MustPrincipal(r *http.Request) (Principal, error) {
	p, ok := FromContext(r.Context())
	if !ok {
		return Principal{}, ErrAuthRequired
	}
	return p, nil
}

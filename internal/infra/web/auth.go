package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ===== Actor token primitives =====

const (
	RoleMerchant   = "merchant"
	RoleSubscriber = "subscriber"
)

type ActorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthManager mints and verifies HS256 actor tokens. The subject claim is
// the actor id (merchant or subscriber); the role claim gates routes.
type AuthManager struct {
	secret []byte
	ttl    time.Duration
}

func NewAuthManager(secret string, ttl time.Duration) *AuthManager {
	return &AuthManager{secret: []byte(secret), ttl: ttl}
}

func (a *AuthManager) Mint(actorID, role string) (string, error) {
	if actorID == "" || (role != RoleMerchant && role != RoleSubscriber) {
		return "", errors.New("invalid actor")
	}
	now := time.Now()
	claims := ActorClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			Subject:   actorID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *AuthManager) Verify(tokenStr string) (*ActorClaims, error) {
	var claims ActorClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return &claims, nil
}

type actorKey struct{}

// actorFrom returns the verified claims stored by RequireActor.
func actorFrom(ctx context.Context) *ActorClaims {
	c, _ := ctx.Value(actorKey{}).(*ActorClaims)
	return c
}

// RequireActor verifies the bearer token and, when role is non-empty,
// enforces it. Claims land in the request context.
func (a *AuthManager) RequireActor(role string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			http.Error(w, "Unauthorized: Malformed token", http.StatusUnauthorized)
			return
		}
		claims, err := a.Verify(parts[1])
		if err != nil {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if role != "" && claims.Role != role {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		ctx := context.WithValue(r.Context(), actorKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

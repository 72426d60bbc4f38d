package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	userDomain "kyc-backend/internal/domain/user"
	"kyc-backend/pkg/id"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const actorKey = "kyc.actor"

// Claims is the bearer token body: sub is the 32-hex user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for actor.
func IssueToken(secret []byte, actor userDomain.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func parseToken(secret []byte, raw string) (userDomain.Actor, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return userDomain.Actor{}, err
	}
	actor := userDomain.Actor{ID: claims.Subject, Role: userDomain.Role(claims.Role)}
	if !id.Valid(actor.ID) {
		return userDomain.Actor{}, errors.New("sub must be 32-char lowercase hex")
	}
	if !actor.Role.Valid() {
		return userDomain.Actor{}, errors.New("unknown role")
	}
	return actor, nil
}

// JWTAuth requires a valid bearer token and stores the caller on the context.
func JWTAuth(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(h, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			}
			actor, err := parseToken(secret, strings.TrimSpace(raw))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			}
			c.Set(actorKey, actor)
			return next(c)
		}
	}
}

// RequireReviewer admits admins and moderators only. Mount after JWTAuth.
func RequireReviewer(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, ok := ActorFrom(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
		}
		if !actor.Role.CanReview() {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "reviewer role required"})
		}
		return next(c)
	}
}

func ActorFrom(c echo.Context) (userDomain.Actor, bool) {
	a, ok := c.Get(actorKey).(userDomain.Actor)
	return a, ok
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	userDomain "kyc-backend/internal/domain/user"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

func authEcho() *echo.Echo {
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		a, _ := ActorFrom(c)
		return c.String(http.StatusOK, a.ID+"/"+string(a.Role))
	}, JWTAuth(testSecret))
	e.GET("/admin", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, JWTAuth(testSecret), RequireReviewer)
	return e
}

func get(e *echo.Echo, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := authEcho()

	rec := get(e, "/me", bearer(t, testActor))
	if rec.Code != http.StatusOK || rec.Body.String() != testActor.ID+"/user" {
		t.Fatalf("valid token: %d %q", rec.Code, rec.Body.String())
	}

	expired, _ := IssueToken(testSecret, testActor, -time.Minute)
	wrongKey, _ := IssueToken([]byte("another-secret-another-secret-xx"), testActor, time.Hour)
	badSub, _ := IssueToken(testSecret, userDomain.Actor{ID: "ABC", Role: userDomain.RoleUser}, time.Hour)
	badRole, _ := IssueToken(testSecret, userDomain.Actor{ID: testActor.ID, Role: "root"}, time.Hour)
	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: "admin", RegisteredClaims: jwt.RegisteredClaims{
		Subject: testActor.ID, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	for name, auth := range map[string]string{
		"missing":    "",
		"not bearer": "Basic Zm9vOmJhcg==",
		"expired":    "Bearer " + expired,
		"wrong key":  "Bearer " + wrongKey,
		"bad sub":    "Bearer " + badSub,
		"bad role":   "Bearer " + badRole,
		"alg none":   "Bearer " + unsigned,
		"garbage":    "Bearer " + strings.Repeat("x", 20),
	} {
		if rec := get(e, "/me", auth); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: want 401, got %d", name, rec.Code)
		}
	}
}

func TestRequireReviewer(t *testing.T) {
	e := authEcho()
	if rec := get(e, "/admin", bearer(t, testActor)); rec.Code != http.StatusForbidden {
		t.Fatalf("user: want 403, got %d", rec.Code)
	}
	for _, role := range []userDomain.Role{userDomain.RoleAdmin, userDomain.RoleModerator} {
		a := userDomain.Actor{ID: strings.Repeat("d", 32), Role: role}
		if rec := get(e, "/admin", bearer(t, a)); rec.Code != http.StatusNoContent {
			t.Fatalf("%s: want 204, got %d", role, rec.Code)
		}
	}
}

package middleware

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	userDomain "kyc-backend/internal/domain/user"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

var (
	testSecret = []byte("0123456789abcdef0123456789abcdef")
	testActor  = userDomain.Actor{ID: strings.Repeat("b", 32), Role: userDomain.RoleUser}
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func setupEcho(rdb *redis.Client, ttl time.Duration, handler echo.HandlerFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	g := e.Group("/api", JWTAuth(testSecret), Idempotency(rdb, ttl, quiet()))
	g.POST("/applications", handler)
	g.GET("/applications", handler)
	return e
}

func bearer(t *testing.T, a userDomain.Actor) string {
	t.Helper()
	tok, err := IssueToken(testSecret, a, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return "Bearer " + tok
}

func validHeaders(t *testing.T) map[string]string {
	return map[string]string{
		echo.HeaderAuthorization: bearer(t, testActor),
		HeaderIdempotencyKey:     strings.Repeat("a", 32),
		HeaderRequestAt:          time.Now().UTC().Format(time.RFC3339),
	}
}

func doReq(t *testing.T, e *echo.Echo, method, path string, body []byte, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func countingHandler(n *int32, code int) echo.HandlerFunc {
	return func(c echo.Context) error {
		atomic.AddInt32(n, 1)
		return c.JSON(code, map[string]any{"call": atomic.LoadInt32(n)})
	}
}

func Test_BypassOnGET(t *testing.T) {
	_, rdb := newMiniRedis(t)
	var n int32
	e := setupEcho(rdb, time.Minute, countingHandler(&n, http.StatusOK))
	rec := doReq(t, e, http.MethodGet, "/api/applications", nil, map[string]string{
		echo.HeaderAuthorization: bearer(t, testActor),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func Test_HeaderValidation(t *testing.T) {
	_, rdb := newMiniRedis(t)
	var n int32
	e := setupEcho(rdb, time.Minute, countingHandler(&n, http.StatusCreated))

	tests := []struct {
		name   string
		mutate func(h map[string]string)
	}{
		{"missing key", func(h map[string]string) { delete(h, HeaderIdempotencyKey) }},
		{"invalid key", func(h map[string]string) { h[HeaderIdempotencyKey] = "NOT-VALID" }},
		{"missing request-at", func(h map[string]string) { delete(h, HeaderRequestAt) }},
		{"bad request-at", func(h map[string]string) { h[HeaderRequestAt] = "not-a-time" }},
		{"skewed request-at", func(h map[string]string) {
			h[HeaderRequestAt] = time.Now().UTC().Add(-maxClockSkew - time.Minute).Format(time.RFC3339)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := validHeaders(t)
			tt.mutate(h)
			rec := doReq(t, e, http.MethodPost, "/api/applications", []byte(`{}`), h)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("want 400, got %d (%s)", rec.Code, rec.Body.String())
			}
		})
	}
	if n != 0 {
		t.Fatalf("handler ran %d times", n)
	}
}

func Test_HappyPath_Then_Replay(t *testing.T) {
	_, rdb := newMiniRedis(t)
	var n int32
	e := setupEcho(rdb, 2*time.Minute, countingHandler(&n, http.StatusCreated))
	h := validHeaders(t)

	rec1 := doReq(t, e, http.MethodPost, "/api/applications", []byte(`{"a":1}`), h)
	if rec1.Code != http.StatusCreated {
		t.Fatalf("first => want 201, got %d", rec1.Code)
	}
	rec2 := doReq(t, e, http.MethodPost, "/api/applications", []byte(`{"a":1}`), h)
	if rec2.Code != http.StatusCreated || rec2.Body.String() != rec1.Body.String() {
		t.Fatalf("replay mismatch: %d %q vs %q", rec2.Code, rec2.Body.String(), rec1.Body.String())
	}
	if rec2.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("replay header missing")
	}
	if n != 1 {
		t.Fatalf("handler ran %d times, want 1", n)
	}

	// same key from another caller is a different request
	other := validHeaders(t)
	other[echo.HeaderAuthorization] = bearer(t, userDomain.Actor{ID: strings.Repeat("c", 32), Role: userDomain.RoleUser})
	if rec := doReq(t, e, http.MethodPost, "/api/applications", []byte(`{"a":1}`), other); rec.Code != http.StatusCreated || n != 2 {
		t.Fatalf("other caller: %d, calls=%d", rec.Code, n)
	}
}

func Test_ServerErrorNotStored(t *testing.T) {
	_, rdb := newMiniRedis(t)
	var n int32
	e := setupEcho(rdb, time.Minute, countingHandler(&n, http.StatusBadGateway))
	h := validHeaders(t)

	for i := 0; i < 2; i++ {
		if rec := doReq(t, e, http.MethodPost, "/api/applications", []byte(`{}`), h); rec.Code != http.StatusBadGateway {
			t.Fatalf("want 502, got %d", rec.Code)
		}
	}
	if n != 2 {
		t.Fatalf("5xx should not be replayed, handler ran %d times", n)
	}
}

func Test_Conflict_When_InProgress(t *testing.T) {
	_, rdb := newMiniRedis(t)
	var n int32
	e := setupEcho(rdb, time.Minute, countingHandler(&n, http.StatusCreated))
	body := []byte(`{"x":1}`)
	h := validHeaders(t)

	key := buildKey(http.MethodPost, "/api/applications", testActor.ID, h[HeaderIdempotencyKey])
	seed := idempEntry{InProgress: true, BodySHA256: bodyHash(body), CreatedAt: nowUTC()}
	if ok, err := provisionalSet(context.Background(), rdb, key, seed); err != nil || !ok {
		t.Fatalf("seed: ok=%v err=%v", ok, err)
	}
	if rec := doReq(t, e, http.MethodPost, "/api/applications", body, h); rec.Code != http.StatusConflict {
		t.Fatalf("in-progress => want 409, got %d", rec.Code)
	}
}

func Test_Conflict_When_SameKey_DifferentBody(t *testing.T) {
	_, rdb := newMiniRedis(t)
	var n int32
	e := setupEcho(rdb, time.Minute, countingHandler(&n, http.StatusCreated))
	h := validHeaders(t)

	if rec := doReq(t, e, http.MethodPost, "/api/applications", []byte(`{"x":1}`), h); rec.Code != http.StatusCreated {
		t.Fatalf("first: %d", rec.Code)
	}
	if rec := doReq(t, e, http.MethodPost, "/api/applications", []byte(`{"x":2}`), h); rec.Code != http.StatusConflict {
		t.Fatalf("different body => want 409, got %d", rec.Code)
	}
}

func Test_StoreUnavailable_Returns503(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	var n int32
	e := setupEcho(rdb, time.Minute, countingHandler(&n, http.StatusCreated))
	if rec := doReq(t, e, http.MethodPost, "/api/applications", []byte(`{}`), validHeaders(t)); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("store unavailable => want 503, got %d", rec.Code)
	}
}

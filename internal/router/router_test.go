package router

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/avstage-backoffice/internal/config"
	"github.com/iliyamo/avstage-backoffice/internal/handler"
	"github.com/iliyamo/avstage-backoffice/internal/ratelimit"
)

func testDeps(t *testing.T) Deps {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := ratelimit.NewMemoryStore(clockwork.NewFakeClock(), 0)
	t.Cleanup(store.Stop)
	return Deps{
		Public:       handler.NewPublicHandler(nil, nil, log),
		Bookings:     handler.NewBookingHandler(nil, log),
		Quotes:       handler.NewQuoteHandler(nil, log),
		Inbox:        handler.NewInboxHandler(nil, log),
		Limiter:      store,
		GlobalLimit:  2,
		GlobalWindow: time.Minute,
		JWT:          config.JWTConfig{Secret: "s3cret", AdminRole: "admin"},
		Log:          log,
	}
}

func TestHealthz(t *testing.T) {
	e := New(testDeps(t))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestAdminRoutesRequireToken(t *testing.T) {
	e := New(testDeps(t))
	routes := []struct{ method, path string }{
		{http.MethodGet, "/v1/admin/bookings"},
		{http.MethodPost, "/v1/admin/bookings/b1/transition"},
		{http.MethodDelete, "/v1/admin/quotes/q1"},
		{http.MethodPatch, "/v1/admin/messages/m1/status"},
		{http.MethodGet, "/v1/admin/newsletter/stats"},
	}
	for _, r := range routes {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(r.method, r.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", r.method, r.path)
		assert.JSONEq(t, `{"error":"Unauthorised"}`, rec.Body.String())
	}

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ops@example.com", "role": "editor", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/bookings", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPublicRoutesShareGlobalLimit(t *testing.T) {
	e := New(testDeps(t))
	codes := []int{}
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/catalog/services", nil)
		req.Header.Set("X-Real-IP", "203.0.113.9")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nomina/internal/domain/auth"
	"nomina/internal/requestctx"
)

func TestAuthMiddlewareSetsUserAndActor(t *testing.T) {
	secret := "test-secret"
	token, err := auth.GenerateToken(secret, auth.Claims{UserID: "u1", TenantID: "t1", RoleID: auth.RoleHR, RoleName: auth.RoleHR}, time.Hour)
	require.NoError(t, err)

	var called bool
	handler := Auth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		user, ok := GetUser(r.Context())
		require.True(t, ok)
		assert.Equal(t, "u1", user.UserID)
		assert.Equal(t, "t1", user.TenantID)
		assert.Equal(t, "u1", requestctx.Actor(r.Context()))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, called)
}

func TestAuthMiddlewareIgnoresBadTokens(t *testing.T) {
	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer not-a-jwt"} {
		handler := Auth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok := GetUser(r.Context())
			assert.False(t, ok, "header %q", header)
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}

func TestRequirePermission(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	guarded := RequirePermission(auth.PermLaborRun, auth.StaticPermissions{})(ok)

	tests := []struct {
		name string
		user *auth.UserContext
		want int
	}{
		{name: "anonymous", want: http.StatusUnauthorized},
		{name: "employee", user: &auth.UserContext{UserID: "u", TenantID: "t", RoleID: auth.RoleEmployee}, want: http.StatusForbidden},
		{name: "hr", user: &auth.UserContext{UserID: "u", TenantID: "t", RoleID: auth.RoleHR}, want: http.StatusNoContent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tc.user != nil {
				req = req.WithContext(WithUser(req.Context(), *tc.user))
			}
			rec := httptest.NewRecorder()
			guarded.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestRequestIDPropagatesAndMints(t *testing.T) {
	var seen, ip string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		ip = requestctx.ClientIP(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc", seen)
	assert.Equal(t, "abc", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "203.0.113.7", ip)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.2:9000"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "198.51.100.2", ip)
}

func TestRateLimitKeysByUserBeforeIP(t *testing.T) {
	limited := RateLimit(1, time.Minute, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	userCtx := WithUser(context.Background(), auth.UserContext{TenantID: "tenant-1", UserID: "user-1"})

	first := httptest.NewRequest(http.MethodPost, "/api/v1/labor-calculations/bulk", nil).WithContext(userCtx)
	first.RemoteAddr = "198.51.100.11:2222"
	firstRec := httptest.NewRecorder()
	limited.ServeHTTP(firstRec, first)
	assert.Equal(t, http.StatusNoContent, firstRec.Code)

	second := httptest.NewRequest(http.MethodPost, "/api/v1/labor-calculations/bulk", nil).WithContext(userCtx)
	second.RemoteAddr = "198.51.100.12:3333"
	secondRec := httptest.NewRecorder()
	limited.ServeHTTP(secondRec, second)
	assert.Equal(t, http.StatusTooManyRequests, secondRec.Code)
	assert.NotEmpty(t, secondRec.Header().Get("Retry-After"))

	other := httptest.NewRequest(http.MethodPost, "/api/v1/labor-calculations/bulk", nil)
	other.RemoteAddr = "198.51.100.11:2222"
	otherRec := httptest.NewRecorder()
	limited.ServeHTTP(otherRec, other)
	assert.Equal(t, http.StatusNoContent, otherRec.Code)
}

func TestRateLimitWindowResets(t *testing.T) {
	rl := newRateLimiter(1, time.Minute, nil)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	assert.True(t, rl.enforce(httptest.NewRecorder(), req))
	assert.False(t, rl.enforce(httptest.NewRecorder(), req))

	now = now.Add(61 * time.Second)
	assert.True(t, rl.enforce(httptest.NewRecorder(), req))
}

type countingRecorder struct{ statuses []int }

func (c *countingRecorder) Record(status int, _ time.Duration) { c.statuses = append(c.statuses, status) }

func TestRecovererAndLoggerRecordPanicAs500(t *testing.T) {
	counter := &countingRecorder{}
	handler := Logger(nil, counter)(Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, []int{http.StatusInternalServerError}, counter.statuses)
	var env map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, false, env["success"])
}

func TestSecureHeaders(t *testing.T) {
	handler := SecureHeaders(true)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}

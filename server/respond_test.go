package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-hr-tenancy/internal/errors"
)

func TestStatusForKind(t *testing.T) {
	cases := map[errors.Kind]int{
		errors.KindInvalidCredentials: http.StatusUnauthorized,
		errors.KindUnauthenticated:    http.StatusUnauthorized,
		errors.KindAccountInactive:    http.StatusForbidden,
		errors.KindTenantInactive:     http.StatusForbidden,
		errors.KindPendingApproval:    http.StatusForbidden,
		errors.KindForbidden:          http.StatusForbidden,
		errors.KindNotFound:           http.StatusNotFound,
		errors.KindDuplicateEmail:     http.StatusConflict,
		errors.KindInvariantViolation: http.StatusConflict,
		errors.KindInvalidRequest:     http.StatusBadRequest,
		errors.KindRateLimited:        http.StatusTooManyRequests,
		errors.KindInternal:           http.StatusInternalServerError,
	}
	for kind, status := range cases {
		require.Equal(t, status, statusForKind(kind), kind)
	}
}

func TestWriteErrorHidesInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, fmt.Errorf("pq: connection refused to 10.0.0.3"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":{"kind":"internal","message":"internal error"}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	writeError(rec, errors.Wrapf(errors.Invariant("cannot remove the last active admin"), "members %s", "01HZXACCOUNT"))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.JSONEq(t, `{"error":{"kind":"invariant_violation","message":"cannot remove the last active admin"}}`, rec.Body.String())
}

func TestRecoverMiddleware(t *testing.T) {
	s := &Server{}
	h := s.RecoverMiddleware(func(http.ResponseWriter, *http.Request) { panic("boom") })
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestIPRateLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newIPRateLimiter(1, 2)
	l.nowFunc = func() time.Time { return now }

	require.True(t, l.Allow("10.0.0.1"))
	require.True(t, l.Allow("10.0.0.1"))
	require.False(t, l.Allow("10.0.0.1"))
	require.True(t, l.Allow("10.0.0.2"), "buckets are per ip")

	now = now.Add(time.Second)
	require.True(t, l.Allow("10.0.0.1"))

	now = now.Add(10 * time.Minute)
	l.Allow("10.0.0.3")
	require.Len(t, l.buckets, 1, "idle buckets are swept")
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:5555"
	require.Equal(t, "192.0.2.1", clientIP(r, nil))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	require.Equal(t, "192.0.2.1", clientIP(r, nil), "forwarded headers from untrusted peers are ignored")

	proxies := []netip.Prefix{netip.MustParsePrefix("192.0.2.0/24"), netip.MustParsePrefix("10.0.0.0/8")}
	require.Equal(t, "203.0.113.9", clientIP(r, proxies))

	r.Header.Set("X-Forwarded-For", "198.51.100.7, 203.0.113.9, 10.0.0.1")
	require.Equal(t, "203.0.113.9", clientIP(r, proxies), "spoofed left-most hops are skipped")
}

func TestGenerateEmailFromBaseURL(t *testing.T) {
	require.Equal(t, "superadmin@hr.example.com", generateEmailFromBaseURL("superadmin", "https://hr.example.com:8443/app"))
	require.Equal(t, "superadmin@localhost.local", generateEmailFromBaseURL("superadmin", "http://localhost:8080"))
}

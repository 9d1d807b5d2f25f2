package token_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-hr-tenancy/token"
)

var now = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func newManager(clock *time.Time) *token.Manager {
	return token.New(token.NewHMACSigner("test-secret"),
		token.WithIssuer("hr-platform"),
		token.WithTTL(time.Hour),
		token.WithNowFunc(func() time.Time { return *clock }),
	)
}

func TestIssueAndParse(t *testing.T) {
	clock := now
	m := newManager(&clock)

	raw, expiresAt, err := m.Issue("acc-1")
	require.NoError(t, err)
	require.Equal(t, now.Add(time.Hour), expiresAt.UTC())

	claims, err := m.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "acc-1", claims.AccountID)
	require.NotEmpty(t, claims.TokenID)
	require.Equal(t, now, claims.IssuedAt.UTC())

	other, _, err := m.Issue("acc-1")
	require.NoError(t, err)
	otherClaims, err := m.Parse(other)
	require.NoError(t, err)
	require.NotEqual(t, claims.TokenID, otherClaims.TokenID)
}

func TestParseRejectsExpired(t *testing.T) {
	clock := now
	m := newManager(&clock)
	raw, _, err := m.Issue("acc-1")
	require.NoError(t, err)

	clock = now.Add(2 * time.Hour)
	_, err = m.Parse(raw)
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestParseRejectsTampering(t *testing.T) {
	clock := now
	m := newManager(&clock)
	raw, _, err := m.Issue("acc-1")
	require.NoError(t, err)

	_, err = token.New(token.NewHMACSigner("other-secret"), token.WithNowFunc(func() time.Time { return now })).Parse(raw)
	require.ErrorIs(t, err, token.ErrInvalidToken)

	_, err = m.Parse(raw[:len(raw)-2] + "xx")
	require.ErrorIs(t, err, token.ErrInvalidToken)

	_, err = m.Parse("")
	require.ErrorIs(t, err, token.ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "acc-1", "jti": "x", "exp": now.Add(time.Hour).Unix(), "iss": "hr-platform",
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Parse(unsigned)
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	clock := now
	raw, _, err := token.New(token.NewHMACSigner("test-secret"), token.WithIssuer("someone-else"),
		token.WithNowFunc(func() time.Time { return now })).Issue("acc-1")
	require.NoError(t, err)

	_, err = newManager(&clock).Parse(raw)
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestRevoke(t *testing.T) {
	clock := now
	cache := token.NewInMemoryRevokedTokenCache()
	m := token.New(token.NewHMACSigner("test-secret"),
		token.WithRevokedTokenCache(cache),
		token.WithNowFunc(func() time.Time { return clock }),
	)
	raw, _, err := m.Issue("acc-1")
	require.NoError(t, err)

	require.NoError(t, m.Revoke(raw))
	_, err = m.Parse(raw)
	require.ErrorIs(t, err, token.ErrRevoked)
	require.NoError(t, m.Revoke(raw), "revoking twice is harmless")
	require.NoError(t, m.Revoke("garbage"))

	require.Equal(t, 1, cache.Len())
	clock = now.Add(token.DefaultTTL + time.Minute)
	m.CleanupRevokedTokens()
	require.Zero(t, cache.Len())
}

func TestHMACSignerRejectsOtherMethods(t *testing.T) {
	s := token.NewHMACSigner("secret")
	_, err := s.GetVerificationKey(&jwt.Token{Method: jwt.SigningMethodRS256, Header: map[string]any{"alg": "RS256"}})
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "RS256"))
}

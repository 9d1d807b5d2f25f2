// Package token issues and verifies the signed session tokens handed out at
// login. A token only proves who the caller is; account and tenant state is
// re-checked on every request by the auth service.
package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const DefaultTTL = 24 * time.Hour

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrRevoked      = errors.New("session token revoked")
)

// Claims is the verified content of a session token.
type Claims struct {
	AccountID string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type Manager struct {
	signer       Signer
	issuer       string
	ttl          time.Duration
	revokedCache RevokedTokenCache
	nowFunc      func() time.Time
}

type ManagerOption func(*Manager)

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

func WithTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.ttl = ttl
	}
}

func WithRevokedTokenCache(cache RevokedTokenCache) ManagerOption {
	return func(m *Manager) {
		m.revokedCache = cache
	}
}

func New(signer Signer, options ...ManagerOption) *Manager {
	m := &Manager{
		signer:       signer,
		revokedCache: NewInMemoryRevokedTokenCache(),
	}
	for _, opt := range options {
		opt(m)
	}
	if m.ttl <= 0 {
		m.ttl = DefaultTTL
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a new session token for accountID.
func (m *Manager) Issue(accountID string) (string, time.Time, error) {
	now := m.nowFunc()
	expiresAt := now.Add(m.ttl)
	claims := jwt.MapClaims{
		"sub": accountID,
		"jti": uuid.New().String(),
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
	}
	if m.issuer != "" {
		claims["iss"] = m.issuer
	}
	signed, err := m.signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "Manager.Issue")
	}
	return signed, time.Unix(expiresAt.Unix(), 0), nil
}

// Parse verifies the signature, expiry and revocation state of raw.
func (m *Manager) Parse(raw string) (*Claims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrInvalidToken
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.signer.GetSigningMethod().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.nowFunc),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	token, err := jwt.Parse(raw, m.signer.GetVerificationKey, opts...)
	if err != nil || !token.Valid {
		return nil, errors.Wrap(ErrInvalidToken, errorString(err))
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	jti, _ := claims["jti"].(string)
	if sub == "" || jti == "" {
		return nil, errors.Wrap(ErrInvalidToken, "missing sub or jti")
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, errors.Wrap(ErrInvalidToken, "missing exp")
	}
	var issuedAt time.Time
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		issuedAt = iat.Time
	}
	if m.revokedCache.IsRevoked(jti) {
		return nil, ErrRevoked
	}
	return &Claims{AccountID: sub, TokenID: jti, IssuedAt: issuedAt, ExpiresAt: exp.Time}, nil
}

// Revoke blocks raw until it expires. Tokens that no longer verify are
// already unusable and are ignored.
func (m *Manager) Revoke(raw string) error {
	claims, err := m.Parse(raw)
	if err != nil {
		if errors.Is(err, ErrRevoked) || errors.Is(err, ErrInvalidToken) {
			return nil
		}
		return err
	}
	return m.revokedCache.Add(claims.TokenID, claims.ExpiresAt)
}

// CleanupRevokedTokens removes expired tokens from the revocation cache
func (m *Manager) CleanupRevokedTokens() {
	m.revokedCache.Cleanup(m.nowFunc())
}

func errorString(err error) string {
	if err == nil {
		return "token not valid"
	}
	return err.Error()
}

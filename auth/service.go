// Package auth issues sessions and turns a presented session token back into
// a caller identity. Account and tenant state is read from the store on every
// call so that deactivation or suspension takes effect on the next request.
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-hr-tenancy/accounts"
	"github.com/jrsteele09/go-hr-tenancy/authz"
	"github.com/jrsteele09/go-hr-tenancy/internal/errors"
	"github.com/jrsteele09/go-hr-tenancy/store"
	"github.com/jrsteele09/go-hr-tenancy/token"
)

// Tokens is the part of token.Manager the service needs.
type Tokens interface {
	Issue(accountID string) (string, time.Time, error)
	Parse(raw string) (*token.Claims, error)
	Revoke(raw string) error
}

var _ Tokens = (*token.Manager)(nil)

// EmployeeProfile is the HR record linked to an account, when there is one.
type EmployeeProfile struct {
	EmployeeID string `json:"employee_id"`
	Department string `json:"department,omitempty"`
	JobTitle   string `json:"job_title,omitempty"`
}

// ProfileLinker looks up the employee profile for an account. It returns
// (nil, nil) when the account has no profile.
type ProfileLinker interface {
	LinkProfile(ctx context.Context, account *accounts.Account) (*EmployeeProfile, error)
}

type LoginResult struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	Account   *accounts.Account `json:"account"`
	Identity  authz.Identity    `json:"identity"`
	Profile   *EmployeeProfile  `json:"profile,omitempty"`
}

type Service struct {
	store   store.Store
	tokens  Tokens
	linker  ProfileLinker
	nowFunc func() time.Time
}

type Option func(*Service)

func WithProfileLinker(linker ProfileLinker) Option {
	return func(s *Service) {
		s.linker = linker
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(s *Service) {
		s.nowFunc = now
	}
}

func New(st store.Store, tokens Tokens, options ...Option) *Service {
	s := &Service{store: st, tokens: tokens, nowFunc: time.Now}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Compared against when the email is unknown so both failure paths cost a
// bcrypt round.
var dummyHash = sync.OnceValue(func() string {
	hash, _ := accounts.HashPassword("not-a-real-password-0A")
	return hash
})

// Login verifies credentials and account state and issues a session.
// Unknown emails and wrong passwords fail identically.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	account, err := s.store.Accounts().GetByEmail(ctx, accounts.NormalizeEmail(email))
	if errors.Is(err, errors.ErrNotFound) {
		accounts.CheckPasswordHash(password, dummyHash())
		return nil, errors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, errors.Wrapf(err, "auth.Login")
	}
	if !account.IsActive {
		return nil, errors.ErrAccountInactive
	}
	if !accounts.CheckPasswordHash(password, account.PasswordHash) {
		return nil, errors.ErrInvalidCredentials
	}
	if err := s.admit(ctx, account); err != nil {
		return nil, err
	}
	identity, err := authz.Resolve(account)
	if err != nil {
		return nil, err
	}

	account.LastLogin = s.nowFunc()
	if err := s.store.Accounts().Update(ctx, account); err != nil {
		return nil, errors.Wrapf(err, "auth.Login record last login")
	}

	raw, expiresAt, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "auth.Login")
	}

	result := &LoginResult{Token: raw, ExpiresAt: expiresAt, Account: account, Identity: identity}
	if s.linker != nil {
		profile, err := s.linker.LinkProfile(ctx, account)
		if err != nil {
			log.Warn().Err(err).Str("account_id", account.ID).Msg("employee profile lookup failed")
		} else {
			result.Profile = profile
		}
	}
	log.Info().Str("account_id", account.ID).Str("role", string(account.Role)).Msg("login")
	return result, nil
}

// Logout revokes the session token until it expires.
func (s *Service) Logout(ctx context.Context, raw string) error {
	if err := s.tokens.Revoke(raw); err != nil {
		return errors.Wrapf(err, "auth.Logout")
	}
	return nil
}

// CurrentIdentity resolves a session token to its account and identity,
// re-checking account and tenant state.
func (s *Service) CurrentIdentity(ctx context.Context, raw string) (*accounts.Account, authz.Identity, error) {
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return nil, authz.Identity{}, errors.ErrUnauthenticated
	}
	account, err := s.store.Accounts().Get(ctx, claims.AccountID)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, authz.Identity{}, errors.ErrUnauthenticated
	}
	if err != nil {
		return nil, authz.Identity{}, errors.Wrapf(err, "auth.CurrentIdentity")
	}
	if !account.IsActive {
		return nil, authz.Identity{}, errors.ErrAccountInactive
	}
	if err := s.admit(ctx, account); err != nil {
		return nil, authz.Identity{}, err
	}
	identity, err := authz.Resolve(account)
	if err != nil {
		return nil, authz.Identity{}, err
	}
	return account, identity, nil
}

// admit applies the tenant and approval gates. Superadmins are exempt.
func (s *Service) admit(ctx context.Context, account *accounts.Account) error {
	if account.IsSuperAdmin() {
		return nil
	}
	if account.IsPending() {
		return errors.ErrPendingApproval
	}
	tenantID, ok := account.Tenant.TenantID()
	if !ok {
		return errors.ErrTenantInactive
	}
	tenant, err := s.store.Tenants().Get(ctx, tenantID)
	if errors.Is(err, errors.ErrNotFound) {
		return errors.ErrTenantInactive
	}
	if err != nil {
		return errors.Wrapf(err, "auth tenant %s", tenantID)
	}
	if !tenant.IsActive() {
		return errors.ErrTenantInactive
	}
	if !account.IsApproved {
		return errors.ErrAccountInactive
	}
	return nil
}

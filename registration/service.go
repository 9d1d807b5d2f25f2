// Package registration turns self-service signups into pending accounts and
// promotes approved ones into a tenant with its administrator.
package registration

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-hr-tenancy/accounts"
	"github.com/jrsteele09/go-hr-tenancy/authz"
	"github.com/jrsteele09/go-hr-tenancy/internal/errors"
	"github.com/jrsteele09/go-hr-tenancy/internal/notify"
	"github.com/jrsteele09/go-hr-tenancy/store"
	"github.com/jrsteele09/go-hr-tenancy/tenants"
)

type Service struct {
	store    store.Store
	notifier notify.Notifier
}

type Option func(*Service)

func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

func New(st store.Store, options ...Option) *Service {
	s := &Service{
		store:    st,
		notifier: notify.Nop{},
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Submission is a self-service signup. An empty Password asks the system to
// generate one.
type Submission struct {
	Email       string           `json:"email"`
	Password    string           `json:"password,omitempty"`
	DisplayName string           `json:"display_name"`
	Profile     accounts.Profile `json:"profile"`
}

type SubmitResult struct {
	AccountID         string `json:"account_id"`
	GeneratedPassword string `json:"generated_password,omitempty"`
}

// Submit creates a pending registration: an unapproved, unbound admin
// account. The requested role is never taken from the caller.
func (s *Service) Submit(ctx context.Context, sub Submission) (*SubmitResult, error) {
	email := accounts.NormalizeEmail(sub.Email)
	if !accounts.ValidEmail(email) {
		return nil, errors.Invalid("a valid email is required")
	}
	password, generated, err := choosePassword(sub.Password)
	if err != nil {
		return nil, err
	}
	hash, err := accounts.HashPassword(password)
	if err != nil {
		return nil, errors.Wrapf(err, "registration.Submit hash password")
	}

	account := &accounts.Account{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(sub.DisplayName),
		Role:         accounts.RoleAdmin,
		Tenant:       accounts.Unbound(),
		IsApproved:   false,
		IsActive:     true,
		Profile:      sub.Profile,
	}
	if err := s.store.Accounts().Create(ctx, account); err != nil {
		return nil, errors.Wrapf(err, "registration.Submit")
	}

	s.notifier.Notify(ctx, notify.Event{
		Type:    notify.EventRegistrationSubmitted,
		Channel: notify.RoleChannel(accounts.RoleSuperAdmin),
		Subject: account.ID,
		Data: map[string]string{
			"email":        account.Email,
			"organization": organizationName(account),
		},
	})

	result := &SubmitResult{AccountID: account.ID}
	if generated {
		result.GeneratedPassword = password
	}
	return result, nil
}

// ListPending returns the registration requests awaiting a decision.
func (s *Service) ListPending(ctx context.Context, caller authz.Identity) ([]*accounts.Account, error) {
	if err := authz.RequireSuperAdmin(caller); err != nil {
		return nil, err
	}
	pending, err := s.store.Accounts().List(ctx, accounts.PendingFilter())
	if err != nil {
		return nil, errors.Wrapf(err, "registration.ListPending")
	}
	return pending, nil
}

// Approve materializes the tenant for a pending registration and binds and
// approves its account in one transaction.
func (s *Service) Approve(ctx context.Context, caller authz.Identity, accountID string, plan tenants.Plan) (string, error) {
	if err := authz.RequireSuperAdmin(caller); err != nil {
		return "", err
	}
	if !plan.Valid() {
		return "", tenants.ErrInvalidPlan
	}

	var (
		tenantID string
		email    string
	)
	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		account, err := tx.Accounts().Get(ctx, accountID)
		if err != nil {
			return err
		}
		if !account.IsPending() {
			return errors.Invariant("account is not a pending registration")
		}

		tenant := &tenants.Tenant{
			Name:     organizationName(account),
			Company:  account.Profile.Company,
			Email:    account.Email,
			Phone:    account.Profile.Phone,
			Address:  account.Profile.Address,
			Industry: account.Profile.Industry,
			Plan:     plan,
			Status:   tenants.StatusActive,
			AdminID:  account.ID,
		}
		if err := tx.Tenants().Create(ctx, tenant); err != nil {
			return err
		}

		account.IsApproved = true
		account.Tenant = accounts.Bound(tenant.ID)
		if err := tx.Accounts().Update(ctx, account); err != nil {
			return err
		}
		tenantID, email = tenant.ID, account.Email
		return nil
	})
	if err != nil {
		return "", errors.Wrapf(err, "registration.Approve %s", accountID)
	}

	log.Info().Str("account_id", accountID).Str("tenant_id", tenantID).Str("plan", string(plan)).Msg("registration approved")
	s.notifier.Notify(ctx, notify.Event{
		Type:     notify.EventRegistrationApproved,
		Channel:  notify.AccountChannel(accountID),
		TenantID: tenantID,
		Subject:  accountID,
		Data:     map[string]string{"email": email, "plan": string(plan)},
	})
	return tenantID, nil
}

// Reject deletes a pending registration. No tenant ever existed for it.
func (s *Service) Reject(ctx context.Context, caller authz.Identity, accountID, reason string) error {
	if err := authz.RequireSuperAdmin(caller); err != nil {
		return err
	}
	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		account, err := tx.Accounts().Get(ctx, accountID)
		if err != nil {
			return err
		}
		if !account.IsPending() {
			return errors.Invariant("account is not a pending registration")
		}
		return tx.Accounts().Delete(ctx, accountID)
	})
	if err != nil {
		return errors.Wrapf(err, "registration.Reject %s", accountID)
	}
	log.Info().Str("account_id", accountID).Str("reason", reason).Msg("registration rejected")
	return nil
}

// NewTenant is a superadmin's direct tenant creation request.
type NewTenant struct {
	Name             string       `json:"name"`
	Company          string       `json:"company"`
	Email            string       `json:"email"`
	Phone            string       `json:"phone"`
	Address          string       `json:"address"`
	Industry         string       `json:"industry"`
	Plan             tenants.Plan `json:"plan"`
	AdminEmail       string       `json:"admin_email"`
	AdminPassword    string       `json:"admin_password,omitempty"`
	AdminDisplayName string       `json:"admin_display_name"`
}

type CreateTenantResult struct {
	Tenant            *tenants.Tenant   `json:"tenant"`
	Admin             *accounts.Account `json:"admin"`
	GeneratedPassword string            `json:"generated_password,omitempty"`
}

// CreateTenant performs the approval step's two-record creation inline: an
// active tenant plus its approved, bound administrator.
func (s *Service) CreateTenant(ctx context.Context, caller authz.Identity, nt NewTenant) (*CreateTenantResult, error) {
	if err := authz.RequireSuperAdmin(caller); err != nil {
		return nil, err
	}
	if strings.TrimSpace(nt.Name) == "" {
		return nil, tenants.ErrEmptyName
	}
	if nt.Plan == "" {
		nt.Plan = tenants.PlanBasic
	}
	if !nt.Plan.Valid() {
		return nil, tenants.ErrInvalidPlan
	}
	adminEmail := accounts.NormalizeEmail(nt.AdminEmail)
	if !accounts.ValidEmail(adminEmail) {
		return nil, errors.Invalid("a valid admin email is required")
	}
	password, generated, err := choosePassword(nt.AdminPassword)
	if err != nil {
		return nil, err
	}
	hash, err := accounts.HashPassword(password)
	if err != nil {
		return nil, errors.Wrapf(err, "registration.CreateTenant hash password")
	}

	result := &CreateTenantResult{}
	err = s.store.RunInTx(ctx, func(tx store.Tx) error {
		admin := &accounts.Account{
			Email:        adminEmail,
			PasswordHash: hash,
			DisplayName:  strings.TrimSpace(nt.AdminDisplayName),
			Role:         accounts.RoleAdmin,
			IsApproved:   true,
			IsActive:     true,
		}
		// Create the admin first so a duplicate email fails before any tenant exists.
		if err := tx.Accounts().Create(ctx, admin); err != nil {
			return err
		}
		tenant := &tenants.Tenant{
			Name:     strings.TrimSpace(nt.Name),
			Company:  strings.TrimSpace(nt.Company),
			Email:    strings.TrimSpace(nt.Email),
			Phone:    strings.TrimSpace(nt.Phone),
			Address:  strings.TrimSpace(nt.Address),
			Industry: strings.TrimSpace(nt.Industry),
			Plan:     nt.Plan,
			Status:   tenants.StatusActive,
			AdminID:  admin.ID,
		}
		if err := tx.Tenants().Create(ctx, tenant); err != nil {
			return err
		}
		admin.Tenant = accounts.Bound(tenant.ID)
		if err := tx.Accounts().Update(ctx, admin); err != nil {
			return err
		}
		result.Tenant, result.Admin = tenant, admin
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "registration.CreateTenant")
	}
	if generated {
		result.GeneratedPassword = password
	}

	s.notifier.Notify(ctx, notify.Event{
		Type:     notify.EventTenantCreated,
		Channel:  notify.AccountChannel(result.Admin.ID),
		TenantID: result.Tenant.ID,
		Subject:  result.Tenant.ID,
		Data:     map[string]string{"name": result.Tenant.Name},
	})
	return result, nil
}

func choosePassword(requested string) (password string, generated bool, err error) {
	if requested == "" {
		password, err = accounts.GeneratePassword()
		if err != nil {
			return "", false, errors.Wrapf(err, "registration generate password")
		}
		return password, true, nil
	}
	if err := accounts.ValidatePasswordStrength(requested); err != nil {
		return "", false, errors.Invalid("%s", err.Error())
	}
	return requested, false, nil
}

func organizationName(a *accounts.Account) string {
	switch {
	case strings.TrimSpace(a.Profile.OrganizationName) != "":
		return strings.TrimSpace(a.Profile.OrganizationName)
	case strings.TrimSpace(a.Profile.Company) != "":
		return strings.TrimSpace(a.Profile.Company)
	}
	if at := strings.LastIndex(a.Email, "@"); at >= 0 {
		return a.Email[at+1:]
	}
	return a.Email
}

// Package members manages the accounts that belong to a tenant: adding
// teammates, listing, activation, role changes, removal and self-service
// profile and password updates. Every operation goes through authz.
package members

import (
	"context"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-hr-tenancy/accounts"
	"github.com/jrsteele09/go-hr-tenancy/authz"
	"github.com/jrsteele09/go-hr-tenancy/internal/errors"
	"github.com/jrsteele09/go-hr-tenancy/internal/notify"
	"github.com/jrsteele09/go-hr-tenancy/store"
)

const defaultPageSize = 100

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
	s := &Service{store: st, notifier: notify.Nop{}}
	for _, opt := range options {
		opt(s)
	}
	return s
}

type NewMember struct {
	Email       string        `json:"email"`
	Password    string        `json:"password,omitempty"`
	DisplayName string        `json:"display_name"`
	Role        accounts.Role `json:"role"`
	TenantID    string        `json:"tenant_id,omitempty"`
}

type AddResult struct {
	Account           *accounts.Account `json:"account"`
	GeneratedPassword string            `json:"generated_password,omitempty"`
}

// AddTeammate creates an approved account bound to a tenant. Admin and HR
// callers add to their own tenant; a superadmin must name the tenant.
func (s *Service) AddTeammate(ctx context.Context, caller authz.Identity, nm NewMember) (*AddResult, error) {
	if err := authz.RequireRole(caller, accounts.RoleAdmin, accounts.RoleHR); err != nil {
		return nil, err
	}
	tenantID := nm.TenantID
	if tenantID == "" && caller.TenantScope != nil {
		tenantID = *caller.TenantScope
	}
	if tenantID == "" {
		return nil, errors.Invalid("tenant_id is required")
	}
	if !nm.Role.Valid() || nm.Role == accounts.RoleSuperAdmin {
		return nil, errors.Invalid("role must be one of admin, hr, manager, employee")
	}
	if err := authz.AuthorizeMutation(caller, authz.Target{TenantID: tenantID, Role: nm.Role}); err != nil {
		return nil, err
	}
	if nm.Role.Outranks(caller.Role) {
		return nil, errors.ErrForbidden
	}
	email := accounts.NormalizeEmail(nm.Email)
	if !accounts.ValidEmail(email) {
		return nil, errors.Invalid("a valid email is required")
	}

	password, generated := nm.Password, false
	if password == "" {
		var err error
		if password, err = accounts.GeneratePassword(); err != nil {
			return nil, errors.Wrapf(err, "members.AddTeammate")
		}
		generated = true
	} else if err := accounts.ValidatePasswordStrength(password); err != nil {
		return nil, errors.Invalid("%s", err.Error())
	}
	hash, err := accounts.HashPassword(password)
	if err != nil {
		return nil, errors.Wrapf(err, "members.AddTeammate hash password")
	}

	account := &accounts.Account{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(nm.DisplayName),
		Role:         nm.Role,
		Tenant:       accounts.Bound(tenantID),
		IsActive:     true,
	}
	err = s.store.RunInTx(ctx, func(tx store.Tx) error {
		tenant, err := tx.Tenants().Get(ctx, tenantID)
		if err != nil {
			return err
		}
		// Members of a suspended tenant stay unapproved until it is activated.
		account.IsApproved = tenant.IsActive()
		return tx.Accounts().Create(ctx, account)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "members.AddTeammate")
	}

	s.notifier.Notify(ctx, notify.Event{
		Type:     notify.EventAccountAdded,
		Channel:  notify.AccountChannel(account.ID),
		TenantID: tenantID,
		Subject:  account.ID,
		Data:     map[string]string{"role": string(account.Role), "added_by": caller.AccountID},
	})

	result := &AddResult{Account: account}
	if generated {
		result.GeneratedPassword = password
	}
	return result, nil
}

// List returns accounts matching filter, rescoped to the caller's tenant
// unless the caller is a superadmin.
func (s *Service) List(ctx context.Context, caller authz.Identity, filter accounts.Filter) ([]*accounts.Account, error) {
	filter.TenantID = authz.AuthorizeList(caller, authz.ListFilter{TenantID: filter.TenantID}).TenantID
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	list, err := s.store.Accounts().List(ctx, filter)
	if err != nil {
		return nil, errors.Wrapf(err, "members.List")
	}
	return list, nil
}

// Get returns one account. Accounts outside the caller's tenant are
// reported as not found.
func (s *Service) Get(ctx context.Context, caller authz.Identity, accountID string) (*accounts.Account, error) {
	account, err := s.store.Accounts().Get(ctx, accountID)
	if err != nil {
		return nil, errors.Wrapf(err, "members.Get")
	}
	if !visible(caller, account) {
		return nil, errors.ErrNotFound
	}
	return account, nil
}

func visible(caller authz.Identity, account *accounts.Account) bool {
	if caller.IsSuperAdmin() || caller.AccountID == account.ID {
		return true
	}
	tenantID, ok := account.Tenant.TenantID()
	return ok && caller.InTenant(tenantID)
}

// Patch is a partial update of an account. Nil fields are left alone.
type Patch struct {
	DisplayName *string        `json:"display_name,omitempty"`
	Role        *accounts.Role `json:"role,omitempty"`
	IsActive    *bool          `json:"is_active,omitempty"`
}

func (p Patch) changes() []authz.Change {
	var changes []authz.Change
	if p.DisplayName != nil {
		changes = append(changes, authz.ChangeOther)
	}
	if p.Role != nil {
		changes = append(changes, authz.ChangeRole)
	}
	if p.IsActive != nil {
		changes = append(changes, authz.ChangeActivation)
	}
	return changes
}

// Update applies every field of p in one transaction. Each field is
// authorized and guarded on its own; if any of them is refused nothing is
// written.
func (s *Service) Update(ctx context.Context, caller authz.Identity, accountID string, p Patch) (*accounts.Account, error) {
	changes := p.changes()
	if len(changes) == 0 {
		return nil, errors.Invalid("nothing to update")
	}
	var displayName string
	if p.DisplayName != nil {
		if displayName = strings.TrimSpace(*p.DisplayName); displayName == "" {
			return nil, errors.Invalid("display_name is required")
		}
	}
	if p.Role != nil {
		if !p.Role.Valid() {
			return nil, errors.Invalid("unknown role %q", *p.Role)
		}
		if p.Role.Outranks(caller.Role) {
			return nil, errors.ErrForbidden
		}
	}

	return s.mutate(ctx, caller, accountID, changes, func(tx store.Tx, account *accounts.Account) error {
		if p.DisplayName != nil {
			account.DisplayName = displayName
		}
		if p.Role != nil && account.Role != *p.Role {
			if err := changeRole(ctx, tx, account, *p.Role); err != nil {
				return err
			}
		}
		if p.IsActive != nil && account.IsActive != *p.IsActive {
			if !*p.IsActive {
				if err := guardLastAdmin(ctx, tx, account); err != nil {
					return err
				}
			}
			account.IsActive = *p.IsActive
		}
		return tx.Accounts().Update(ctx, account)
	})
}

// SetActive flips the account's isActive kill switch.
func (s *Service) SetActive(ctx context.Context, caller authz.Identity, accountID string, active bool) (*accounts.Account, error) {
	return s.Update(ctx, caller, accountID, Patch{IsActive: &active})
}

// SetRole moves an account to another tenant role.
func (s *Service) SetRole(ctx context.Context, caller authz.Identity, accountID string, role accounts.Role) (*accounts.Account, error) {
	return s.Update(ctx, caller, accountID, Patch{Role: &role})
}

// UpdateProfile changes the display name of the caller or, for admin/hr, of
// a teammate.
func (s *Service) UpdateProfile(ctx context.Context, caller authz.Identity, accountID, displayName string) (*accounts.Account, error) {
	return s.Update(ctx, caller, accountID, Patch{DisplayName: &displayName})
}

func changeRole(ctx context.Context, tx store.Tx, account *accounts.Account, role accounts.Role) error {
	if account.Role == accounts.RoleSuperAdmin || role == accounts.RoleSuperAdmin {
		return errors.Invariant("the superadmin role cannot be granted or revoked")
	}
	if account.Role == accounts.RoleAdmin {
		if err := guardPrimaryAdmin(ctx, tx, account); err != nil {
			return err
		}
		if err := guardLastAdmin(ctx, tx, account); err != nil {
			return err
		}
	}
	account.Role = role
	return nil
}

// Remove deletes an account. A tenant's primary administrator can only go
// away together with the tenant.
func (s *Service) Remove(ctx context.Context, caller authz.Identity, accountID string) error {
	_, err := s.mutate(ctx, caller, accountID, []authz.Change{authz.ChangeRemoval}, func(tx store.Tx, account *accounts.Account) error {
		if err := guardPrimaryAdmin(ctx, tx, account); err != nil {
			return err
		}
		if err := guardLastAdmin(ctx, tx, account); err != nil {
			return err
		}
		return tx.Accounts().Delete(ctx, account.ID)
	})
	return err
}

// ChangePassword lets the caller replace its own password.
func (s *Service) ChangePassword(ctx context.Context, caller authz.Identity, current, next string) error {
	if err := accounts.ValidatePasswordStrength(next); err != nil {
		return errors.Invalid("%s", err.Error())
	}
	hash, err := accounts.HashPassword(next)
	if err != nil {
		return errors.Wrapf(err, "members.ChangePassword hash password")
	}
	err = s.store.RunInTx(ctx, func(tx store.Tx) error {
		account, err := tx.Accounts().Get(ctx, caller.AccountID)
		if err != nil {
			return err
		}
		if !accounts.CheckPasswordHash(current, account.PasswordHash) {
			return errors.ErrInvalidCredentials
		}
		account.PasswordHash = hash
		return tx.Accounts().Update(ctx, account)
	})
	if err != nil {
		return errors.Wrapf(err, "members.ChangePassword")
	}
	return nil
}

// mutate loads the target, authorizes every change against it and applies
// fn in one transaction.
func (s *Service) mutate(ctx context.Context, caller authz.Identity, accountID string, changes []authz.Change, fn func(tx store.Tx, account *accounts.Account) error) (*accounts.Account, error) {
	var result *accounts.Account
	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		account, err := tx.Accounts().Get(ctx, accountID)
		if err != nil {
			return err
		}
		for _, change := range changes {
			if err := authorize(caller, account, change); err != nil {
				return err
			}
		}
		if err := fn(tx, account); err != nil {
			return err
		}
		result = account
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "members %s", accountID)
	}

	if !slices.Contains(changes, authz.ChangeRemoval) {
		s.notifier.Notify(ctx, notify.Event{
			Type:    notify.EventAccountUpdated,
			Channel: notify.AccountChannel(accountID),
			Subject: accountID,
			Data:    map[string]string{"updated_by": caller.AccountID},
		})
	} else {
		log.Info().Str("account_id", accountID).Str("removed_by", caller.AccountID).Msg("account removed")
	}
	return result, nil
}

func authorize(caller authz.Identity, account *accounts.Account, change authz.Change) error {
	self := caller.AccountID == account.ID
	if self && change == authz.ChangeOther {
		return nil
	}
	tenantID, _ := account.Tenant.TenantID()
	if err := authz.AuthorizeMutation(caller, authz.Target{TenantID: tenantID, Role: account.Role, Change: change}); err != nil {
		return err
	}
	if caller.IsSuperAdmin() {
		return nil
	}
	if err := authz.RequireRole(caller, accounts.RoleAdmin, accounts.RoleHR); err != nil {
		return err
	}
	if account.Role.Outranks(caller.Role) {
		return errors.ErrForbidden
	}
	return nil
}

// guardLastAdmin refuses to take away the last active administrator of a
// tenant, or the last active superadmin of the platform.
func guardLastAdmin(ctx context.Context, tx store.Tx, account *accounts.Account) error {
	if !account.IsActive {
		return nil
	}
	active := true
	filter := accounts.Filter{Role: account.Role, Active: &active}
	switch account.Role {
	case accounts.RoleAdmin:
		tenantID, ok := account.Tenant.TenantID()
		if !ok {
			return nil
		}
		filter.TenantID = tenantID
	case accounts.RoleSuperAdmin:
	default:
		return nil
	}
	n, err := tx.Accounts().Count(ctx, filter)
	if err != nil {
		return err
	}
	if n <= 1 {
		return errors.Invariant("cannot remove the last active %s", account.Role)
	}
	return nil
}

// guardPrimaryAdmin keeps Tenant.AdminID pointing at an admin account.
func guardPrimaryAdmin(ctx context.Context, tx store.Tx, account *accounts.Account) error {
	tenantID, ok := account.Tenant.TenantID()
	if !ok || account.Role != accounts.RoleAdmin {
		return nil
	}
	tenant, err := tx.Tenants().Get(ctx, tenantID)
	if errors.Is(err, errors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if tenant.AdminID == account.ID {
		return errors.Invariant("the primary administrator of a tenant cannot be removed or demoted")
	}
	return nil
}

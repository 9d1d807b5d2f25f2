// Package authz decides, for a resolved caller, which tenant a query is
// scoped to and whether a mutation is allowed. Every decision is computed
// from the identity passed in; nothing is cached.
package authz

import (
	"github.com/jrsteele09/go-hr-tenancy/accounts"
	"github.com/jrsteele09/go-hr-tenancy/internal/errors"
)

// Identity is a caller resolved from the Credential Store.
// TenantScope is nil for a superadmin, who is unrestricted.
type Identity struct {
	AccountID   string        `json:"account_id"`
	Role        accounts.Role `json:"role"`
	TenantScope *string       `json:"tenant_scope"`
}

func (id Identity) IsSuperAdmin() bool {
	return id.Role == accounts.RoleSuperAdmin
}

// InTenant reports whether the caller is scoped to tenantID.
func (id Identity) InTenant(tenantID string) bool {
	return id.TenantScope != nil && tenantID != "" && *id.TenantScope == tenantID
}

// Resolve builds the Identity for an account. A non-superadmin account that
// is not bound to a tenant has no scope to act in and is Forbidden.
func Resolve(account *accounts.Account) (Identity, error) {
	if account == nil {
		return Identity{}, errors.ErrUnauthenticated
	}
	if account.IsSuperAdmin() {
		return Identity{AccountID: account.ID, Role: account.Role}, nil
	}
	tenantID, ok := account.Tenant.TenantID()
	if !ok {
		return Identity{}, errors.ErrForbidden
	}
	return Identity{AccountID: account.ID, Role: account.Role, TenantScope: &tenantID}, nil
}

// ListFilter is the tenant part of a list/search query. An empty TenantID
// means every tenant.
type ListFilter struct {
	TenantID string
}

// AuthorizeList returns the filter a list query must actually run with.
// Superadmin filters pass through; any other caller is pinned to its own
// tenant whatever it asked for.
func AuthorizeList(id Identity, requested ListFilter) ListFilter {
	if id.IsSuperAdmin() {
		return requested
	}
	if id.TenantScope == nil {
		// Unreachable for identities built by Resolve; never widen the scope.
		return ListFilter{TenantID: "\x00"}
	}
	return ListFilter{TenantID: *id.TenantScope}
}

// Change describes what a mutation does to its target account.
type Change int

const (
	ChangeOther      Change = iota // profile and other non-privileged fields
	ChangeActivation               // flips isActive
	ChangeRole                     // changes role
	ChangeRemoval                  // deletes the account
)

// Target is the resource a mutation applies to. Role is only set when the
// target is an account.
type Target struct {
	TenantID string
	Role     accounts.Role
	Change   Change
}

// AuthorizeMutation allows superadmins everywhere and everybody else only
// inside their own tenant. Only a superadmin may change activation, role or
// existence of a superadmin account. Denials never say why.
func AuthorizeMutation(id Identity, target Target) error {
	if id.IsSuperAdmin() {
		return nil
	}
	if !id.InTenant(target.TenantID) {
		return errors.ErrForbidden
	}
	if target.Role == accounts.RoleSuperAdmin && target.Change != ChangeOther {
		return errors.ErrForbidden
	}
	return nil
}

// RequireSuperAdmin denies every caller but a superadmin.
func RequireSuperAdmin(id Identity) error {
	if !id.IsSuperAdmin() {
		return errors.ErrForbidden
	}
	return nil
}

// RequireRole allows a superadmin or any caller holding one of roles.
func RequireRole(id Identity, roles ...accounts.Role) error {
	if id.IsSuperAdmin() {
		return nil
	}
	for _, r := range roles {
		if id.Role == r {
			return nil
		}
	}
	return errors.ErrForbidden
}

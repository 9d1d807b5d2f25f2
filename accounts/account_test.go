package accounts_test

import (
	"encoding/json"
	"testing"

	"github.com/jrsteele09/go-hr-tenancy/accounts"
	"github.com/stretchr/testify/require"
)

func TestTenantBinding(t *testing.T) {
	unbound := accounts.Unbound()
	id, ok := unbound.TenantID()
	require.False(t, ok)
	require.Empty(t, id)
	require.False(t, unbound.BoundTo(""))

	bound := accounts.Bound("t1")
	id, ok = bound.TenantID()
	require.True(t, ok)
	require.Equal(t, "t1", id)
	require.True(t, bound.BoundTo("t1"))
	require.False(t, bound.BoundTo("t2"))
}

func TestTenantBindingJSON(t *testing.T) {
	a := accounts.Account{ID: "a1", Email: "jane@acme.com", Role: accounts.RoleAdmin, PasswordHash: "secret"}
	raw, err := json.Marshal(a)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"tenant_id":null`)
	require.NotContains(t, string(raw), "secret")

	a.Tenant = accounts.Bound("t1")
	raw, err = json.Marshal(a)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"tenant_id":"t1"`)

	var decoded accounts.Account
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.True(t, decoded.Tenant.BoundTo("t1"))
}

func TestIsPending(t *testing.T) {
	a := &accounts.Account{Role: accounts.RoleAdmin}
	require.True(t, a.IsPending())

	a.Tenant = accounts.Bound("t1")
	require.False(t, a.IsPending(), "a suspended tenant's admin is not a registration request")

	b := &accounts.Account{Role: accounts.RoleHR}
	require.False(t, b.IsPending())
}

func TestRoleHierarchy(t *testing.T) {
	require.True(t, accounts.RoleSuperAdmin.Outranks(accounts.RoleAdmin))
	require.True(t, accounts.RoleHR.Outranks(accounts.RoleManager))
	require.False(t, accounts.RoleHR.Outranks(accounts.RoleHR))
	require.False(t, accounts.Role("owner").Valid())

	r, ok := accounts.ParseRole(" Manager ")
	require.True(t, ok)
	require.Equal(t, accounts.RoleManager, r)
}

func TestFilterMatches(t *testing.T) {
	pending := &accounts.Account{Role: accounts.RoleAdmin}
	approved := &accounts.Account{Role: accounts.RoleAdmin, IsApproved: true, Tenant: accounts.Bound("t1")}
	suspendedAdmin := &accounts.Account{Role: accounts.RoleAdmin, Tenant: accounts.Bound("t1")}

	f := accounts.PendingFilter()
	require.True(t, f.Matches(pending))
	require.False(t, f.Matches(approved))
	require.False(t, f.Matches(suspendedAdmin))

	require.True(t, accounts.Filter{TenantID: "t1"}.Matches(approved))
	require.False(t, accounts.Filter{TenantID: "t2"}.Matches(approved))
	require.False(t, accounts.Filter{TenantID: "t1"}.Matches(pending))
}

func TestPasswords(t *testing.T) {
	require.Error(t, accounts.ValidatePasswordStrength("short1A"))
	require.Error(t, accounts.ValidatePasswordStrength("alllowercase1"))
	require.Error(t, accounts.ValidatePasswordStrength("NoNumbersHere"))
	require.NoError(t, accounts.ValidatePasswordStrength("Password123"))

	hash, err := accounts.HashPassword("Password123")
	require.NoError(t, err)
	require.True(t, accounts.CheckPasswordHash("Password123", hash))
	require.False(t, accounts.CheckPasswordHash("Password124", hash))

	generated, err := accounts.GeneratePassword()
	require.NoError(t, err)
	require.NoError(t, accounts.ValidatePasswordStrength(generated))
}

func TestEmailHelpers(t *testing.T) {
	require.Equal(t, "jane@acme.com", accounts.NormalizeEmail("  Jane@Acme.COM "))
	require.True(t, accounts.ValidEmail("jane@acme.com"))
	require.False(t, accounts.ValidEmail("jane"))
	require.False(t, accounts.ValidEmail("@acme.com"))
	require.False(t, accounts.ValidEmail("jane@"))
}

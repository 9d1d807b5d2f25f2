package lifecycle_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-hr-tenancy/accounts"
	"github.com/jrsteele09/go-hr-tenancy/authz"
	"github.com/jrsteele09/go-hr-tenancy/internal/errors"
	"github.com/jrsteele09/go-hr-tenancy/internal/notify"
	"github.com/jrsteele09/go-hr-tenancy/internal/notify/notifyfake"
	"github.com/jrsteele09/go-hr-tenancy/lifecycle"
	"github.com/jrsteele09/go-hr-tenancy/store/memstore"
	"github.com/jrsteele09/go-hr-tenancy/tenants"
)

var superAdmin = authz.Identity{AccountID: "root", Role: accounts.RoleSuperAdmin}

type testFixture struct {
	store      *memstore.Store
	recorder   *notifyfake.Recorder
	controller *lifecycle.Controller
	acme       *tenants.Tenant
	globex     *tenants.Tenant
	jane       *accounts.Account // acme admin
	bob        *accounts.Account // acme hr
	carl       *accounts.Account // acme employee
	gina       *accounts.Account // globex admin
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	rec := notifyfake.NewRecorder()
	f := &testFixture{store: st, recorder: rec, controller: lifecycle.New(st, lifecycle.WithNotifier(rec))}

	f.acme = &tenants.Tenant{ID: "acme", Name: "Acme", Plan: tenants.PlanProfessional, Status: tenants.StatusActive, AdminID: "jane"}
	f.globex = &tenants.Tenant{ID: "globex", Name: "Globex", Plan: tenants.PlanBasic, Status: tenants.StatusActive, AdminID: "gina"}
	require.NoError(t, st.Tenants().Create(ctx, f.acme))
	require.NoError(t, st.Tenants().Create(ctx, f.globex))

	member := func(id, email string, role accounts.Role, tenantID string) *accounts.Account {
		a := &accounts.Account{ID: id, Email: email, Role: role, Tenant: accounts.Bound(tenantID), IsApproved: true, IsActive: true}
		require.NoError(t, st.Accounts().Create(ctx, a))
		return a
	}
	f.jane = member("jane", "jane@acme.com", accounts.RoleAdmin, "acme")
	f.bob = member("bob", "bob@acme.com", accounts.RoleHR, "acme")
	f.carl = member("carl", "carl@acme.com", accounts.RoleEmployee, "acme")
	f.gina = member("gina", "gina@globex.com", accounts.RoleAdmin, "globex")
	return f
}

func (f *testFixture) account(t *testing.T, id string) *accounts.Account {
	t.Helper()
	a, err := f.store.Accounts().Get(context.Background(), id)
	require.NoError(t, err)
	return a
}

func TestSuspendCascades(t *testing.T) {
	f := setupTestFixture(t)
	tenant, err := f.controller.Suspend(context.Background(), superAdmin, "acme")
	require.NoError(t, err)
	require.Equal(t, tenants.StatusSuspended, tenant.Status)

	for _, id := range []string{"jane", "bob", "carl"} {
		require.False(t, f.account(t, id).IsApproved, id)
	}
	require.True(t, f.account(t, "gina").IsApproved, "other tenants are untouched")

	events := f.recorder.Events()
	require.Len(t, events, 1)
	require.Equal(t, notify.EventTenantSuspended, events[0].Type)
	require.Equal(t, "acme", events[0].TenantID)
}

func TestSuspendIsIdempotent(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	_, err := f.controller.Suspend(ctx, superAdmin, "acme")
	require.NoError(t, err)
	once, err := f.store.Accounts().List(ctx, accounts.Filter{TenantID: "acme"})
	require.NoError(t, err)
	tenantOnce, err := f.store.Tenants().Get(ctx, "acme")
	require.NoError(t, err)

	_, err = f.controller.Suspend(ctx, superAdmin, "acme")
	require.NoError(t, err)
	twice, err := f.store.Accounts().List(ctx, accounts.Filter{TenantID: "acme"})
	require.NoError(t, err)
	tenantTwice, err := f.store.Tenants().Get(ctx, "acme")
	require.NoError(t, err)

	require.Equal(t, tenantOnce.Status, tenantTwice.Status)
	require.Len(t, twice, len(once))
	for i := range once {
		require.Equal(t, once[i].ID, twice[i].ID)
		require.Equal(t, once[i].IsApproved, twice[i].IsApproved)
		require.Equal(t, once[i].IsActive, twice[i].IsActive)
	}
}

func TestActivateReapprovesAllMembers(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	_, err := f.controller.Suspend(ctx, superAdmin, "acme")
	require.NoError(t, err)

	// An independently deactivated account stays deactivated.
	carl := f.account(t, "carl")
	carl.IsActive = false
	require.NoError(t, f.store.Accounts().Update(ctx, carl))

	tenant, err := f.controller.Activate(ctx, superAdmin, "acme")
	require.NoError(t, err)
	require.Equal(t, tenants.StatusActive, tenant.Status)
	for _, id := range []string{"jane", "bob", "carl"} {
		require.True(t, f.account(t, id).IsApproved, id)
	}
	require.False(t, f.account(t, "carl").IsActive)
}

func TestTransitionsRequireSuperAdmin(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	jane, err := authz.Resolve(f.jane)
	require.NoError(t, err)

	_, err = f.controller.Suspend(ctx, jane, "acme")
	require.ErrorIs(t, err, errors.ErrForbidden)
	_, err = f.controller.Activate(ctx, jane, "acme")
	require.ErrorIs(t, err, errors.ErrForbidden)
	require.ErrorIs(t, f.controller.Delete(ctx, jane, "globex"), errors.ErrForbidden)
	_, err = f.controller.Update(ctx, jane, "acme", tenants.Update{})
	require.ErrorIs(t, err, errors.ErrForbidden)
	_, _, err = f.controller.List(ctx, jane, 0, 10)
	require.ErrorIs(t, err, errors.ErrForbidden)
}

func TestTransitionUnknownTenant(t *testing.T) {
	f := setupTestFixture(t)
	_, err := f.controller.Suspend(context.Background(), superAdmin, "initech")
	require.ErrorIs(t, err, errors.ErrNotFound)
	require.Empty(t, f.recorder.Events())
}

// Scenario D
func TestDeleteRemovesTenantAndMembers(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	require.NoError(t, f.controller.Delete(ctx, superAdmin, "acme"))

	_, err := f.store.Accounts().Get(ctx, "jane")
	require.ErrorIs(t, err, errors.ErrNotFound)
	_, err = f.store.Accounts().GetByEmail(ctx, "bob@acme.com")
	require.ErrorIs(t, err, errors.ErrNotFound)
	_, err = f.store.Tenants().Get(ctx, "acme")
	require.ErrorIs(t, err, errors.ErrNotFound)

	_, err = f.store.Accounts().Get(ctx, "gina")
	require.NoError(t, err)

	require.ErrorIs(t, f.controller.Delete(ctx, superAdmin, "acme"), errors.ErrNotFound)
}

func TestDeleteRemovesUnboundPrimaryAdmin(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	jane := f.account(t, "jane")
	jane.Tenant = accounts.Unbound()
	require.NoError(t, f.store.Accounts().Update(ctx, jane))

	require.NoError(t, f.controller.Delete(ctx, superAdmin, "acme"))
	_, err := f.store.Accounts().Get(ctx, "jane")
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestUpdate(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	name := "Acme Corporation"
	plan := tenants.PlanEnterprise

	tenant, err := f.controller.Update(ctx, superAdmin, "acme", tenants.Update{Name: &name, Plan: &plan})
	require.NoError(t, err)
	require.Equal(t, name, tenant.Name)
	require.Equal(t, plan, tenant.Plan)
	require.True(t, f.account(t, "bob").IsApproved, "a field update does not cascade")

	bad := tenants.Plan("Gold")
	_, err = f.controller.Update(ctx, superAdmin, "acme", tenants.Update{Plan: &bad})
	require.ErrorIs(t, err, tenants.ErrInvalidPlan)
}

func TestUpdateStatusRunsCascade(t *testing.T) {
	f := setupTestFixture(t)
	suspended := tenants.StatusSuspended

	_, err := f.controller.Update(context.Background(), superAdmin, "acme", tenants.Update{Status: &suspended})
	require.NoError(t, err)
	require.False(t, f.account(t, "bob").IsApproved)
}

func TestGetScopedToMembers(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	bob, err := authz.Resolve(f.bob)
	require.NoError(t, err)

	tenant, err := f.controller.Get(ctx, bob, "acme")
	require.NoError(t, err)
	require.Equal(t, "Acme", tenant.Name)

	_, err = f.controller.Get(ctx, bob, "globex")
	require.ErrorIs(t, err, errors.ErrForbidden)

	_, err = f.controller.Get(ctx, superAdmin, "globex")
	require.NoError(t, err)
}

func TestList(t *testing.T) {
	f := setupTestFixture(t)
	list, total, err := f.controller.List(context.Background(), superAdmin, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Equal(t, "Acme", list[0].Name)
}

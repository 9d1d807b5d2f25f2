// Package lifecycle runs tenant state transitions and cascades them over
// the tenant's member accounts. Each transition is one transaction and may
// be re-run safely.
package lifecycle

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-hr-tenancy/accounts"
	"github.com/jrsteele09/go-hr-tenancy/authz"
	"github.com/jrsteele09/go-hr-tenancy/internal/errors"
	"github.com/jrsteele09/go-hr-tenancy/internal/notify"
	"github.com/jrsteele09/go-hr-tenancy/store"
	"github.com/jrsteele09/go-hr-tenancy/tenants"
)

const defaultPageSize = 50

type Controller struct {
	store    store.Store
	notifier notify.Notifier
}

type Option func(*Controller)

func WithNotifier(n notify.Notifier) Option {
	return func(c *Controller) {
		c.notifier = n
	}
}

func New(st store.Store, options ...Option) *Controller {
	c := &Controller{store: st, notifier: notify.Nop{}}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Activate approves every account of the tenant, then marks it Active.
func (c *Controller) Activate(ctx context.Context, caller authz.Identity, tenantID string) (*tenants.Tenant, error) {
	return c.transition(ctx, caller, tenantID, tenants.StatusActive)
}

// Suspend unapproves every non-superadmin account of the tenant, then marks
// it Suspended. Sessions already issued stay valid until expiry but every
// authenticated request re-checks tenant health.
func (c *Controller) Suspend(ctx context.Context, caller authz.Identity, tenantID string) (*tenants.Tenant, error) {
	return c.transition(ctx, caller, tenantID, tenants.StatusSuspended)
}

func (c *Controller) transition(ctx context.Context, caller authz.Identity, tenantID string, status tenants.Status) (*tenants.Tenant, error) {
	if err := authz.RequireSuperAdmin(caller); err != nil {
		return nil, err
	}
	var (
		tenant  *tenants.Tenant
		touched int64
	)
	err := c.store.RunInTx(ctx, func(tx store.Tx) error {
		var err error
		tenant, err = tx.Tenants().Get(ctx, tenantID)
		if err != nil {
			return err
		}
		if touched, err = cascade(ctx, tx, tenantID, status); err != nil {
			return err
		}
		tenant.Status = status
		return tx.Tenants().Update(ctx, tenant)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "lifecycle %s tenant %s", status, tenantID)
	}

	log.Info().Str("tenant_id", tenantID).Str("status", string(status)).Int64("accounts", touched).Msg("tenant transition")
	c.publish(ctx, statusEvent(status), tenant)
	return tenant, nil
}

// cascade applies the account side of a status change. It is an
// unconditional set-all and therefore idempotent.
func cascade(ctx context.Context, tx store.Tx, tenantID string, status tenants.Status) (int64, error) {
	switch status {
	case tenants.StatusActive:
		return tx.Accounts().SetApprovedByTenant(ctx, tenantID, true)
	case tenants.StatusSuspended:
		return tx.Accounts().SetApprovedByTenant(ctx, tenantID, false, accounts.RoleSuperAdmin)
	}
	return 0, tenants.ErrInvalidStatus
}

// Update applies a partial update. A status change in the update runs the
// same cascade as Activate/Suspend inside the same transaction.
func (c *Controller) Update(ctx context.Context, caller authz.Identity, tenantID string, upd tenants.Update) (*tenants.Tenant, error) {
	if err := authz.RequireSuperAdmin(caller); err != nil {
		return nil, err
	}
	var tenant *tenants.Tenant
	err := c.store.RunInTx(ctx, func(tx store.Tx) error {
		var err error
		tenant, err = tx.Tenants().Get(ctx, tenantID)
		if err != nil {
			return err
		}
		previous := tenant.Status
		if err := upd.Apply(tenant); err != nil {
			return err
		}
		if tenant.Status != previous {
			if _, err := cascade(ctx, tx, tenantID, tenant.Status); err != nil {
				return err
			}
		}
		return tx.Tenants().Update(ctx, tenant)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "lifecycle update tenant %s", tenantID)
	}
	c.publish(ctx, notify.EventTenantUpdated, tenant)
	return tenant, nil
}

// Delete removes every non-superadmin member, the primary admin account and
// finally the tenant record.
func (c *Controller) Delete(ctx context.Context, caller authz.Identity, tenantID string) error {
	if err := authz.RequireSuperAdmin(caller); err != nil {
		return err
	}
	var (
		tenant  *tenants.Tenant
		removed int64
	)
	err := c.store.RunInTx(ctx, func(tx store.Tx) error {
		var err error
		tenant, err = tx.Tenants().Get(ctx, tenantID)
		if err != nil {
			return err
		}
		if removed, err = tx.Accounts().DeleteByTenant(ctx, tenantID, accounts.RoleSuperAdmin); err != nil {
			return err
		}
		if err := deleteAdmin(ctx, tx, tenant.AdminID); err != nil {
			return err
		}
		return tx.Tenants().Delete(ctx, tenantID)
	})
	if err != nil {
		return errors.Wrapf(err, "lifecycle delete tenant %s", tenantID)
	}

	log.Info().Str("tenant_id", tenantID).Int64("accounts", removed).Msg("tenant deleted")
	c.publish(ctx, notify.EventTenantDeleted, tenant)
	return nil
}

// deleteAdmin makes sure the primary admin is gone even if it was no longer
// bound to the tenant. Already deleted is fine.
func deleteAdmin(ctx context.Context, tx store.Tx, adminID string) error {
	if adminID == "" {
		return nil
	}
	admin, err := tx.Accounts().Get(ctx, adminID)
	if errors.Is(err, errors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if admin.IsSuperAdmin() {
		return nil
	}
	return tx.Accounts().Delete(ctx, adminID)
}

// Get returns a tenant to a superadmin or to one of its members.
func (c *Controller) Get(ctx context.Context, caller authz.Identity, tenantID string) (*tenants.Tenant, error) {
	if !caller.IsSuperAdmin() && !caller.InTenant(tenantID) {
		return nil, errors.ErrForbidden
	}
	tenant, err := c.store.Tenants().Get(ctx, tenantID)
	if err != nil {
		return nil, errors.Wrapf(err, "lifecycle get tenant %s", tenantID)
	}
	return tenant, nil
}

// List pages through all tenants. Superadmin only.
func (c *Controller) List(ctx context.Context, caller authz.Identity, offset, limit int) ([]*tenants.Tenant, int, error) {
	if err := authz.RequireSuperAdmin(caller); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	list, total, err := c.store.Tenants().List(ctx, offset, limit)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "lifecycle list tenants")
	}
	return list, total, nil
}

func statusEvent(status tenants.Status) string {
	if status == tenants.StatusActive {
		return notify.EventTenantActivated
	}
	return notify.EventTenantSuspended
}

func (c *Controller) publish(ctx context.Context, eventType string, tenant *tenants.Tenant) {
	c.notifier.Notify(ctx, notify.Event{
		Type:     eventType,
		Channel:  notify.RoleChannel(accounts.RoleAdmin),
		TenantID: tenant.ID,
		Subject:  tenant.ID,
		Data:     map[string]string{"name": tenant.Name, "status": string(tenant.Status)},
	})
}

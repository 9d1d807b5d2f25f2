package tenants

import "context"

// Repo is the Tenant Registry. Get/Update/Delete return errors.ErrNotFound
// for unknown tenants.
type Repo interface {
	Create(ctx context.Context, tenant *Tenant) error
	Get(ctx context.Context, tenantID string) (*Tenant, error)
	Update(ctx context.Context, tenant *Tenant) error
	Delete(ctx context.Context, tenantID string) error
	// List returns a page of tenants ordered by name and the total count.
	List(ctx context.Context, offset, limit int) ([]*Tenant, int, error)
}

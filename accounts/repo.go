package accounts

import "context"

// Filter narrows account listings. Zero values mean "any".
type Filter struct {
	TenantID    string
	Role        Role
	Approved    *bool
	Active      *bool
	UnboundOnly bool
	Offset      int
	Limit       int
}

// Matches reports whether a satisfies every set field of f. Paging is ignored.
func (f Filter) Matches(a *Account) bool {
	if f.TenantID != "" && !a.Tenant.BoundTo(f.TenantID) {
		return false
	}
	if f.Role != "" && a.Role != f.Role {
		return false
	}
	if f.Approved != nil && a.IsApproved != *f.Approved {
		return false
	}
	if f.Active != nil && a.IsActive != *f.Active {
		return false
	}
	if f.UnboundOnly && a.Tenant.IsBound() {
		return false
	}
	return true
}

// PendingFilter selects registration requests awaiting approval.
func PendingFilter() Filter {
	notApproved := false
	return Filter{Role: RoleAdmin, Approved: &notApproved, UnboundOnly: true}
}

// Repo is the Credential Store.
// Get/GetByEmail/Update/Delete return errors.ErrNotFound for unknown accounts,
// Create and Update return errors.ErrDuplicateEmail when the email is taken.
type Repo interface {
	Create(ctx context.Context, account *Account) error
	Get(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	Update(ctx context.Context, account *Account) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter Filter) ([]*Account, error)
	Count(ctx context.Context, filter Filter) (int, error)

	// SetApprovedByTenant sets IsApproved on every account bound to tenantID
	// whose role is not in except, returning the number of accounts touched.
	SetApprovedByTenant(ctx context.Context, tenantID string, approved bool, except ...Role) (int64, error)
	// DeleteByTenant deletes every account bound to tenantID whose role is not in except.
	DeleteByTenant(ctx context.Context, tenantID string, except ...Role) (int64, error)
}

// Package store defines the unit of work shared by the Credential Store and
// the Tenant Registry.
package store

import (
	"context"

	"github.com/jrsteele09/go-hr-tenancy/accounts"
	"github.com/jrsteele09/go-hr-tenancy/tenants"
)

// Tx exposes the repositories bound to one unit of work.
type Tx interface {
	Accounts() accounts.Repo
	Tenants() tenants.Repo
}

// Store gives non-transactional access through its embedded Tx and
// atomic multi-record writes through RunInTx. Writes made through the tx
// handed to fn are committed when fn returns nil and discarded otherwise.
type Store interface {
	Tx
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}

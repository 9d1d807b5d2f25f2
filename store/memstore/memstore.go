// Package memstore is an in-memory Store used for development and tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jrsteele09/go-hr-tenancy/accounts"
	"github.com/jrsteele09/go-hr-tenancy/internal/errors"
	"github.com/jrsteele09/go-hr-tenancy/internal/ids"
	"github.com/jrsteele09/go-hr-tenancy/store"
	"github.com/jrsteele09/go-hr-tenancy/tenants"
)

var _ store.Store = (*Store)(nil)

type state struct {
	accounts map[string]*accounts.Account
	emails   map[string]string // normalized email -> account id
	tenants  map[string]*tenants.Tenant
}

func (s *state) clone() *state {
	c := &state{
		accounts: make(map[string]*accounts.Account, len(s.accounts)),
		emails:   make(map[string]string, len(s.emails)),
		tenants:  make(map[string]*tenants.Tenant, len(s.tenants)),
	}
	for k, v := range s.accounts {
		c.accounts[k] = v.Clone()
	}
	for k, v := range s.emails {
		c.emails[k] = v
	}
	for k, v := range s.tenants {
		c.tenants[k] = v.Clone()
	}
	return c
}

type Store struct {
	lock    sync.RWMutex
	data    *state
	nowFunc func() time.Time
}

type Option func(*Store)

func WithNowFunc(now func() time.Time) Option {
	return func(s *Store) {
		s.nowFunc = now
	}
}

func New(options ...Option) *Store {
	s := &Store{
		data: &state{
			accounts: make(map[string]*accounts.Account),
			emails:   make(map[string]string),
			tenants:  make(map[string]*tenants.Tenant),
		},
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *Store) Accounts() accounts.Repo {
	return &accountRepo{s: s}
}

func (s *Store) Tenants() tenants.Repo {
	return &tenantRepo{s: s}
}

// RunInTx holds the write lock for the duration of fn. On error the state
// captured before fn ran is restored.
func (s *Store) RunInTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	snapshot := s.data.clone()
	tx := &memTx{s: s}
	if err := fn(tx); err != nil {
		s.data = snapshot
		return err
	}
	if err := ctx.Err(); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// memTx repos run with the store lock already held.
type memTx struct {
	s *Store
}

func (t *memTx) Accounts() accounts.Repo {
	return &accountRepo{s: t.s, locked: true}
}

func (t *memTx) Tenants() tenants.Repo {
	return &tenantRepo{s: t.s, locked: true}
}

// read and write take the store lock unless the repo belongs to a transaction.
func read(s *Store, locked bool, fn func(d *state) error) error {
	if !locked {
		s.lock.RLock()
		defer s.lock.RUnlock()
	}
	return fn(s.data)
}

func write(s *Store, locked bool, fn func(d *state) error) error {
	if !locked {
		s.lock.Lock()
		defer s.lock.Unlock()
	}
	return fn(s.data)
}

type accountRepo struct {
	s      *Store
	locked bool
}

func (r *accountRepo) Create(ctx context.Context, account *accounts.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return write(r.s, r.locked, func(d *state) error {
		email := accounts.NormalizeEmail(account.Email)
		if _, exists := d.emails[email]; exists {
			return errors.ErrDuplicateEmail
		}
		if account.ID == "" {
			account.ID = ids.New()
		}
		if _, exists := d.accounts[account.ID]; exists {
			return errors.Invariant("account id already exists")
		}
		now := r.s.nowFunc()
		account.Email = email
		account.CreatedAt = now
		account.UpdatedAt = now
		d.accounts[account.ID] = account.Clone()
		d.emails[email] = account.ID
		return nil
	})
}

func (r *accountRepo) Get(ctx context.Context, id string) (*accounts.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var found *accounts.Account
	err := read(r.s, r.locked, func(d *state) error {
		a, ok := d.accounts[id]
		if !ok {
			return errors.ErrNotFound
		}
		found = a.Clone()
		return nil
	})
	return found, err
}

func (r *accountRepo) GetByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var found *accounts.Account
	err := read(r.s, r.locked, func(d *state) error {
		id, ok := d.emails[accounts.NormalizeEmail(email)]
		if !ok {
			return errors.ErrNotFound
		}
		found = d.accounts[id].Clone()
		return nil
	})
	return found, err
}

func (r *accountRepo) Update(ctx context.Context, account *accounts.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return write(r.s, r.locked, func(d *state) error {
		existing, ok := d.accounts[account.ID]
		if !ok {
			return errors.ErrNotFound
		}
		email := accounts.NormalizeEmail(account.Email)
		if email != existing.Email {
			if _, taken := d.emails[email]; taken {
				return errors.ErrDuplicateEmail
			}
			delete(d.emails, existing.Email)
			d.emails[email] = account.ID
		}
		account.Email = email
		account.CreatedAt = existing.CreatedAt
		account.UpdatedAt = r.s.nowFunc()
		d.accounts[account.ID] = account.Clone()
		return nil
	})
}

func (r *accountRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return write(r.s, r.locked, func(d *state) error {
		a, ok := d.accounts[id]
		if !ok {
			return errors.ErrNotFound
		}
		delete(d.emails, a.Email)
		delete(d.accounts, id)
		return nil
	})
}

func (r *accountRepo) List(ctx context.Context, filter accounts.Filter) ([]*accounts.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var result []*accounts.Account
	err := read(r.s, r.locked, func(d *state) error {
		for _, a := range d.accounts {
			if filter.Matches(a) {
				result = append(result, a.Clone())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Email < result[j].Email
	})
	return page(result, filter.Offset, filter.Limit), nil
}

func (r *accountRepo) Count(ctx context.Context, filter accounts.Filter) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	count := 0
	err := read(r.s, r.locked, func(d *state) error {
		for _, a := range d.accounts {
			if filter.Matches(a) {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (r *accountRepo) SetApprovedByTenant(ctx context.Context, tenantID string, approved bool, except ...accounts.Role) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int64
	err := write(r.s, r.locked, func(d *state) error {
		now := r.s.nowFunc()
		for _, a := range d.accounts {
			if !a.Tenant.BoundTo(tenantID) || hasRole(except, a.Role) {
				continue
			}
			a.IsApproved = approved
			a.UpdatedAt = now
			n++
		}
		return nil
	})
	return n, err
}

func (r *accountRepo) DeleteByTenant(ctx context.Context, tenantID string, except ...accounts.Role) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int64
	err := write(r.s, r.locked, func(d *state) error {
		for id, a := range d.accounts {
			if !a.Tenant.BoundTo(tenantID) || hasRole(except, a.Role) {
				continue
			}
			delete(d.emails, a.Email)
			delete(d.accounts, id)
			n++
		}
		return nil
	})
	return n, err
}

func hasRole(roles []accounts.Role, role accounts.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

type tenantRepo struct {
	s      *Store
	locked bool
}

func (r *tenantRepo) Create(ctx context.Context, tenant *tenants.Tenant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return write(r.s, r.locked, func(d *state) error {
		if tenant.ID == "" {
			tenant.ID = ids.New()
		}
		if _, exists := d.tenants[tenant.ID]; exists {
			return errors.Invariant("tenant id already exists")
		}
		now := r.s.nowFunc()
		tenant.CreatedAt = now
		tenant.UpdatedAt = now
		d.tenants[tenant.ID] = tenant.Clone()
		return nil
	})
}

func (r *tenantRepo) Get(ctx context.Context, tenantID string) (*tenants.Tenant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var found *tenants.Tenant
	err := read(r.s, r.locked, func(d *state) error {
		t, ok := d.tenants[tenantID]
		if !ok {
			return errors.ErrNotFound
		}
		found = t.Clone()
		return nil
	})
	return found, err
}

func (r *tenantRepo) Update(ctx context.Context, tenant *tenants.Tenant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return write(r.s, r.locked, func(d *state) error {
		existing, ok := d.tenants[tenant.ID]
		if !ok {
			return errors.ErrNotFound
		}
		tenant.CreatedAt = existing.CreatedAt
		tenant.UpdatedAt = r.s.nowFunc()
		d.tenants[tenant.ID] = tenant.Clone()
		return nil
	})
}

func (r *tenantRepo) Delete(ctx context.Context, tenantID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return write(r.s, r.locked, func(d *state) error {
		if _, ok := d.tenants[tenantID]; !ok {
			return errors.ErrNotFound
		}
		delete(d.tenants, tenantID)
		return nil
	})
}

func (r *tenantRepo) List(ctx context.Context, offset, limit int) ([]*tenants.Tenant, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	var result []*tenants.Tenant
	err := read(r.s, r.locked, func(d *state) error {
		for _, t := range d.tenants {
			result = append(result, t.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name == result[j].Name {
			return result[i].ID < result[j].ID
		}
		return result[i].Name < result[j].Name
	})
	return page(result, offset, limit), len(result), nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

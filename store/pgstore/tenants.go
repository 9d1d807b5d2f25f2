package pgstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	apperrors "github.com/jrsteele09/go-hr-tenancy/internal/errors"
	"github.com/jrsteele09/go-hr-tenancy/internal/ids"
	"github.com/jrsteele09/go-hr-tenancy/tenants"
)

const tenantColumns = `id, name, company, email, phone, address, industry, plan, status, admin_id, created_at, updated_at`

type tenantRepo struct {
	q   querier
	now func() time.Time
}

func (r *tenantRepo) Create(ctx context.Context, t *tenants.Tenant) error {
	if t.ID == "" {
		t.ID = ids.New()
	}
	now := r.now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	_, err := r.q.ExecContext(ctx, `
		insert into tenants (`+tenantColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, t.ID, t.Name, t.Company, t.Email, t.Phone, t.Address, t.Industry,
		string(t.Plan), string(t.Status), t.AdminID, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return apperrors.Invariant("tenant id already exists")
		}
		return errors.Wrap(err, "pgstore: insert tenant")
	}
	return nil
}

func (r *tenantRepo) Get(ctx context.Context, tenantID string) (*tenants.Tenant, error) {
	row := r.q.QueryRowContext(ctx, `select `+tenantColumns+` from tenants where id = $1`, tenantID)
	return scanTenant(row)
}

func (r *tenantRepo) Update(ctx context.Context, t *tenants.Tenant) error {
	t.UpdatedAt = r.now().UTC()
	res, err := r.q.ExecContext(ctx, `
		update tenants
		set name = $2, company = $3, email = $4, phone = $5, address = $6, industry = $7,
			plan = $8, status = $9, admin_id = $10, updated_at = $11
		where id = $1
	`, t.ID, t.Name, t.Company, t.Email, t.Phone, t.Address, t.Industry,
		string(t.Plan), string(t.Status), t.AdminID, t.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "pgstore: update tenant")
	}
	return requireRow(res)
}

func (r *tenantRepo) Delete(ctx context.Context, tenantID string) error {
	res, err := r.q.ExecContext(ctx, `delete from tenants where id = $1`, tenantID)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return apperrors.Invariant("tenant still has member accounts")
		}
		return errors.Wrap(err, "pgstore: delete tenant")
	}
	return requireRow(res)
}

func (r *tenantRepo) List(ctx context.Context, offset, limit int) ([]*tenants.Tenant, int, error) {
	var total int
	if err := r.q.QueryRowContext(ctx, `select count(*) from tenants`).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "pgstore: count tenants")
	}
	if limit <= 0 {
		limit = total
	}
	rows, err := r.q.QueryContext(ctx, `
		select `+tenantColumns+` from tenants
		order by name, id
		limit $1 offset $2
	`, limit, offset)
	if err != nil {
		return nil, 0, errors.Wrap(err, "pgstore: list tenants")
	}
	defer rows.Close()

	result := []*tenants.Tenant{}
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "pgstore: list tenants")
	}
	return result, total, nil
}

func scanTenant(row scanner) (*tenants.Tenant, error) {
	var (
		t      tenants.Tenant
		plan   string
		status string
	)
	err := row.Scan(&t.ID, &t.Name, &t.Company, &t.Email, &t.Phone, &t.Address, &t.Industry,
		&plan, &status, &t.AdminID, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "pgstore: scan tenant")
	}
	t.Plan = tenants.Plan(plan)
	t.Status = tenants.Status(status)
	return &t, nil
}

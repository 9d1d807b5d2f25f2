package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-hr-tenancy/accounts"
	apperrors "github.com/jrsteele09/go-hr-tenancy/internal/errors"
	"github.com/jrsteele09/go-hr-tenancy/internal/ids"
)

const accountColumns = `id, email, password_hash, display_name, role, tenant_id, is_approved, is_active, last_login, profile, created_at, updated_at`

type accountRepo struct {
	q   querier
	now func() time.Time
}

func (r *accountRepo) Create(ctx context.Context, a *accounts.Account) error {
	if a.ID == "" {
		a.ID = ids.New()
	}
	a.Email = accounts.NormalizeEmail(a.Email)
	now := r.now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now

	profile, err := json.Marshal(a.Profile)
	if err != nil {
		return errors.Wrap(err, "pgstore: encode profile")
	}
	_, err = r.q.ExecContext(ctx, `
		insert into accounts (`+accountColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, a.ID, a.Email, a.PasswordHash, a.DisplayName, string(a.Role), tenantArg(a.Tenant),
		a.IsApproved, a.IsActive, timeArg(a.LastLogin), profile, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return mapWriteError(err, "pgstore: insert account")
	}
	return nil
}

func (r *accountRepo) Get(ctx context.Context, id string) (*accounts.Account, error) {
	row := r.q.QueryRowContext(ctx, `select `+accountColumns+` from accounts where id = $1`, id)
	return scanAccount(row)
}

func (r *accountRepo) GetByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	row := r.q.QueryRowContext(ctx, `select `+accountColumns+` from accounts where email = $1`, accounts.NormalizeEmail(email))
	return scanAccount(row)
}

func (r *accountRepo) Update(ctx context.Context, a *accounts.Account) error {
	a.Email = accounts.NormalizeEmail(a.Email)
	a.UpdatedAt = r.now().UTC()
	profile, err := json.Marshal(a.Profile)
	if err != nil {
		return errors.Wrap(err, "pgstore: encode profile")
	}
	res, err := r.q.ExecContext(ctx, `
		update accounts
		set email = $2, password_hash = $3, display_name = $4, role = $5, tenant_id = $6,
			is_approved = $7, is_active = $8, last_login = $9, profile = $10, updated_at = $11
		where id = $1
	`, a.ID, a.Email, a.PasswordHash, a.DisplayName, string(a.Role), tenantArg(a.Tenant),
		a.IsApproved, a.IsActive, timeArg(a.LastLogin), profile, a.UpdatedAt)
	if err != nil {
		return mapWriteError(err, "pgstore: update account")
	}
	return requireRow(res)
}

func (r *accountRepo) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `delete from accounts where id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "pgstore: delete account")
	}
	return requireRow(res)
}

func (r *accountRepo) List(ctx context.Context, filter accounts.Filter) ([]*accounts.Account, error) {
	where, args := filterClause(filter)
	query := `select ` + accountColumns + ` from accounts` + where + ` order by email`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" limit $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" offset $%d", len(args))
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "pgstore: list accounts")
	}
	defer rows.Close()

	var result []*accounts.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "pgstore: list accounts")
	}
	return result, nil
}

func (r *accountRepo) Count(ctx context.Context, filter accounts.Filter) (int, error) {
	where, args := filterClause(filter)
	var n int
	if err := r.q.QueryRowContext(ctx, `select count(*) from accounts`+where, args...).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "pgstore: count accounts")
	}
	return n, nil
}

func (r *accountRepo) SetApprovedByTenant(ctx context.Context, tenantID string, approved bool, except ...accounts.Role) (int64, error) {
	args := []any{approved, r.now().UTC(), tenantID}
	query := `update accounts set is_approved = $1, updated_at = $2 where tenant_id = $3` + exceptRoles(&args, except)
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "pgstore: cascade approval")
	}
	return res.RowsAffected()
}

func (r *accountRepo) DeleteByTenant(ctx context.Context, tenantID string, except ...accounts.Role) (int64, error) {
	args := []any{tenantID}
	query := `delete from accounts where tenant_id = $1` + exceptRoles(&args, except)
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "pgstore: cascade delete")
	}
	return res.RowsAffected()
}

// exceptRoles appends a "role not in (...)" clause, adding its values to args.
func exceptRoles(args *[]any, except []accounts.Role) string {
	if len(except) == 0 {
		return ""
	}
	placeholders := make([]string, 0, len(except))
	for _, role := range except {
		*args = append(*args, string(role))
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(*args)))
	}
	return " and role not in (" + strings.Join(placeholders, ", ") + ")"
}

func filterClause(f accounts.Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if f.TenantID != "" {
		add("tenant_id = $%d", f.TenantID)
	}
	if f.Role != "" {
		add("role = $%d", string(f.Role))
	}
	if f.Approved != nil {
		add("is_approved = $%d", *f.Approved)
	}
	if f.Active != nil {
		add("is_active = $%d", *f.Active)
	}
	if f.UnboundOnly {
		clauses = append(clauses, "tenant_id is null")
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " where " + strings.Join(clauses, " and "), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*accounts.Account, error) {
	var (
		a         accounts.Account
		role      string
		tenantID  sql.NullString
		lastLogin sql.NullTime
		profile   []byte
	)
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.DisplayName, &role, &tenantID,
		&a.IsApproved, &a.IsActive, &lastLogin, &profile, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "pgstore: scan account")
	}
	a.Role = accounts.Role(role)
	if tenantID.Valid {
		a.Tenant = accounts.Bound(tenantID.String)
	}
	if lastLogin.Valid {
		a.LastLogin = lastLogin.Time
	}
	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &a.Profile); err != nil {
			return nil, errors.Wrap(err, "pgstore: decode profile")
		}
	}
	return &a, nil
}

func tenantArg(b accounts.TenantBinding) sql.NullString {
	id, ok := b.TenantID()
	return sql.NullString{String: id, Valid: ok}
}

func timeArg(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "pgstore: rows affected")
	}
	if n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func mapWriteError(err error, msg string) error {
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return apperrors.ErrDuplicateEmail
		case pgErrForeignKeyViolation:
			return apperrors.Wrapf(apperrors.ErrNotFound, "tenant")
		}
	}
	return errors.Wrap(err, msg)
}

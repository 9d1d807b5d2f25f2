package pgstore_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-hr-tenancy/accounts"
	"github.com/jrsteele09/go-hr-tenancy/internal/errors"
	"github.com/jrsteele09/go-hr-tenancy/store"
	"github.com/jrsteele09/go-hr-tenancy/store/pgstore"
	"github.com/jrsteele09/go-hr-tenancy/tenants"
)

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

var accountCols = []string{"id", "email", "password_hash", "display_name", "role", "tenant_id", "is_approved", "is_active", "last_login", "profile", "created_at", "updated_at"}

func newMockStore(t *testing.T) (*pgstore.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return pgstore.New(db, pgstore.WithNowFunc(func() time.Time { return fixedNow })), mock
}

func TestCreateAccount(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("insert into accounts").
		WithArgs(sqlmock.AnyArg(), "jane@acme.com", "hash", "Jane", "admin", sql.NullString{},
			false, true, sql.NullTime{}, sqlmock.AnyArg(), fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))

	a := &accounts.Account{Email: "Jane@Acme.com", PasswordHash: "hash", DisplayName: "Jane", Role: accounts.RoleAdmin, IsActive: true}
	require.NoError(t, s.Accounts().Create(context.Background(), a))
	require.NotEmpty(t, a.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAccountDuplicateEmail(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("insert into accounts").WillReturnError(&pgconn.PgError{Code: "23505"})

	err := s.Accounts().Create(context.Background(), &accounts.Account{Email: "jane@acme.com", Role: accounts.RoleAdmin})
	require.ErrorIs(t, err, errors.ErrDuplicateEmail)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAccountByEmail(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows(accountCols).
		AddRow("a1", "jane@acme.com", "hash", "Jane", "admin", "t1", true, true, fixedNow, []byte(`{"company":"Acme Ltd"}`), fixedNow, fixedNow)
	mock.ExpectQuery("select (.+) from accounts where email = \\$1").WithArgs("jane@acme.com").WillReturnRows(rows)

	a, err := s.Accounts().GetByEmail(context.Background(), " JANE@acme.com")
	require.NoError(t, err)
	require.Equal(t, "a1", a.ID)
	require.True(t, a.Tenant.BoundTo("t1"))
	require.Equal(t, fixedNow, a.LastLogin)
	require.Equal(t, "Acme Ltd", a.Profile.Company)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAccountUnboundAndMissing(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows(accountCols).
		AddRow("a2", "bob@acme.com", "hash", "", "admin", nil, false, true, nil, []byte(`{}`), fixedNow, fixedNow)
	mock.ExpectQuery("select (.+) from accounts where id = \\$1").WithArgs("a2").WillReturnRows(rows)
	mock.ExpectQuery("select (.+) from accounts where id = \\$1").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	a, err := s.Accounts().Get(context.Background(), "a2")
	require.NoError(t, err)
	require.True(t, a.IsPending())
	require.True(t, a.LastLogin.IsZero())

	_, err = s.Accounts().Get(context.Background(), "missing")
	require.ErrorIs(t, err, errors.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAccountNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("delete from accounts where id = \\$1").WithArgs("nope").WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, s.Accounts().Delete(context.Background(), "nope"), errors.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListAccountsBuildsFilter(t *testing.T) {
	s, mock := newMockStore(t)
	approved := false

	mock.ExpectQuery("select (.+) from accounts where role = \\$1 and is_approved = \\$2 and tenant_id is null order by email limit \\$3").
		WithArgs("admin", false, 20).
		WillReturnRows(sqlmock.NewRows(accountCols).
			AddRow("a2", "bob@acme.com", "hash", "", "admin", nil, false, true, nil, []byte(`{}`), fixedNow, fixedNow))

	list, err := s.Accounts().List(context.Background(), accounts.Filter{Role: accounts.RoleAdmin, Approved: &approved, UnboundOnly: true, Limit: 20})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCascadesExcludeRoles(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("update accounts set is_approved = \\$1, updated_at = \\$2 where tenant_id = \\$3 and role not in \\(\\$4\\)").
		WithArgs(false, fixedNow, "t1", "superadmin").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("delete from accounts where tenant_id = \\$1 and role not in \\(\\$2\\)").
		WithArgs("t1", "superadmin").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := s.Accounts().SetApprovedByTenant(context.Background(), "t1", false, accounts.RoleSuperAdmin)
	require.NoError(t, err)
	require.EqualValues(t, 4, n)

	n, err = s.Accounts().DeleteByTenant(context.Background(), "t1", accounts.RoleSuperAdmin)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTxCommit(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("insert into tenants").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("update accounts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.RunInTx(context.Background(), func(tx store.Tx) error {
		tenant := &tenants.Tenant{Name: "Acme", Plan: tenants.PlanProfessional, Status: tenants.StatusActive, AdminID: "a1"}
		if err := tx.Tenants().Create(context.Background(), tenant); err != nil {
			return err
		}
		return tx.Accounts().Update(context.Background(), &accounts.Account{ID: "a1", Email: "jane@acme.com", Role: accounts.RoleAdmin, Tenant: accounts.Bound(tenant.ID), IsApproved: true})
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTxRollback(t *testing.T) {
	s, mock := newMockStore(t)
	boom := fmt.Errorf("boom")

	mock.ExpectBegin()
	mock.ExpectExec("insert into tenants").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectRollback()

	err := s.RunInTx(context.Background(), func(tx store.Tx) error {
		if err := tx.Tenants().Create(context.Background(), &tenants.Tenant{Name: "Acme"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListTenants(t *testing.T) {
	s, mock := newMockStore(t)
	cols := []string{"id", "name", "company", "email", "phone", "address", "industry", "plan", "status", "admin_id", "created_at", "updated_at"}

	mock.ExpectQuery("select count\\(\\*\\) from tenants").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery("select (.+) from tenants").WithArgs(1, 0).
		WillReturnRows(sqlmock.NewRows(cols).AddRow("t1", "Acme", "", "", "", "", "", "Professional", "Suspended", "a1", fixedNow, fixedNow))

	list, total, err := s.Tenants().List(context.Background(), 0, 1)
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, list, 1)
	require.Equal(t, tenants.StatusSuspended, list[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("create table if not exists tenants").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

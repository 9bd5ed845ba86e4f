package repository

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/accomplishment-service/internal/domain"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assignAll(dest, r.values)
}

type fakeRows struct {
	rows [][]any
	idx  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return r.rows[r.idx-1], nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	return assignAll(dest, r.rows[r.idx-1])
}

func assignAll(dest, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(values))
	}
	for i, d := range dest {
		dv := reflect.ValueOf(d).Elem()
		if values[i] == nil {
			dv.Set(reflect.Zero(dv.Type()))
			continue
		}
		v := reflect.ValueOf(values[i])
		switch {
		case v.Type().AssignableTo(dv.Type()):
			dv.Set(v)
		case v.Type().ConvertibleTo(dv.Type()):
			dv.Set(v.Convert(dv.Type()))
		default:
			return fmt.Errorf("scan: cannot assign %T to %T", values[i], d)
		}
	}
	return nil
}

type call struct {
	sql  string
	args []any
}

type fakeQuerier struct {
	calls   []call
	execs   []pgconn.CommandTag
	execErr error
	rows    []pgx.Row
	query   *fakeRows
}

func (q *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.calls = append(q.calls, call{sql, args})
	if q.execErr != nil {
		return pgconn.CommandTag{}, q.execErr
	}
	tag := q.execs[0]
	q.execs = q.execs[1:]
	return tag, nil
}

func (q *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.calls = append(q.calls, call{sql, args})
	return q.query, nil
}

func (q *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.calls = append(q.calls, call{sql, args})
	row := q.rows[0]
	q.rows = q.rows[1:]
	return row
}

func accountRow(id string, failed int, lockUntil *time.Time) []any {
	now := time.Date(2025, 1, 23, 10, 0, 0, 0, time.UTC)
	return []any{id, "100", "enc-f", "enc-l", "enc-d", "enc-e", "lk-1", "hash", "employee", failed, lockUntil, now, now}
}

func TestPostgresRepo_Insert(t *testing.T) {
	created := time.Date(2025, 1, 23, 10, 0, 0, 0, time.UTC)
	q := &fakeQuerier{rows: []pgx.Row{fakeRow{values: []any{"uuid-1", created, created}}}}
	repo := &accountRepository{db: q}

	acc := newAccount("100", "lk-1")
	require.NoError(t, repo.Insert(context.Background(), acc))

	assert.Equal(t, "uuid-1", acc.ID)
	assert.Equal(t, created, acc.CreatedAt)
	require.Len(t, q.calls, 1)
	assert.Contains(t, q.calls[0].sql, "INSERT INTO accounts")
	assert.Equal(t, "lk-1", q.calls[0].args[5])
	assert.Equal(t, 0, q.calls[0].args[8])
}

func TestPostgresRepo_InsertUniqueViolation(t *testing.T) {
	tests := []struct {
		constraint string
		field      string
	}{
		{"accounts_employee_id_key", FieldEmployeeID},
		{"accounts_email_lookup_key", FieldEmail},
	}

	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			pgErr := &pgconn.PgError{Code: "23505", ConstraintName: tt.constraint}
			repo := &accountRepository{db: &fakeQuerier{rows: []pgx.Row{fakeRow{err: pgErr}}}}

			err := repo.Insert(context.Background(), newAccount("100", "lk-1"))
			var dup *DuplicateError
			require.ErrorAs(t, err, &dup)
			assert.Equal(t, tt.field, dup.Field)
		})
	}
}

func TestPostgresRepo_InsertOtherError(t *testing.T) {
	repo := &accountRepository{db: &fakeQuerier{rows: []pgx.Row{fakeRow{err: errors.New("conn reset")}}}}

	err := repo.Insert(context.Background(), newAccount("100", "lk-1"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicate)
	assert.Contains(t, err.Error(), "insert account: conn reset")
}

func TestPostgresRepo_FindByEmail(t *testing.T) {
	lock := time.Date(2025, 1, 23, 10, 15, 0, 0, time.UTC)
	q := &fakeQuerier{rows: []pgx.Row{fakeRow{values: accountRow("uuid-1", 5, &lock)}}}
	repo := &accountRepository{db: q}

	acc, err := repo.FindByEmail(context.Background(), "lk-1")
	require.NoError(t, err)
	assert.Equal(t, "uuid-1", acc.ID)
	assert.Equal(t, domain.RoleEmployee, acc.Role)
	assert.Equal(t, 5, acc.Lockout.FailedAttempts)
	require.NotNil(t, acc.Lockout.LockUntil)
	assert.True(t, lock.Equal(*acc.Lockout.LockUntil))
	assert.Contains(t, q.calls[0].sql, "WHERE email_lookup=$1")
}

func TestPostgresRepo_FindNotFound(t *testing.T) {
	repo := &accountRepository{db: &fakeQuerier{rows: []pgx.Row{
		fakeRow{err: pgx.ErrNoRows},
		fakeRow{err: pgx.ErrNoRows},
		fakeRow{err: errors.New("timeout")},
	}}}
	ctx := context.Background()

	_, err := repo.FindByEmployeeID(ctx, "100")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.FindByID(ctx, "x")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.FindByEmail(ctx, "x")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestPostgresRepo_UpdateLockoutFields(t *testing.T) {
	lock := time.Now().Add(15 * time.Minute)
	expected := domain.LockoutState{FailedAttempts: 4}
	next := domain.LockoutState{FailedAttempts: 5, LockUntil: &lock}

	t.Run("applied", func(t *testing.T) {
		q := &fakeQuerier{execs: []pgconn.CommandTag{pgconn.NewCommandTag("UPDATE 1")}}
		repo := &accountRepository{db: q}

		require.NoError(t, repo.UpdateLockoutFields(context.Background(), "uuid-1", expected, next))
		require.Len(t, q.calls, 1)
		assert.True(t, strings.Contains(q.calls[0].sql, "lock_until IS NOT DISTINCT FROM $5"))
		assert.Equal(t, []any{"uuid-1", 5, &lock, 4, (*time.Time)(nil)}, q.calls[0].args)
	})

	t.Run("stale", func(t *testing.T) {
		q := &fakeQuerier{
			execs: []pgconn.CommandTag{pgconn.NewCommandTag("UPDATE 0")},
			rows:  []pgx.Row{fakeRow{values: []any{1}}},
		}
		repo := &accountRepository{db: q}

		err := repo.UpdateLockoutFields(context.Background(), "uuid-1", expected, next)
		assert.ErrorIs(t, err, ErrStaleLockout)
	})

	t.Run("missing", func(t *testing.T) {
		q := &fakeQuerier{
			execs: []pgconn.CommandTag{pgconn.NewCommandTag("UPDATE 0")},
			rows:  []pgx.Row{fakeRow{err: pgx.ErrNoRows}},
		}
		repo := &accountRepository{db: q}

		err := repo.UpdateLockoutFields(context.Background(), "uuid-1", expected, next)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("exec error", func(t *testing.T) {
		repo := &accountRepository{db: &fakeQuerier{execErr: errors.New("db down")}}

		err := repo.UpdateLockoutFields(context.Background(), "uuid-1", expected, next)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrStaleLockout)
	})
}

func TestPostgresRepo_List(t *testing.T) {
	q := &fakeQuerier{query: &fakeRows{rows: [][]any{
		accountRow("uuid-1", 0, nil),
		accountRow("uuid-2", 2, nil),
	}}}
	repo := &accountRepository{db: q}

	accounts, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "uuid-2", accounts[1].ID)
	assert.Equal(t, 2, accounts[1].Lockout.FailedAttempts)
	assert.Nil(t, accounts[0].Lockout.LockUntil)
}

func TestPostgresRepo_Update(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		repo := &accountRepository{db: &fakeQuerier{rows: []pgx.Row{fakeRow{err: pgx.ErrNoRows}}}}
		acc := newAccount("100", "lk-1")
		acc.ID = "uuid-1"
		assert.ErrorIs(t, repo.Update(context.Background(), acc), ErrNotFound)
	})

	t.Run("duplicate", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "accounts_email_lookup_key"}
		repo := &accountRepository{db: &fakeQuerier{rows: []pgx.Row{fakeRow{err: pgErr}}}}
		acc := newAccount("100", "lk-1")
		acc.ID = "uuid-1"

		var dup *DuplicateError
		require.ErrorAs(t, repo.Update(context.Background(), acc), &dup)
		assert.Equal(t, FieldEmail, dup.Field)
	})
}

func TestPostgresRepo_Delete(t *testing.T) {
	q := &fakeQuerier{execs: []pgconn.CommandTag{
		pgconn.NewCommandTag("DELETE 1"),
		pgconn.NewCommandTag("DELETE 0"),
	}}
	repo := &accountRepository{db: q}

	require.NoError(t, repo.Delete(context.Background(), "uuid-1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "uuid-1"), ErrNotFound)
}

func TestPostgresRepo_MalformedIDIsNotFound(t *testing.T) {
	badID := &pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "abc"`}
	ctx := context.Background()

	repo := &accountRepository{db: &fakeQuerier{rows: []pgx.Row{fakeRow{err: badID}, fakeRow{err: badID}}}}
	_, err := repo.FindByID(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)

	acc := newAccount("100", "lk-1")
	acc.ID = "abc"
	assert.ErrorIs(t, repo.Update(ctx, acc), ErrNotFound)

	repo = &accountRepository{db: &fakeQuerier{execErr: badID}}
	assert.ErrorIs(t, repo.Delete(ctx, "abc"), ErrNotFound)
	assert.ErrorIs(t, repo.UpdateLockoutFields(ctx, "abc", domain.LockoutState{}, domain.LockoutState{FailedAttempts: 1}), ErrNotFound)

	repo = &accountRepository{db: &fakeQuerier{execErr: &pgconn.PgError{Code: "08006"}}}
	err = repo.Delete(ctx, "abc")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

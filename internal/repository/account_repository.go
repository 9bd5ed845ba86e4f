package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/accomplishment-service/internal/domain"
)

var (
	// ErrNotFound is returned when no account matches.
	ErrNotFound = errors.New("account not found")
	// ErrDuplicate is matched by *DuplicateError.
	ErrDuplicate = errors.New("account already exists")
	// ErrStaleLockout is returned when the stored lockout fields no longer
	// equal the expected state of a conditional update.
	ErrStaleLockout = errors.New("lockout state changed concurrently")
)

// DuplicateError names the unique field that was violated.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDuplicate.Error(), e.Field)
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// Duplicate field names reported by DuplicateError.
const (
	FieldEmployeeID = "employee_id"
	FieldEmail      = "email"
)

// AccountRepository defines persistence access for accounts.
type AccountRepository interface {
	// Insert stores a new account; uniqueness of employee id and email lookup
	// is checked atomically with the write.
	Insert(ctx context.Context, account *domain.Account) error
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByEmail(ctx context.Context, emailLookup string) (*domain.Account, error)
	FindByEmployeeID(ctx context.Context, employeeID string) (*domain.Account, error)
	// UpdateLockoutFields sets next only if the stored state equals expected.
	UpdateLockoutFields(ctx context.Context, id string, expected, next domain.LockoutState) error
	List(ctx context.Context) ([]*domain.Account, error)
	// Update rewrites the profile fields (identity, PII, role) of an account.
	Update(ctx context.Context, account *domain.Account) error
	Delete(ctx context.Context, id string) error
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type accountRepository struct {
	db pgxQuerier
}

// NewPostgresAccountRepository returns a Postgres-backed implementation.
func NewPostgresAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{db: pool}
}

const accountColumns = `id, employee_id, first_name, last_name, department, email, email_lookup,
        password_hash, role, failed_attempts, lock_until, created_at, updated_at`

const (
	uniqueViolation           = "23505"
	// Raised when an id is not a valid uuid; no such account can exist.
	invalidTextRepresentation = "22P02"
)

var constraintFields = map[string]string{
	"accounts_employee_id_key":  FieldEmployeeID,
	"accounts_email_lookup_key": FieldEmail,
}

func (r *accountRepository) Insert(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (employee_id, first_name, last_name, department, email, email_lookup,
            password_hash, role, failed_attempts, lock_until)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		account.EmployeeID,
		account.FirstName,
		account.LastName,
		account.Department,
		account.Email,
		account.EmailLookup,
		account.PasswordHash,
		account.Role,
		account.Lockout.FailedAttempts,
		account.Lockout.LockUntil,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return mapWriteError("insert account", err)
	}
	return nil
}

func (r *accountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id=$1`
	return r.findOne(ctx, query, id)
}

func (r *accountRepository) FindByEmail(ctx context.Context, emailLookup string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email_lookup=$1`
	return r.findOne(ctx, query, emailLookup)
}

func (r *accountRepository) FindByEmployeeID(ctx context.Context, employeeID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE employee_id=$1`
	return r.findOne(ctx, query, employeeID)
}

func (r *accountRepository) UpdateLockoutFields(ctx context.Context, id string, expected, next domain.LockoutState) error {
	const query = `
        UPDATE accounts SET failed_attempts=$2, lock_until=$3, updated_at=NOW()
        WHERE id=$1 AND failed_attempts=$4 AND lock_until IS NOT DISTINCT FROM $5`

	cmd, err := r.db.Exec(ctx, query,
		id,
		next.FailedAttempts,
		next.LockUntil,
		expected.FailedAttempts,
		expected.LockUntil,
	)
	if err != nil {
		if isInvalidID(err) {
			return ErrNotFound
		}
		return fmt.Errorf("update lockout fields: %w", err)
	}
	if cmd.RowsAffected() == 1 {
		return nil
	}

	var exists int
	if err := r.db.QueryRow(ctx, `SELECT 1 FROM accounts WHERE id=$1`, id).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("check account: %w", err)
	}
	return ErrStaleLockout
}

func (r *accountRepository) List(ctx context.Context) ([]*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

func (r *accountRepository) Update(ctx context.Context, account *domain.Account) error {
	const query = `
        UPDATE accounts SET employee_id=$2, first_name=$3, last_name=$4, department=$5,
            email=$6, email_lookup=$7, role=$8, updated_at=NOW()
        WHERE id=$1
        RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		account.ID,
		account.EmployeeID,
		account.FirstName,
		account.LastName,
		account.Department,
		account.Email,
		account.EmailLookup,
		account.Role,
	).Scan(&account.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return ErrNotFound
		}
		return mapWriteError("update account", err)
	}
	return nil
}

func (r *accountRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id=$1`, id)
	if err != nil {
		if isInvalidID(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete account: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *accountRepository) findOne(ctx context.Context, query string, arg any) (*domain.Account, error) {
	account, err := scanAccount(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return account, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account   domain.Account
		lockUntil *time.Time
	)
	if err := row.Scan(
		&account.ID,
		&account.EmployeeID,
		&account.FirstName,
		&account.LastName,
		&account.Department,
		&account.Email,
		&account.EmailLookup,
		&account.PasswordHash,
		&account.Role,
		&account.Lockout.FailedAttempts,
		&lockUntil,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	account.Lockout.LockUntil = lockUntil
	return &account, nil
}

func isInvalidID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		field, ok := constraintFields[pgErr.ConstraintName]
		if !ok {
			field = pgErr.ConstraintName
		}
		return &DuplicateError{Field: field}
	}
	return fmt.Errorf("%s: %w", op, err)
}

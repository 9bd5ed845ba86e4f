package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/accomplishment-service/internal/domain"
)

// memoryAccountRepository keeps accounts in process memory. Every method runs
// under one mutex, so uniqueness checks and conditional updates are atomic.
type memoryAccountRepository struct {
	mu      sync.Mutex
	byID    map[string]*domain.Account
	byEmail map[string]string
	byEmpID map[string]string
	now     func() time.Time
}

// NewMemoryAccountRepository returns an in-memory implementation used when no
// database is configured and in tests.
func NewMemoryAccountRepository() AccountRepository {
	return &memoryAccountRepository{
		byID:    make(map[string]*domain.Account),
		byEmail: make(map[string]string),
		byEmpID: make(map[string]string),
		now:     time.Now,
	}
}

func (r *memoryAccountRepository) Insert(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmpID[account.EmployeeID]; ok {
		return &DuplicateError{Field: FieldEmployeeID}
	}
	if _, ok := r.byEmail[account.EmailLookup]; ok {
		return &DuplicateError{Field: FieldEmail}
	}

	now := r.now().UTC()
	account.ID = uuid.NewString()
	account.CreatedAt = now
	account.UpdatedAt = now

	stored := cloneAccount(account)
	r.byID[stored.ID] = stored
	r.byEmpID[stored.EmployeeID] = stored.ID
	r.byEmail[stored.EmailLookup] = stored.ID
	return nil
}

func (r *memoryAccountRepository) FindByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookup(id)
}

func (r *memoryAccountRepository) FindByEmail(_ context.Context, emailLookup string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookup(r.byEmail[emailLookup])
}

func (r *memoryAccountRepository) FindByEmployeeID(_ context.Context, employeeID string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookup(r.byEmpID[employeeID])
}

func (r *memoryAccountRepository) UpdateLockoutFields(_ context.Context, id string, expected, next domain.LockoutState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	if !stored.Lockout.Equal(expected) {
		return ErrStaleLockout
	}
	stored.Lockout = cloneLockout(next)
	stored.UpdatedAt = r.now().UTC()
	return nil
}

func (r *memoryAccountRepository) List(_ context.Context) ([]*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	accounts := make([]*domain.Account, 0, len(r.byID))
	for _, stored := range r.byID {
		accounts = append(accounts, cloneAccount(stored))
	}
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].ID < accounts[j].ID
		}
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
	return accounts, nil
}

func (r *memoryAccountRepository) Update(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[account.ID]
	if !ok {
		return ErrNotFound
	}
	if owner, ok := r.byEmpID[account.EmployeeID]; ok && owner != account.ID {
		return &DuplicateError{Field: FieldEmployeeID}
	}
	if owner, ok := r.byEmail[account.EmailLookup]; ok && owner != account.ID {
		return &DuplicateError{Field: FieldEmail}
	}

	delete(r.byEmpID, stored.EmployeeID)
	delete(r.byEmail, stored.EmailLookup)

	stored.EmployeeID = account.EmployeeID
	stored.FirstName = account.FirstName
	stored.LastName = account.LastName
	stored.Department = account.Department
	stored.Email = account.Email
	stored.EmailLookup = account.EmailLookup
	stored.Role = account.Role
	stored.UpdatedAt = r.now().UTC()

	r.byEmpID[stored.EmployeeID] = stored.ID
	r.byEmail[stored.EmailLookup] = stored.ID
	account.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *memoryAccountRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	delete(r.byEmpID, stored.EmployeeID)
	delete(r.byEmail, stored.EmailLookup)
	return nil
}

func (r *memoryAccountRepository) lookup(id string) (*domain.Account, error) {
	stored, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneAccount(stored), nil
}

func cloneAccount(a *domain.Account) *domain.Account {
	c := *a
	c.Lockout = cloneLockout(a.Lockout)
	return &c
}

func cloneLockout(s domain.LockoutState) domain.LockoutState {
	if s.LockUntil == nil {
		return s
	}
	t := *s.LockUntil
	return domain.LockoutState{FailedAttempts: s.FailedAttempts, LockUntil: &t}
}

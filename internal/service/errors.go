package service

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by administrative operations on a missing account.
var ErrNotFound = errors.New("account not found")

// ErrLockoutContention is returned when the lockout fields keep changing
// underneath a login attempt.
var ErrLockoutContention = errors.New("lockout state contention")

// ValidationError rejects malformed input before any side effect.
type ValidationError struct {
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ConflictError reports a uniqueness violation at persistence.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already registered", e.Field)
}

// InvalidCredentialsError covers both an unknown email and a wrong password.
type InvalidCredentialsError struct {
	FailedAttempts    int
	RemainingAttempts int
}

func (e *InvalidCredentialsError) Error() string {
	return "invalid credentials"
}

// LockedError is returned while the lockout window is open.
type LockedError struct {
	LockUntil time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account is locked until %s", e.LockUntil.Format(time.RFC3339))
}

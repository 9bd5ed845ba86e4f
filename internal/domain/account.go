package domain

import "time"

// Role controls downstream authorization.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEmployee:
		return true
	default:
		return false
	}
}

// Account is the persisted account record. PII fields hold codec tokens,
// never plaintext.
type Account struct {
	ID           string
	EmployeeID   string
	FirstName    string
	LastName     string
	Department   string
	Email        string
	EmailLookup  string
	PasswordHash string
	Role         Role
	Lockout      LockoutState
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LockoutState is the pair of fields mutated by login outcomes.
type LockoutState struct {
	FailedAttempts int
	LockUntil      *time.Time
}

// LockedAt reports whether the lockout window is still open at now.
func (s LockoutState) LockedAt(now time.Time) bool {
	return s.LockUntil != nil && now.Before(*s.LockUntil)
}

// Equal compares two states, treating lock times by instant.
func (s LockoutState) Equal(o LockoutState) bool {
	if s.FailedAttempts != o.FailedAttempts {
		return false
	}
	if s.LockUntil == nil || o.LockUntil == nil {
		return s.LockUntil == nil && o.LockUntil == nil
	}
	return s.LockUntil.Equal(*o.LockUntil)
}

// Profile is the decrypted view of an account handed to administrators.
type Profile struct {
	ID             string
	EmployeeID     string
	FirstName      string
	LastName       string
	Department     string
	Email          string
	Role           Role
	FailedAttempts int
	LockUntil      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

package service

import (
	"fmt"

	"github.com/spec-kit/accomplishment-service/internal/domain"
	"github.com/spec-kit/accomplishment-service/internal/pii"
)

type profileFields struct {
	FirstName  string
	LastName   string
	Department string
	Email      string
}

// seal encrypts every PII field and computes the email lookup key.
func (f profileFields) seal(codec *pii.Codec) (sealed profileFields, emailLookup string, err error) {
	if sealed.FirstName, err = codec.Encrypt(f.FirstName); err != nil {
		return profileFields{}, "", fmt.Errorf("encrypt first name: %w", err)
	}
	if sealed.LastName, err = codec.Encrypt(f.LastName); err != nil {
		return profileFields{}, "", fmt.Errorf("encrypt last name: %w", err)
	}
	if sealed.Department, err = codec.Encrypt(f.Department); err != nil {
		return profileFields{}, "", fmt.Errorf("encrypt department: %w", err)
	}
	if sealed.Email, err = codec.Encrypt(f.Email); err != nil {
		return profileFields{}, "", fmt.Errorf("encrypt email: %w", err)
	}
	return sealed, codec.LookupKey(f.Email), nil
}

// openProfile decrypts an account into its administrative view. Decode and
// crypto failures are returned, never replaced by empty values.
func openProfile(codec *pii.Codec, a *domain.Account) (domain.Profile, error) {
	p := domain.Profile{
		ID:             a.ID,
		EmployeeID:     a.EmployeeID,
		Role:           a.Role,
		FailedAttempts: a.Lockout.FailedAttempts,
		LockUntil:      a.Lockout.LockUntil,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}

	fields := []struct {
		name  string
		token string
		dst   *string
	}{
		{"first name", a.FirstName, &p.FirstName},
		{"last name", a.LastName, &p.LastName},
		{"department", a.Department, &p.Department},
		{"email", a.Email, &p.Email},
	}
	for _, f := range fields {
		plain, err := codec.Decrypt(f.token)
		if err != nil {
			return domain.Profile{}, fmt.Errorf("decrypt %s of account %s: %w", f.name, a.ID, err)
		}
		*f.dst = plain
	}
	return p, nil
}

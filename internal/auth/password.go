package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/accomplishment-service/internal/domain"
)

// DefaultBcryptCost is used when the configured cost is outside bcrypt's range.
const DefaultBcryptCost = 10

// Hasher hashes and verifies credentials with bcrypt at a fixed cost.
type Hasher struct {
	cost int
}

// NewHasher returns a hasher using cost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &Hasher{cost: cost}
}

// Cost reports the bcrypt cost in use.
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash hashes a plaintext password; bcrypt embeds a random salt.
func (h *Hasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether password matches hash. A mismatch is not an error;
// a hash that bcrypt cannot parse is reported as domain.ErrDecode.
func (h *Hasher) Verify(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: password hash: %v", domain.ErrDecode, err)
	}
}

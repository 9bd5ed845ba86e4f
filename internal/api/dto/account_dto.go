package dto

import (
	"time"

	"github.com/spec-kit/accomplishment-service/internal/domain"
)

// RegisterRequest payload for new accounts. Field names follow the web client.
type RegisterRequest struct {
	EmployeeID string `json:"employeeID"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email" validate:"required,email"`
	Department string `json:"department"`
	Password   string `json:"password"`
	Role       string `json:"role"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateAccountRequest payload for an administrative edit.
type UpdateAccountRequest struct {
	EmployeeID string `json:"employeeID" validate:"required"`
	FirstName  string `json:"firstName" validate:"required"`
	LastName   string `json:"lastName" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Department string `json:"department" validate:"required"`
	Role       string `json:"role" validate:"required"`
}

// RegisterResponse is returned after a successful registration.
type RegisterResponse struct {
	Message string      `json:"message"`
	Role    domain.Role `json:"role"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Message   string      `json:"message"`
	Role      domain.Role `json:"role"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// AccountResponse is the decrypted view of an account.
type AccountResponse struct {
	ID             string      `json:"id"`
	EmployeeID     string      `json:"employeeID"`
	FirstName      string      `json:"firstName"`
	LastName       string      `json:"lastName"`
	Email          string      `json:"email"`
	Department     string      `json:"department"`
	Role           domain.Role `json:"role"`
	FailedAttempts int         `json:"failedAttempts"`
	LockUntil      *time.Time  `json:"lockUntil,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// NewAccountResponse maps a profile to its wire form.
func NewAccountResponse(p domain.Profile) AccountResponse {
	return AccountResponse{
		ID:             p.ID,
		EmployeeID:     p.EmployeeID,
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		Email:          p.Email,
		Department:     p.Department,
		Role:           p.Role,
		FailedAttempts: p.FailedAttempts,
		LockUntil:      p.LockUntil,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// NewAccountResponses maps a list of profiles.
func NewAccountResponses(profiles []domain.Profile) []AccountResponse {
	out := make([]AccountResponse, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, NewAccountResponse(p))
	}
	return out
}

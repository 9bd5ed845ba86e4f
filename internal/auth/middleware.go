package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/accomplishment-service/internal/domain"
	"github.com/spec-kit/accomplishment-service/internal/repository"
	apperrors "github.com/spec-kit/accomplishment-service/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	AccountID  string
	EmployeeID string
	Role       domain.Role
}

// AccountFinder is the slice of the account store the middleware needs.
type AccountFinder interface {
	FindByID(ctx context.Context, id string) (*domain.Account, error)
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens   *TokenManager
	accounts AccountFinder
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, accounts AccountFinder) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, accounts: accounts}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	if err := m.authenticate(c); err != nil {
		return err
	}
	return c.Next()
}

// Optional authenticates the caller when an Authorization header is present
// and lets anonymous requests through. A header that fails to authenticate is
// still rejected.
func (m *AuthMiddleware) Optional(c *fiber.Ctx) error {
	if c.Get("Authorization") == "" {
		return c.Next()
	}
	return m.Handle(c)
}

func (m *AuthMiddleware) authenticate(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	account, err := m.accounts.FindByID(c.UserContext(), claims.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewUnauthorized("account not found")
		}
		return apperrors.MapError(err)
	}

	// The stored role wins over the token claim so demotions apply immediately.
	c.Locals(principalKey, &Principal{
		AccountID:  account.ID,
		EmployeeID: account.EmployeeID,
		Role:       account.Role,
	})
	return nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

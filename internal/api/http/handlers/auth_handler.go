package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/accomplishment-service/internal/api/dto"
	"github.com/spec-kit/accomplishment-service/internal/auth"
	"github.com/spec-kit/accomplishment-service/internal/domain"
	"github.com/spec-kit/accomplishment-service/internal/service"
	apperrors "github.com/spec-kit/accomplishment-service/pkg/util"
)

// AuthHandler exposes registration and login.
type AuthHandler struct {
	auth             *service.AuthService
	validate         *dto.Validator
	bootstrapAdminID string
}

// NewAuthHandler constructs handler. bootstrapAdminID is the one employee id
// allowed to register itself as admin; empty disables that path.
func NewAuthHandler(authService *service.AuthService, validate *dto.Validator, bootstrapAdminID string) *AuthHandler {
	return &AuthHandler{auth: authService, validate: validate, bootstrapAdminID: bootstrapAdminID}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}
	if strings.EqualFold(strings.TrimSpace(req.Role), string(domain.RoleAdmin)) && !h.mayGrantAdmin(c, req.EmployeeID) {
		return apperrors.NewForbidden("only an administrator can register an admin account")
	}

	role, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		EmployeeID: req.EmployeeID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Department: req.Department,
		Password:   req.Password,
		Role:       req.Role,
	})
	if err != nil {
		return mapServiceError(err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.RegisterResponse{Message: "Registration successful", Role: role},
	})
}

// mayGrantAdmin allows admin registrations by authenticated admins and by the
// configured bootstrap employee id.
func (h *AuthHandler) mayGrantAdmin(c *fiber.Ctx, employeeID string) bool {
	if principal, ok := auth.PrincipalFromContext(c); ok && principal.Role == domain.RoleAdmin {
		return true
	}
	return h.bootstrapAdminID != "" && employeeID == h.bootstrapAdminID
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}

	res, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(fiber.Map{
		"data": dto.LoginResponse{
			Message:   "Login successful",
			Role:      res.Role,
			Token:     res.Token,
			ExpiresAt: res.ExpiresAt,
		},
	})
}

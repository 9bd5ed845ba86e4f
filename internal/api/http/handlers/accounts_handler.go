package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/accomplishment-service/internal/api/dto"
	"github.com/spec-kit/accomplishment-service/internal/auth"
	"github.com/spec-kit/accomplishment-service/internal/service"
	apperrors "github.com/spec-kit/accomplishment-service/pkg/util"
)

// AccountsHandler exposes administrative account endpoints.
type AccountsHandler struct {
	accounts *service.AccountService
	validate *dto.Validator
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(accounts *service.AccountService, validate *dto.Validator) *AccountsHandler {
	return &AccountsHandler{accounts: accounts, validate: validate}
}

// List handles GET /users.
func (h *AccountsHandler) List(c *fiber.Ctx) error {
	profiles, err := h.accounts.List(c.UserContext())
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(fiber.Map{"data": dto.NewAccountResponses(profiles)})
}

// Search handles GET /users/search?term=.
func (h *AccountsHandler) Search(c *fiber.Ctx) error {
	profiles, err := h.accounts.Search(c.UserContext(), c.Query("term"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(fiber.Map{"data": dto.NewAccountResponses(profiles)})
}

// Get handles GET /users/:id.
func (h *AccountsHandler) Get(c *fiber.Ctx) error {
	profile, err := h.accounts.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(fiber.Map{"data": dto.NewAccountResponse(*profile)})
}

// GetByEmployeeID handles GET /users/employee/:employeeID.
func (h *AccountsHandler) GetByEmployeeID(c *fiber.Ctx) error {
	profile, err := h.accounts.GetByEmployeeID(c.UserContext(), c.Params("employeeID"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(fiber.Map{"data": dto.NewAccountResponse(*profile)})
}

// Update handles PUT /users/:id.
func (h *AccountsHandler) Update(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.UpdateAccountRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}

	profile, err := h.accounts.Update(c.UserContext(), principal.AccountID, service.UpdateInput{
		ID:         c.Params("id"),
		EmployeeID: req.EmployeeID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Department: req.Department,
		Role:       req.Role,
	})
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(fiber.Map{"data": dto.NewAccountResponse(*profile)})
}

// Delete handles DELETE /users/:id.
func (h *AccountsHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	if err := h.accounts.Delete(c.UserContext(), principal.AccountID, c.Params("id")); err != nil {
		return mapServiceError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "User deleted successfully"}})
}

package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/accomplishment-service/internal/api/http/handlers"
	"github.com/spec-kit/accomplishment-service/internal/auth"
	"github.com/spec-kit/accomplishment-service/internal/domain"
	"github.com/spec-kit/accomplishment-service/internal/ratelimit"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Accounts       *handlers.AccountsHandler
	AuthMiddleware *auth.AuthMiddleware
	LoginLimiter   *ratelimit.Limiter
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.AuthMiddleware.Optional, cfg.Auth.Register)
	authGroup.Post("/login", loginRateLimit(cfg.LoginLimiter), cfg.Auth.Login)

	adminOnly := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin)}
	app.Get("/metrics", append(adminOnly, cfg.Health.Metrics)...)

	users := app.Group("/users", adminOnly...)
	users.Get("", cfg.Accounts.List)
	users.Get("/search", cfg.Accounts.Search)
	users.Get("/employee/:employeeID", cfg.Accounts.GetByEmployeeID)
	users.Get("/:id", cfg.Accounts.Get)
	users.Put("/:id", cfg.Accounts.Update)
	users.Delete("/:id", cfg.Accounts.Delete)
}

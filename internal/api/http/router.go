package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-api/internal/api/http/handlers"
	"github.com/spec-kit/user-api/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. The authentication gate runs on every
// request ahead of the handlers; route guards decide whether an
// unauthenticated request is acceptable.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Use(cfg.AuthMiddleware.Handle)

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/change", auth.RequireAuthenticated(), cfg.Auth.ChangePassword)

	users := app.Group("/users", auth.RequireAuthenticated())
	users.Get("/me", cfg.Users.Me)
}

package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-api/internal/api/dto"
	"github.com/spec-kit/user-api/internal/auth"
)

// UsersHandler exposes endpoints about the authenticated user.
type UsersHandler struct{}

// NewUsersHandler constructs handler.
func NewUsersHandler() *UsersHandler {
	return &UsersHandler{}
}

// Me handles GET /users/me from the installed principal.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user":             dto.NewUserResponse(principal.User),
			"authenticated_at": principal.AuthenticatedAt,
			"request_id":       principal.RequestID,
		},
	})
}

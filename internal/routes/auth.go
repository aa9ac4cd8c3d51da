package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/playforge/ugc-backend/internal/auth"
	"github.com/playforge/ugc-backend/internal/identity"
)

// RegisterAuthRoutes wires login, device-token and refresh endpoints, plus the
// paths older launcher builds still call.
func RegisterAuthRoutes(r fiber.Router, ids *identity.Handler, h *auth.Handler, rateLimiter fiber.Handler) {
	group := r.Group("/auth")
	group.Post("/login", rateLimiter, ids.Login)
	group.Post("/verify-device-token", ids.VerifyDeviceToken)
	group.Post("/verify-launcher", ids.VerifyDeviceToken)
	group.Post("/refresh", h.Refresh)

	r.Post("/token/refresh", h.Refresh)
}

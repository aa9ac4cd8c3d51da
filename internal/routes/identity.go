package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/playforge/ugc-backend/internal/identity"
)

// RegisterUserRoutes wires user endpoints.
func RegisterUserRoutes(r fiber.Router, h *identity.Handler, requireUser, rateLimiter fiber.Handler) {
	users := r.Group("/users")
	users.Post("/login-or-create", rateLimiter, h.Login)
	users.Post("/verify-launcher", h.VerifyDeviceToken)
	users.Get("/me", requireUser, h.Me)
	users.Get("/", h.List)
	users.Post("/", requireUser, h.Create)
	users.Get("/:id", requireUser, h.Get)
	users.Put("/:id", requireUser, h.Update)
	users.Delete("/:id", requireUser, h.Delete)
	users.Put("/:id/coins", requireUser, h.UpdateCoins)
}

package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/playforge/ugc-backend/internal/admin"
)

// RegisterAdminRoutes wires the admin console. Register and login are public;
// everything else needs the session cookie.
func RegisterAdminRoutes(r fiber.Router, h *admin.Handler, requireAdmin, rateLimiter fiber.Handler) {
	group := r.Group("/v1/admin")
	group.Post("/register", h.Register)
	group.Post("/login", rateLimiter, h.Login)
	group.Get("/me", requireAdmin, h.Me)

	users := group.Group("/users")
	users.Get("/stats", requireAdmin, h.Stats)
	users.Get("/", requireAdmin, h.Users)
	users.Get("/:id", requireAdmin, h.User)
	users.Delete("/:id", requireAdmin, h.DeleteUser)
	users.Patch("/:id/coins", requireAdmin, h.SetCoins)
}

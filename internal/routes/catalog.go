package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/playforge/ugc-backend/internal/catalog"
)

// RegisterCatalogRoutes wires published-game and launcher-version endpoints.
func RegisterCatalogRoutes(r fiber.Router, h *catalog.Handler, requireUser, optionalUser, idempotent fiber.Handler) {
	games := r.Group("/published-games")
	games.Post("/", requireUser, idempotent, h.Publish)
	games.Get("/", optionalUser, h.List)
	games.Get("/my-games", requireUser, h.Mine)
	games.Get("/:id", requireUser, h.Get)
	games.Delete("/:id", requireUser, h.Delete)
	games.Put("/:id/view", requireUser, h.CountView)
	games.Put("/:id/install", requireUser, h.CountInstall)

	versions := r.Group("/game-version")
	versions.Post("/", h.CreateVersion)
	versions.Get("/:id", h.GetVersion)
	versions.Put("/:id", h.UpdateVersion)
	versions.Delete("/:id", h.DeleteVersion)
}

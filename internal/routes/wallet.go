package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/playforge/ugc-backend/internal/wallet"
)

// RegisterWalletRoutes wires wallet link endpoints; all require a user.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler, requireUser, idempotent fiber.Handler) {
	wallets := r.Group("/wallets")
	wallets.Post("/connect", requireUser, idempotent, h.Connect)
	wallets.Get("/my-wallets", requireUser, h.Mine)
	wallets.Get("/user/:userId", requireUser, h.ByUser)
	wallets.Delete("/:walletId", requireUser, h.Disconnect)
	wallets.Patch("/:walletId/primary", requireUser, h.SetPrimary)
	wallets.Patch("/:walletId/label", requireUser, h.UpdateLabel)
}

package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/playforge/ugc-backend/internal/apperr"
)

// Handler exposes the credential refresh endpoint.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type refreshRequest struct {
	RefreshCredential string `json:"refreshCredential"`
	RefreshToken      string `json:"refreshToken"`
}

// Refresh exchanges a refresh credential for a new pair.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	token := req.RefreshCredential
	if token == "" {
		token = req.RefreshToken
	}
	pair, err := h.svc.Refresh(token)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"credentials": pair})
}

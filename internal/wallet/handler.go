package wallet

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/playforge/ugc-backend/internal/apperr"
	"github.com/playforge/ugc-backend/internal/middleware"
)

// Handler exposes wallet link HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type connectRequest struct {
	Address      string `json:"wallet_address"`
	AddressCamel string `json:"walletAddress"`
	Type         string `json:"wallet_type"`
	TypeCamel    string `json:"walletType"`
	ChainID      *int64 `json:"chain_id"`
	ChainIDCamel *int64 `json:"chainId"`
	Label        string `json:"label"`
}

// LinkResponse is the JSON shape of a wallet link.
type LinkResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Address     string    `json:"walletAddress"`
	Type        string    `json:"walletType"`
	ChainID     *int64    `json:"chainId"`
	Label       string    `json:"label,omitempty"`
	Primary     bool      `json:"isPrimary"`
	ConnectedAt time.Time `json:"connectedAt"`
}

// ToResponse converts a link to its JSON shape.
func ToResponse(l Link) LinkResponse {
	return LinkResponse{
		ID:          l.ID,
		UserID:      l.UserID,
		Address:     l.Address,
		Type:        l.Type,
		ChainID:     l.ChainID,
		Label:       l.Label,
		Primary:     l.Primary,
		ConnectedAt: l.ConnectedAt,
	}
}

// ToResponses converts a slice of links.
func ToResponses(links []Link) []LinkResponse {
	out := make([]LinkResponse, 0, len(links))
	for _, l := range links {
		out = append(out, ToResponse(l))
	}
	return out
}

// Connect links a wallet to the authenticated user.
func (h *Handler) Connect(c *fiber.Ctx) error {
	var req connectRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	in := ConnectInput{
		UserID:  middleware.UserID(c),
		Address: req.Address,
		Type:    req.Type,
		ChainID: req.ChainID,
		Label:   req.Label,
	}
	if in.Address == "" {
		in.Address = req.AddressCamel
	}
	if in.Type == "" {
		in.Type = req.TypeCamel
	}
	if in.ChainID == nil {
		in.ChainID = req.ChainIDCamel
	}

	link, created, err := h.service.Connect(c.UserContext(), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	if !created {
		return c.Status(http.StatusOK).JSON(fiber.Map{"message": "wallet already connected", "wallet": ToResponse(link)})
	}
	msg := "wallet connected"
	if link.Primary {
		msg = "wallet connected and set as primary"
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"message": msg, "wallet": ToResponse(link)})
}

// Mine lists the authenticated user's wallets.
func (h *Handler) Mine(c *fiber.Ctx) error {
	links, err := h.service.List(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(fiber.Map{"wallets": ToResponses(links)})
}

// ByUser lists the wallets of the user named in the path.
func (h *Handler) ByUser(c *fiber.Ctx) error {
	links, err := h.service.List(c.UserContext(), c.Params("userId"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(fiber.Map{"wallets": ToResponses(links)})
}

// Disconnect removes one of the authenticated user's wallets.
func (h *Handler) Disconnect(c *fiber.Ctx) error {
	if err := h.service.Disconnect(c.UserContext(), middleware.UserID(c), c.Params("walletId")); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(fiber.Map{"message": "wallet disconnected"})
}

// SetPrimary marks one of the authenticated user's wallets as primary.
func (h *Handler) SetPrimary(c *fiber.Ctx) error {
	link, err := h.service.SetPrimary(c.UserContext(), middleware.UserID(c), c.Params("walletId"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(fiber.Map{"message": "primary wallet updated", "wallet": ToResponse(link)})
}

type labelRequest struct {
	Label string `json:"label"`
}

// UpdateLabel renames one of the authenticated user's wallets.
func (h *Handler) UpdateLabel(c *fiber.Ctx) error {
	var req labelRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	link, err := h.service.UpdateLabel(c.UserContext(), middleware.UserID(c), c.Params("walletId"), req.Label)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(fiber.Map{"wallet": ToResponse(link)})
}

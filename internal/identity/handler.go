package identity

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/playforge/ugc-backend/internal/apperr"
	"github.com/playforge/ugc-backend/internal/auth"
	"github.com/playforge/ugc-backend/internal/middleware"
)

// CredentialIssuer mints a credential pair for a user.
type CredentialIssuer interface {
	Issue(userID string) (auth.TokenPair, error)
}

// Remover deletes a user together with the content they published.
type Remover interface {
	DeleteUser(ctx context.Context, id string) (User, error)
}

// Handler exposes login, device-token and user endpoints.
type Handler struct {
	service *Service
	issuer  CredentialIssuer
	remover Remover
	logger  *slog.Logger
}

// NewHandler constructs an identity HTTP handler. A nil remover deletes the
// user row only.
func NewHandler(service *Service, issuer CredentialIssuer, remover Remover, logger *slog.Logger) *Handler {
	return &Handler{service: service, issuer: issuer, remover: remover, logger: logger}
}

// loginRequest accepts the documented camelCase keys and the snake_case keys
// older launchers still send.
type loginRequest struct {
	Email             string `json:"email"`
	WalletAddress     string `json:"walletAddress"`
	WalletLegacy      string `json:"wallet_address"`
	PhoneNumber       string `json:"phoneNumber"`
	PhoneLegacy       string `json:"mobile_number"`
	DisplayName       string `json:"displayName"`
	NameLegacy        string `json:"name"`
	VerificationToken string `json:"verificationToken"`
}

func (r loginRequest) hints() Hints {
	return Hints{
		Email:         r.Email,
		WalletAddress: firstNonEmpty(r.WalletAddress, r.WalletLegacy),
		Phone:         firstNonEmpty(r.PhoneNumber, r.PhoneLegacy),
		DisplayName:   firstNonEmpty(r.DisplayName, r.NameLegacy),
	}
}

// UserResponse is the public JSON shape of a user.
type UserResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email,omitempty"`
	WalletAddress string    `json:"walletAddress,omitempty"`
	PhoneNumber   string    `json:"phoneNumber,omitempty"`
	Coins         int64     `json:"coins"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ToResponse converts a user to its JSON shape.
func ToResponse(u User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		WalletAddress: u.WalletAddress,
		PhoneNumber:   u.Phone,
		Coins:         u.Coins,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

type sessionResponse struct {
	User        UserResponse   `json:"user"`
	Credentials auth.TokenPair `json:"credentials"`
	IsNew       bool           `json:"isNew"`
}

// Login resolves the caller's hints to one account and issues credentials.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, created, err := h.service.Resolve(c.UserContext(), req.hints(), req.VerificationToken)
	if err != nil {
		return h.fail("identity.login", err)
	}
	pair, err := h.issuer.Issue(user.ID)
	if err != nil {
		return h.fail("identity.login", err)
	}
	h.logger.Info("identity.login completed",
		slog.String("user_id", user.ID),
		slog.Bool("is_new", created),
		slog.Bool("device_token", req.VerificationToken != ""),
	)
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.Status(status).JSON(sessionResponse{User: ToResponse(user), Credentials: pair, IsNew: created})
}

type verifyRequest struct {
	VerificationToken string `json:"verificationToken"`
}

// VerifyDeviceToken redeems a single-use device token for credentials.
func (h *Handler) VerifyDeviceToken(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.service.ConsumeVerificationToken(c.UserContext(), req.VerificationToken)
	if err != nil {
		return h.fail("identity.verify_device_token", err)
	}
	pair, err := h.issuer.Issue(user.ID)
	if err != nil {
		return h.fail("identity.verify_device_token", err)
	}
	return c.Status(http.StatusOK).JSON(sessionResponse{User: ToResponse(user), Credentials: pair})
}

// Me returns the authenticated user.
func (h *Handler) Me(c *fiber.Ctx) error {
	user, err := h.service.Get(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return h.fail("identity.me", err)
	}
	return c.JSON(ToResponse(user))
}

// Get returns a user by id.
func (h *Handler) Get(c *fiber.Ctx) error {
	user, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail("identity.get", err)
	}
	return c.JSON(ToResponse(user))
}

// List returns every user in creation order.
func (h *Handler) List(c *fiber.Ctx) error {
	users, _, err := h.service.List(c.UserContext(), ListFilter{})
	if err != nil {
		return h.fail("identity.list", err)
	}
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, ToResponse(u))
	}
	return c.JSON(out)
}

type coinsRequest struct {
	Coins *int64 `json:"coins"`
}

// UpdateCoins lets a user set their own coin balance.
func (h *Handler) UpdateCoins(c *fiber.Ctx) error {
	var req coinsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Coins == nil {
		return fiber.NewError(http.StatusBadRequest, "coins is required")
	}
	user, err := h.service.UpdateCoins(c.UserContext(), middleware.UserID(c), c.Params("id"), *req.Coins)
	if err != nil {
		return h.fail("identity.update_coins", err)
	}
	return c.JSON(ToResponse(user))
}

type userRequest struct {
	Name          *string `json:"name"`
	DisplayName   *string `json:"displayName"`
	Email         *string `json:"email"`
	WalletAddress *string `json:"walletAddress"`
	WalletLegacy  *string `json:"wallet_address"`
	PhoneNumber   *string `json:"phoneNumber"`
	PhoneLegacy   *string `json:"mobile_number"`
	Coins         *int64  `json:"coins"`
}

func (r userRequest) patch() Patch {
	return Patch{
		Name:          firstSet(r.DisplayName, r.Name),
		Email:         r.Email,
		WalletAddress: firstSet(r.WalletAddress, r.WalletLegacy),
		Phone:         firstSet(r.PhoneNumber, r.PhoneLegacy),
		Coins:         r.Coins,
	}
}

// Create adds an account directly, without the login matching rules.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req userRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	p := req.patch()
	in := CreateInput{Hints: Hints{
		Email:         deref(p.Email),
		WalletAddress: deref(p.WalletAddress),
		Phone:         deref(p.Phone),
		DisplayName:   deref(p.Name),
	}}
	if p.Coins != nil {
		in.Coins = *p.Coins
	}
	user, err := h.service.Create(c.UserContext(), in)
	if err != nil {
		return h.fail("identity.create", err)
	}
	h.logger.Info("identity.create completed", slog.String("user_id", user.ID), slog.String("actor_id", middleware.UserID(c)))
	return c.Status(http.StatusCreated).JSON(ToResponse(user))
}

// Update changes the caller's own account.
func (h *Handler) Update(c *fiber.Ctx) error {
	var req userRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.service.Update(c.UserContext(), middleware.UserID(c), c.Params("id"), req.patch())
	if err != nil {
		return h.fail("identity.update", err)
	}
	return c.JSON(ToResponse(user))
}

// Delete removes the caller's own account and everything they published.
func (h *Handler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if middleware.UserID(c) != id {
		return h.fail("identity.delete", apperr.Forbidden("cannot delete another user's account"))
	}
	remove := h.service.Delete
	if h.remover != nil {
		remove = h.remover.DeleteUser
	}
	user, err := remove(c.UserContext(), id)
	if err != nil {
		return h.fail("identity.delete", err)
	}
	h.logger.Info("identity.delete completed", slog.String("user_id", user.ID))
	return c.JSON(fiber.Map{"message": "user deleted", "user": ToResponse(user)})
}

func (h *Handler) fail(op string, err error) error {
	fe := apperr.HTTP(err)
	if fe.Code >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", slog.Any("error", err))
	}
	return fe
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstSet(values ...*string) *string {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// ParsePage reads page/limit query parameters with sane bounds.
func ParsePage(c *fiber.Ctx) (page, limit int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	limit, _ = strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

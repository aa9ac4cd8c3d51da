package admin

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/playforge/ugc-backend/internal/apperr"
	"github.com/playforge/ugc-backend/internal/catalog"
	"github.com/playforge/ugc-backend/internal/identity"
	"github.com/playforge/ugc-backend/internal/middleware"
	"github.com/playforge/ugc-backend/internal/wallet"
)

// Handler exposes the admin console endpoints.
type Handler struct {
	accounts     *Service
	overview     *Overview
	sessionTTL   time.Duration
	secureCookie bool
	logger       *slog.Logger
}

// NewHandler builds an admin HTTP handler.
func NewHandler(accounts *Service, overview *Overview, sessionTTL time.Duration, secureCookie bool, logger *slog.Logger) *Handler {
	return &Handler{
		accounts:     accounts,
		overview:     overview,
		sessionTTL:   sessionTTL,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type profileResponse struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func toProfile(a Admin) profileResponse {
	return profileResponse{
		ID:        a.ID,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
		Role:      a.Role,
		CreatedAt: a.CreatedAt,
	}
}

// Register creates an administrator. The public route always grants the admin
// role; super admins come from the admin create command.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	a, err := h.accounts.Register(c.UserContext(), RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      RoleAdmin,
	})
	if err != nil {
		return apperr.HTTP(err)
	}
	h.logger.Info("admin.register completed", slog.String("admin_id", a.ID), slog.String("role", string(a.Role)))
	return c.Status(http.StatusCreated).JSON(fiber.Map{"message": "admin created", "admin": toProfile(a)})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login sets the session cookie; the token never appears in the body.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	a, token, err := h.accounts.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return apperr.HTTP(err)
	}
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		Expires:  time.Now().Add(h.sessionTTL),
		Secure:   h.secureCookie,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{"message": "login successful", "user": toProfile(a)})
}

// Me returns the logged-in administrator.
func (h *Handler) Me(c *fiber.Ctx) error {
	a, err := h.accounts.Profile(c.UserContext(), middleware.AdminID(c))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(toProfile(a))
}

// Stats returns player base counters.
func (h *Handler) Stats(c *fiber.Ctx) error {
	stats, err := h.overview.Stats(c.UserContext())
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(fiber.Map{"stats": stats})
}

type userSummaryResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email,omitempty"`
	PhoneNumber     string    `json:"phoneNumber,omitempty"`
	WalletAddress   string    `json:"walletAddress"`
	PublishedAssets []string  `json:"publishedAssets"`
	Coins           int64     `json:"coins"`
	LastActive      time.Time `json:"lastActive"`
	LinkedWallets   int       `json:"linkedWallets"`
	Role            Status    `json:"role"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Users lists players with paging, search and creator/player filtering.
func (h *Handler) Users(c *fiber.Ctx) error {
	page, limit := identity.ParsePage(c)
	status := c.Query("status", c.Query("role"))
	result, err := h.overview.Users(c.UserContext(), c.Query("search"), Status(status), page, limit)
	if err != nil {
		return apperr.HTTP(err)
	}
	users := make([]userSummaryResponse, 0, len(result.Users))
	for _, s := range result.Users {
		wallet := s.PrimaryWallet
		if wallet == "" {
			wallet = s.User.WalletAddress
		}
		users = append(users, userSummaryResponse{
			ID:              s.User.ID,
			Name:            s.User.Name,
			Email:           s.User.Email,
			PhoneNumber:     s.User.Phone,
			WalletAddress:   wallet,
			PublishedAssets: s.PublishedTitles,
			Coins:           s.User.Coins,
			LastActive:      s.LastActive,
			LinkedWallets:   s.WalletCount,
			Role:            s.Status,
			CreatedAt:       s.User.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{
		"users":      users,
		"total":      result.Total,
		"page":       result.Page,
		"limit":      result.Limit,
		"totalPages": result.TotalPages(),
	})
}

// User returns one player with wallets and games.
func (h *Handler) User(c *fiber.Ctx) error {
	detail, err := h.overview.User(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(fiber.Map{"user": fiber.Map{
		"profile":        identity.ToResponse(detail.User),
		"role":           detail.Status,
		"wallets":        wallet.ToResponses(detail.Wallets),
		"publishedGames": catalog.ToResponses(detail.Games),
	}})
}

// DeleteUser removes a player.
func (h *Handler) DeleteUser(c *fiber.Ctx) error {
	u, err := h.overview.DeleteUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperr.HTTP(err)
	}
	h.logger.Info("admin.delete_user completed",
		slog.String("admin_id", middleware.AdminID(c)),
		slog.String("user_id", u.ID),
	)
	return c.JSON(fiber.Map{"message": "user deleted", "deleted": identity.ToResponse(u)})
}

type coinsRequest struct {
	Coins *int64 `json:"coins"`
}

// SetCoins overwrites a player's coin balance.
func (h *Handler) SetCoins(c *fiber.Ctx) error {
	var req coinsRequest
	if err := c.BodyParser(&req); err != nil || req.Coins == nil {
		return fiber.NewError(http.StatusBadRequest, "coins must be a non-negative number")
	}
	u, err := h.overview.SetCoins(c.UserContext(), c.Params("id"), *req.Coins)
	if err != nil {
		return apperr.HTTP(err)
	}
	h.logger.Info("admin.set_coins completed",
		slog.String("admin_id", middleware.AdminID(c)),
		slog.String("user_id", u.ID),
		slog.Int64("coins", u.Coins),
	)
	return c.JSON(fiber.Map{"user": identity.ToResponse(u)})
}

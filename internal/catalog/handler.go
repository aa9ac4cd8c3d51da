package catalog

import (
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/playforge/ugc-backend/internal/apperr"
	"github.com/playforge/ugc-backend/internal/middleware"
)

// Handler exposes published-game and game-version endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a catalog HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GameResponse is the JSON shape of a published game.
type GameResponse struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Thumbnail    string    `json:"thumbnail"`
	AuthorName   string    `json:"authorName"`
	FilePath     string    `json:"filePath"`
	ViewCount    int64     `json:"viewCount"`
	InstallCount int64     `json:"installCount"`
	CreatorName  string    `json:"creatorName,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ToResponse converts a game to its JSON shape.
func ToResponse(g Game) GameResponse {
	return GameResponse{
		ID:           g.ID,
		UserID:       g.UserID,
		Title:        g.Title,
		Description:  g.Description,
		Thumbnail:    g.Thumbnail,
		AuthorName:   g.AuthorName,
		FilePath:     g.FilePath,
		ViewCount:    g.ViewCount,
		InstallCount: g.InstallCount,
		CreatorName:  g.CreatorName,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
}

// ToResponses converts a slice of games.
func ToResponses(games []Game) []GameResponse {
	out := make([]GameResponse, 0, len(games))
	for _, g := range games {
		out = append(out, ToResponse(g))
	}
	return out
}

// Publish accepts a multipart upload with a thumbnail and a game build.
func (h *Handler) Publish(c *fiber.Ctx) error {
	thumbnail, closeThumb, err := formUpload(c, "thumbnail")
	if err != nil {
		return err
	}
	defer closeThumb()
	gameFile, closeGame, err := formUpload(c, "gameFile")
	if err != nil {
		return err
	}
	defer closeGame()

	authorName := c.FormValue("authorName")
	if authorName == "" {
		authorName = c.FormValue("author_name")
	}
	game, err := h.service.Publish(c.UserContext(), PublishInput{
		UserID:      middleware.UserID(c),
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		AuthorName:  authorName,
		Thumbnail:   thumbnail,
		GameFile:    gameFile,
	})
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ToResponse(game)})
}

// formUpload opens the named multipart file. A missing file yields a nil
// upload so the service reports which inputs are required.
func formUpload(c *fiber.Ctx, field string) (*Upload, func(), error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, func() {}, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, fiber.NewError(http.StatusBadRequest, "unreadable "+field)
	}
	return &Upload{Filename: fh.Filename, Body: f}, closer(f), nil
}

func closer(f multipart.File) func() {
	return func() { _ = f.Close() }
}

// List returns every published game.
func (h *Handler) List(c *fiber.Ctx) error {
	games, err := h.service.List(c.UserContext())
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(ToResponses(games))
}

// Mine returns the authenticated user's games.
func (h *Handler) Mine(c *fiber.Ctx) error {
	games, err := h.service.ListByUser(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(fiber.Map{"count": len(games), "data": ToResponses(games)})
}

// Get returns a game and counts the view.
func (h *Handler) Get(c *fiber.Ctx) error {
	game, err := h.service.View(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(ToResponse(game))
}

// Delete removes one of the authenticated user's games.
func (h *Handler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(fiber.Map{"message": "game removed"})
}

// CountView increments the view counter.
func (h *Handler) CountView(c *fiber.Ctx) error {
	n, err := h.service.Increment(c.UserContext(), c.Params("id"), Views)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(fiber.Map{"viewCount": n})
}

// CountInstall increments the install counter.
func (h *Handler) CountInstall(c *fiber.Ctx) error {
	n, err := h.service.Increment(c.UserContext(), c.Params("id"), Installs)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(fiber.Map{"installCount": n})
}

type versionRequest struct {
	Title   string `json:"title"`
	Version string `json:"version"`
	Link    string `json:"link"`
}

type versionResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Version   string    `json:"version"`
	Link      string    `json:"link"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toVersionResponse(v Version) versionResponse {
	return versionResponse{ID: v.ID, Title: v.Title, Version: v.Version, Link: v.Link, CreatedAt: v.CreatedAt, UpdatedAt: v.UpdatedAt}
}

// CreateVersion records a launcher release.
func (h *Handler) CreateVersion(c *fiber.Ctx) error {
	var req versionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	v, err := h.service.CreateVersion(c.UserContext(), req.Title, req.Version, req.Link)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.Status(http.StatusCreated).JSON(toVersionResponse(v))
}

// GetVersion returns a launcher release.
func (h *Handler) GetVersion(c *fiber.Ctx) error {
	v, err := h.service.GetVersion(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(toVersionResponse(v))
}

// UpdateVersion replaces a release's version and link.
func (h *Handler) UpdateVersion(c *fiber.Ctx) error {
	var req versionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	v, err := h.service.UpdateVersion(c.UserContext(), c.Params("id"), req.Version, req.Link)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(toVersionResponse(v))
}

// DeleteVersion removes a launcher release.
func (h *Handler) DeleteVersion(c *fiber.Ctx) error {
	if err := h.service.DeleteVersion(c.UserContext(), c.Params("id")); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(fiber.Map{"message": "game version deleted"})
}

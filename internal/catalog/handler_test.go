package catalog

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playforge/ugc-backend/internal/middleware"
)

func newTestApp(t *testing.T, userID string) *fiber.App {
	t.Helper()
	svc, _ := newTestService(t)
	h := NewHandler(svc)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(middleware.UserIDKey, userID)
		return c.Next()
	})
	app.Post("/games", h.Publish)
	app.Get("/games", h.List)
	app.Get("/games/my-games", h.Mine)
	app.Get("/games/:id", h.Get)
	app.Delete("/games/:id", h.Delete)
	app.Put("/games/:id/view", h.CountView)
	app.Put("/games/:id/install", h.CountInstall)
	app.Post("/versions", h.CreateVersion)
	app.Get("/versions/:id", h.GetVersion)
	return app
}

func multipartBody(t *testing.T, files map[string]string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for field, name := range files {
		part, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte("content of " + name))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestPublishHandler(t *testing.T) {
	app := newTestApp(t, uuid.NewString())

	body, ctype := multipartBody(t,
		map[string]string{"thumbnail": "t.png", "gameFile": "g.zip"},
		map[string]string{"title": "Orbit", "description": "space", "authorName": "Ada"})
	req := httptest.NewRequest(http.MethodPost, "/games", body)
	req.Header.Set(fiber.HeaderContentType, ctype)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Data GameResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "Orbit", created.Data.Title)
	assert.Equal(t, "Ada", created.Data.AuthorName)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/games/my-games", nil))
	require.NoError(t, err)
	var mine struct {
		Count int            `json:"count"`
		Data  []GameResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&mine))
	assert.Equal(t, 1, mine.Count)

	resp, err = app.Test(httptest.NewRequest(http.MethodPut, "/games/"+created.Data.ID+"/install", nil))
	require.NoError(t, err)
	var counter map[string]int64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&counter))
	assert.Equal(t, int64(1), counter["installCount"])

	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/games/"+created.Data.ID, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPublishHandlerMissingFile(t *testing.T) {
	app := newTestApp(t, uuid.NewString())

	body, ctype := multipartBody(t, map[string]string{"thumbnail": "t.png"}, map[string]string{"title": "Half"})
	req := httptest.NewRequest(http.MethodPost, "/games", body)
	req.Header.Set(fiber.HeaderContentType, ctype)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestVersionHandlers(t *testing.T) {
	app := newTestApp(t, uuid.NewString())

	req := httptest.NewRequest(http.MethodPost, "/versions", strings.NewReader(`{"title":"Launcher","version":"2.0","link":"https://dl.example"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var v versionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/versions/"+v.ID, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/versions/"+uuid.NewString(), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

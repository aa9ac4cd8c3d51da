package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playforge/ugc-backend/internal/logging"
)

func TestRequestIDAndAudit(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID(), Audit(logging.Discard()))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString(RequestIDFrom(c)) })
	app.Get("/fail", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusConflict, "nope") })

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ping", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))

	req := httptest.NewRequest(fiber.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "fixed-id")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", resp.Header.Get(requestIDHeader))

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/fail", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestRequestIDReplacesOversizedHeader(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(RequestIDFrom(c)) })

	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, strings.Repeat("x", maxRequestIDLen+1))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Len(t, resp.Header.Get(requestIDHeader), 36)
}

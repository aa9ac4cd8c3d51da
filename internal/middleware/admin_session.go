package middleware

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// AdminIDKey is the fiber local holding the authenticated administrator id.
const AdminIDKey = "admin_id"

// SessionVerifier resolves an admin session token to an administrator id.
type SessionVerifier interface {
	VerifySession(token string) (string, error)
}

// AdminSession requires a valid admin session cookie. A missing cookie is
// 401; a cookie that fails verification is 403.
func AdminSession(cookie string, verifier SessionVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(cookie)
		if token == "" {
			return fiber.NewError(http.StatusUnauthorized, "authentication required")
		}
		id, err := verifier.VerifySession(token)
		if err != nil {
			return fiber.NewError(http.StatusForbidden, "invalid or expired session")
		}
		c.Locals(AdminIDKey, id)
		return c.Next()
	}
}

// AdminID returns the authenticated administrator id.
func AdminID(c *fiber.Ctx) string {
	id, _ := c.Locals(AdminIDKey).(string)
	return id
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UserIDKey is the fiber local holding the authenticated user identifier.
const UserIDKey = "user_id"

// AccessVerifier resolves an access credential to a user identifier.
type AccessVerifier interface {
	ParseAccess(token string) (string, error)
}

// JWTAuth returns a middleware that requires a valid bearer access token.
func JWTAuth(verifier AccessVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr, ok := bearerToken(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "authorization header missing or invalid")
		}
		sub, err := verifier.ParseAccess(tokenStr)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid or expired token")
		}
		c.Locals(UserIDKey, sub)
		return c.Next()
	}
}

// OptionalJWTAuth records the caller when a valid bearer token is present and
// lets anonymous requests through.
func OptionalJWTAuth(verifier AccessVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if tokenStr, ok := bearerToken(c); ok {
			if sub, err := verifier.ParseAccess(tokenStr); err == nil {
				c.Locals(UserIDKey, sub)
			}
		}
		return c.Next()
	}
}

// UserID returns the authenticated user identifier, or "" for anonymous callers.
func UserID(c *fiber.Ctx) string {
	uid, _ := c.Locals(UserIDKey).(string)
	return uid
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	authz := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(authz[len("Bearer "):])
	return token, token != ""
}

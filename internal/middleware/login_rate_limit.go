package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

type loginIdentity struct {
	Email         string `json:"email"`
	WalletAddress string `json:"walletAddress"`
	WalletLegacy  string `json:"wallet_address"`
	Phone         string `json:"phoneNumber"`
	PhoneLegacy   string `json:"mobile_number"`
}

func (l loginIdentity) key() string {
	for _, v := range []string{l.Email, l.WalletAddress, l.WalletLegacy, l.Phone, l.PhoneLegacy} {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			return v
		}
	}
	return ""
}

// LoginRateLimit limits login attempts per identity (email, wallet or phone) or
// IP within scope, using Redis if available.
func LoginRateLimit(cache *redis.Client, scope string, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next() // no-op without Redis
		}
		var req loginIdentity
		_ = c.BodyParser(&req)
		subject := req.key()
		if subject == "" {
			subject = c.IP()
		}
		key := "rl:" + scope + ":" + subject
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			return c.Next() // fail-open on cache errors
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many login attempts, try again later")
		}
		return c.Next()
	}
}

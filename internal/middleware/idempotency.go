package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	replayedHeader       = "Idempotent-Replayed"
	idempotencyPrefix    = "idem:ugc:"
	pendingMarker        = "pending"
	storeTimeout         = 2 * time.Second
)

var errPending = errors.New("idempotent request still running")

// replay is what gets cached for a completed request. Only the content type is
// kept so cookies and request ids of the first call are never echoed back.
type replay struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

type idempotencyStore struct {
	cache *redis.Client
	ttl   time.Duration
}

// lookup returns the cached replay for key, nil when the key is unseen, or
// errPending when another request holds the reservation.
func (s idempotencyStore) lookup(ctx context.Context, key string) (*replay, error) {
	raw, err := s.cache.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if string(raw) == pendingMarker {
		return nil, errPending
	}
	var r replay
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s idempotencyStore) reserve(ctx context.Context, key string) (bool, error) {
	return s.cache.SetNX(ctx, key, pendingMarker, s.ttl).Result()
}

func (s idempotencyStore) save(ctx context.Context, key string, r replay) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, key, payload, s.ttl).Err()
}

func (s idempotencyStore) release(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	s.cache.Del(ctx, key)
}

// callerScope keys replays by the authenticated player or admin, falling back
// to the client IP for anonymous calls.
func callerScope(c *fiber.Ctx) string {
	if id := UserID(c); id != "" {
		return "user:" + id
	}
	if id := AdminID(c); id != "" {
		return "admin:" + id
	}
	return "ip:" + c.IP()
}

// Idempotency replays the stored response of a write request whose
// Idempotency-Key header was already seen for the same caller and route.
// Requests without the header, and all requests when cache is nil, pass
// straight through. Server errors are not stored, so the client may retry.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	store := idempotencyStore{cache: cache, ttl: ttl}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}
		key := c.Get(idempotencyKeyHeader)
		if key == "" {
			return c.Next()
		}
		cacheKey := idempotencyPrefix + callerScope(c) + ":" + c.Method() + ":" + c.Path() + ":" + key

		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		prior, err := store.lookup(ctx, cacheKey)
		switch {
		case errors.Is(err, errPending):
			return fiber.NewError(http.StatusConflict, "duplicate request currently processing")
		case err != nil:
			logger.Error("idempotency lookup failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(http.StatusInternalServerError, "idempotency store failure")
		case prior != nil:
			c.Set(replayedHeader, "true")
			if prior.ContentType != "" {
				c.Set(fiber.HeaderContentType, prior.ContentType)
			}
			return c.Status(prior.Status).Send(prior.Body)
		}

		reserved, err := store.reserve(ctx, cacheKey)
		if err != nil {
			logger.Error("idempotency reservation failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(http.StatusInternalServerError, "idempotency store failure")
		}
		if !reserved {
			return fiber.NewError(http.StatusConflict, "duplicate request currently processing")
		}

		if err := c.Next(); err != nil {
			store.release(cacheKey)
			return err
		}

		status := c.Response().StatusCode()
		if status >= http.StatusInternalServerError {
			store.release(cacheKey)
			return nil
		}
		r := replay{
			Status:      status,
			ContentType: string(c.Response().Header.ContentType()),
			Body:        append([]byte(nil), c.Response().Body()...),
		}
		if err := store.save(ctx, cacheKey, r); err != nil {
			logger.Warn("idempotent response not stored", slog.String("key", key), slog.Any("error", err))
			store.release(cacheKey)
		}
		return nil
	}
}

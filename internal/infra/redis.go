package infra

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to the cache backing idempotency and login rate
// limits. An empty url returns a nil client and both features switch off.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	if opt.ClientName == "" {
		opt.ClientName = "ugc-backend"
	}
	opt.DialTimeout = connectDeadline

	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, connectDeadline)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis unreachable: %w", err)
	}
	return client, nil
}

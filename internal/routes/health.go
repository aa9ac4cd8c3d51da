package routes

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
)

const probeTimeout = 2 * time.Second

type probe struct {
	name  string
	check func(ctx context.Context) error
}

// healthProbes lists the dependencies a request may touch. Postgres and Redis
// are skipped when not configured; storage is always present.
func healthProbes(d Deps) (probes []probe, disabled []string) {
	if d.DB != nil {
		probes = append(probes, probe{"postgres", func(ctx context.Context) error { return d.DB.Ping(ctx) }})
	} else {
		disabled = append(disabled, "postgres")
	}
	if d.Cache != nil {
		probes = append(probes, probe{"redis", func(ctx context.Context) error { return d.Cache.Ping(ctx).Err() }})
	} else {
		disabled = append(disabled, "redis")
	}
	probes = append(probes, probe{"storage", func(context.Context) error {
		_, err := os.Stat(d.Blobs.Root())
		return err
	}})
	return probes, disabled
}

// RegisterHealthRoutes adds the readiness endpoint under both its probe path
// and the API path the launcher polls.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	probes, disabled := healthProbes(d)

	handler := func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), probeTimeout)
		defer cancel()

		checks := fiber.Map{}
		for _, name := range disabled {
			checks[name] = "disabled"
		}
		status := http.StatusOK
		for _, p := range probes {
			if err := p.check(ctx); err != nil {
				d.Logger.Warn("health probe failed", slog.String("dependency", p.name), slog.Any("error", err))
				checks[p.name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			checks[p.name] = "ok"
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    checks,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	}
	app.Get("/healthz", handler)
	app.Get("/api/health", handler)
}

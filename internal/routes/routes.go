package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/playforge/ugc-backend/internal/admin"
	"github.com/playforge/ugc-backend/internal/auth"
	"github.com/playforge/ugc-backend/internal/catalog"
	"github.com/playforge/ugc-backend/internal/config"
	"github.com/playforge/ugc-backend/internal/identity"
	"github.com/playforge/ugc-backend/internal/middleware"
	"github.com/playforge/ugc-backend/internal/storage"
	"github.com/playforge/ugc-backend/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Blobs  *storage.Local
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Blobs == nil {
		return fmt.Errorf("storage is required")
	}

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)
	app.Static(storage.PublicPrefix, d.Blobs.Root(), fiber.Static{Browse: false})

	var (
		identityRepo identity.Repository
		walletRepo   wallet.Repository
		catalogRepo  catalog.Repository
		adminRepo    admin.Repository
	)
	walletRepo = wallet.NewMemoryRepository()
	identityRepo = identity.NewMemoryRepositoryWithLinks(func(ctx context.Context, address string) (string, bool) {
		link, err := walletRepo.FindByAddress(ctx, address)
		return link.UserID, err == nil
	})
	adminRepo = admin.NewMemoryRepository()
	if d.DB != nil {
		identityRepo = identity.NewPostgresRepository(d.DB)
		walletRepo = wallet.NewPostgresRepository(d.DB)
		catalogRepo = catalog.NewPostgresRepository(d.DB)
		adminRepo = admin.NewPostgresRepository(d.DB)
	} else {
		d.Logger.Warn("DATABASE_URL not set; using in-memory stores")
	}

	identitySvc := identity.NewService(identityRepo, d.Cfg.VerificationTokenTTL)
	if catalogRepo == nil {
		catalogRepo = catalog.NewMemoryRepository(func(ctx context.Context, userID string) string {
			u, err := identitySvc.Get(ctx, userID)
			if err != nil {
				return ""
			}
			return u.Name
		})
	}
	credentials := auth.NewService(auth.Options{
		AccessSecret:  d.Cfg.JWTSecret,
		RefreshSecret: d.Cfg.RefreshSecret,
		AccessTTL:     d.Cfg.AccessTokenTTL,
		RefreshTTL:    d.Cfg.RefreshTokenTTL,
		Issuer:        d.Cfg.AppName,
	})
	walletSvc := wallet.NewService(walletRepo, identityRepo)
	catalogSvc := catalog.NewService(catalogRepo, d.Blobs, d.Logger)
	sessions := admin.NewSessions(d.Cfg.AdminJWTSecret, d.Cfg.AdminSessionTTL)
	adminSvc := admin.NewService(adminRepo, sessions)
	overview := admin.NewOverview(identitySvc, walletSvc, catalogSvc)

	identityHandler := identity.NewHandler(identitySvc, credentials, overview, d.Logger)
	authHandler := auth.NewHandler(credentials)
	walletHandler := wallet.NewHandler(walletSvc)
	catalogHandler := catalog.NewHandler(catalogSvc)
	adminHandler := admin.NewHandler(adminSvc, overview, d.Cfg.AdminSessionTTL, d.Cfg.CookieSecure, d.Logger)

	requireUser := middleware.JWTAuth(credentials)
	optionalUser := middleware.OptionalJWTAuth(credentials)
	idempotent := middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)

	api := app.Group("/api")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterAuthRoutes(api, identityHandler, authHandler,
		middleware.LoginRateLimit(d.Cache, "login", d.Cfg.LoginRateLimit))
	RegisterUserRoutes(api, identityHandler, requireUser,
		middleware.LoginRateLimit(d.Cache, "login", d.Cfg.LoginRateLimit))
	RegisterWalletRoutes(api, walletHandler, requireUser, idempotent)
	RegisterCatalogRoutes(api, catalogHandler, requireUser, optionalUser, idempotent)
	RegisterAdminRoutes(api, adminHandler,
		middleware.AdminSession(admin.CookieName, sessions),
		middleware.LoginRateLimit(d.Cache, "admin_login", d.Cfg.LoginRateLimit))

	return nil
}

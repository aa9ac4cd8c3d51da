package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v3"

	"github.com/playforge/ugc-backend/internal/admin"
	"github.com/playforge/ugc-backend/internal/config"
	"github.com/playforge/ugc-backend/internal/database"
	"github.com/playforge/ugc-backend/internal/infra"
	"github.com/playforge/ugc-backend/internal/logging"
	"github.com/playforge/ugc-backend/internal/server"
	"github.com/playforge/ugc-backend/internal/storage"
)

func main() {
	cmd := &cli.Command{
		Name:   "ugc-backend",
		Usage:  "PlayForge UGC platform API",
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP API",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "Manage the database schema",
				Commands: []*cli.Command{
					{Name: "up", Usage: "Apply pending migrations", Action: migrate(database.Migrate)},
					{Name: "down", Usage: "Roll back the last migration", Action: migrate(database.MigrateDown)},
					{Name: "status", Usage: "Print migration status", Action: migrate(database.Status)},
				},
			},
			{
				Name:  "admin",
				Usage: "Manage console administrators",
				Commands: []*cli.Command{
					{
						Name:  "create",
						Usage: "Create a super admin account",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "email", Required: true, Usage: "Login email"},
							&cli.StringFlag{Name: "password", Required: true, Usage: "Login password", Sources: cli.EnvVars("ADMIN_PASSWORD")},
							&cli.StringFlag{Name: "first-name", Value: "Super", Usage: "Given name"},
							&cli.StringFlag{Name: "last-name", Value: "Admin", Usage: "Family name"},
						},
						Action: createAdmin,
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, _ *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" || !cfg.IsDev() {
		db, err = infra.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}

	cache, err := infra.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if cache != nil {
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	}

	blobs, err := storage.NewLocal(cfg.StorageDir)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, db, cache, blobs, logger)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()
	logger.Info("server listening", "address", cfg.Address(), "env", cfg.AppEnv)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("server exited cleanly")
	return nil
}

func migrate(run func(context.Context, *pgxpool.Pool) error) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		return run(ctx, db)
	}
}

func createAdmin(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	accounts := admin.NewService(admin.NewPostgresRepository(db), admin.NewSessions(cfg.AdminJWTSecret, cfg.AdminSessionTTL))
	created, err := accounts.Register(ctx, admin.RegisterInput{
		FirstName: cmd.String("first-name"),
		LastName:  cmd.String("last-name"),
		Email:     cmd.String("email"),
		Password:  cmd.String("password"),
		Role:      admin.RoleSuperAdmin,
	})
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	logger.Info("admin created", slog.String("admin_id", created.ID), slog.String("email", created.Email))
	return nil
}

// Package database owns the embedded schema migrations.
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const migrationsDir = "migrations"

func prepare(pool *pgxpool.Pool) (*sql.DB, error) {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, err
	}
	return stdlib.OpenDBFromPool(pool), nil
}

// Migrate applies all pending migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db, err := prepare(pool)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// MigrateDown rolls back the last migration.
func MigrateDown(ctx context.Context, pool *pgxpool.Pool) error {
	db, err := prepare(pool)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := goose.DownContext(ctx, db, migrationsDir); err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Status prints the applied state of every migration.
func Status(ctx context.Context, pool *pgxpool.Pool) error {
	db, err := prepare(pool)
	if err != nil {
		return err
	}
	defer db.Close()

	return goose.StatusContext(ctx, db, migrationsDir)
}

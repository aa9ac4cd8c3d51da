package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/playforge/ugc-backend/internal/apperr"
)

// Repository persists published games and launcher versions.
type Repository interface {
	CreateGame(ctx context.Context, game Game) error
	// ListGames returns games newest first; an empty userID lists everyone's.
	ListGames(ctx context.Context, userID string) ([]Game, error)
	// ViewGame increments the view counter and returns the updated game.
	ViewGame(ctx context.Context, id string) (Game, error)
	DeleteOwnedGame(ctx context.Context, userID, id string) (Game, error)
	Increment(ctx context.Context, id string, counter Counter) (int64, error)
	CountGames(ctx context.Context) (int, error)
	// CreatorIDs returns the distinct users that published at least one game.
	CreatorIDs(ctx context.Context) ([]string, error)

	CreateVersion(ctx context.Context, v Version) error
	GetVersion(ctx context.Context, id string) (Version, error)
	UpdateVersion(ctx context.Context, v Version) (Version, error)
	DeleteVersion(ctx context.Context, id string) error
}

const gameColumns = `pg.id, pg.user_id, pg.title, pg.description, pg.thumbnail, pg.author_name, pg.file_path,
        pg.view_count, pg.install_count, COALESCE(u.name, ''), pg.created_at, pg.updated_at`

const versionColumns = `id, title, version, link, created_at, updated_at`

// PostgresRepository stores catalog entries in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateGame(ctx context.Context, g Game) error {
	gameID, err := uuid.Parse(g.ID)
	if err != nil {
		return apperr.Validation("invalid game id")
	}
	ownerID, err := uuid.Parse(g.UserID)
	if err != nil {
		return apperr.Validation("invalid user id")
	}
	_, err = r.db.Exec(ctx, `INSERT INTO published_games
        (id, user_id, title, description, thumbnail, author_name, file_path, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		gameID, ownerID, g.Title, g.Description, g.Thumbnail, g.AuthorName, g.FilePath, g.CreatedAt.UTC(), g.UpdatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperr.NotFound("user not found")
		}
		return apperr.Store("insert game", err)
	}
	return nil
}

func (r *PostgresRepository) ListGames(ctx context.Context, userID string) ([]Game, error) {
	query := `SELECT ` + gameColumns + ` FROM published_games pg LEFT JOIN users u ON u.id = pg.user_id`
	var args []any
	if userID != "" {
		ownerID, err := uuid.Parse(userID)
		if err != nil {
			return []Game{}, nil
		}
		query += ` WHERE pg.user_id = $1`
		args = append(args, ownerID)
	}
	query += ` ORDER BY pg.created_at DESC, pg.id ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Store("list games", err)
	}
	defer rows.Close()

	games := make([]Game, 0)
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, apperr.Store("scan game", err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store("list games", err)
	}
	return games, nil
}

func (r *PostgresRepository) ViewGame(ctx context.Context, id string) (Game, error) {
	gameID, err := uuid.Parse(id)
	if err != nil {
		return Game{}, apperr.NotFound("game not found")
	}
	return r.findGame(ctx, `WITH pg AS (
            UPDATE published_games SET view_count = view_count + 1 WHERE id = $1 RETURNING *)
        SELECT `+gameColumns+` FROM pg LEFT JOIN users u ON u.id = pg.user_id`, gameID)
}

func (r *PostgresRepository) DeleteOwnedGame(ctx context.Context, userID, id string) (Game, error) {
	gameID, err := uuid.Parse(id)
	if err != nil {
		return Game{}, apperr.NotFound("game not found")
	}
	ownerID, err := uuid.Parse(userID)
	if err != nil {
		return Game{}, apperr.NotFound("game not found")
	}
	return r.findGame(ctx, `WITH pg AS (
            DELETE FROM published_games WHERE id = $1 AND user_id = $2 RETURNING *)
        SELECT `+gameColumns+` FROM pg LEFT JOIN users u ON u.id = pg.user_id`, gameID, ownerID)
}

func (r *PostgresRepository) Increment(ctx context.Context, id string, counter Counter) (int64, error) {
	column, ok := counter.column()
	if !ok {
		return 0, apperr.Validation("unknown counter")
	}
	gameID, err := uuid.Parse(id)
	if err != nil {
		return 0, apperr.NotFound("game not found")
	}
	var n int64
	err = r.db.QueryRow(ctx, `UPDATE published_games SET `+column+` = `+column+` + 1 WHERE id = $1 RETURNING `+column, gameID).Scan(&n)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperr.NotFound("game not found")
		}
		return 0, apperr.Store("increment "+column, err)
	}
	return n, nil
}

func (r *PostgresRepository) CountGames(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM published_games`).Scan(&n); err != nil {
		return 0, apperr.Store("count games", err)
	}
	return n, nil
}

func (r *PostgresRepository) CreatorIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT user_id FROM published_games`)
	if err != nil {
		return nil, apperr.Store("list creators", err)
	}
	defer rows.Close()
	ids := make([]string, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.Store("scan creator", err)
		}
		ids = append(ids, id.String())
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store("list creators", err)
	}
	return ids, nil
}

func (r *PostgresRepository) CreateVersion(ctx context.Context, v Version) error {
	versionID, err := uuid.Parse(v.ID)
	if err != nil {
		return apperr.Validation("invalid version id")
	}
	_, err = r.db.Exec(ctx, `INSERT INTO game_versions (id, title, version, link, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)`, versionID, v.Title, v.Version, v.Link, v.CreatedAt.UTC(), v.UpdatedAt.UTC())
	if err != nil {
		return apperr.Store("insert version", err)
	}
	return nil
}

func (r *PostgresRepository) GetVersion(ctx context.Context, id string) (Version, error) {
	versionID, err := uuid.Parse(id)
	if err != nil {
		return Version{}, apperr.NotFound("game version not found")
	}
	return r.findVersion(ctx, `SELECT `+versionColumns+` FROM game_versions WHERE id = $1`, versionID)
}

func (r *PostgresRepository) UpdateVersion(ctx context.Context, v Version) (Version, error) {
	versionID, err := uuid.Parse(v.ID)
	if err != nil {
		return Version{}, apperr.NotFound("game version not found")
	}
	return r.findVersion(ctx, `UPDATE game_versions SET version = $2, link = $3, updated_at = $4
        WHERE id = $1 RETURNING `+versionColumns, versionID, v.Version, v.Link, v.UpdatedAt.UTC())
}

func (r *PostgresRepository) DeleteVersion(ctx context.Context, id string) error {
	versionID, err := uuid.Parse(id)
	if err != nil {
		return apperr.NotFound("game version not found")
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM game_versions WHERE id = $1`, versionID)
	if err != nil {
		return apperr.Store("delete version", err)
	}
	if cmd.RowsAffected() == 0 {
		return apperr.NotFound("game version not found")
	}
	return nil
}

func (r *PostgresRepository) findGame(ctx context.Context, query string, args ...any) (Game, error) {
	g, err := scanGame(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Game{}, apperr.NotFound("game not found")
		}
		return Game{}, apperr.Store("select game", err)
	}
	return g, nil
}

func (r *PostgresRepository) findVersion(ctx context.Context, query string, args ...any) (Version, error) {
	var (
		id uuid.UUID
		v  Version
	)
	err := r.db.QueryRow(ctx, query, args...).Scan(&id, &v.Title, &v.Version, &v.Link, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Version{}, apperr.NotFound("game version not found")
		}
		return Version{}, apperr.Store("select version", err)
	}
	v.ID = id.String()
	v.CreatedAt = v.CreatedAt.UTC()
	v.UpdatedAt = v.UpdatedAt.UTC()
	return v, nil
}

func scanGame(row pgx.Row) (Game, error) {
	var (
		id, userID uuid.UUID
		g          Game
	)
	err := row.Scan(&id, &userID, &g.Title, &g.Description, &g.Thumbnail, &g.AuthorName, &g.FilePath,
		&g.ViewCount, &g.InstallCount, &g.CreatorName, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return Game{}, err
	}
	g.ID = id.String()
	g.UserID = userID.String()
	g.CreatedAt = g.CreatedAt.UTC()
	g.UpdatedAt = g.UpdatedAt.UTC()
	return g, nil
}

package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/playforge/ugc-backend/internal/apperr"
)

// Repository persists wallet links.
type Repository interface {
	InTx(ctx context.Context, fn func(tx Repository) error) error

	FindByAddress(ctx context.Context, address string) (Link, error)
	// FindOwned returns the link only when it belongs to userID.
	FindOwned(ctx context.Context, userID, id string) (Link, error)
	ListByUser(ctx context.Context, userID string) ([]Link, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	// CountLinkedUsers returns how many distinct users hold at least one link.
	CountLinkedUsers(ctx context.Context) (int, error)
	Create(ctx context.Context, link Link) error
	Delete(ctx context.Context, id string) error
	ClearPrimary(ctx context.Context, userID string) error
	MarkPrimary(ctx context.Context, id string) (Link, error)
	// PromoteOldest marks the earliest connected link of a user as primary.
	PromoteOldest(ctx context.Context, userID string) error
	UpdateLabel(ctx context.Context, userID, id, label string) (Link, error)
}

const linkColumns = `id, user_id, wallet_address, wallet_type, chain_id, COALESCE(label, ''), is_primary, connected_at`

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores wallet links in PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
	db   querier
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: db, db: db}
}

func (r *PostgresRepository) InTx(ctx context.Context, fn func(tx Repository) error) error {
	if r.pool == nil {
		return fn(r)
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return apperr.Store("begin tx", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(&PostgresRepository{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapWriteErr("commit tx", err)
	}
	return nil
}

// FindByAddress fetches the link holding an address.
func (r *PostgresRepository) FindByAddress(ctx context.Context, address string) (Link, error) {
	return r.findOne(ctx, `SELECT `+linkColumns+` FROM user_wallets WHERE wallet_address = $1`, address)
}

func (r *PostgresRepository) FindOwned(ctx context.Context, userID, id string) (Link, error) {
	linkID, err := uuid.Parse(id)
	if err != nil {
		return Link{}, apperr.NotFound("wallet not found")
	}
	ownerID, err := uuid.Parse(userID)
	if err != nil {
		return Link{}, apperr.NotFound("wallet not found")
	}
	query := `SELECT ` + linkColumns + ` FROM user_wallets WHERE id = $1 AND user_id = $2`
	if r.pool == nil {
		query += " FOR UPDATE"
	}
	return r.findOne(ctx, query, linkID, ownerID)
}

// ListByUser returns the primary link first, then the rest by connection time.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Link, error) {
	ownerID, err := uuid.Parse(userID)
	if err != nil {
		return []Link{}, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+linkColumns+` FROM user_wallets WHERE user_id = $1
        ORDER BY is_primary DESC, connected_at ASC, id ASC`, ownerID)
	if err != nil {
		return nil, apperr.Store("list wallets", err)
	}
	defer rows.Close()

	links := make([]Link, 0)
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, apperr.Store("scan wallet", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store("list wallets", err)
	}
	return links, nil
}

func (r *PostgresRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	ownerID, err := uuid.Parse(userID)
	if err != nil {
		return 0, nil
	}
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM user_wallets WHERE user_id = $1`, ownerID).Scan(&n); err != nil {
		return 0, apperr.Store("count wallets", err)
	}
	return n, nil
}

func (r *PostgresRepository) CountLinkedUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(DISTINCT user_id) FROM user_wallets`).Scan(&n); err != nil {
		return 0, apperr.Store("count wallet users", err)
	}
	return n, nil
}

// Create inserts a wallet link.
func (r *PostgresRepository) Create(ctx context.Context, link Link) error {
	linkID, err := uuid.Parse(link.ID)
	if err != nil {
		return apperr.Validation("invalid wallet id")
	}
	ownerID, err := uuid.Parse(link.UserID)
	if err != nil {
		return apperr.Validation("invalid user id")
	}
	_, err = r.db.Exec(ctx, `INSERT INTO user_wallets (id, user_id, wallet_address, wallet_type, chain_id, label, is_primary, connected_at)
        VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)`,
		linkID, ownerID, link.Address, link.Type, link.ChainID, link.Label, link.Primary, link.ConnectedAt.UTC())
	return mapWriteErr("insert wallet", err)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	linkID, err := uuid.Parse(id)
	if err != nil {
		return apperr.NotFound("wallet not found")
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM user_wallets WHERE id = $1`, linkID)
	if err != nil {
		return apperr.Store("delete wallet", err)
	}
	if cmd.RowsAffected() == 0 {
		return apperr.NotFound("wallet not found")
	}
	return nil
}

func (r *PostgresRepository) ClearPrimary(ctx context.Context, userID string) error {
	ownerID, err := uuid.Parse(userID)
	if err != nil {
		return apperr.NotFound("wallet not found")
	}
	if _, err := r.db.Exec(ctx, `UPDATE user_wallets SET is_primary = FALSE WHERE user_id = $1 AND is_primary`, ownerID); err != nil {
		return apperr.Store("clear primary wallet", err)
	}
	return nil
}

func (r *PostgresRepository) MarkPrimary(ctx context.Context, id string) (Link, error) {
	linkID, err := uuid.Parse(id)
	if err != nil {
		return Link{}, apperr.NotFound("wallet not found")
	}
	return r.findOne(ctx, `UPDATE user_wallets SET is_primary = TRUE WHERE id = $1 RETURNING `+linkColumns, linkID)
}

func (r *PostgresRepository) PromoteOldest(ctx context.Context, userID string) error {
	ownerID, err := uuid.Parse(userID)
	if err != nil {
		return nil
	}
	_, err = r.db.Exec(ctx, `UPDATE user_wallets SET is_primary = TRUE WHERE id = (
        SELECT id FROM user_wallets WHERE user_id = $1 ORDER BY connected_at ASC, id ASC LIMIT 1)`, ownerID)
	if err != nil {
		return apperr.Store("promote wallet", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateLabel(ctx context.Context, userID, id, label string) (Link, error) {
	linkID, err := uuid.Parse(id)
	if err != nil {
		return Link{}, apperr.NotFound("wallet not found")
	}
	ownerID, err := uuid.Parse(userID)
	if err != nil {
		return Link{}, apperr.NotFound("wallet not found")
	}
	return r.findOne(ctx, `UPDATE user_wallets SET label = $3 WHERE id = $1 AND user_id = $2 RETURNING `+linkColumns,
		linkID, ownerID, label)
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, args ...any) (Link, error) {
	link, err := scanLink(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Link{}, apperr.NotFound("wallet not found")
		}
		return Link{}, apperr.Store("select wallet", err)
	}
	return link, nil
}

func scanLink(row pgx.Row) (Link, error) {
	var (
		id, userID uuid.UUID
		chainID    *int32
		link       Link
	)
	if err := row.Scan(&id, &userID, &link.Address, &link.Type, &chainID, &link.Label, &link.Primary, &link.ConnectedAt); err != nil {
		return Link{}, err
	}
	link.ID = id.String()
	link.UserID = userID.String()
	if chainID != nil {
		v := int64(*chainID)
		link.ChainID = &v
	}
	link.ConnectedAt = link.ConnectedAt.UTC()
	return link, nil
}

func mapWriteErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperr.Conflict("wallet is already connected to another account")
	}
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return apperr.NotFound("user not found")
	}
	return apperr.Store(op, err)
}

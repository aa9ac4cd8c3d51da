package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/playforge/ugc-backend/internal/apperr"
)

// Repository persists users and verification tokens.
type Repository interface {
	// InTx runs fn against a repository bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx Repository) error) error

	FindByID(ctx context.Context, id string) (User, error)
	FindByWallet(ctx context.Context, address string) (User, error)
	// FindByLinkedWallet fetches the owner of a connected wallet link.
	FindByLinkedWallet(ctx context.Context, address string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByPhone(ctx context.Context, phone string) (User, error)
	Create(ctx context.Context, user User) error
	Update(ctx context.Context, user User) error
	UpdateCoins(ctx context.Context, id string, coins int64) (User, error)
	Delete(ctx context.Context, id string) (User, error)
	List(ctx context.Context, filter ListFilter) ([]User, int, error)

	// SaveVerificationToken stores a token unless its hash already exists. It
	// reports whether a row was inserted.
	SaveVerificationToken(ctx context.Context, token VerificationToken) (bool, error)
	// TakeVerificationToken deletes and returns the token with the given hash.
	TakeVerificationToken(ctx context.Context, hash string) (VerificationToken, error)
}

const (
	uniqueViolation      = "23505"
	serializationFailure = "40001"
	deadlockDetected     = "40P01"
)

const userColumns = `id, name, COALESCE(email, ''), COALESCE(wallet_address, ''),
        COALESCE(mobile_number, ''), coins, created_at, updated_at`

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
	db   querier
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: db, db: db}
}

// InTx begins a transaction on the pool. Nested calls reuse the outer transaction.
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

// lock returns a row-locking suffix when running inside a transaction.
func (r *PostgresRepository) lock() string {
	if r.pool == nil {
		return " FOR UPDATE"
	}
	return ""
}

// FindByID fetches a user by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, apperr.NotFound("user not found")
	}
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`+r.lock(), userID)
}

// FindByWallet fetches a user by wallet address, ignoring case.
func (r *PostgresRepository) FindByWallet(ctx context.Context, address string) (User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(wallet_address) = lower($1)`+r.lock(), address)
}

// FindByLinkedWallet fetches the user owning the user_wallets row for address.
// Link addresses are stored lower-cased.
func (r *PostgresRepository) FindByLinkedWallet(ctx context.Context, address string) (User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users
        WHERE id = (SELECT user_id FROM user_wallets WHERE wallet_address = lower($1))`+r.lock(), address)
}

// FindByEmail fetches a user by email, ignoring case.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`+r.lock(), email)
}

// FindByPhone fetches the oldest user registered with the phone number.
func (r *PostgresRepository) FindByPhone(ctx context.Context, phone string) (User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE mobile_number = $1
        ORDER BY created_at ASC LIMIT 1`+r.lock(), phone)
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, args ...any) (User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperr.NotFound("user not found")
		}
		if contended(err) {
			return User{}, apperr.Conflict("account is being updated concurrently, retry")
		}
		return User{}, apperr.Store("select user", err)
	}
	return user, nil
}

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return apperr.Validation("invalid user id")
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (id, name, email, wallet_address, mobile_number, coins, created_at, updated_at)
        VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8)`,
		userID, user.Name, user.Email, user.WalletAddress, user.Phone, user.Coins, user.CreatedAt.UTC(), user.UpdatedAt.UTC())
	return mapWriteErr("insert user", err)
}

// Update writes the identity fields and the update marker of an existing user.
func (r *PostgresRepository) Update(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return apperr.NotFound("user not found")
	}
	cmd, err := r.db.Exec(ctx, `UPDATE users SET name = $2, email = NULLIF($3, ''), wallet_address = NULLIF($4, ''),
        mobile_number = NULLIF($5, ''), updated_at = $6 WHERE id = $1`,
		userID, user.Name, user.Email, user.WalletAddress, user.Phone, user.UpdatedAt.UTC())
	if err != nil {
		return mapWriteErr("update user", err)
	}
	if cmd.RowsAffected() == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

// UpdateCoins overwrites the coin balance of a user.
func (r *PostgresRepository) UpdateCoins(ctx context.Context, id string, coins int64) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, apperr.NotFound("user not found")
	}
	return r.findOne(ctx, `UPDATE users SET coins = $2, updated_at = NOW() WHERE id = $1 RETURNING `+userColumns, userID, coins)
}

// Delete removes a user; wallets, tokens and games cascade.
func (r *PostgresRepository) Delete(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, apperr.NotFound("user not found")
	}
	return r.findOne(ctx, `DELETE FROM users WHERE id = $1 RETURNING `+userColumns, userID)
}

// List returns users matching the filter ordered by creation, plus the total
// number of matches ignoring limit and offset. Search also matches phone numbers.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]User, int, error) {
	var (
		where []string
		args  []any
	)
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%[1]d OR email ILIKE $%[1]d OR wallet_address ILIKE $%[1]d OR mobile_number ILIKE $%[1]d)", len(args)))
	}
	if filter.IncludeIDs != nil {
		args = append(args, filter.IncludeIDs)
		where = append(where, fmt.Sprintf("id::text = ANY($%d)", len(args)))
	}
	if len(filter.ExcludeIDs) > 0 {
		args = append(args, filter.ExcludeIDs)
		where = append(where, fmt.Sprintf("NOT (id::text = ANY($%d))", len(args)))
	}
	if !filter.CreatedSince.IsZero() {
		args = append(args, filter.CreatedSince.UTC())
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`+clause, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Store("count users", err)
	}

	order := ` ORDER BY created_at ASC, id ASC`
	if filter.Newest {
		order = ` ORDER BY created_at DESC, id ASC`
	}
	query := `SELECT ` + userColumns + ` FROM users` + clause + order
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apperr.Store("list users", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, apperr.Store("scan user", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Store("list users", err)
	}
	return users, total, nil
}

// SaveVerificationToken inserts the token; an existing hash is left untouched.
func (r *PostgresRepository) SaveVerificationToken(ctx context.Context, token VerificationToken) (bool, error) {
	userID, err := uuid.Parse(token.UserID)
	if err != nil {
		return false, apperr.NotFound("user not found")
	}
	cmd, err := r.db.Exec(ctx, `INSERT INTO verification_tokens (token_hash, user_id, expires_at, created_at)
        VALUES ($1, $2, $3, $4) ON CONFLICT (token_hash) DO NOTHING`,
		token.Hash, userID, token.ExpiresAt, token.CreatedAt.UTC())
	if err != nil {
		return false, mapWriteErr("insert verification token", err)
	}
	return cmd.RowsAffected() == 1, nil
}

// TakeVerificationToken deletes the token row and returns it.
func (r *PostgresRepository) TakeVerificationToken(ctx context.Context, hash string) (VerificationToken, error) {
	var (
		userID uuid.UUID
		token  = VerificationToken{Hash: hash}
	)
	err := r.db.QueryRow(ctx, `DELETE FROM verification_tokens WHERE token_hash = $1
        RETURNING user_id, expires_at, created_at`, hash).Scan(&userID, &token.ExpiresAt, &token.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return VerificationToken{}, apperr.NotFound("verification token not found")
		}
		return VerificationToken{}, apperr.Store("delete verification token", err)
	}
	token.UserID = userID.String()
	return token, nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		id   uuid.UUID
		user User
	)
	if err := row.Scan(&id, &user.Name, &user.Email, &user.WalletAddress, &user.Phone, &user.Coins, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return User{}, err
	}
	user.ID = id.String()
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return user, nil
}

// mapWriteErr turns unique violations and lock contention into conflicts and
// everything else into store failures.
func mapWriteErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperr.Conflict(describeConstraint(pgErr.ConstraintName))
	}
	if contended(err) {
		return apperr.Conflict("account is being updated concurrently, retry")
	}
	return apperr.Store(op, err)
}

// contended reports a deadlock or serialization failure; the losing
// transaction was rolled back and the caller may simply retry.
func contended(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == deadlockDetected || pgErr.Code == serializationFailure
}

func describeConstraint(name string) string {
	switch name {
	case "users_email_key":
		return "email already belongs to another account"
	case "users_wallet_address_key":
		return "wallet address already belongs to another account"
	default:
		return "record already exists"
	}
}

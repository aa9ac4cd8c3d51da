package admin

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/playforge/ugc-backend/internal/apperr"
)

// Repository persists administrator accounts.
type Repository interface {
	Create(ctx context.Context, a Admin) error
	FindByEmail(ctx context.Context, email string) (Admin, error)
	FindByID(ctx context.Context, id string) (Admin, error)
}

const adminColumns = `id, first_name, last_name, email, password_hash, role::text, created_at, updated_at`

// PostgresRepository stores administrators in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, a Admin) error {
	adminID, err := uuid.Parse(a.ID)
	if err != nil {
		return apperr.Validation("invalid admin id")
	}
	_, err = r.db.Exec(ctx, `INSERT INTO admins (id, first_name, last_name, email, password_hash, role, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6::admin_role, $7, $8)`,
		adminID, a.FirstName, a.LastName, a.Email, string(a.PasswordHash), string(a.Role), a.CreatedAt.UTC(), a.UpdatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.Conflict("admin email already registered")
		}
		return apperr.Store("insert admin", err)
	}
	return nil
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (Admin, error) {
	return r.findOne(ctx, `SELECT `+adminColumns+` FROM admins WHERE lower(email) = lower($1)`, email)
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Admin, error) {
	adminID, err := uuid.Parse(id)
	if err != nil {
		return Admin{}, apperr.NotFound("admin not found")
	}
	return r.findOne(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = $1`, adminID)
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, args ...any) (Admin, error) {
	var (
		id   uuid.UUID
		hash string
		role string
		a    Admin
	)
	err := r.db.QueryRow(ctx, query, args...).Scan(&id, &a.FirstName, &a.LastName, &a.Email, &hash, &role, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Admin{}, apperr.NotFound("admin not found")
		}
		return Admin{}, apperr.Store("select admin", err)
	}
	a.ID = id.String()
	a.PasswordHash = []byte(hash)
	a.Role = Role(role)
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return a, nil
}

type memoryRepository struct {
	mu     sync.RWMutex
	admins map[string]Admin
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{admins: make(map[string]Admin)}
}

func (r *memoryRepository) Create(_ context.Context, a Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.admins {
		if other.Email == a.Email {
			return apperr.Conflict("admin email already registered")
		}
	}
	r.admins[a.ID] = a
	return nil
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (Admin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.admins {
		if a.Email == email {
			return a, nil
		}
	}
	return Admin{}, apperr.NotFound("admin not found")
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Admin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.admins[id]
	if !ok {
		return Admin{}, apperr.NotFound("admin not found")
	}
	return a, nil
}

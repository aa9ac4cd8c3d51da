package admin

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/playforge/ugc-backend/internal/apperr"
)

const minPasswordLength = 8

// Service registers and authenticates administrators.
type Service struct {
	repo     Repository
	sessions *Sessions
	now      func() time.Time
}

// NewService builds an admin account service.
func NewService(repo Repository, sessions *Sessions) *Service {
	return &Service{
		repo:     repo,
		sessions: sessions,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an administrator with a bcrypt password hash. The role
// defaults to admin.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Admin, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return Admin{}, apperr.Validation("valid email is required")
	}
	if len(in.Password) < minPasswordLength {
		return Admin{}, apperr.Validation("password must be at least 8 characters")
	}
	first, last := strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	if first == "" || last == "" {
		return Admin{}, apperr.Validation("first and last name are required")
	}
	role := in.Role
	if role == "" {
		role = RoleAdmin
	}
	if !role.Valid() {
		return Admin{}, apperr.Validation("unknown role")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return Admin{}, apperr.Validation("password cannot be hashed")
	}
	ts := s.now()
	a := Admin{
		ID:           uuid.NewString(),
		FirstName:    first,
		LastName:     last,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return Admin{}, err
	}
	return a, nil
}

// Login verifies credentials and returns the administrator with a signed
// session token.
func (s *Service) Login(ctx context.Context, email, password string) (Admin, string, error) {
	a, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Admin{}, "", apperr.Auth("invalid credentials")
		}
		return Admin{}, "", err
	}
	if err := bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(password)); err != nil {
		return Admin{}, "", apperr.Auth("invalid credentials")
	}
	token, err := s.sessions.Issue(a)
	if err != nil {
		return Admin{}, "", err
	}
	return a, token, nil
}

// Profile returns an administrator by id.
func (s *Service) Profile(ctx context.Context, id string) (Admin, error) {
	return s.repo.FindByID(ctx, id)
}

package admin

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/playforge/ugc-backend/internal/apperr"
)

// CookieName carries the admin session token.
const CookieName = "auth_token"

const sessionAudience = "admin-console"

// SessionClaims are carried by the admin session cookie.
type SessionClaims struct {
	Role  Role   `json:"role"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Sessions signs and verifies admin session tokens.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessions builds a session signer.
func NewSessions(secret string, ttl time.Duration) *Sessions {
	return &Sessions{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns how long a session stays valid.
func (s *Sessions) TTL() time.Duration { return s.ttl }

// Issue signs a session token for the administrator.
func (s *Sessions) Issue(a Admin) (string, error) {
	now := s.now()
	claims := SessionClaims{
		Role:  a.Role,
		Email: a.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.ID,
			Audience:  jwt.ClaimStrings{sessionAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", apperr.Store("sign admin session", err)
	}
	return token, nil
}

// VerifySession checks a session token and returns the administrator id.
func (s *Sessions) VerifySession(raw string) (string, error) {
	var claims SessionClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(sessionAudience),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || claims.Subject == "" {
		return "", apperr.Auth("invalid or expired session")
	}
	return claims.Subject, nil
}

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/playforge/ugc-backend/internal/apperr"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// TokenPair is the credential pair handed to a logged-in user.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// Claims are the JWT claims carried by user credentials.
type Claims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// Service mints and verifies user credentials. It is stateless: there is no
// revocation list, and refreshing always produces a new pair.
type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// Options configures a Service.
type Options struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// NewService builds a credential service.
func NewService(opts Options) *Service {
	return &Service{
		accessSecret:  []byte(opts.AccessSecret),
		refreshSecret: []byte(opts.RefreshSecret),
		accessTTL:     opts.AccessTTL,
		refreshTTL:    opts.RefreshTTL,
		issuer:        opts.Issuer,
		now:           time.Now,
	}
}

// Issue mints an access/refresh pair bound to userID.
func (s *Service) Issue(userID string) (TokenPair, error) {
	if userID == "" {
		return TokenPair{}, apperr.Validation("user id required")
	}
	access, err := s.sign(userID, tokenTypeAccess, s.accessSecret, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(userID, tokenTypeRefresh, s.refreshSecret, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: int64(s.accessTTL.Seconds())}, nil
}

func (s *Service) sign(userID, typ string, secret []byte, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Refresh verifies a refresh credential and mints a brand-new pair.
func (s *Service) Refresh(refreshToken string) (TokenPair, error) {
	if refreshToken == "" {
		return TokenPair{}, apperr.Validation("refresh credential required")
	}
	sub, err := s.parse(refreshToken, tokenTypeRefresh, s.refreshSecret)
	if err != nil {
		return TokenPair{}, err
	}
	return s.Issue(sub)
}

// ParseAccess verifies an access credential and returns the user identifier.
func (s *Service) ParseAccess(accessToken string) (string, error) {
	return s.parse(accessToken, tokenTypeAccess, s.accessSecret)
}

func (s *Service) parse(raw, typ string, secret []byte) (string, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperr.Auth("credential expired")
		}
		return "", apperr.Auth("invalid credential")
	}
	if claims.Type != typ || claims.Subject == "" {
		return "", apperr.Auth("invalid credential")
	}
	return claims.Subject, nil
}

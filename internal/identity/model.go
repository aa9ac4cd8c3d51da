package identity

import (
	"strings"
	"time"
)

// User is a player account. Email and wallet address are unique across users
// when set; empty strings mean "not supplied".
type User struct {
	ID            string
	Name          string
	Email         string
	WalletAddress string
	Phone         string
	Coins         int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Hints are the caller-supplied fields used to locate or seed a user.
type Hints struct {
	Email         string
	WalletAddress string
	Phone         string
	DisplayName   string
}

// Normalize trims every hint and lower-cases email and wallet address.
func (h Hints) Normalize() Hints {
	return Hints{
		Email:         strings.ToLower(strings.TrimSpace(h.Email)),
		WalletAddress: strings.ToLower(strings.TrimSpace(h.WalletAddress)),
		Phone:         strings.TrimSpace(h.Phone),
		DisplayName:   strings.TrimSpace(h.DisplayName),
	}
}

// Identifying reports whether at least one hint can identify an account.
func (h Hints) Identifying() bool {
	return h.Email != "" || h.WalletAddress != "" || h.Phone != ""
}

// VerificationToken binds a single-use device token to a user. Only the
// SHA-256 hash of the token value is persisted.
type VerificationToken struct {
	Hash      string
	UserID    string
	ExpiresAt *time.Time
	CreatedAt time.Time
}

// Expired reports whether the token lapsed at the given instant.
func (t VerificationToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// ListFilter narrows user listings. A nil IncludeIDs does not filter; an
// empty non-nil one matches nobody.
type ListFilter struct {
	Search       string
	IncludeIDs   []string
	ExcludeIDs   []string
	CreatedSince time.Time
	// Newest orders by creation descending instead of ascending.
	Newest bool
	Limit  int
	Offset int
}

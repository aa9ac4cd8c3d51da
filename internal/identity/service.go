package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/playforge/ugc-backend/internal/apperr"
)

// Service resolves login hints to accounts and manages user records.
type Service struct {
	repo     Repository
	tokenTTL time.Duration
	now      func() time.Time
}

// NewService creates a new identity service. tokenTTL bounds how long a device
// verification token stays redeemable; zero disables expiry.
func NewService(repo Repository, tokenTTL time.Duration) *Service {
	return &Service{
		repo:     repo,
		tokenTTL: tokenTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Resolve finds or creates the single account described by hints and, when a
// verification token is given, binds it to that account. Matching is wallet
// first, then email; phone is consulted only when neither is supplied. The
// match read and every resulting write run in one transaction.
func (s *Service) Resolve(ctx context.Context, hints Hints, verificationToken string) (User, bool, error) {
	hints = hints.Normalize()
	if !hints.Identifying() {
		return User{}, false, apperr.Validation("no identifying hint supplied")
	}
	verificationToken = strings.TrimSpace(verificationToken)

	var (
		user    User
		created bool
	)
	err := s.repo.InTx(ctx, func(tx Repository) error {
		match, err := s.match(ctx, tx, hints)
		if err != nil {
			return err
		}

		ts := s.now()
		if match == nil {
			user = newUser(hints, ts)
			if err := tx.Create(ctx, user); err != nil {
				return err
			}
			created = true
		} else {
			promoted, changed, err := promote(*match, hints)
			if err != nil {
				return err
			}
			if changed {
				promoted.UpdatedAt = ts
				if err := tx.Update(ctx, promoted); err != nil {
					return err
				}
			}
			user = promoted
		}

		if verificationToken != "" {
			token := VerificationToken{Hash: HashToken(verificationToken), UserID: user.ID, CreatedAt: ts}
			if s.tokenTTL > 0 {
				exp := ts.Add(s.tokenTTL)
				token.ExpiresAt = &exp
			}
			if _, err := tx.SaveVerificationToken(ctx, token); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return User{}, false, err
	}
	return user, created, nil
}

// match returns the existing account for the hints, nil when there is none. A
// wallet hint matches the login wallet of a user first and a connected wallet
// link second.
func (s *Service) match(ctx context.Context, tx Repository, h Hints) (*User, error) {
	var byWallet, byEmail *User
	if h.WalletAddress != "" {
		u, err := lookup(tx.FindByWallet(ctx, h.WalletAddress))
		if err != nil {
			return nil, err
		}
		if u == nil {
			// A wallet connected to an account resolves to that account.
			if u, err = lookup(tx.FindByLinkedWallet(ctx, h.WalletAddress)); err != nil {
				return nil, err
			}
		}
		byWallet = u
	}
	if h.Email != "" {
		u, err := lookup(tx.FindByEmail(ctx, h.Email))
		if err != nil {
			return nil, err
		}
		byEmail = u
	}

	switch {
	case byWallet != nil && byEmail != nil && byWallet.ID != byEmail.ID:
		return nil, apperr.Conflict("wallet address and email belong to different accounts")
	case byWallet != nil:
		return byWallet, nil
	case byEmail != nil:
		return byEmail, nil
	case h.WalletAddress == "" && h.Email == "" && h.Phone != "":
		return lookup(tx.FindByPhone(ctx, h.Phone))
	}
	return nil, nil
}

func lookup(u User, err error) (*User, error) {
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func newUser(h Hints, ts time.Time) User {
	name := h.DisplayName
	if name == "" {
		name = PlaceholderName
	}
	return User{
		ID:            uuid.NewString(),
		Name:          name,
		Email:         h.Email,
		WalletAddress: h.WalletAddress,
		Phone:         h.Phone,
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}
}

// promote fills missing or placeholder fields of u from the hints. Each field is
// evaluated on its own; a real stored email is never replaced.
func promote(u User, h Hints) (User, bool, error) {
	changed := false

	if h.DisplayName != "" && IsPlaceholderName(u.Name) && h.DisplayName != strings.TrimSpace(u.Name) {
		u.Name = h.DisplayName
		changed = true
	}

	if h.Email != "" && !strings.EqualFold(h.Email, u.Email) {
		switch {
		case IsPlaceholderEmail(u.Email):
			if !IsPlaceholderEmail(h.Email) {
				u.Email = h.Email
				changed = true
			}
		case !IsPlaceholderEmail(h.Email):
			return User{}, false, apperr.Conflict("account already has a different email")
		}
	}

	if h.WalletAddress != "" && IsPlaceholderWallet(u.WalletAddress) {
		u.WalletAddress = h.WalletAddress
		changed = true
	}

	if h.Phone != "" && IsPlaceholderPhone(u.Phone) {
		u.Phone = h.Phone
		changed = true
	}

	return u, changed, nil
}

// ConsumeVerificationToken redeems a device token exactly once and returns its
// owner. The token row is deleted even when it turns out to be expired or
// orphaned, so a second attempt always fails.
func (s *Service) ConsumeVerificationToken(ctx context.Context, token string) (User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return User{}, apperr.Validation("verification token required")
	}

	var (
		user    User
		outcome error
	)
	err := s.repo.InTx(ctx, func(tx Repository) error {
		vt, err := tx.TakeVerificationToken(ctx, HashToken(token))
		if err != nil {
			return err
		}
		if vt.Expired(s.now()) {
			outcome = apperr.NotFound("verification token expired")
			return nil
		}
		u, err := tx.FindByID(ctx, vt.UserID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				outcome = err
				return nil
			}
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return User{}, err
	}
	if outcome != nil {
		return User{}, outcome
	}
	return user, nil
}

// Get returns a user by identifier.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns users matching the filter and the total match count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]User, int, error) {
	return s.repo.List(ctx, filter)
}

// UpdateCoins sets a user's coin balance. A non-empty actorID must equal the
// target user; admin callers pass an empty actorID.
func (s *Service) UpdateCoins(ctx context.Context, actorID, id string, coins int64) (User, error) {
	if actorID != "" && actorID != id {
		return User{}, apperr.Forbidden("cannot change another user's coins")
	}
	if coins < 0 {
		return User{}, apperr.Validation("coins must not be negative")
	}
	return s.repo.UpdateCoins(ctx, id, coins)
}

// Delete removes a user and everything that cascades from it.
func (s *Service) Delete(ctx context.Context, id string) (User, error) {
	return s.repo.Delete(ctx, id)
}

// CreateInput describes an account created directly rather than resolved.
type CreateInput struct {
	Hints Hints
	Coins int64
}

// Create inserts a new account. It never matches existing users: an email or
// wallet that is already taken, including by a connected wallet link, is a
// conflict.
func (s *Service) Create(ctx context.Context, in CreateInput) (User, error) {
	hints := in.Hints.Normalize()
	if !hints.Identifying() {
		return User{}, apperr.Validation("no identifying hint supplied")
	}
	if in.Coins < 0 {
		return User{}, apperr.Validation("coins must not be negative")
	}

	user := newUser(hints, s.now())
	user.Coins = in.Coins
	err := s.repo.InTx(ctx, func(tx Repository) error {
		if err := s.ensureWalletFree(ctx, tx, user.ID, hints.WalletAddress); err != nil {
			return err
		}
		return tx.Create(ctx, user)
	})
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// Patch lists the fields an owner may change; nil leaves a field untouched and
// an empty string clears it.
type Patch struct {
	Name          *string
	Email         *string
	WalletAddress *string
	Phone         *string
	Coins         *int64
}

// Update applies p to the caller's own account. The account must keep at
// least one identifying field.
func (s *Service) Update(ctx context.Context, actorID, id string, p Patch) (User, error) {
	if actorID != id {
		return User{}, apperr.Forbidden("cannot change another user's account")
	}
	if p.Coins != nil && *p.Coins < 0 {
		return User{}, apperr.Validation("coins must not be negative")
	}

	var user User
	err := s.repo.InTx(ctx, func(tx Repository) error {
		u, err := tx.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if p.Name != nil {
			if u.Name = strings.TrimSpace(*p.Name); u.Name == "" {
				return apperr.Validation("name must not be empty")
			}
		}
		if p.Email != nil {
			u.Email = strings.ToLower(strings.TrimSpace(*p.Email))
		}
		if p.WalletAddress != nil {
			u.WalletAddress = strings.ToLower(strings.TrimSpace(*p.WalletAddress))
		}
		if p.Phone != nil {
			u.Phone = strings.TrimSpace(*p.Phone)
		}
		if !(Hints{Email: u.Email, WalletAddress: u.WalletAddress, Phone: u.Phone}).Identifying() {
			return apperr.Validation("account needs an email, wallet address or phone number")
		}
		if err := s.ensureWalletFree(ctx, tx, u.ID, u.WalletAddress); err != nil {
			return err
		}

		u.UpdatedAt = s.now()
		if err := tx.Update(ctx, u); err != nil {
			return err
		}
		if p.Coins != nil {
			if u, err = tx.UpdateCoins(ctx, id, *p.Coins); err != nil {
				return err
			}
		}
		user = u
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// ensureWalletFree rejects an address connected as a wallet link by anyone
// other than userID.
func (s *Service) ensureWalletFree(ctx context.Context, tx Repository, userID, address string) error {
	if address == "" {
		return nil
	}
	owner, err := lookup(tx.FindByLinkedWallet(ctx, address))
	if err != nil {
		return err
	}
	if owner != nil && owner.ID != userID {
		return apperr.Conflict("wallet is already connected to another account")
	}
	return nil
}

package wallet

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/playforge/ugc-backend/internal/apperr"
	"github.com/playforge/ugc-backend/internal/identity"
)

// AccountLookup finds the account that logs in with a wallet address.
type AccountLookup interface {
	FindByWallet(ctx context.Context, address string) (identity.User, error)
}

// Service manages the wallets linked to user accounts.
type Service struct {
	repo     Repository
	accounts AccountLookup
	now      func() time.Time
}

// NewService builds a wallet service instance. accounts may be nil, in which
// case only existing links are checked for ownership conflicts.
func NewService(repo Repository, accounts AccountLookup) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// NormalizeAddress trims and lower-cases a wallet address.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Connect links a wallet to the user. Re-connecting a wallet the user already
// holds returns the existing link with created=false. The first link a user
// connects becomes primary.
func (s *Service) Connect(ctx context.Context, in ConnectInput) (Link, bool, error) {
	address := NormalizeAddress(in.Address)
	if address == "" {
		return Link{}, false, apperr.Validation("wallet_address is required")
	}
	if in.UserID == "" {
		return Link{}, false, apperr.Auth("user required")
	}

	var (
		link    Link
		created bool
	)
	err := s.repo.InTx(ctx, func(tx Repository) error {
		existing, err := tx.FindByAddress(ctx, address)
		switch {
		case err == nil:
			if existing.UserID != in.UserID {
				return apperr.Conflict("wallet is already connected to another account")
			}
			link = existing
			return nil
		case !errors.Is(err, apperr.ErrNotFound):
			return err
		}

		if s.accounts != nil {
			owner, err := s.accounts.FindByWallet(ctx, address)
			switch {
			case err == nil && owner.ID != in.UserID:
				return apperr.Conflict("wallet is already connected to another account")
			case err != nil && !errors.Is(err, apperr.ErrNotFound):
				return err
			}
		}

		count, err := tx.CountByUser(ctx, in.UserID)
		if err != nil {
			return err
		}
		walletType := strings.TrimSpace(in.Type)
		if walletType == "" {
			walletType = DefaultType
		}
		link = Link{
			ID:          uuid.NewString(),
			UserID:      in.UserID,
			Address:     address,
			Type:        walletType,
			ChainID:     in.ChainID,
			Label:       strings.TrimSpace(in.Label),
			Primary:     count == 0,
			ConnectedAt: s.now(),
		}
		if err := tx.Create(ctx, link); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return Link{}, false, err
	}
	return link, created, nil
}

// List returns a user's links, primary first.
func (s *Service) List(ctx context.Context, userID string) ([]Link, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Disconnect removes a link owned by the user. Removing the primary link
// promotes the oldest remaining one.
func (s *Service) Disconnect(ctx context.Context, userID, id string) error {
	return s.repo.InTx(ctx, func(tx Repository) error {
		link, err := tx.FindOwned(ctx, userID, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(ctx, link.ID); err != nil {
			return err
		}
		if link.Primary {
			return tx.PromoteOldest(ctx, userID)
		}
		return nil
	})
}

// SetPrimary makes the link the user's only primary wallet.
func (s *Service) SetPrimary(ctx context.Context, userID, id string) (Link, error) {
	var link Link
	err := s.repo.InTx(ctx, func(tx Repository) error {
		if _, err := tx.FindOwned(ctx, userID, id); err != nil {
			return err
		}
		if err := tx.ClearPrimary(ctx, userID); err != nil {
			return err
		}
		var err error
		link, err = tx.MarkPrimary(ctx, id)
		return err
	})
	if err != nil {
		return Link{}, err
	}
	return link, nil
}

// UpdateLabel renames a link owned by the user.
func (s *Service) UpdateLabel(ctx context.Context, userID, id, label string) (Link, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return Link{}, apperr.Validation("label is required")
	}
	return s.repo.UpdateLabel(ctx, userID, id, label)
}

// LinkedUsers counts users with at least one connected wallet.
func (s *Service) LinkedUsers(ctx context.Context) (int, error) {
	return s.repo.CountLinkedUsers(ctx)
}

package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playforge/ugc-backend/internal/apperr"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T, ttl time.Duration) (*Service, Repository, *clock) {
	t.Helper()
	repo := NewMemoryRepository()
	clk := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewService(repo, ttl)
	svc.now = clk.now
	return svc, repo, clk
}

func TestResolveRequiresIdentifyingHint(t *testing.T) {
	svc, _, _ := newTestService(t, 0)
	ctx := context.Background()

	for _, hints := range []Hints{
		{},
		{DisplayName: "Alice"},
		{Email: "   ", WalletAddress: "\t", Phone: " "},
	} {
		_, _, err := svc.Resolve(ctx, hints, "")
		assert.ErrorIs(t, err, apperr.ErrValidation)
	}
}

func TestResolveCreatesThenReturnsSameUser(t *testing.T) {
	svc, _, clk := newTestService(t, 0)
	ctx := context.Background()
	hints := Hints{Email: "a@x.com", DisplayName: "Alice"}

	user, created, err := svc.Resolve(ctx, hints, "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, "Alice", user.Name)
	assert.Empty(t, user.WalletAddress)

	clk.advance(time.Minute)
	again, created, err := svc.Resolve(ctx, hints, "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user, again)
}

func TestResolveNormalizesHints(t *testing.T) {
	svc, _, _ := newTestService(t, 0)
	ctx := context.Background()

	user, _, err := svc.Resolve(ctx, Hints{WalletAddress: "  0xABCdef  "}, "")
	require.NoError(t, err)
	assert.Equal(t, "0xabcdef", user.WalletAddress)
	assert.Equal(t, PlaceholderName, user.Name)

	same, created, err := svc.Resolve(ctx, Hints{WalletAddress: "0XABCDEF"}, "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user.ID, same.ID)
}

func TestResolveWalletMatchKeepsOtherFields(t *testing.T) {
	svc, repo, clk := newTestService(t, 0)
	ctx := context.Background()

	user, _, err := svc.Resolve(ctx, Hints{WalletAddress: "0xaaa", Email: "u@x.com", DisplayName: "Ursula", Phone: "+100"}, "")
	require.NoError(t, err)

	clk.advance(time.Hour)
	for _, hints := range []Hints{
		{WalletAddress: "0xaaa"},
		{WalletAddress: "0xaaa", Email: "U@X.com"},
		{WalletAddress: "0xaaa", DisplayName: "Someone Else", Phone: "+200"},
	} {
		got, created, err := svc.Resolve(ctx, hints, "")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, user.ID, got.ID)
	}

	stored, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user, stored)
}

func TestResolveRejectsTwoDistinctAccounts(t *testing.T) {
	svc, _, _ := newTestService(t, 0)
	ctx := context.Background()

	_, _, err := svc.Resolve(ctx, Hints{WalletAddress: "0xaaa"}, "")
	require.NoError(t, err)
	_, _, err = svc.Resolve(ctx, Hints{Email: "b@x.com"}, "")
	require.NoError(t, err)

	_, _, err = svc.Resolve(ctx, Hints{WalletAddress: "0xaaa", Email: "b@x.com"}, "")
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestResolvePromotesPlaceholders(t *testing.T) {
	svc, repo, clk := newTestService(t, 0)
	ctx := context.Background()

	user, _, err := svc.Resolve(ctx, Hints{WalletAddress: "0xaaa"}, "")
	require.NoError(t, err)
	require.Equal(t, PlaceholderName, user.Name)
	require.Empty(t, user.Email)

	clk.advance(time.Minute)
	got, created, err := svc.Resolve(ctx, Hints{WalletAddress: "0xaaa", Email: "real@x.com", DisplayName: "Bob"}, "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "real@x.com", got.Email)
	assert.Equal(t, "Bob", got.Name)
	assert.Equal(t, "0xaaa", got.WalletAddress)
	assert.Equal(t, clk.t, got.UpdatedAt)

	stored, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, got, stored)
}

func TestResolveEmailMatchFillsEmptyWallet(t *testing.T) {
	svc, _, _ := newTestService(t, 0)
	ctx := context.Background()

	user, _, err := svc.Resolve(ctx, Hints{Email: "c@x.com"}, "")
	require.NoError(t, err)

	got, created, err := svc.Resolve(ctx, Hints{Email: "c@x.com", WalletAddress: "0xccc"}, "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "0xccc", got.WalletAddress)
}

func TestResolveReplacesPlaceholderEmail(t *testing.T) {
	svc, _, _ := newTestService(t, 0)
	ctx := context.Background()

	user, _, err := svc.Resolve(ctx, Hints{WalletAddress: "0xddd", Email: "0xddd@wallet.connect"}, "")
	require.NoError(t, err)

	got, _, err := svc.Resolve(ctx, Hints{WalletAddress: "0xddd", Email: "d@x.com"}, "")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "d@x.com", got.Email)

	// A placeholder hint never replaces a real address.
	got, _, err = svc.Resolve(ctx, Hints{WalletAddress: "0xddd", Email: "other@wallet.connect"}, "")
	require.NoError(t, err)
	assert.Equal(t, "d@x.com", got.Email)
}

func TestResolveNeverOverwritesRealEmail(t *testing.T) {
	svc, repo, _ := newTestService(t, 0)
	ctx := context.Background()

	user, _, err := svc.Resolve(ctx, Hints{WalletAddress: "0xeee", Email: "e1@x.com"}, "")
	require.NoError(t, err)

	_, _, err = svc.Resolve(ctx, Hints{WalletAddress: "0xeee", Email: "e2@x.com"}, "")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	stored, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "e1@x.com", stored.Email)
}

func TestResolveKeepsRealName(t *testing.T) {
	svc, _, _ := newTestService(t, 0)
	ctx := context.Background()

	_, _, err := svc.Resolve(ctx, Hints{Email: "f@x.com", DisplayName: "Frida"}, "")
	require.NoError(t, err)

	got, _, err := svc.Resolve(ctx, Hints{Email: "f@x.com", DisplayName: "Impostor"}, "")
	require.NoError(t, err)
	assert.Equal(t, "Frida", got.Name)
}

func TestResolvePhoneOnlyLookup(t *testing.T) {
	svc, _, _ := newTestService(t, 0)
	ctx := context.Background()

	user, created, err := svc.Resolve(ctx, Hints{Phone: "+33123"}, "")
	require.NoError(t, err)
	require.True(t, created)

	got, created, err := svc.Resolve(ctx, Hints{Phone: "+33123", DisplayName: "Gus"}, "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "Gus", got.Name)

	// Phone is not a matching key once a wallet or email is supplied.
	other, created, err := svc.Resolve(ctx, Hints{Phone: "+33123", Email: "g@x.com"}, "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, user.ID, other.ID)
}

func TestResolveRollsBackOnConflict(t *testing.T) {
	svc, repo, _ := newTestService(t, 0)
	ctx := context.Background()

	_, _, err := svc.Resolve(ctx, Hints{WalletAddress: "0xaaa", Email: "h1@x.com"}, "")
	require.NoError(t, err)

	_, _, err = svc.Resolve(ctx, Hints{WalletAddress: "0xaaa", Email: "h2@x.com"}, "device-token")
	require.ErrorIs(t, err, apperr.ErrConflict)

	_, err = repo.TakeVerificationToken(ctx, HashToken("device-token"))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestVerificationTokenIsSingleUse(t *testing.T) {
	svc, _, _ := newTestService(t, 15*time.Minute)
	ctx := context.Background()

	user, _, err := svc.Resolve(ctx, Hints{Email: "i@x.com"}, "launcher-123")
	require.NoError(t, err)

	got, err := svc.ConsumeVerificationToken(ctx, "launcher-123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.ConsumeVerificationToken(ctx, "launcher-123")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestVerificationTokenFirstWriterWins(t *testing.T) {
	svc, _, _ := newTestService(t, 0)
	ctx := context.Background()

	first, _, err := svc.Resolve(ctx, Hints{Email: "j1@x.com"}, "shared")
	require.NoError(t, err)
	_, _, err = svc.Resolve(ctx, Hints{Email: "j1@x.com"}, "shared")
	require.NoError(t, err)
	_, _, err = svc.Resolve(ctx, Hints{Email: "j2@x.com"}, "shared")
	require.NoError(t, err)

	got, err := svc.ConsumeVerificationToken(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestVerificationTokenNotStoredInClear(t *testing.T) {
	svc, repo, _ := newTestService(t, 0)
	ctx := context.Background()

	_, _, err := svc.Resolve(ctx, Hints{Email: "k@x.com"}, "plain-value")
	require.NoError(t, err)

	_, err = repo.TakeVerificationToken(ctx, "plain-value")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	vt, err := repo.TakeVerificationToken(ctx, HashToken("plain-value"))
	require.NoError(t, err)
	assert.Len(t, vt.Hash, 64)
}

func TestVerificationTokenExpiry(t *testing.T) {
	svc, _, clk := newTestService(t, 15*time.Minute)
	ctx := context.Background()

	_, _, err := svc.Resolve(ctx, Hints{Email: "l@x.com"}, "late")
	require.NoError(t, err)

	clk.advance(15 * time.Minute)
	_, err = svc.ConsumeVerificationToken(ctx, "late")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// The lapsed row is gone as well.
	_, err = svc.ConsumeVerificationToken(ctx, "late")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestVerificationTokenOrphaned(t *testing.T) {
	svc, repo, _ := newTestService(t, 0)
	ctx := context.Background()

	user, _, err := svc.Resolve(ctx, Hints{Email: "m@x.com"}, "orphan")
	require.NoError(t, err)
	_, err = repo.Delete(ctx, user.ID)
	require.NoError(t, err)

	_, err = svc.ConsumeVerificationToken(ctx, "orphan")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestConsumeVerificationTokenRequiresValue(t *testing.T) {
	svc, _, _ := newTestService(t, 0)
	_, err := svc.ConsumeVerificationToken(context.Background(), "  ")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateCoins(t *testing.T) {
	svc, _, _ := newTestService(t, 0)
	ctx := context.Background()

	user, _, err := svc.Resolve(ctx, Hints{Email: "n@x.com"}, "")
	require.NoError(t, err)

	got, err := svc.UpdateCoins(ctx, user.ID, user.ID, 250)
	require.NoError(t, err)
	assert.Equal(t, int64(250), got.Coins)

	_, err = svc.UpdateCoins(ctx, "someone-else", user.ID, 10)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.UpdateCoins(ctx, "", user.ID, -1)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	got, err = svc.UpdateCoins(ctx, "", user.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Coins)
}

func TestListFilters(t *testing.T) {
	svc, _, clk := newTestService(t, 0)
	ctx := context.Background()

	var ids []string
	for _, h := range []Hints{
		{Email: "olga@x.com", DisplayName: "Olga"},
		{Email: "pete@x.com", DisplayName: "Pete"},
		{WalletAddress: "0xolga"},
	} {
		u, _, err := svc.Resolve(ctx, h, "")
		require.NoError(t, err)
		ids = append(ids, u.ID)
		clk.advance(time.Second)
	}

	all, total, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, ids[0], all[0].ID)

	found, total, err := svc.List(ctx, ListFilter{Search: "olga"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, found, 2)

	found, total, err = svc.List(ctx, ListFilter{IncludeIDs: []string{}})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, found)

	found, total, err = svc.List(ctx, ListFilter{ExcludeIDs: ids[:1], Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, found, 1)
	assert.Equal(t, ids[2], found[0].ID)
}

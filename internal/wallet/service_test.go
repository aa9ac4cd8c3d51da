package wallet

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playforge/ugc-backend/internal/apperr"
	"github.com/playforge/ugc-backend/internal/identity"
)

type stepClock struct{ t time.Time }

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestService(t *testing.T) (*Service, identity.Repository) {
	t.Helper()
	accounts := identity.NewMemoryRepository()
	svc := NewService(NewMemoryRepository(), accounts)
	clk := &stepClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	svc.now = clk.now
	return svc, accounts
}

func TestConnectFirstWalletIsPrimary(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.NewString()

	first, created, err := svc.Connect(ctx, ConnectInput{UserID: userID, Address: "  0xAAA "})
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, first.Primary)
	assert.Equal(t, "0xaaa", first.Address)
	assert.Equal(t, DefaultType, first.Type)

	second, created, err := svc.Connect(ctx, ConnectInput{UserID: userID, Address: "0xbbb", Type: "metamask", Label: " Cold "})
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, second.Primary)
	assert.Equal(t, "Cold", second.Label)

	links, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, first.ID, links[0].ID)
}

func TestConnectIsIdempotentForOwner(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.NewString()

	link, _, err := svc.Connect(ctx, ConnectInput{UserID: userID, Address: "0xaaa"})
	require.NoError(t, err)

	again, created, err := svc.Connect(ctx, ConnectInput{UserID: userID, Address: "0xAAA"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, link.ID, again.ID)
}

func TestConnectRejectsForeignWallet(t *testing.T) {
	svc, accounts := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Connect(ctx, ConnectInput{UserID: uuid.NewString(), Address: "0xaaa"})
	require.NoError(t, err)
	_, _, err = svc.Connect(ctx, ConnectInput{UserID: uuid.NewString(), Address: "0xaaa"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	now := time.Now().UTC()
	owner := identity.User{ID: uuid.NewString(), Name: identity.PlaceholderName, WalletAddress: "0xlogin", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, accounts.Create(ctx, owner))

	_, _, err = svc.Connect(ctx, ConnectInput{UserID: uuid.NewString(), Address: "0xLOGIN"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	link, created, err := svc.Connect(ctx, ConnectInput{UserID: owner.ID, Address: "0xlogin"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, owner.ID, link.UserID)
}

func TestConnectValidation(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, err := svc.Connect(context.Background(), ConnectInput{UserID: uuid.NewString(), Address: "   "})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestDisconnectPromotesOldest(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.NewString()

	primary, _, err := svc.Connect(ctx, ConnectInput{UserID: userID, Address: "0x1"})
	require.NoError(t, err)
	second, _, err := svc.Connect(ctx, ConnectInput{UserID: userID, Address: "0x2"})
	require.NoError(t, err)
	_, _, err = svc.Connect(ctx, ConnectInput{UserID: userID, Address: "0x3"})
	require.NoError(t, err)

	err = svc.Disconnect(ctx, uuid.NewString(), primary.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, svc.Disconnect(ctx, userID, primary.ID))
	links, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, second.ID, links[0].ID)
	assert.True(t, links[0].Primary)
	assert.False(t, links[1].Primary)
}

func TestSetPrimaryAndLabel(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.NewString()

	_, _, err := svc.Connect(ctx, ConnectInput{UserID: userID, Address: "0x1"})
	require.NoError(t, err)
	second, _, err := svc.Connect(ctx, ConnectInput{UserID: userID, Address: "0x2"})
	require.NoError(t, err)

	updated, err := svc.SetPrimary(ctx, userID, second.ID)
	require.NoError(t, err)
	assert.True(t, updated.Primary)

	links, err := svc.List(ctx, userID)
	require.NoError(t, err)
	primaries := 0
	for _, l := range links {
		if l.Primary {
			primaries++
		}
	}
	assert.Equal(t, 1, primaries)
	assert.Equal(t, second.ID, links[0].ID)

	_, err = svc.SetPrimary(ctx, uuid.NewString(), second.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.UpdateLabel(ctx, userID, second.ID, "  ")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	labelled, err := svc.UpdateLabel(ctx, userID, second.ID, "Hot wallet")
	require.NoError(t, err)
	assert.Equal(t, "Hot wallet", labelled.Label)

	n, err := svc.LinkedUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

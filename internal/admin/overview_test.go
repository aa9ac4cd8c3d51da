package admin

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playforge/ugc-backend/internal/apperr"
	"github.com/playforge/ugc-backend/internal/catalog"
	"github.com/playforge/ugc-backend/internal/identity"
	"github.com/playforge/ugc-backend/internal/logging"
	"github.com/playforge/ugc-backend/internal/storage"
	"github.com/playforge/ugc-backend/internal/wallet"
)

type fixture struct {
	overview *Overview
	users    *identity.Service
	wallets  *wallet.Service
	games    *catalog.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	userRepo := identity.NewMemoryRepository()
	users := identity.NewService(userRepo, time.Minute)
	wallets := wallet.NewService(wallet.NewMemoryRepository(), userRepo)
	blobs, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	names := func(ctx context.Context, id string) string {
		u, err := users.Get(ctx, id)
		if err != nil {
			return ""
		}
		return u.Name
	}
	games := catalog.NewService(catalog.NewMemoryRepository(names), blobs, logging.Discard())
	return fixture{overview: NewOverview(users, wallets, games), users: users, wallets: wallets, games: games}
}

func (f fixture) user(t *testing.T, email string) identity.User {
	t.Helper()
	u, _, err := f.users.Resolve(context.Background(), identity.Hints{Email: email, DisplayName: strings.Split(email, "@")[0]}, "")
	require.NoError(t, err)
	return u
}

func (f fixture) publish(t *testing.T, userID, title string) catalog.Game {
	t.Helper()
	g, err := f.games.Publish(context.Background(), catalog.PublishInput{
		UserID:    userID,
		Title:     title,
		Thumbnail: &catalog.Upload{Filename: "t.png", Body: strings.NewReader("t")},
		GameFile:  &catalog.Upload{Filename: "g.zip", Body: strings.NewReader("g")},
	})
	require.NoError(t, err)
	return g
}

func TestOverviewStatsAndListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.user(t, "maker@x.com")
	player := f.user(t, "gamer@x.com")
	f.publish(t, creator.ID, "Rocket")
	_, _, err := f.wallets.Connect(ctx, wallet.ConnectInput{UserID: player.ID, Address: "0xp1"})
	require.NoError(t, err)

	stats, err := f.overview.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalUsers)
	assert.Equal(t, 1, stats.TotalCreators)
	assert.Equal(t, 1, stats.TotalPlayers)
	assert.Equal(t, 1, stats.TotalGames)
	assert.Equal(t, 1, stats.WalletUsers)
	assert.Equal(t, 2, stats.MonthlyNew)
	assert.Equal(t, float64(100), stats.UsersGrowth)

	page, err := f.overview.Users(ctx, "", StatusCreator, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, creator.ID, page.Users[0].User.ID)
	assert.Equal(t, []string{"Rocket"}, page.Users[0].PublishedTitles)

	page, err = f.overview.Users(ctx, "", StatusPlayer, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "0xp1", page.Users[0].PrimaryWallet)
	assert.Equal(t, 1, page.Users[0].WalletCount)

	page, err = f.overview.Users(ctx, "gamer", StatusAll, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 1, page.TotalPages())

	_, err = f.overview.Users(ctx, "", Status("banned"), 1, 10)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestOverviewDetailDeleteAndCoins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u := f.user(t, "owner@x.com")
	f.publish(t, u.ID, "Puzzle")

	detail, err := f.overview.User(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCreator, detail.Status)
	require.Len(t, detail.Games, 1)
	assert.Equal(t, "owner", detail.Games[0].CreatorName)

	updated, err := f.overview.SetCoins(ctx, u.ID, 900)
	require.NoError(t, err)
	assert.Equal(t, int64(900), updated.Coins)
	_, err = f.overview.SetCoins(ctx, u.ID, -5)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.overview.DeleteUser(ctx, u.ID)
	require.NoError(t, err)
	_, err = f.overview.User(ctx, u.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	count, err := f.games.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestGrowth(t *testing.T) {
	assert.Equal(t, float64(0), growth(0, 0))
	assert.Equal(t, float64(100), growth(3, 0))
	assert.Equal(t, 33.3, growth(4, 3))
	assert.Equal(t, float64(-50), growth(1, 2))
}

package catalog

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playforge/ugc-backend/internal/apperr"
	"github.com/playforge/ugc-backend/internal/logging"
	"github.com/playforge/ugc-backend/internal/storage"
)

func newTestService(t *testing.T) (*Service, *storage.Local) {
	t.Helper()
	blobs, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	names := func(_ context.Context, userID string) string { return "creator-" + userID[:4] }
	svc := NewService(NewMemoryRepository(names), blobs, logging.Discard())
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		base = base.Add(time.Minute)
		return base
	}
	return svc, blobs
}

func upload(name, body string) *Upload {
	return &Upload{Filename: name, Body: strings.NewReader(body)}
}

func onDisk(blobs *storage.Local, publicPath string) string {
	return filepath.Join(blobs.Root(), filepath.FromSlash(strings.TrimPrefix(publicPath, storage.PublicPrefix+"/")))
}

func TestPublishStoresFiles(t *testing.T) {
	svc, blobs := newTestService(t)
	ctx := context.Background()
	userID := uuid.NewString()

	game, err := svc.Publish(ctx, PublishInput{
		UserID:     userID,
		Title:      " Space Race ",
		AuthorName: "Ada",
		Thumbnail:  upload("thumb.png", "img"),
		GameFile:   upload("build.zip", "zip"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Space Race", game.Title)
	assert.True(t, strings.HasPrefix(game.Thumbnail, "/storage/thumbnails/"))
	assert.True(t, strings.HasPrefix(game.FilePath, "/storage/games/"))
	assert.FileExists(t, onDisk(blobs, game.Thumbnail))
	assert.FileExists(t, onDisk(blobs, game.FilePath))

	mine, err := svc.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "creator-"+userID[:4], mine[0].CreatorName)
}

func TestPublishRequiresBothFiles(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Publish(context.Background(), PublishInput{UserID: uuid.NewString(), Title: "x", Thumbnail: upload("a.png", "a")})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Publish(context.Background(), PublishInput{UserID: uuid.NewString(), Thumbnail: upload("a.png", "a"), GameFile: upload("b.zip", "b")})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestPublishCleansUpOnFailure(t *testing.T) {
	svc, blobs := newTestService(t)
	_, err := svc.Publish(context.Background(), PublishInput{
		UserID:    uuid.NewString(),
		Title:     "Broken",
		Thumbnail: upload("thumb.png", "img"),
		GameFile:  &Upload{Filename: "build.zip", Body: io.Reader(failingReader{})},
	})
	require.ErrorIs(t, err, apperr.ErrStore)

	for _, bucket := range []string{storage.Thumbnails, storage.Games} {
		entries, err := os.ReadDir(filepath.Join(blobs.Root(), bucket))
		require.NoError(t, err)
		assert.Empty(t, entries, bucket)
	}
}

func TestListNewestFirstAndCounters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.NewString()

	older, err := svc.Publish(ctx, PublishInput{UserID: userID, Title: "Old", Thumbnail: upload("a.png", "a"), GameFile: upload("a.zip", "a")})
	require.NoError(t, err)
	newer, err := svc.Publish(ctx, PublishInput{UserID: uuid.NewString(), Title: "New", Thumbnail: upload("b.png", "b"), GameFile: upload("b.zip", "b")})
	require.NoError(t, err)

	games, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, newer.ID, games[0].ID)
	assert.Equal(t, older.ID, games[1].ID)

	viewed, err := svc.View(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), viewed.ViewCount)

	n, err := svc.Increment(ctx, older.ID, Views)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	n, err = svc.Increment(ctx, older.ID, Installs)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = svc.Increment(ctx, older.ID, Counter("likes"))
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.View(ctx, uuid.NewString())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	creators, err := svc.CreatorIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, creators, 2)
}

func TestDeleteOwnerOnly(t *testing.T) {
	svc, blobs := newTestService(t)
	ctx := context.Background()
	userID := uuid.NewString()

	game, err := svc.Publish(ctx, PublishInput{UserID: userID, Title: "Mine", Thumbnail: upload("a.png", "a"), GameFile: upload("a.zip", "a")})
	require.NoError(t, err)

	err = svc.Delete(ctx, uuid.NewString(), game.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, userID, game.ID))
	assert.NoFileExists(t, onDisk(blobs, game.Thumbnail))
	assert.NoFileExists(t, onDisk(blobs, game.FilePath))
}

func TestVersions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateVersion(ctx, "Launcher", "", "https://dl.example/1")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	v, err := svc.CreateVersion(ctx, "Launcher", "1.0.0", "https://dl.example/1")
	require.NoError(t, err)

	updated, err := svc.UpdateVersion(ctx, v.ID, "1.1.0", "https://dl.example/2")
	require.NoError(t, err)
	assert.Equal(t, "Launcher", updated.Title)
	assert.Equal(t, "1.1.0", updated.Version)
	assert.True(t, updated.UpdatedAt.After(v.UpdatedAt))

	got, err := svc.GetVersion(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	require.NoError(t, svc.DeleteVersion(ctx, v.ID))
	assert.ErrorIs(t, svc.DeleteVersion(ctx, v.ID), apperr.ErrNotFound)
}

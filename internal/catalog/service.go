package catalog

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/playforge/ugc-backend/internal/apperr"
	"github.com/playforge/ugc-backend/internal/storage"
)

// Blobs stores uploaded files and hands back their public paths.
type Blobs interface {
	Save(ctx context.Context, bucket, originalName string, r io.Reader) (string, error)
	Remove(publicPath string) error
}

// Upload is a file received from a client.
type Upload struct {
	Filename string
	Body     io.Reader
}

// PublishInput captures the data required to publish a game.
type PublishInput struct {
	UserID      string
	Title       string
	Description string
	AuthorName  string
	Thumbnail   *Upload
	GameFile    *Upload
}

// Service manages published games and launcher versions.
type Service struct {
	repo   Repository
	blobs  Blobs
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds a catalog service.
func NewService(repo Repository, blobs Blobs, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		blobs:  blobs,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Publish stores both uploads and records the game. Stored files are removed
// again when a later step fails.
func (s *Service) Publish(ctx context.Context, in PublishInput) (Game, error) {
	if in.Thumbnail == nil || in.GameFile == nil {
		return Game{}, apperr.Validation("both thumbnail and game file are required")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Game{}, apperr.Validation("title is required")
	}
	if in.UserID == "" {
		return Game{}, apperr.Auth("user required")
	}

	var saved []string
	cleanup := func() {
		for _, p := range saved {
			s.discard(p)
		}
	}

	thumb, err := s.blobs.Save(ctx, storage.Thumbnails, in.Thumbnail.Filename, in.Thumbnail.Body)
	if err != nil {
		return Game{}, err
	}
	saved = append(saved, thumb)
	file, err := s.blobs.Save(ctx, storage.Games, in.GameFile.Filename, in.GameFile.Body)
	if err != nil {
		cleanup()
		return Game{}, err
	}
	saved = append(saved, file)

	ts := s.now()
	game := Game{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Thumbnail:   thumb,
		AuthorName:  strings.TrimSpace(in.AuthorName),
		FilePath:    file,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if err := s.repo.CreateGame(ctx, game); err != nil {
		cleanup()
		return Game{}, err
	}
	return game, nil
}

// List returns every published game, newest first.
func (s *Service) List(ctx context.Context) ([]Game, error) {
	return s.repo.ListGames(ctx, "")
}

// ListByUser returns the games a user published, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Game, error) {
	return s.repo.ListGames(ctx, userID)
}

// View returns a game and counts the view.
func (s *Service) View(ctx context.Context, id string) (Game, error) {
	return s.repo.ViewGame(ctx, id)
}

// Delete removes a game owned by userID along with its stored files.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	game, err := s.repo.DeleteOwnedGame(ctx, userID, id)
	if err != nil {
		return err
	}
	s.discard(game.Thumbnail)
	s.discard(game.FilePath)
	return nil
}

// Increment bumps a popularity counter and returns its new value.
func (s *Service) Increment(ctx context.Context, id string, counter Counter) (int64, error) {
	return s.repo.Increment(ctx, id, counter)
}

// Count returns the number of published games.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.CountGames(ctx)
}

// CreatorIDs returns the users that published at least one game.
func (s *Service) CreatorIDs(ctx context.Context) ([]string, error) {
	return s.repo.CreatorIDs(ctx)
}

func (s *Service) discard(publicPath string) {
	if publicPath == "" {
		return
	}
	if err := s.blobs.Remove(publicPath); err != nil {
		s.logger.Warn("catalog.remove_file failed", slog.String("path", publicPath), slog.Any("error", err))
	}
}

// CreateVersion records a launcher release.
func (s *Service) CreateVersion(ctx context.Context, title, version, link string) (Version, error) {
	title, version, link = strings.TrimSpace(title), strings.TrimSpace(version), strings.TrimSpace(link)
	if title == "" || version == "" || link == "" {
		return Version{}, apperr.Validation("title, version and link are required")
	}
	ts := s.now()
	v := Version{ID: uuid.NewString(), Title: title, Version: version, Link: link, CreatedAt: ts, UpdatedAt: ts}
	if err := s.repo.CreateVersion(ctx, v); err != nil {
		return Version{}, err
	}
	return v, nil
}

// GetVersion returns a launcher release.
func (s *Service) GetVersion(ctx context.Context, id string) (Version, error) {
	return s.repo.GetVersion(ctx, id)
}

// UpdateVersion replaces the version string and download link of a release.
func (s *Service) UpdateVersion(ctx context.Context, id, version, link string) (Version, error) {
	version, link = strings.TrimSpace(version), strings.TrimSpace(link)
	if version == "" || link == "" {
		return Version{}, apperr.Validation("version and link are required")
	}
	return s.repo.UpdateVersion(ctx, Version{ID: id, Version: version, Link: link, UpdatedAt: s.now()})
}

// DeleteVersion removes a launcher release.
func (s *Service) DeleteVersion(ctx context.Context, id string) error {
	return s.repo.DeleteVersion(ctx, id)
}

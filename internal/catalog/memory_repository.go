package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/playforge/ugc-backend/internal/apperr"
)

// CreatorNames resolves a user identifier to a display name.
type CreatorNames func(ctx context.Context, userID string) string

type memoryRepository struct {
	mu       sync.RWMutex
	games    map[string]Game
	versions map[string]Version
	names    CreatorNames
}

// NewMemoryRepository constructs an in-memory repository for tests. names may
// be nil.
func NewMemoryRepository(names CreatorNames) Repository {
	return &memoryRepository{
		games:    make(map[string]Game),
		versions: make(map[string]Version),
		names:    names,
	}
}

func (r *memoryRepository) withName(ctx context.Context, g Game) Game {
	if r.names != nil {
		g.CreatorName = r.names(ctx, g.UserID)
	}
	return g
}

func (r *memoryRepository) CreateGame(_ context.Context, g Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.games[g.ID]; exists {
		return apperr.Conflict("game exists")
	}
	g.CreatorName = ""
	r.games[g.ID] = g
	return nil
}

func (r *memoryRepository) ListGames(ctx context.Context, userID string) ([]Game, error) {
	r.mu.RLock()
	games := make([]Game, 0, len(r.games))
	for _, g := range r.games {
		if userID == "" || g.UserID == userID {
			games = append(games, g)
		}
	}
	r.mu.RUnlock()

	sort.Slice(games, func(i, j int) bool {
		if games[i].CreatedAt.Equal(games[j].CreatedAt) {
			return games[i].ID < games[j].ID
		}
		return games[i].CreatedAt.After(games[j].CreatedAt)
	})
	for i := range games {
		games[i] = r.withName(ctx, games[i])
	}
	return games, nil
}

func (r *memoryRepository) ViewGame(ctx context.Context, id string) (Game, error) {
	r.mu.Lock()
	g, ok := r.games[id]
	if ok {
		g.ViewCount++
		r.games[id] = g
	}
	r.mu.Unlock()
	if !ok {
		return Game{}, apperr.NotFound("game not found")
	}
	return r.withName(ctx, g), nil
}

func (r *memoryRepository) DeleteOwnedGame(ctx context.Context, userID, id string) (Game, error) {
	r.mu.Lock()
	g, ok := r.games[id]
	if ok && g.UserID == userID {
		delete(r.games, id)
	}
	r.mu.Unlock()
	if !ok || g.UserID != userID {
		return Game{}, apperr.NotFound("game not found")
	}
	return r.withName(ctx, g), nil
}

func (r *memoryRepository) Increment(_ context.Context, id string, counter Counter) (int64, error) {
	if _, ok := counter.column(); !ok {
		return 0, apperr.Validation("unknown counter")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[id]
	if !ok {
		return 0, apperr.NotFound("game not found")
	}
	var n int64
	if counter == Views {
		g.ViewCount++
		n = g.ViewCount
	} else {
		g.InstallCount++
		n = g.InstallCount
	}
	r.games[id] = g
	return n, nil
}

func (r *memoryRepository) CountGames(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games), nil
}

func (r *memoryRepository) CreatorIDs(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, g := range r.games {
		if _, dup := seen[g.UserID]; dup {
			continue
		}
		seen[g.UserID] = struct{}{}
		ids = append(ids, g.UserID)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *memoryRepository) CreateVersion(_ context.Context, v Version) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.versions[v.ID] = v
	return nil
}

func (r *memoryRepository) GetVersion(_ context.Context, id string) (Version, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.versions[id]
	if !ok {
		return Version{}, apperr.NotFound("game version not found")
	}
	return v, nil
}

func (r *memoryRepository) UpdateVersion(_ context.Context, v Version) (Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.versions[v.ID]
	if !ok {
		return Version{}, apperr.NotFound("game version not found")
	}
	stored.Version = v.Version
	stored.Link = v.Link
	stored.UpdatedAt = v.UpdatedAt
	r.versions[v.ID] = stored
	return stored, nil
}

func (r *memoryRepository) DeleteVersion(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.versions[id]; !ok {
		return apperr.NotFound("game version not found")
	}
	delete(r.versions, id)
	return nil
}

package wallet

import (
	"context"
	"sort"
	"sync"

	"github.com/playforge/ugc-backend/internal/apperr"
)

type memoryRepository struct {
	txMu    sync.Mutex
	mu      sync.RWMutex
	storage map[string]Link
}

type memoryTx struct {
	*memoryRepository
}

func (t memoryTx) InTx(_ context.Context, fn func(tx Repository) error) error {
	return fn(t)
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Link)}
}

func (r *memoryRepository) InTx(_ context.Context, fn func(tx Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.RLock()
	snapshot := make(map[string]Link, len(r.storage))
	for k, v := range r.storage {
		snapshot[k] = v
	}
	r.mu.RUnlock()

	if err := fn(memoryTx{r}); err != nil {
		r.mu.Lock()
		r.storage = snapshot
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *memoryRepository) FindByAddress(_ context.Context, address string) (Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, link := range r.storage {
		if link.Address == address {
			return link, nil
		}
	}
	return Link{}, apperr.NotFound("wallet not found")
}

func (r *memoryRepository) FindOwned(_ context.Context, userID, id string) (Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	link, ok := r.storage[id]
	if !ok || link.UserID != userID {
		return Link{}, apperr.NotFound("wallet not found")
	}
	return link, nil
}

func (r *memoryRepository) ListByUser(_ context.Context, userID string) ([]Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byUserLocked(userID, func(a, b Link) bool {
		if a.Primary != b.Primary {
			return a.Primary
		}
		return a.ConnectedAt.Before(b.ConnectedAt)
	}), nil
}

func (r *memoryRepository) byUserLocked(userID string, less func(a, b Link) bool) []Link {
	links := make([]Link, 0)
	for _, link := range r.storage {
		if link.UserID == userID {
			links = append(links, link)
		}
	}
	sort.Slice(links, func(i, j int) bool {
		if less(links[i], links[j]) {
			return true
		}
		if less(links[j], links[i]) {
			return false
		}
		return links[i].ID < links[j].ID
	})
	return links
}

func (r *memoryRepository) CountByUser(_ context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, link := range r.storage {
		if link.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *memoryRepository) CountLinkedUsers(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make(map[string]struct{})
	for _, link := range r.storage {
		users[link.UserID] = struct{}{}
	}
	return len(users), nil
}

func (r *memoryRepository) Create(_ context.Context, link Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.storage {
		if other.ID == link.ID || other.Address == link.Address {
			return apperr.Conflict("wallet is already connected to another account")
		}
	}
	r.storage[link.ID] = link
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.storage[id]; !ok {
		return apperr.NotFound("wallet not found")
	}
	delete(r.storage, id)
	return nil
}

func (r *memoryRepository) ClearPrimary(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, link := range r.storage {
		if link.UserID == userID && link.Primary {
			link.Primary = false
			r.storage[id] = link
		}
	}
	return nil
}

func (r *memoryRepository) MarkPrimary(_ context.Context, id string) (Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	link, ok := r.storage[id]
	if !ok {
		return Link{}, apperr.NotFound("wallet not found")
	}
	link.Primary = true
	r.storage[id] = link
	return link, nil
}

func (r *memoryRepository) PromoteOldest(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	links := r.byUserLocked(userID, func(a, b Link) bool { return a.ConnectedAt.Before(b.ConnectedAt) })
	if len(links) == 0 {
		return nil
	}
	oldest := links[0]
	oldest.Primary = true
	r.storage[oldest.ID] = oldest
	return nil
}

func (r *memoryRepository) UpdateLabel(_ context.Context, userID, id, label string) (Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	link, ok := r.storage[id]
	if !ok || link.UserID != userID {
		return Link{}, apperr.NotFound("wallet not found")
	}
	link.Label = label
	r.storage[id] = link
	return link, nil
}

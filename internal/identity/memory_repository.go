package identity

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/playforge/ugc-backend/internal/apperr"
)

// LinkOwner reports the user id owning a connected wallet link, if any.
type LinkOwner func(ctx context.Context, address string) (userID string, ok bool)

// memoryRepository keeps users in maps. txMu serialises transactions with
// every write so a rollback snapshot never swallows a concurrent write.
type memoryRepository struct {
	txMu   sync.Mutex
	mu     sync.RWMutex
	users  map[string]User
	tokens map[string]VerificationToken
	links  LinkOwner
}

// memoryTx is the view handed to InTx callbacks. It already holds txMu, so
// its writers skip the lock and nested InTx calls run inline.
type memoryTx struct {
	*memoryRepository
}

func (t memoryTx) InTx(_ context.Context, fn func(tx Repository) error) error {
	return fn(t)
}

func (t memoryTx) Create(_ context.Context, user User) error { return t.create(user) }
func (t memoryTx) Update(_ context.Context, user User) error { return t.update(user) }
func (t memoryTx) UpdateCoins(_ context.Context, id string, coins int64) (User, error) {
	return t.updateCoins(id, coins)
}
func (t memoryTx) Delete(_ context.Context, id string) (User, error) { return t.remove(id) }
func (t memoryTx) SaveVerificationToken(_ context.Context, token VerificationToken) (bool, error) {
	return t.saveToken(token)
}
func (t memoryTx) TakeVerificationToken(_ context.Context, hash string) (VerificationToken, error) {
	return t.takeToken(hash)
}

// NewMemoryRepository builds an in-memory user store for testing.
func NewMemoryRepository() Repository {
	return NewMemoryRepositoryWithLinks(nil)
}

// NewMemoryRepositoryWithLinks builds an in-memory user store that resolves
// connected wallet links through owner.
func NewMemoryRepositoryWithLinks(owner LinkOwner) Repository {
	return &memoryRepository{
		users:  make(map[string]User),
		tokens: make(map[string]VerificationToken),
		links:  owner,
	}
}

// InTx serialises transactions and restores the previous state when fn fails.
func (r *memoryRepository) InTx(_ context.Context, fn func(tx Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.RLock()
	users := make(map[string]User, len(r.users))
	for k, v := range r.users {
		users[k] = v
	}
	tokens := make(map[string]VerificationToken, len(r.tokens))
	for k, v := range r.tokens {
		tokens[k] = v
	}
	r.mu.RUnlock()

	if err := fn(memoryTx{r}); err != nil {
		r.mu.Lock()
		r.users, r.tokens = users, tokens
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, apperr.NotFound("user not found")
	}
	return user, nil
}

func (r *memoryRepository) FindByWallet(_ context.Context, address string) (User, error) {
	return r.findFirst(func(u User) bool { return u.WalletAddress != "" && strings.EqualFold(u.WalletAddress, address) })
}

func (r *memoryRepository) FindByLinkedWallet(ctx context.Context, address string) (User, error) {
	if r.links == nil {
		return User{}, apperr.NotFound("user not found")
	}
	userID, ok := r.links(ctx, strings.ToLower(address))
	if !ok {
		return User{}, apperr.NotFound("user not found")
	}
	return r.FindByID(ctx, userID)
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (User, error) {
	return r.findFirst(func(u User) bool { return u.Email != "" && strings.EqualFold(u.Email, email) })
}

func (r *memoryRepository) FindByPhone(_ context.Context, phone string) (User, error) {
	return r.findFirst(func(u User) bool { return u.Phone != "" && u.Phone == phone })
}

// findFirst returns the oldest user matching the predicate.
func (r *memoryRepository) findFirst(match func(User) bool) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var (
		found User
		ok    bool
	)
	for _, u := range r.users {
		if !match(u) {
			continue
		}
		if !ok || u.CreatedAt.Before(found.CreatedAt) {
			found, ok = u, true
		}
	}
	if !ok {
		return User{}, apperr.NotFound("user not found")
	}
	return found, nil
}

func (r *memoryRepository) Create(_ context.Context, user User) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	return r.create(user)
}

func (r *memoryRepository) create(user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.ID]; exists {
		return apperr.Conflict("record already exists")
	}
	if err := r.checkUniqueLocked(user); err != nil {
		return err
	}
	r.users[user.ID] = user
	return nil
}

func (r *memoryRepository) Update(_ context.Context, user User) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	return r.update(user)
}

func (r *memoryRepository) update(user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[user.ID]
	if !ok {
		return apperr.NotFound("user not found")
	}
	if err := r.checkUniqueLocked(user); err != nil {
		return err
	}
	stored.Name = user.Name
	stored.Email = user.Email
	stored.WalletAddress = user.WalletAddress
	stored.Phone = user.Phone
	stored.UpdatedAt = user.UpdatedAt
	r.users[user.ID] = stored
	return nil
}

// checkUniqueLocked mirrors the unique indexes on email and wallet address.
func (r *memoryRepository) checkUniqueLocked(user User) error {
	for id, other := range r.users {
		if id == user.ID {
			continue
		}
		if user.Email != "" && strings.EqualFold(other.Email, user.Email) {
			return apperr.Conflict("email already belongs to another account")
		}
		if user.WalletAddress != "" && strings.EqualFold(other.WalletAddress, user.WalletAddress) {
			return apperr.Conflict("wallet address already belongs to another account")
		}
	}
	return nil
}

func (r *memoryRepository) UpdateCoins(_ context.Context, id string, coins int64) (User, error) {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	return r.updateCoins(id, coins)
}

func (r *memoryRepository) updateCoins(id string, coins int64) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, apperr.NotFound("user not found")
	}
	user.Coins = coins
	r.users[id] = user
	return user, nil
}

func (r *memoryRepository) Delete(_ context.Context, id string) (User, error) {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	return r.remove(id)
}

func (r *memoryRepository) remove(id string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, apperr.NotFound("user not found")
	}
	delete(r.users, id)
	for hash, token := range r.tokens {
		if token.UserID == id {
			delete(r.tokens, hash)
		}
	}
	return user, nil
}

func (r *memoryRepository) List(_ context.Context, filter ListFilter) ([]User, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matches := make([]User, 0, len(r.users))
	for _, u := range r.users {
		if search != "" && !strings.Contains(strings.ToLower(u.Name), search) &&
			!strings.Contains(u.Email, search) && !strings.Contains(u.WalletAddress, search) &&
			!strings.Contains(u.Phone, search) {
			continue
		}
		if !filter.CreatedSince.IsZero() && u.CreatedAt.Before(filter.CreatedSince) {
			continue
		}
		if filter.IncludeIDs != nil && !slices.Contains(filter.IncludeIDs, u.ID) {
			continue
		}
		if slices.Contains(filter.ExcludeIDs, u.ID) {
			continue
		}
		matches = append(matches, u)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID < matches[j].ID
		}
		if filter.Newest {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	total := len(matches)
	if filter.Limit > 0 {
		start := min(filter.Offset, total)
		end := min(start+filter.Limit, total)
		matches = matches[start:end]
	}
	return matches, total, nil
}

func (r *memoryRepository) SaveVerificationToken(_ context.Context, token VerificationToken) (bool, error) {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	return r.saveToken(token)
}

func (r *memoryRepository) saveToken(token VerificationToken) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tokens[token.Hash]; exists {
		return false, nil
	}
	if _, ok := r.users[token.UserID]; !ok {
		return false, apperr.NotFound("user not found")
	}
	r.tokens[token.Hash] = token
	return true, nil
}

func (r *memoryRepository) TakeVerificationToken(_ context.Context, hash string) (VerificationToken, error) {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	return r.takeToken(hash)
}

func (r *memoryRepository) takeToken(hash string) (VerificationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[hash]
	if !ok {
		return VerificationToken{}, apperr.NotFound("verification token not found")
	}
	delete(r.tokens, hash)
	return token, nil
}

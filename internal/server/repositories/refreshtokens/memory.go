package refreshtokens

import (
	"context"
	"sync"
	"time"

	"github.com/jagcoaching/speechcoach/internal/common"
	"github.com/jagcoaching/speechcoach/internal/server/models"
)

// MemoryRepository keeps refresh tokens in process memory, keyed by hash.
// A single mutex makes Consume atomic.
type MemoryRepository struct {
	mu     sync.Mutex
	tokens map[string]models.RefreshToken
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tokens: make(map[string]models.RefreshToken)}
}

func (r *MemoryRepository) Create(_ context.Context, token *models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tokens[token.TokenHash]; ok {
		return common.ErrorAlreadyExists
	}
	r.tokens[token.TokenHash] = *token
	return nil
}

func (r *MemoryRepository) Find(_ context.Context, tokenHash string, now time.Time) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[tokenHash]
	if !ok || t.Expired(now) {
		return nil, common.ErrorNotFound
	}
	return &t, nil
}

func (r *MemoryRepository) Consume(_ context.Context, tokenHash string, now time.Time) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[tokenHash]
	if !ok || t.Expired(now) {
		return nil, common.ErrorNotFound
	}
	delete(r.tokens, tokenHash)
	return &t, nil
}

func (r *MemoryRepository) Delete(_ context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tokens, tokenHash)
	return nil
}

func (r *MemoryRepository) DeleteByUser(_ context.Context, userID string) (int64, error) {
	return r.deleteWhere(func(t models.RefreshToken) bool { return t.UserID == userID }), nil
}

func (r *MemoryRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	return r.deleteWhere(func(t models.RefreshToken) bool { return t.Expired(now) }), nil
}

func (r *MemoryRepository) deleteWhere(match func(models.RefreshToken) bool) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for hash, t := range r.tokens {
		if match(t) {
			delete(r.tokens, hash)
			n++
		}
	}
	return n
}

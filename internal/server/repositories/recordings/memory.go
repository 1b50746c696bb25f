package recordings

import (
	"context"
	"slices"
	"sync"

	"github.com/jagcoaching/speechcoach/internal/common"
	"github.com/jagcoaching/speechcoach/internal/server/models"
)

type MemoryRepository struct {
	mu   sync.RWMutex
	recs map[string]models.Recording
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{recs: make(map[string]models.Recording)}
}

func (r *MemoryRepository) Create(_ context.Context, rec *models.Recording) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.recs[rec.ID]; ok {
		return common.ErrorAlreadyExists
	}
	r.recs[rec.ID] = *rec
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.Recording, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.recs[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &rec, nil
}

func (r *MemoryRepository) ListByUser(_ context.Context, userID string) ([]*models.Recording, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.Recording, 0)
	for _, rec := range r.recs {
		if rec.UserID == userID {
			result = append(result, &rec)
		}
	}
	slices.SortFunc(result, func(a, b *models.Recording) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return result, nil
}

func (r *MemoryRepository) Update(_ context.Context, rec *models.Recording) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.recs[rec.ID]
	if !ok {
		return common.ErrorNotFound
	}
	stored.Status = rec.Status
	stored.Report = rec.Report
	stored.Error = rec.Error
	stored.UpdatedAt = rec.UpdatedAt
	r.recs[rec.ID] = stored
	return nil
}

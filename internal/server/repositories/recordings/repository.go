// Package recordings stores uploaded speech recordings and their analysis
// results.
package recordings

import (
	"context"

	"github.com/jagcoaching/speechcoach/internal/server/models"
)

// Repository persists recordings. Missing ids yield common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, rec *models.Recording) error
	GetByID(ctx context.Context, id string) (*models.Recording, error)
	// ListByUser returns the user's recordings, newest first.
	ListByUser(ctx context.Context, userID string) ([]*models.Recording, error)
	// Update writes status, report, error and updated_at of rec.
	Update(ctx context.Context, rec *models.Recording) error
}

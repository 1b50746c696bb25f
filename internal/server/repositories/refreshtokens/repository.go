// Package refreshtokens declares the server-side repository contract for
// persisted refresh sessions and its PostgreSQL, MongoDB and in-memory
// implementations. Tokens are addressed only by their SHA-256 digest.
package refreshtokens

import (
	"context"
	"time"

	"github.com/jagcoaching/speechcoach/internal/server/models"
)

// Repository defines operations for storing, looking up, rotating and
// revoking refresh tokens.
type Repository interface {
	// Create stores a new refresh token record.
	Create(ctx context.Context, token *models.RefreshToken) error

	// Find returns the live record for tokenHash. Absent records and records
	// expired at now both yield common.ErrorNotFound.
	Find(ctx context.Context, tokenHash string, now time.Time) (*models.RefreshToken, error)

	// Consume atomically removes the live record for tokenHash and returns
	// it. Of several concurrent callers presenting the same hash at most one
	// succeeds; the others get common.ErrorNotFound.
	Consume(ctx context.Context, tokenHash string, now time.Time) (*models.RefreshToken, error)

	// Delete removes a record by hash. Deleting a non-existent token is not
	// an error.
	Delete(ctx context.Context, tokenHash string) error

	// DeleteByUser removes every refresh token of userID and reports how
	// many were removed.
	DeleteByUser(ctx context.Context, userID string) (int64, error)

	// DeleteExpired purges records expired at now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

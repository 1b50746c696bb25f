package repomanager

import (
	"context"

	"github.com/jagcoaching/speechcoach/internal/server/repositories/recordings"
	"github.com/jagcoaching/speechcoach/internal/server/repositories/refreshtokens"
	"github.com/jagcoaching/speechcoach/internal/server/repositories/users"
)

// InMemoryRepositoryManager keeps everything in process memory. Used by tests
// and by the "memory" storage driver.
type InMemoryRepositoryManager struct {
	users         *users.MemoryRepository
	refreshTokens *refreshtokens.MemoryRepository
	recordings    *recordings.MemoryRepository
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		users:         users.NewMemoryRepository(),
		refreshTokens: refreshtokens.NewMemoryRepository(),
		recordings:    recordings.NewMemoryRepository(),
	}
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context) error { return nil }
func (m *InMemoryRepositoryManager) Ping(context.Context) error          { return nil }
func (m *InMemoryRepositoryManager) Close(context.Context) error         { return nil }

func (m *InMemoryRepositoryManager) Users() users.Repository                 { return m.users }
func (m *InMemoryRepositoryManager) RefreshTokens() refreshtokens.Repository { return m.refreshTokens }
func (m *InMemoryRepositoryManager) Recordings() recordings.Repository       { return m.recordings }

func (m *InMemoryRepositoryManager) WithinTx(ctx context.Context, fn func(ctx context.Context, m RepositoryManager) error) error {
	return fn(ctx, m)
}

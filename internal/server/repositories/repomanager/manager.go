// Package repomanager groups the repositories of one storage backend behind a
// single RepositoryManager and owns the backend's connection lifecycle.
package repomanager

import (
	"context"
	"fmt"

	"github.com/jagcoaching/speechcoach/internal/server/repositories/recordings"
	"github.com/jagcoaching/speechcoach/internal/server/repositories/refreshtokens"
	"github.com/jagcoaching/speechcoach/internal/server/repositories/users"
)

// Storage drivers understood by Open.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// RepositoryManager vends repositories bound to one backend.
type RepositoryManager interface {
	// RunMigrations brings the schema (or indexes) up to date.
	RunMigrations(ctx context.Context) error
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases the underlying connection pool.
	Close(ctx context.Context) error

	Users() users.Repository
	RefreshTokens() refreshtokens.Repository
	Recordings() recordings.Repository

	// WithinTx runs fn with a manager whose repositories share one
	// transaction where the backend supports it. fn's error aborts it.
	WithinTx(ctx context.Context, fn func(ctx context.Context, m RepositoryManager) error) error
}

// Open connects to the backend named by driver. dsn is a PostgreSQL DSN or a
// mongodb:// URI; database is only used by MongoDB.
func Open(ctx context.Context, driver, dsn, database string) (RepositoryManager, error) {
	switch driver {
	case DriverPostgres:
		m, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return m, nil
	case DriverMongo:
		m, err := OpenMongo(ctx, dsn, database)
		if err != nil {
			return nil, err
		}
		return m, nil
	case DriverMemory:
		return NewInMemoryRepositoryManager(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

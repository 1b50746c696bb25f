package repomanager

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepositoryManager(t *testing.T) {
	ctx := context.Background()
	m := NewInMemoryRepositoryManager()

	require.NoError(t, m.RunMigrations(ctx))
	require.NoError(t, m.Ping(ctx))

	assert.Same(t, m.Users(), m.Users(), "repositories are shared")
	assert.NotNil(t, m.RefreshTokens())
	assert.NotNil(t, m.Recordings())

	boom := errors.New("boom")
	err := m.WithinTx(ctx, func(ctx context.Context, tm RepositoryManager) error {
		assert.Same(t, m, tm)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	require.NoError(t, m.Close(ctx))
}

func TestOpen(t *testing.T) {
	m, err := Open(context.Background(), DriverMemory, "", "")
	require.NoError(t, err)
	assert.IsType(t, &InMemoryRepositoryManager{}, m)

	_, err = Open(context.Background(), "sqlite", "", "")
	assert.ErrorContains(t, err, `unknown storage driver "sqlite"`)
}

package refreshtokens

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jagcoaching/speechcoach/internal/common"
	"github.com/jagcoaching/speechcoach/internal/server/models"
)

func TestMemoryRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	tok := testToken()
	require.NoError(t, repo.Create(ctx, tok))
	assert.ErrorIs(t, repo.Create(ctx, tok), common.ErrorAlreadyExists)

	got, err := repo.Find(ctx, tok.TokenHash, testNow)
	require.NoError(t, err)
	assert.Equal(t, *tok, *got)

	// expiry is enforced on lookup even though the record still exists
	_, err = repo.Find(ctx, tok.TokenHash, tok.ExpiresAt)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = repo.Consume(ctx, tok.TokenHash, tok.ExpiresAt.Add(time.Second))
	assert.ErrorIs(t, err, common.ErrorNotFound)

	got, err = repo.Consume(ctx, tok.TokenHash, testNow)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	_, err = repo.Find(ctx, tok.TokenHash, testNow)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, repo.Delete(ctx, tok.TokenHash), "delete is idempotent")
}

func TestMemoryRepository_ConcurrentConsume(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	require.NoError(t, repo.Create(ctx, testToken()))

	const callers = 32
	var (
		wg      sync.WaitGroup
		success atomic.Int32
		start   = make(chan struct{})
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := repo.Consume(ctx, "hash123", testNow); err == nil {
				success.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), success.Load())
}

func TestMemoryRepository_BulkDeletes(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	add := func(hash, user string, expires time.Time) {
		require.NoError(t, repo.Create(ctx, &models.RefreshToken{
			ID: hash, UserID: user, TokenHash: hash, ExpiresAt: expires, CreatedAt: testNow,
		}))
	}
	add("a", "u1", testNow.Add(time.Hour))
	add("b", "u1", testNow.Add(-time.Hour))
	add("c", "u2", testNow.Add(-time.Minute))
	add("d", "u2", testNow.Add(time.Hour))

	n, err := repo.DeleteExpired(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.DeleteByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.Find(ctx, "d", testNow)
	assert.NoError(t, err)
}

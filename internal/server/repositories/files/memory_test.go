package files

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	now := time.Now()

	f := sampleFile(now)
	require.NoError(t, repo.Create(ctx, f))
	assert.Error(t, repo.Create(ctx, f))

	f.Metadata[0] = 'X'
	got, err := repo.Get(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, []byte("meta"), got.Metadata, "stored record must not alias the caller's")

	require.NoError(t, repo.RotateNonce(ctx, "f1", "n1", "n2"))
	assert.ErrorIs(t, repo.RotateNonce(ctx, "f1", "n1", "n3"), common.ErrVersionConflict)
	assert.ErrorIs(t, repo.RotateNonce(ctx, "missing", "n1", "n3"), common.ErrVersionConflict)

	require.NoError(t, repo.SetAuthKey(ctx, "f1", []byte("pw")))
	require.NoError(t, repo.SetDownloadLimit(ctx, "f1", 2))
	got, err = repo.Get(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "n2", got.Nonce)
	assert.True(t, got.HasPassword)
	assert.Equal(t, []byte("pw"), got.AuthKey)
	assert.Equal(t, 2, got.DownloadLimit)

	n, err := repo.IncrementDownloads(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = repo.IncrementDownloads(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = repo.IncrementDownloads(ctx, "f1")
	assert.ErrorIs(t, err, common.ErrNotFound)

	expired, err := repo.ListExpired(ctx, now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "f1", expired[0].ID)

	require.NoError(t, repo.Delete(ctx, "f1"))
	assert.ErrorIs(t, repo.Delete(ctx, "f1"), common.ErrNotFound)
	_, err = repo.Get(ctx, "f1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestMemoryRepository_ListExpiredByTime(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	now := time.Now()

	fresh := sampleFile(now)
	old := sampleFile(now.Add(-2 * time.Hour))
	old.ID = "old"
	require.NoError(t, repo.Create(ctx, fresh))
	require.NoError(t, repo.Create(ctx, old))

	expired, err := repo.ListExpired(ctx, now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "old", expired[0].ID)
}

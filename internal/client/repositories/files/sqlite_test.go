package files

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophsend/internal/client/models"
	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE files (
  id         TEXT PRIMARY KEY,
  data       BLOB NOT NULL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
`)
	require.NoError(t, err)
	return db
}

func ownedFile(id string, created time.Time) *models.OwnedFile {
	return &models.OwnedFile{
		ID:            id,
		URL:           "https://send.example/download/" + id + "/",
		Name:          id + ".txt",
		SecretKey:     "secret-" + id,
		OwnerToken:    "owner-" + id,
		CreatedAt:     created,
		UpdatedAt:     created,
		ExpiresAt:     created.Add(time.Hour),
		DownloadLimit: 1,
	}
}

func TestUpsert_InsertAndUpdate(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	f := ownedFile("a", now)
	require.NoError(t, r.Upsert(ctx, f))

	got, err := r.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "secret-a", got.SecretKey)
	assert.True(t, now.Equal(got.CreatedAt))

	f.DownloadCount = 1
	require.NoError(t, r.Upsert(ctx, f))

	got, err = r.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, got.DownloadCount)
}

func TestGet_Missing(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	_, err := r.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestList_OrderedByCreation(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, r.Upsert(ctx, ownedFile("late", now.Add(time.Minute))))
	require.NoError(t, r.Upsert(ctx, ownedFile("early", now)))

	all, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "early", all[0].ID)
	assert.Equal(t, "late", all[1].ID)
}

func TestDeleteAndClear(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, ownedFile("a", time.Now())))
	require.NoError(t, r.Upsert(ctx, ownedFile("b", time.Now())))

	require.NoError(t, r.Delete(ctx, "a"))
	assert.ErrorIs(t, r.Delete(ctx, "a"), common.ErrNotFound)

	require.NoError(t, r.Clear(ctx))
	all, err := r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

package tombstones

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE tombstones (id TEXT PRIMARY KEY, removed_at INTEGER NOT NULL);`)
	require.NoError(t, err)
	return db
}

func TestTombstones_Lifecycle(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	at := time.Unix(1700000000, 5)

	require.NoError(t, r.Add(ctx, "a", at))
	require.NoError(t, r.Add(ctx, "a", at))
	require.NoError(t, r.Add(ctx, "b", at))

	got, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.True(t, at.Equal(got["a"]))

	require.NoError(t, r.Delete(ctx, "a"))
	require.NoError(t, r.Delete(ctx, "missing"))

	got, err = r.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)

	require.NoError(t, r.Clear(ctx))
	got, err = r.List(ctx)
	require.NoError(t, err)
	require.Empty(t, got)
}

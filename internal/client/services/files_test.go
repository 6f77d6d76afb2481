package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophsend/internal/client/client"
	"github.com/dmitrijs2005/gophsend/internal/client/models"
	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/dmitrijs2005/gophsend/internal/cryptox"
	"github.com/dmitrijs2005/gophsend/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

func ownedFile(id string) *models.OwnedFile {
	return &models.OwnedFile{
		ID:            id,
		URL:           "https://send.example/download/" + id + "/",
		SecretKey:     "c2VjcmV0",
		OwnerToken:    "owner-" + id,
		ExpiresAt:     fixedNow.Add(time.Hour),
		DownloadLimit: 3,
		UpdatedAt:     fixedNow.Add(-time.Hour),
	}
}

func newFileService(t *testing.T, c *fakeClient, files ...*models.OwnedFile) (*FileService, FileStore) {
	t.Helper()
	store := newStore(t)
	for _, f := range files {
		require.NoError(t, store.AddFile(context.Background(), f))
	}
	s := NewFileService(c, store, logging.NewNopLogger())
	s.now = func() time.Time { return fixedNow }
	return s, store
}

func TestFileService_Delete(t *testing.T) {
	ctx := context.Background()
	var gotOwner string
	c := &fakeClient{delete: func(id, owner string) error { gotOwner = owner; return nil }}
	s, store := newFileService(t, c, ownedFile("a"))

	require.NoError(t, s.Delete(ctx, "a"))
	assert.Equal(t, "owner-a", gotOwner)

	_, err := store.GetFile(ctx, "a")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestFileService_DeleteVanishedRemoteFile(t *testing.T) {
	c := &fakeClient{delete: func(string, string) error { return common.ErrNotFound }}
	s, _ := newFileService(t, c, ownedFile("a"))
	require.NoError(t, s.Delete(context.Background(), "a"))
}

func TestFileService_DeleteKeepsLocalOnNetworkError(t *testing.T) {
	ctx := context.Background()
	c := &fakeClient{delete: func(string, string) error { return common.ErrNetwork }}
	s, store := newFileService(t, c, ownedFile("a"))

	assert.ErrorIs(t, s.Delete(ctx, "a"), common.ErrNetwork)
	_, err := store.GetFile(ctx, "a")
	assert.NoError(t, err)
}

func TestFileService_ChangeLimit(t *testing.T) {
	ctx := context.Background()
	c := &fakeClient{setLimit: func(id, owner string, limit int) error {
		assert.Equal(t, 10, limit)
		return nil
	}}
	s, store := newFileService(t, c, ownedFile("a"))

	require.NoError(t, s.ChangeLimit(ctx, "a", 10))
	f, err := store.GetFile(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 10, f.DownloadLimit)
	assert.True(t, fixedNow.Equal(f.UpdatedAt))

	assert.ErrorIs(t, s.ChangeLimit(ctx, "a", 0), common.ErrValidation)
}

func TestFileService_SetPasswordIsIdempotent(t *testing.T) {
	ctx := context.Background()
	var keys []string
	c := &fakeClient{setPassword: func(id, owner, auth string) error {
		keys = append(keys, auth)
		return nil
	}}
	s, store := newFileService(t, c, ownedFile("a"))

	require.NoError(t, s.SetPassword(ctx, "a", "hunter2"))
	require.NoError(t, s.SetPassword(ctx, "a", "hunter2"))
	require.Len(t, keys, 2)
	assert.Equal(t, keys[0], keys[1])

	f, err := store.GetFile(ctx, "a")
	require.NoError(t, err)
	assert.True(t, f.HasPassword)
	assert.Equal(t, common.B64Encode(cryptox.PasswordAuthKey("hunter2", f.ShareURL())), keys[0])

	assert.ErrorIs(t, s.SetPassword(ctx, "a", ""), common.ErrValidation)
}

func TestFileService_Refresh(t *testing.T) {
	c := &fakeClient{info: func(id, owner string) (*client.FileStatus, error) {
		return &client.FileStatus{DownloadCount: 2, DownloadLimit: 3}, nil
	}}
	s, _ := newFileService(t, c)

	f := ownedFile("a")
	changed, err := s.Refresh(context.Background(), f)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 2, f.DownloadCount)

	changed, err = s.Refresh(context.Background(), f)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestFileService_RefreshStampsNewLimit(t *testing.T) {
	status := &client.FileStatus{DownloadCount: 1, DownloadLimit: 3}
	c := &fakeClient{info: func(string, string) (*client.FileStatus, error) { return status, nil }}
	s, _ := newFileService(t, c)

	f := ownedFile("a")
	before := f.UpdatedAt
	changed, err := s.Refresh(context.Background(), f)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, before, f.UpdatedAt, "a new count alone is not an update")

	status = &client.FileStatus{DownloadCount: 1, DownloadLimit: 7}
	changed, err = s.Refresh(context.Background(), f)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 7, f.DownloadLimit)
	assert.Equal(t, fixedNow, f.UpdatedAt)
}

func TestFileService_InfoRemovesVanished(t *testing.T) {
	ctx := context.Background()
	c := &fakeClient{info: func(string, string) (*client.FileStatus, error) { return nil, common.ErrNotFound }}
	s, store := newFileService(t, c, ownedFile("a"))

	_, err := s.Info(ctx, "a")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = store.GetFile(ctx, "a")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestFileService_InfoPersistsCounters(t *testing.T) {
	ctx := context.Background()
	c := &fakeClient{info: func(string, string) (*client.FileStatus, error) {
		return &client.FileStatus{DownloadCount: 1, DownloadLimit: 3}, nil
	}}
	s, store := newFileService(t, c, ownedFile("a"))

	f, err := s.Info(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, f.DownloadCount)

	stored, err := store.GetFile(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.DownloadCount)
}

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/dmitrijs2005/gophsend/internal/client/client"
	"github.com/dmitrijs2005/gophsend/internal/client/models"
	"github.com/dmitrijs2005/gophsend/internal/client/storage"
	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/dmitrijs2005/gophsend/internal/cryptox"
	"github.com/dmitrijs2005/gophsend/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// remoteList is an in-memory account file list.
type remoteList struct {
	blob    []byte
	puts    int
	getErr  error
	putErr  error
	lastKID string
	counts  map[string]int
}

func (r *remoteList) client() *fakeClient {
	return &fakeClient{
		getList: func(bearer, kid string) ([]byte, error) {
			r.lastKID = kid
			if r.getErr != nil {
				return nil, r.getErr
			}
			if r.blob == nil {
				return nil, common.ErrNotFound
			}
			return r.blob, nil
		},
		putList: func(bearer, kid string, data []byte) error {
			r.puts++
			if r.putErr != nil {
				return r.putErr
			}
			r.blob = append([]byte(nil), data...)
			return nil
		},
		info: func(id, _ string) (*client.FileStatus, error) {
			return &client.FileStatus{DownloadCount: r.counts[id], DownloadLimit: 3}, nil
		},
	}
}

// decode reads the stored list the way any holder of the key can: as one
// encrypted record stream carrying JSON.
func (r *remoteList) decode(t *testing.T, key []byte) []*models.OwnedFile {
	t.Helper()
	plain, err := io.ReadAll(cryptox.DecryptStream(bytes.NewReader(r.blob), key))
	require.NoError(t, err)
	var out []*models.OwnedFile
	require.NoError(t, json.Unmarshal(plain, &out))
	return out
}

type syncFixture struct {
	store   *storage.LocalStore
	auth    *AuthService
	remote  *remoteList
	sync    *FileListSync
	session *models.Session
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	store := newStore(t)
	remote := &remoteList{}
	c := remote.client()
	logger := logging.NewNopLogger()
	auth := NewAuthService(store, logger)
	files := NewFileService(c, store, logger)
	return &syncFixture{
		store:   store,
		auth:    auth,
		remote:  remote,
		sync:    NewFileListSync(c, store, files, auth, logger),
		session: testSession(),
	}
}

func fileIDs(files []*models.OwnedFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.ID)
	}
	return out
}

func TestSync_PushesLocalFilesToEmptyAccount(t *testing.T) {
	ctx := context.Background()
	fx := newSyncFixture(t)
	require.NoError(t, fx.store.AddFile(ctx, ownedFile("a")))

	res, err := fx.sync.Sync(ctx, fx.session)
	require.NoError(t, err)
	assert.True(t, res.Outgoing)
	assert.Equal(t, 1, fx.remote.puts)
	assert.Equal(t, cryptox.FileListID(fx.session.FileListKey()), fx.remote.lastKID)
	assert.Equal(t, []string{"a"}, fileIDs(fx.remote.decode(t, fx.session.FileListKey())))

	res, err = fx.sync.Sync(ctx, fx.session)
	require.NoError(t, err)
	assert.False(t, res.Outgoing)
	assert.Equal(t, 1, fx.remote.puts)
}

func TestSync_ImportsRemoteFiles(t *testing.T) {
	ctx := context.Background()
	fx := newSyncFixture(t)

	blob, err := cryptox.EncryptFileList([]*models.OwnedFile{ownedFile("r")}, fx.session.FileListKey())
	require.NoError(t, err)
	fx.remote.blob = blob

	res, err := fx.sync.Sync(ctx, fx.session)
	require.NoError(t, err)
	assert.True(t, res.Incoming)
	assert.False(t, res.Outgoing)

	files, err := fx.store.Files(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"r"}, fileIDs(files))
}

func TestSync_RefreshedCountsSettleAfterOnePush(t *testing.T) {
	ctx := context.Background()
	fx := newSyncFixture(t)
	a := ownedFile("a")
	require.NoError(t, fx.store.AddFile(ctx, a))

	blob, err := cryptox.EncryptFileList([]*models.OwnedFile{a}, fx.session.FileListKey())
	require.NoError(t, err)
	fx.remote.blob = blob
	fx.remote.counts = map[string]int{"a": 1}

	res, err := fx.sync.Sync(ctx, fx.session)
	require.NoError(t, err)
	assert.True(t, res.DownloadCount)
	assert.True(t, res.Outgoing)
	assert.Equal(t, 1, fx.remote.puts)
	pushed := fx.remote.decode(t, fx.session.FileListKey())
	require.Len(t, pushed, 1)
	assert.Equal(t, 1, pushed[0].DownloadCount)

	res, err = fx.sync.Sync(ctx, fx.session)
	require.NoError(t, err)
	assert.False(t, res.Outgoing)
	assert.False(t, res.DownloadCount)
	assert.Equal(t, 1, fx.remote.puts)
}

func TestSync_UnauthorizedSignsOut(t *testing.T) {
	ctx := context.Background()
	fx := newSyncFixture(t)
	require.NoError(t, fx.auth.SealSession(ctx, fx.session, []byte("pw")))
	require.NoError(t, fx.store.AddFile(ctx, ownedFile("a")))
	fx.remote.getErr = &client.ChallengeError{}

	res, err := fx.sync.Sync(ctx, fx.session)
	require.NoError(t, err)
	assert.Equal(t, models.SyncResult{Incoming: true}, res)
	assert.False(t, fx.session.LoggedIn())
	assert.Zero(t, fx.remote.puts)

	ok, err := fx.auth.HasSealedSession(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	files, err := fx.store.Files(ctx)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestSync_RemoteFailureStillMerges(t *testing.T) {
	ctx := context.Background()
	fx := newSyncFixture(t)
	require.NoError(t, fx.store.AddFile(ctx, ownedFile("a")))
	require.NoError(t, fx.store.AddFile(ctx, ownedFile("b")))
	require.NoError(t, fx.store.RemoveFile(ctx, "b"))
	fx.remote.getErr = common.ErrNetwork
	fx.remote.putErr = common.ErrNetwork

	res, err := fx.sync.Sync(ctx, fx.session)
	require.NoError(t, err)
	assert.True(t, res.Outgoing)
	assert.Equal(t, 1, fx.remote.puts)

	// Unknown remote state keeps the tombstone, so b cannot come back.
	fx.remote.getErr, fx.remote.putErr = nil, nil
	blob, err := cryptox.EncryptFileList([]*models.OwnedFile{ownedFile("b")}, fx.session.FileListKey())
	require.NoError(t, err)
	fx.remote.blob = blob

	_, err = fx.sync.Sync(ctx, fx.session)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, fileIDs(fx.remote.decode(t, fx.session.FileListKey())))
}

func TestSync_UndecryptableListIsIgnored(t *testing.T) {
	ctx := context.Background()
	fx := newSyncFixture(t)
	fx.remote.blob = []byte("garbage that is not a sealed list")

	_, err := fx.sync.Sync(ctx, fx.session)
	require.NoError(t, err)
}

func TestSync_SignedOutOnlyPrunes(t *testing.T) {
	ctx := context.Background()
	fx := newSyncFixture(t)
	require.NoError(t, fx.store.AddFile(ctx, ownedFile("a")))

	_, err := fx.sync.Sync(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, fx.remote.puts)
	assert.Empty(t, fx.remote.lastKID)
}

func TestSync_CancelledFetch(t *testing.T) {
	fx := newSyncFixture(t)
	fx.remote.getErr = context.Canceled

	_, err := fx.sync.Sync(context.Background(), fx.session)
	assert.True(t, errors.Is(err, context.Canceled))
}

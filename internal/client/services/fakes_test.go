package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/gophsend/internal/client/client"
	"github.com/dmitrijs2005/gophsend/internal/client/storage"
	"github.com/dmitrijs2005/gophsend/internal/logging"
	"github.com/stretchr/testify/require"
)

// fakeClient implements client.Client; calls to methods without a stub
// panic through the nil embedded interface.
type fakeClient struct {
	client.Client

	info        func(id, owner string) (*client.FileStatus, error)
	delete      func(id, owner string) error
	setLimit    func(id, owner string, limit int) error
	setPassword func(id, owner, auth string) error
	getList     func(bearer, kid string) ([]byte, error)
	putList     func(bearer, kid string, data []byte) error
}

func (f *fakeClient) Info(_ context.Context, id, owner string) (*client.FileStatus, error) {
	return f.info(id, owner)
}

func (f *fakeClient) Delete(_ context.Context, id, owner string) error {
	return f.delete(id, owner)
}

func (f *fakeClient) SetDownloadLimit(_ context.Context, id, owner string, limit int) error {
	return f.setLimit(id, owner, limit)
}

func (f *fakeClient) SetPassword(_ context.Context, id, owner, auth string) error {
	return f.setPassword(id, owner, auth)
}

func (f *fakeClient) GetFileList(_ context.Context, bearer, kid string) ([]byte, error) {
	return f.getList(bearer, kid)
}

func (f *fakeClient) PutFileList(_ context.Context, bearer, kid string, data []byte) error {
	return f.putList(bearer, kid, data)
}

func newStore(t *testing.T) *storage.LocalStore {
	t.Helper()
	s, err := storage.Open(context.Background(), ":memory:", logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

package transfer

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophsend/internal/client/client"
	"github.com/dmitrijs2005/gophsend/internal/client/models"
	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/dmitrijs2005/gophsend/internal/cryptox"
)

type storedFile struct {
	data     []byte
	meta     []byte
	authKey  []byte
	owner    string
	password bool
	nonce    string
	dlimit   int
	dcount   int
}

// fakeService is an in-memory file service that checks signatures the way
// the real one does.
type fakeService struct {
	client.Client

	mu      sync.Mutex
	files   map[string]*storedFile
	deleted []string

	// uploadHook, when set, wraps the upload body before it is read.
	uploadHook func(ctx context.Context, body io.Reader) io.Reader
}

func newFakeService() *fakeService {
	return &fakeService{files: make(map[string]*storedFile)}
}

func newNonce() string {
	return common.B64Encode(common.GenerateRandByteArray(16))
}

func (s *fakeService) Upload(ctx context.Context, req client.UploadRequest) (*client.UploadResponse, error) {
	body := req.Body
	if s.uploadHook != nil {
		body = s.uploadHook(ctx, body)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	authKey, err := common.B64Decode(req.AuthKey)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := common.B64Encode(common.GenerateRandByteArray(8))
	s.files[id] = &storedFile{
		data:    data,
		meta:    req.Metadata,
		authKey: authKey,
		owner:   req.OwnerToken,
		nonce:   newNonce(),
		dlimit:  req.DownloadLimit,
	}
	return &client.UploadResponse{ID: id, URL: "https://send.example/download/" + id + "/"}, nil
}

func (s *fakeService) Exists(_ context.Context, id string) (*client.ExistsResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &client.ExistsResponse{RequiresPassword: f.password, Nonce: f.nonce}, nil
}

// verify checks auth and rotates the nonce either way.
func (s *fakeService) verify(id, auth string) (*storedFile, error) {
	f, ok := s.files[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	valid := cryptox.VerifyAuthHeader(f.authKey, f.nonce, auth)
	f.nonce = newNonce()
	if !valid {
		return nil, &client.ChallengeError{Nonce: f.nonce}
	}
	return f, nil
}

func (s *fakeService) Metadata(_ context.Context, id, auth string) (*client.MetadataResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.verify(id, auth)
	if err != nil {
		return nil, err
	}
	return &client.MetadataResponse{Metadata: f.meta, Size: int64(len(f.data)), TTL: time.Hour, Nonce: f.nonce}, nil
}

func (s *fakeService) Download(_ context.Context, id, auth string) (*client.DownloadResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.verify(id, auth)
	if err != nil {
		return nil, err
	}
	f.dcount++
	return &client.DownloadResponse{
		Body:  io.NopCloser(bytes.NewReader(f.data)),
		Size:  int64(len(f.data)),
		Nonce: f.nonce,
	}, nil
}

func (s *fakeService) Delete(_ context.Context, id, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, id)
	delete(s.files, id)
	return nil
}

func (s *fakeService) SetPassword(_ context.Context, id, owner, authKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok || f.owner != owner {
		return common.ErrNotFound
	}
	key, err := common.B64Decode(authKey)
	if err != nil {
		return err
	}
	f.authKey = key
	f.password = true
	return nil
}

func (s *fakeService) file(id string) *storedFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files[id]
}

// passwordSetter applies passwords through the fake service the way the
// file service does.
type passwordSetter struct {
	svc *fakeService
	err error
}

func (p *passwordSetter) ApplyPassword(ctx context.Context, f *models.OwnedFile, password string) error {
	if p.err != nil {
		return p.err
	}
	key := cryptox.PasswordAuthKey(password, f.ShareURL())
	if err := p.svc.SetPassword(ctx, f.ID, f.OwnerToken, common.B64Encode(key)); err != nil {
		return err
	}
	f.HasPassword = true
	return nil
}

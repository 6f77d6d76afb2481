package client

import (
	"context"
	"io"
	"time"
)

// UploadRequest carries an encrypted upload. Body is streamed as is.
type UploadRequest struct {
	Body          io.Reader
	Size          int64
	Metadata      []byte
	AuthKey       string
	OwnerToken    string
	TimeLimit     time.Duration
	DownloadLimit int
	BearerToken   string
}

type UploadResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type ExistsResponse struct {
	RequiresPassword bool
	Nonce            string
}

type MetadataResponse struct {
	Metadata []byte
	Size     int64
	TTL      time.Duration
	Nonce    string
}

// DownloadResponse holds the open ciphertext stream; the caller closes Body.
type DownloadResponse struct {
	Body  io.ReadCloser
	Size  int64
	Nonce string
}

// FileStatus is the owner's view of an uploaded file.
type FileStatus struct {
	DownloadCount int
	DownloadLimit int
	TTL           time.Duration
}

// Client is the remote file service contract.
type Client interface {
	Ping(ctx context.Context) error
	Upload(ctx context.Context, req UploadRequest) (*UploadResponse, error)
	Exists(ctx context.Context, id string) (*ExistsResponse, error)
	Metadata(ctx context.Context, id, auth string) (*MetadataResponse, error)
	Download(ctx context.Context, id, auth string) (*DownloadResponse, error)
	Info(ctx context.Context, id, ownerToken string) (*FileStatus, error)
	SetDownloadLimit(ctx context.Context, id, ownerToken string, limit int) error
	Delete(ctx context.Context, id, ownerToken string) error
	SetPassword(ctx context.Context, id, ownerToken, authKey string) error
	GetFileList(ctx context.Context, bearerToken, kid string) ([]byte, error)
	PutFileList(ctx context.Context, bearerToken, kid string, data []byte) error
}

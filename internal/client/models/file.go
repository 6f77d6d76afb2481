package models

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// OwnedFile is a file the user uploaded and can still manage. It is also the
// record format of the encrypted remote file list, so it carries the secret
// key and owner token.
type OwnedFile struct {
	ID            string    `json:"id"`
	URL           string    `json:"url"`
	Name          string    `json:"name"`
	Size          int64     `json:"size"`
	Type          string    `json:"type"`
	Manifest      Manifest  `json:"manifest"`
	SecretKey     string    `json:"secretKey"`
	OwnerToken    string    `json:"ownerToken"`
	CreatedAt     time.Time `json:"createdAt"`
	ExpiresAt     time.Time `json:"expiresAt"`
	DownloadLimit int       `json:"dlimit"`
	DownloadCount int       `json:"dtotal"`
	HasPassword   bool      `json:"hasPassword"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ShareURL is the link handed to recipients; the secret stays in the
// fragment and never reaches the server.
func (f *OwnedFile) ShareURL() string {
	return f.URL + "#" + f.SecretKey
}

// Expired reports whether the file ran out of time or downloads at now.
func (f *OwnedFile) Expired(now time.Time) bool {
	if !f.ExpiresAt.IsZero() && !now.Before(f.ExpiresAt) {
		return true
	}
	return f.DownloadLimit > 0 && f.DownloadCount >= f.DownloadLimit
}

func (f *OwnedFile) RemainingDownloads() int {
	if n := f.DownloadLimit - f.DownloadCount; n > 0 {
		return n
	}
	return 0
}

// FileReference identifies a file shared with the user.
type FileReference struct {
	ID               string
	URL              string
	SecretKey        string
	Password         string
	RequiresPassword bool
}

// ShareURL is the full link including the secret fragment.
func (r *FileReference) ShareURL() string {
	return r.URL + "#" + r.SecretKey
}

// ParseShareURL splits a share link of the form
// <base>/download/<id>/#<secret>.
func ParseShareURL(raw string) (*FileReference, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid share url: %w", err)
	}
	if u.Fragment == "" {
		return nil, errors.New("invalid share url: missing secret key")
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	id := ""
	for i := 0; i+1 < len(segments); i++ {
		if segments[i] == "download" {
			id = segments[i+1]
		}
	}
	if id == "" {
		return nil, errors.New("invalid share url: missing file id")
	}

	secret := u.Fragment
	u.Fragment = ""
	return &FileReference{ID: id, URL: u.String(), SecretKey: secret}, nil
}

// FileMetadata is the decrypted description of an uploaded archive.
type FileMetadata struct {
	Name     string   `json:"name"`
	Size     int64    `json:"size"`
	Type     string   `json:"type"`
	Manifest Manifest `json:"manifest"`
}

// FileInfo is what a recipient learns before downloading.
type FileInfo struct {
	FileMetadata
	TTL              time.Duration
	RequiresPassword bool
	EncryptedSize    int64
}

// SyncResult reports what a file list synchronisation changed.
type SyncResult struct {
	// Incoming is set when the local view changed.
	Incoming bool
	// Outgoing is set when the remote list is stale.
	Outgoing bool
	// DownloadCount is set when a download counter changed.
	DownloadCount bool
}

// Or combines two results.
func (r SyncResult) Or(o SyncResult) SyncResult {
	return SyncResult{
		Incoming:      r.Incoming || o.Incoming,
		Outgoing:      r.Outgoing || o.Outgoing,
		DownloadCount: r.DownloadCount || o.DownloadCount,
	}
}

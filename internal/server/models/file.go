// Package models defines server-side data models persisted in the database.
package models

import "time"

// File describes an uploaded ciphertext. The bytes themselves live in the
// blob store under StorageKey.
type File struct {
	ID         string
	OwnerToken string
	// AuthKey verifies signed requests; it is the raw key the client
	// derived, either from the secret or from a password.
	AuthKey     []byte
	HasPassword bool
	// Nonce is the current challenge; it rotates after every verified
	// request.
	Nonce string
	// Metadata is the encrypted metadata blob, opaque to the server.
	Metadata   []byte
	Size       int64
	StorageKey string
	// UserID is set when the upload carried a valid bearer token.
	UserID string

	DownloadLimit int
	DownloadCount int
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// Expired reports whether f ran out of time or downloads at now.
func (f *File) Expired(now time.Time) bool {
	return !now.Before(f.ExpiresAt) || f.DownloadCount >= f.DownloadLimit
}

// TTL is the time left before f expires, never negative.
func (f *File) TTL(now time.Time) time.Duration {
	if d := f.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

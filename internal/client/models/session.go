package models

import (
	"sync"
	"time"

	"github.com/dmitrijs2005/gophsend/internal/common"
)

// Profile is the account information returned by the identity provider.
type Profile struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
}

// SessionRecord is the serialisable form of a Session, sealed before it is
// persisted.
type SessionRecord struct {
	AccessToken string    `json:"accessToken"`
	FileListKey []byte    `json:"fileListKey"`
	Profile     Profile   `json:"profile"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Session is the signed-in user state. It is created by a successful login,
// shared by pointer and safe for concurrent use.
type Session struct {
	mu          sync.RWMutex
	accessToken string
	fileListKey []byte
	profile     Profile
	expiresAt   time.Time
}

func NewSession(accessToken string, fileListKey []byte, profile Profile, expiresAt time.Time) *Session {
	return &Session{
		accessToken: accessToken,
		fileListKey: append([]byte(nil), fileListKey...),
		profile:     profile,
		expiresAt:   expiresAt,
	}
}

func SessionFromRecord(r SessionRecord) *Session {
	return NewSession(r.AccessToken, r.FileListKey, r.Profile, r.ExpiresAt)
}

func (s *Session) Record() SessionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionRecord{
		AccessToken: s.accessToken,
		FileListKey: append([]byte(nil), s.fileListKey...),
		Profile:     s.profile,
		ExpiresAt:   s.expiresAt,
	}
}

// LoggedIn is true while the session holds a token and a file-list key.
func (s *Session) LoggedIn() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken != "" && len(s.fileListKey) > 0
}

func (s *Session) BearerToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// FileListKey returns a copy of the key protecting the remote file list.
func (s *Session) FileListKey() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]byte(nil), s.fileListKey...)
}

func (s *Session) Profile() Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// Expired reports whether the access token is known to be expired at now.
// Tokens without a readable expiry never report expired.
func (s *Session) Expired(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.expiresAt.IsZero() && now.After(s.expiresAt)
}

// Clear wipes key material and signs the session out.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	common.WipeByteArray(s.fileListKey)
	s.fileListKey = nil
	s.accessToken = ""
	s.profile = Profile{}
	s.expiresAt = time.Time{}
}

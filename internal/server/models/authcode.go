package models

import "time"

// AuthCode is a one-time authorization code issued by the development
// identity provider.
type AuthCode struct {
	Code          string
	UserID        string
	Email         string
	ClientID      string
	CodeChallenge string
	// KeysJWK is the client's public key the scoped key bundle is
	// encrypted to, as base64url JSON.
	KeysJWK   string
	ExpiresAt time.Time
}

// Package common contains shared constants, helpers and sentinel errors used
// across GophSend components.
package common

const (
	// AuthScheme prefixes the keyed request signature carried in the
	// Authorization and WWW-Authenticate headers.
	AuthScheme = "send-v1"

	// BearerScheme prefixes access tokens on account-scoped requests.
	BearerScheme = "Bearer"

	// OwnerTokenSize is the number of random bytes in an owner token.
	OwnerTokenSize = 16
)

// Upload headers exchanged between the client and the file service.
const (
	HeaderFileMetadata  = "X-File-Metadata"
	HeaderAuthKey       = "X-Auth-Key"
	HeaderOwnerToken    = "X-Owner-Token"
	HeaderTimeLimit     = "X-Time-Limit"
	HeaderDownloadLimit = "X-Download-Limit"
)

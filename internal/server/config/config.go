// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the GophSend reference server.
//
// Fields:
//   - EndpointAddr: bind address of the HTTP API.
//   - BaseURL: public URL share links are built from.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty keeps everything in memory.
//   - SecretKey: HMAC secret for signing JWTs (HS256) and deriving scoped
//     keys. Do not use test defaults in prod.
//   - AccessTokenValidityDuration: access token lifetime.
//   - BlobBackend: "fs" or "s3"; BlobDir is the root of the fs backend.
//   - S3RootUser / S3RootPassword / S3Bucket / S3Region / S3BaseEndpoint:
//     object storage settings for the s3 backend.
//   - MaxFileSize, MaxExpire, MaxDownloads: upload limits.
//   - KeyScope: the key scope the identity provider issues keys for.
type Config struct {
	EndpointAddr                string
	BaseURL                     string
	DatabaseDSN                 string
	SecretKey                   string
	AccessTokenValidityDuration time.Duration
	BlobBackend                 string
	BlobDir                     string
	S3RootUser                  string
	S3RootPassword              string
	S3Bucket                    string
	S3Region                    string
	S3BaseEndpoint              string
	MaxFileSize                 int64
	MaxExpire                   time.Duration
	MaxDownloads                int
	KeyScope                    string
	CleanupInterval             time.Duration
	Debug                       bool
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":8080"
	c.BaseURL = "http://127.0.0.1:8080"
	c.DatabaseDSN = ""
	c.SecretKey = "secretKey"
	c.AccessTokenValidityDuration = 60 * time.Minute
	c.BlobBackend = "fs"
	c.BlobDir = "data/blobs"
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "gophsend"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.MaxFileSize = 2_500_000_000
	c.MaxExpire = 7 * 24 * time.Hour
	c.MaxDownloads = 100
	c.KeyScope = "https://identity.mozilla.com/apps/send"
	c.CleanupInterval = time.Minute
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"endpoint_addr":                  "www.example:9000",
		"base_url":                       "https://send.example",
		"database_dsn":                   "postgres://db",
		"secret_key":                     "my_secret_key",
		"access_token_validity_duration": "2m",
		"blob_backend":                   "s3",
		"s3_bucket":                      "bucket",
		"max_file_size":                  1024,
		"max_expire":                     "1h",
		"max_downloads":                  5,
		"cleanup_interval":               "30s",
		"debug":                          true,
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.EndpointAddr)
		assert.Equal(t, "https://send.example", cfg.BaseURL)
		assert.Equal(t, "postgres://db", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, 2*time.Minute, cfg.AccessTokenValidityDuration)
		assert.Equal(t, "s3", cfg.BlobBackend)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, int64(1024), cfg.MaxFileSize)
		assert.Equal(t, time.Hour, cfg.MaxExpire)
		assert.Equal(t, 5, cfg.MaxDownloads)
		assert.Equal(t, 30*time.Second, cfg.CleanupInterval)
		assert.True(t, cfg.Debug)

		// untouched keys keep their defaults
		assert.Equal(t, "us-east-1", cfg.S3Region)
		assert.Equal(t, "data/blobs", cfg.BlobDir)
	})

	t.Run("no config flag leaves values alone", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{EndpointAddr: "defaults:1234", SecretKey: "key", MaxDownloads: 3}
		parseJson(cfg)

		assert.Equal(t, "defaults:1234", cfg.EndpointAddr)
		assert.Equal(t, "key", cfg.SecretKey)
		assert.Equal(t, 3, cfg.MaxDownloads)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}

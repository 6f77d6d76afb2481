package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8080", c.ServiceURL)
	assert.Equal(t, 24*time.Hour, c.DefaultTimeLimit)
	assert.Equal(t, 1, c.DefaultDownloadLimit)
	assert.Equal(t, "gophsend-cli", c.OAuth.ClientID)
	assert.Empty(t, c.OAuth.TokenURL)
}

func TestLoadConfig_DerivesOAuthEndpoints(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin", "-s", "https://send.example/"}

	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "https://send.example/", cfg.ServiceURL)
	assert.Equal(t, "https://send.example/oauth/authorize", cfg.OAuth.AuthorizationURL)
	assert.Equal(t, "https://send.example/oauth/token", cfg.OAuth.TokenURL)
	assert.Equal(t, "https://send.example/oauth/userinfo", cfg.OAuth.UserInfoURL)
}

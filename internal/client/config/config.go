package config

import (
	"strings"
	"time"
)

// OAuth holds the identity provider settings used by the login flow.
type OAuth struct {
	AuthorizationURL string
	TokenURL         string
	UserInfoURL      string
	ClientID         string
	KeyScope         string
	RedirectURI      string
}

// Config holds runtime settings for the GophSend CLI.
type Config struct {
	ServiceURL           string
	OAuth                OAuth
	DatabasePath         string
	DownloadDir          string
	DefaultTimeLimit     time.Duration
	DefaultDownloadLimit int
	SyncInterval         time.Duration
	Verbose              bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServiceURL = "http://127.0.0.1:8080"
	c.OAuth = OAuth{
		ClientID:    "gophsend-cli",
		KeyScope:    "https://identity.mozilla.com/apps/send",
		RedirectURI: "urn:ietf:wg:oauth:2.0:oob",
	}
	c.DatabasePath = "gophsend.db"
	c.DownloadDir = "."
	c.DefaultTimeLimit = 24 * time.Hour
	c.DefaultDownloadLimit = 1
	c.SyncInterval = time.Minute
}

// resolveOAuth fills provider endpoints left empty with the ones the
// reference server exposes under the service URL.
func (c *Config) resolveOAuth() {
	base := strings.TrimRight(c.ServiceURL, "/")
	if c.OAuth.AuthorizationURL == "" {
		c.OAuth.AuthorizationURL = base + "/oauth/authorize"
	}
	if c.OAuth.TokenURL == "" {
		c.OAuth.TokenURL = base + "/oauth/token"
	}
	if c.OAuth.UserInfoURL == "" {
		c.OAuth.UserInfoURL = base + "/oauth/userinfo"
	}
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	cfg.resolveOAuth()
	return cfg
}

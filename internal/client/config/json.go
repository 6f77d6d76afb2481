package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophsend/internal/flagx"
	"github.com/dmitrijs2005/gophsend/internal/timex"
)

type jsonOAuth struct {
	AuthorizationURL string `json:"authorization_url"`
	TokenURL         string `json:"token_url"`
	UserInfoURL      string `json:"userinfo_url"`
	ClientID         string `json:"client_id"`
	KeyScope         string `json:"key_scope"`
	RedirectURI      string `json:"redirect_uri"`
}

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer and
// zero values mean "not set" so defaults survive partial files.
type JsonConfig struct {
	ServiceURL           string          `json:"service_url"`
	DatabasePath         string          `json:"database_path"`
	DownloadDir          string          `json:"download_dir"`
	DefaultTimeLimit     *timex.Duration `json:"default_time_limit"`
	DefaultDownloadLimit int             `json:"default_download_limit"`
	SyncInterval         *timex.Duration `json:"sync_interval"`
	Verbose              bool            `json:"verbose"`
	OAuth                jsonOAuth       `json:"oauth"`
}

// parseJson overlays cfg with the JSON file named by -c/-config.
// It panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.ServiceURL, jc.ServiceURL)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.DownloadDir, jc.DownloadDir)
	if jc.DefaultTimeLimit != nil {
		cfg.DefaultTimeLimit = jc.DefaultTimeLimit.Duration
	}
	if jc.DefaultDownloadLimit > 0 {
		cfg.DefaultDownloadLimit = jc.DefaultDownloadLimit
	}
	if jc.SyncInterval != nil {
		cfg.SyncInterval = jc.SyncInterval.Duration
	}
	cfg.Verbose = cfg.Verbose || jc.Verbose

	setString(&cfg.OAuth.AuthorizationURL, jc.OAuth.AuthorizationURL)
	setString(&cfg.OAuth.TokenURL, jc.OAuth.TokenURL)
	setString(&cfg.OAuth.UserInfoURL, jc.OAuth.UserInfoURL)
	setString(&cfg.OAuth.ClientID, jc.OAuth.ClientID)
	setString(&cfg.OAuth.KeyScope, jc.OAuth.KeyScope)
	setString(&cfg.OAuth.RedirectURI, jc.OAuth.RedirectURI)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

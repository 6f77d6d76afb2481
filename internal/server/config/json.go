package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophsend/internal/flagx"
	"github.com/dmitrijs2005/gophsend/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// Durations use timex.Duration, which accepts both strings such as "1m" and
// integer nanoseconds. Empty values leave the current setting alone.
type JsonConfig struct {
	EndpointAddr                string          `json:"endpoint_addr"`
	BaseURL                     string          `json:"base_url"`
	DatabaseDSN                 string          `json:"database_dsn"`
	SecretKey                   string          `json:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	BlobBackend                 string          `json:"blob_backend"`
	BlobDir                     string          `json:"blob_dir"`
	S3RootUser                  string          `json:"s3_root_user"`
	S3RootPassword              string          `json:"s3_root_password"`
	S3Bucket                    string          `json:"s3_bucket"`
	S3Region                    string          `json:"s3_region"`
	S3BaseEndpoint              string          `json:"s3_base_endpoint"`
	MaxFileSize                 int64           `json:"max_file_size"`
	MaxExpire                   *timex.Duration `json:"max_expire"`
	MaxDownloads                int             `json:"max_downloads"`
	KeyScope                    string          `json:"key_scope"`
	CleanupInterval             *timex.Duration `json:"cleanup_interval"`
	Debug                       bool            `json:"debug"`
}

// parseJson loads configuration values from the JSON file named by the -c
// or -config flag into config. Nothing is loaded without the flag. It panics
// when the file cannot be read or holds invalid JSON.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.EndpointAddr, c.EndpointAddr)
	setString(&config.BaseURL, c.BaseURL)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	setString(&config.BlobBackend, c.BlobBackend)
	setString(&config.BlobDir, c.BlobDir)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.MaxFileSize > 0 {
		config.MaxFileSize = c.MaxFileSize
	}
	if c.MaxExpire != nil {
		config.MaxExpire = c.MaxExpire.Duration
	}
	if c.MaxDownloads > 0 {
		config.MaxDownloads = c.MaxDownloads
	}
	setString(&config.KeyScope, c.KeyScope)
	if c.CleanupInterval != nil {
		config.CleanupInterval = c.CleanupInterval.Duration
	}
	config.Debug = config.Debug || c.Debug
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

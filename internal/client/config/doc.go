// Package config loads runtime configuration for the GophSend CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// OAuth endpoints that remain empty are derived from the service URL.
//
// Supported flags
//
//	-s string     base URL of the file service
//	-d string     path of the local SQLite database
//	-o string     directory downloads are written to
//	-t duration   default expiry of uploads
//	-n int        default download limit of uploads
//	-i duration   background file list sync interval
//	-v            verbose logging
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "24h" or
// integer nanoseconds:
//
//	{
//	  "service_url": "https://send.example",
//	  "database_path": "/home/me/.gophsend.db",
//	  "download_dir": "/home/me/Downloads",
//	  "default_time_limit": "24h",
//	  "default_download_limit": 1,
//	  "sync_interval": "1m",
//	  "oauth": {
//	    "authorization_url": "https://accounts.example/authorization",
//	    "token_url": "https://oauth.accounts.example/v1/token",
//	    "userinfo_url": "https://profile.accounts.example/v1/profile",
//	    "client_id": "fced6b5e3f4c66b9",
//	    "key_scope": "https://identity.mozilla.com/apps/send"
//	  }
//	}
package config

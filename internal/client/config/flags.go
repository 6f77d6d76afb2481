package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/gophsend/internal/flagx"
)

// parseFlags populates Config fields from command-line flags. Only the flags
// handled here are passed to the flag set, see flagx.FilterArgs.
// It panics on parse errors.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-s", "-d", "-o", "-t", "-n", "-i", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServiceURL, "s", cfg.ServiceURL, "base URL of the file service")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path of the local database")
	fs.StringVar(&cfg.DownloadDir, "o", cfg.DownloadDir, "download directory")
	fs.DurationVar(&cfg.DefaultTimeLimit, "t", cfg.DefaultTimeLimit, "default upload expiry")
	fs.IntVar(&cfg.DefaultDownloadLimit, "n", cfg.DefaultDownloadLimit, "default download limit")
	fs.DurationVar(&cfg.SyncInterval, "i", cfg.SyncInterval, "file list sync interval")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "verbose logging")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}

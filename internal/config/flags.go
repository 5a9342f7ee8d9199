package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/movesync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   SQLite DSN of the local store (default from Config)
//	-r string   CouchDB endpoint URL (default from Config)
//	-p string   remote collection name prefix (default from Config)
//	-u string   email of the account to sync (default from Config)
//	-i int      sync interval in seconds (default from Config)
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-r", "-p", "-u", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.LocalDSN, "d", cfg.LocalDSN, "SQLite DSN of the local store")
	fs.StringVar(&cfg.RemoteURL, "r", cfg.RemoteURL, "CouchDB endpoint URL")
	fs.StringVar(&cfg.CollectionPrefix, "p", cfg.CollectionPrefix, "remote collection name prefix")
	fs.StringVar(&cfg.UserEmail, "u", cfg.UserEmail, "email of the account to sync")
	syncInterval := fs.Int("i", int(cfg.SyncInterval.Seconds()), "sync interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.SyncInterval = time.Duration(*syncInterval) * time.Second
}

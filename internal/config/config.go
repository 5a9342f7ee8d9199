package config

import "time"

// Config holds runtime settings for the sync client.
//
// Fields:
//   - LocalDSN: SQLite DSN of the embedded local store.
//   - RemoteURL: base URL of the CouchDB endpoint.
//   - CollectionPrefix: prepended to every remote collection name, so
//     several deployments can share one CouchDB instance.
//   - SyncInterval: how often the orchestrated sync pass runs.
//   - UserEmail: the signed-in account whose data is synced; most scope
//     keys derive from it.
//
// Units: SyncInterval is a time.Duration (e.g., 30*time.Second).
type Config struct {
	LocalDSN         string
	RemoteURL        string
	CollectionPrefix string
	UserEmail        string
	SyncInterval     time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.LocalDSN = "file:movesync.db"
	c.RemoteURL = "http://127.0.0.1:5984/"
	c.CollectionPrefix = "movesync_"
	c.SyncInterval = 30 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

// Package config handles configuration for the client component,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Cache engine names accepted by Config.CacheEngine.
const (
	EngineSQLite = "sqlite"
	EngineBlob   = "blob"
)

// Config holds runtime settings for the CaseKeeper client.
//
// Fields:
//   - ServerEndpointAddr: base URL of the remote case store server.
//   - DatabasePath: path of the local SQLite cache database.
//   - BlobPath: path of the whole-collection blob file (EngineBlob only).
//   - CacheEngine: "sqlite" on capable runtimes, "blob" on constrained ones.
//   - ArtifactDir: root directory for on-device case artifacts.
//   - SyncEnabled: when false the local cache is authoritative and no
//     remote reads or subscriptions happen.
//   - RemoteTimeout: bound for a single remote list/read.
//   - TombstoneTTL: upper bound on pending-delete tombstone retention.
type Config struct {
	ServerEndpointAddr string
	DatabasePath       string
	BlobPath           string
	CacheEngine        string
	ArtifactDir        string
	SyncEnabled        bool
	RemoteTimeout      time.Duration
	TombstoneTTL       time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.DatabasePath = "cases.db"
	c.BlobPath = "cases.json"
	c.CacheEngine = EngineSQLite
	c.ArtifactDir = "artifacts"
	c.SyncEnabled = true
	c.RemoteTimeout = 5 * time.Second
	c.TombstoneTTL = 10 * time.Minute
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present). Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

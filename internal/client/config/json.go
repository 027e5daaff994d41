package config

import (
	"encoding/json"
	"os"

	"github.com/dverbovs/casekeeper/internal/flagx"
	"github.com/dverbovs/casekeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations
// may be given as strings like "5s" or as integer nanoseconds; values are
// copied into the runtime Config afterwards.
type JsonConfig struct {
	ServerEndpointAddr *string         `json:"server_endpoint_addr"`
	DatabasePath       *string         `json:"database_path"`
	BlobPath           *string         `json:"blob_path"`
	CacheEngine        *string         `json:"cache_engine"`
	ArtifactDir        *string         `json:"artifact_dir"`
	SyncEnabled        *bool           `json:"sync_enabled"`
	RemoteTimeout      *timex.Duration `json:"remote_timeout"`
	TombstoneTTL       *timex.Duration `json:"tombstone_ttl"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// the -c/-config flag. Absent file path means no overlay; only fields
// present in the JSON override defaults. Read or unmarshal errors panic,
// as a broken config file should stop startup.
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

	if jc.ServerEndpointAddr != nil {
		cfg.ServerEndpointAddr = *jc.ServerEndpointAddr
	}
	if jc.DatabasePath != nil {
		cfg.DatabasePath = *jc.DatabasePath
	}
	if jc.BlobPath != nil {
		cfg.BlobPath = *jc.BlobPath
	}
	if jc.CacheEngine != nil {
		cfg.CacheEngine = *jc.CacheEngine
	}
	if jc.ArtifactDir != nil {
		cfg.ArtifactDir = *jc.ArtifactDir
	}
	if jc.SyncEnabled != nil {
		cfg.SyncEnabled = *jc.SyncEnabled
	}
	if jc.RemoteTimeout != nil {
		cfg.RemoteTimeout = jc.RemoteTimeout.Duration
	}
	if jc.TombstoneTTL != nil {
		cfg.TombstoneTTL = jc.TombstoneTTL.Duration
	}
}

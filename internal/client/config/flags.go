package config

import (
	"flag"
	"os"
	"time"

	"github.com/dverbovs/casekeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   base URL of the remote case store server
//	-d string   path of the local cache database
//	-e string   cache engine: sqlite or blob
//	-s bool     enable remote sync
//	-t int      remote read timeout in seconds
//
// os.Args is filtered through flagx.FilterArgs so unknown flags owned by
// other components do not break parsing.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-e", "-s", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "base URL of the remote case store server")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path of the local cache database")
	fs.StringVar(&cfg.CacheEngine, "e", cfg.CacheEngine, "cache engine (sqlite or blob)")
	fs.BoolVar(&cfg.SyncEnabled, "s", cfg.SyncEnabled, "enable remote sync")
	remoteTimeout := fs.Int("t", int(cfg.RemoteTimeout.Seconds()), "remote read timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RemoteTimeout = time.Duration(*remoteTimeout) * time.Second
}

package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/kinlink/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
// Only the flags declared here are parsed; everything else in os.Args is
// ignored (see flagx.ParseOwn).
func parseFlags(cfg *Config) {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.DatabasePath, "db", cfg.DatabasePath, "local database path")
	syncInterval := fs.Int("s", int(cfg.SyncInterval.Seconds()), "graph sync interval (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.IntVar(&cfg.RemoteRetries, "r", cfg.RemoteRetries, "retries for registry calls while offline")

	if err := flagx.ParseOwn(fs, os.Args[1:]); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	cfg.SyncInterval = time.Duration(*syncInterval) * time.Second
}

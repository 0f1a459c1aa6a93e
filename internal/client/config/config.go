package config

import (
	"time"

	"github.com/dmitrijs2005/kinlink/internal/identifier"
)

// Config holds runtime settings for the kinlink client.
//
// Durations are time.Duration values; the JSON file accepts "3s" style
// strings for them.
type Config struct {
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration
	DatabasePath        string

	LinkDomain string
	AppScheme  string

	DebounceWindow    time.Duration
	GraphReadyTimeout time.Duration
	PermissionTTL     time.Duration
	PermissionTimeout time.Duration
	RemoteTimeout     time.Duration
	// RemoteRetries is how many times an offline registry call is retried.
	// Zero disables retries.
	RemoteRetries int
	DeferredTTL       time.Duration
	SyncInterval      time.Duration

	LogLevel  string
	LogFormat string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.DatabasePath = "kinlink.db"

	c.LinkDomain = identifier.DefaultDomain
	c.AppScheme = identifier.DefaultScheme

	c.DebounceWindow = 1000 * time.Millisecond
	c.GraphReadyTimeout = 10 * time.Second
	c.PermissionTTL = 5 * time.Minute
	c.PermissionTimeout = 3 * time.Second
	c.RemoteTimeout = 5 * time.Second
	c.RemoteRetries = 2
	c.DeferredTTL = 7 * 24 * time.Hour
	c.SyncInterval = time.Minute

	c.LogLevel = "warn"
	c.LogFormat = "text"
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

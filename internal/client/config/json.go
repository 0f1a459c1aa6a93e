package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/kinlink/internal/flagx"
	"github.com/dmitrijs2005/kinlink/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "3s" or as integer nanoseconds.
type JsonConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	DatabasePath        string         `json:"database_path"`
	LinkDomain          string         `json:"link_domain"`
	AppScheme           string         `json:"app_scheme"`
	DebounceWindow      timex.Duration `json:"debounce_window"`
	GraphReadyTimeout   timex.Duration `json:"graph_ready_timeout"`
	PermissionTTL       timex.Duration `json:"permission_ttl"`
	PermissionTimeout   timex.Duration `json:"permission_timeout"`
	RemoteTimeout       timex.Duration `json:"remote_timeout"`
	RemoteRetries       *int           `json:"remote_retries"`
	DeferredTTL         timex.Duration `json:"deferred_ttl"`
	SyncInterval        timex.Duration `json:"sync_interval"`
	LogLevel            string         `json:"log_level"`
	LogFormat           string         `json:"log_format"`
}

// parseJson overlays Config with values loaded from a JSON file named by
// -c or -config. Zero values in the file leave the field as it was.
// Panics on read or unmarshal errors.
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

	setString(&cfg.ServerEndpointAddr, jc.ServerEndpointAddr)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.LinkDomain, jc.LinkDomain)
	setString(&cfg.AppScheme, jc.AppScheme)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)

	setDuration(&cfg.OnlineCheckInterval, jc.OnlineCheckInterval)
	setDuration(&cfg.DebounceWindow, jc.DebounceWindow)
	setDuration(&cfg.GraphReadyTimeout, jc.GraphReadyTimeout)
	setDuration(&cfg.PermissionTTL, jc.PermissionTTL)
	setDuration(&cfg.PermissionTimeout, jc.PermissionTimeout)
	setDuration(&cfg.RemoteTimeout, jc.RemoteTimeout)
	setDuration(&cfg.DeferredTTL, jc.DeferredTTL)
	setDuration(&cfg.SyncInterval, jc.SyncInterval)

	// 0 is a valid setting here
	if jc.RemoteRetries != nil && *jc.RemoteRetries >= 0 {
		cfg.RemoteRetries = *jc.RemoteRetries
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}

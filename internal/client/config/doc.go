// Package config loads runtime configuration for the kinlink client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the registry gRPC endpoint
//	-i int      online status check interval (seconds)
//	-db string  path of the local SQLite database
//	-s int      graph sync interval (seconds)
//	-l string   log level (debug, info, warn, error)
//
// # JSON schema
//
// Durations are timex.Duration values, so they can be strings like "3s" or
// integer nanoseconds. Keys that are missing keep their earlier value:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "online_check_interval": "3s",
//	  "database_path": "kinlink.db",
//	  "link_domain": "kinlink.app",
//	  "app_scheme": "app",
//	  "debounce_window": "1s",
//	  "graph_ready_timeout": "10s",
//	  "permission_ttl": "5m",
//	  "permission_timeout": "3s",
//	  "remote_timeout": "5s",
//	  "remote_retries": 2,
//	  "deferred_ttl": "168h",
//	  "sync_interval": "1m",
//	  "log_level": "warn",
//	  "log_format": "text"
//	}
package config

package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/kinlink/internal/flagx"
	"github.com/dmitrijs2005/kinlink/internal/timex"
)

// JsonConfig is the on-disk shape of Config. Durations are timex.Duration,
// so both "1m" strings and integer nanoseconds are accepted.
type JsonConfig struct {
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	LinkDomain                   string         `json:"link_domain"`
	AppScheme                    string         `json:"app_scheme"`
	ShareEventRate               float64        `json:"share_event_rate"`
	ShareEventBurst              int            `json:"share_event_burst"`
	DefaultPermission            string         `json:"default_permission"`
	PhotoURLTTL                  timex.Duration `json:"photo_url_ttl"`
	LogLevel                     string         `json:"log_level"`
}

// parseJson overlays config with the JSON file named by -c or -config.
// Keys missing from the file keep their current value. Panics if the file
// cannot be read or parsed.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	for dst, v := range map[*string]string{
		&config.EndpointAddrGRPC:  c.EndpointAddrGRPC,
		&config.EndpointAddrHTTP:  c.EndpointAddrHTTP,
		&config.DatabaseDSN:       c.DatabaseDSN,
		&config.SecretKey:         c.SecretKey,
		&config.S3RootUser:        c.S3RootUser,
		&config.S3RootPassword:    c.S3RootPassword,
		&config.S3Bucket:          c.S3Bucket,
		&config.S3Region:          c.S3Region,
		&config.S3BaseEndpoint:    c.S3BaseEndpoint,
		&config.LinkDomain:        c.LinkDomain,
		&config.AppScheme:         c.AppScheme,
		&config.DefaultPermission: c.DefaultPermission,
		&config.LogLevel:          c.LogLevel,
	} {
		if v != "" {
			*dst = v
		}
	}

	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration != 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.PhotoURLTTL.Duration != 0 {
		config.PhotoURLTTL = c.PhotoURLTTL.Duration
	}
	if c.ShareEventRate != 0 {
		config.ShareEventRate = c.ShareEventRate
	}
	if c.ShareEventBurst != 0 {
		config.ShareEventBurst = c.ShareEventBurst
	}
}

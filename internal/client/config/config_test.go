package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "127.0.0.1:50051", c.ServerEndpointAddr)
	assert.Equal(t, 3*time.Second, c.OnlineCheckInterval)
	assert.Equal(t, "kinlink.db", c.DatabasePath)
	assert.Equal(t, "kinlink.app", c.LinkDomain)
	assert.Equal(t, "app", c.AppScheme)
	assert.Equal(t, time.Second, c.DebounceWindow)
	assert.Equal(t, 10*time.Second, c.GraphReadyTimeout)
	assert.Equal(t, 5*time.Minute, c.PermissionTTL)
	assert.Equal(t, 3*time.Second, c.PermissionTimeout)
	assert.Equal(t, 5*time.Second, c.RemoteTimeout)
	assert.Equal(t, 2, c.RemoteRetries)
	assert.Equal(t, 7*24*time.Hour, c.DeferredTTL)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "127.0.0.1:50051", cfg.ServerEndpointAddr)
	assert.Equal(t, 3*time.Second, cfg.OnlineCheckInterval)
	assert.Equal(t, time.Minute, cfg.SyncInterval)
}

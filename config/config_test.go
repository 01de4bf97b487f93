package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		vip := viper.New()
		require.NoError(t, LoadConfig("", vip))
		require.Empty(t, vip.AllKeys())
	})
	t.Run("missing file", func(t *testing.T) {
		err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"), viper.New())
		require.ErrorContains(t, err, "can't load config")
	})
	t.Run("json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"preset": "standalone", "main": {"app": "tictactoe"}}`), 0o600))
		vip := viper.New()
		require.NoError(t, LoadConfig(path, vip))
		require.Equal(t, "standalone", vip.GetString("preset"))
		require.Equal(t, "tictactoe", vip.GetString("main.app"))
	})
}

func TestValidate(t *testing.T) {
	defaultCfg := DefaultConfig()
	require.NoError(t, defaultCfg.Validate())
	testCfg := DefaultTestConfig()
	require.NoError(t, testCfg.Validate())

	for _, tc := range []struct {
		desc   string
		modify func(*Config)
		err    string
	}{
		{"unknown app", func(c *Config) { c.App = "chess" }, "unknown application"},
		{"empty namespace", func(c *Config) { c.Namespace = [29]byte{} }, "main.namespace"},
		{"unknown da", func(c *Config) { c.DA.Mode = "ipfs" }, "da.mode"},
		{"backoff", func(c *Config) { c.Ingest.BackoffMax = time.Nanosecond }, "backoff"},
		{"genesis", func(c *Config) { c.Genesis.Accounts = map[string]uint64{"nope": 1} }, "genesis account"},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(&cfg)
			require.ErrorContains(t, cfg.Validate(), tc.err)
		})
	}
}

func TestDataPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDirParent = "/var/lib/shard"
	require.Equal(t, "/var/lib/shard/state.sql", cfg.DatabasePath())
	require.Equal(t, "/var/lib/shard/keys", cfg.KeysDir())
	require.Equal(t, "/var/lib/shard/localda", cfg.LocalDADir())
}

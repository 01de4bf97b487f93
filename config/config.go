// Package config contains go-shard node configuration definitions.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/shardnet/go-shard/api"
	"github.com/shardnet/go-shard/apps"
	"github.com/shardnet/go-shard/common/types"
	"github.com/shardnet/go-shard/da/celestia"
	"github.com/shardnet/go-shard/da/localda"
	"github.com/shardnet/go-shard/ingest"
	"github.com/shardnet/go-shard/metrics"
	"github.com/shardnet/go-shard/submit"
	"github.com/shardnet/go-shard/vm"
)

const (
	defaultDataDirName = "go-shard"
	// DefaultNamespaceID is the sub id of the default namespace.
	DefaultNamespaceID = "go-shard"
)

// DA modes.
const (
	// DACelestia reads and posts blobs through a celestia-node.
	DACelestia = "celestia"
	// DALocal runs the devnet DA inside the node.
	DALocal = "local"
)

var defaultDataDir = filepath.Join(userHomeDir(), "."+defaultDataDirName)

func userHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir()
	}
	return home
}

// Config defines the top level configuration for a go-shard node.
type Config struct {
	BaseConfig `mapstructure:"main"`
	Preset     string         `mapstructure:"preset"`
	Genesis    GenesisConfig  `mapstructure:"genesis"`
	VM         vm.Config      `mapstructure:"vm"`
	Ingest     ingest.Config  `mapstructure:"ingest"`
	DA         DAConfig       `mapstructure:"da"`
	API        APIConfig      `mapstructure:"api"`
	LocalDA    localda.Config `mapstructure:"localda"`
	Submit     submit.Config  `mapstructure:"submit"`
	LOGGING    LoggerConfig   `mapstructure:"logging"`
}

// DataDir returns the absolute path to use for the node's data.
func (cfg *Config) DataDir() string {
	dir, err := filepath.Abs(cfg.DataDirParent)
	if err != nil {
		return filepath.Clean(cfg.DataDirParent)
	}
	return dir
}

// DatabasePath is the path of the local store.
func (cfg *Config) DatabasePath() string {
	return filepath.Join(cfg.DataDir(), "state.sql")
}

// KeysDir is the directory of the signer keystore.
func (cfg *Config) KeysDir() string {
	return filepath.Join(cfg.DataDir(), "keys")
}

// LocalDADir is the directory of the embedded devnet DA.
func (cfg *Config) LocalDADir() string {
	return filepath.Join(cfg.DataDir(), "localda")
}

// Validate checks values that are not verified by the component constructors.
func (cfg *Config) Validate() error {
	var errs []error
	if _, err := apps.New(cfg.App); err != nil {
		errs = append(errs, err)
	}
	if err := cfg.Namespace.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("main.namespace: %w", err))
	}
	switch cfg.DA.Mode {
	case DACelestia, DALocal:
	default:
		errs = append(errs, fmt.Errorf("da.mode must be %q or %q, got %q", DACelestia, DALocal, cfg.DA.Mode))
	}
	if cfg.Ingest.BackoffMin <= 0 || cfg.Ingest.BackoffMax < cfg.Ingest.BackoffMin {
		errs = append(errs, fmt.Errorf("ingest backoff must satisfy 0 < min <= max, got %v and %v",
			cfg.Ingest.BackoffMin, cfg.Ingest.BackoffMax))
	}
	if err := cfg.Genesis.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// BaseConfig defines the default configuration options for the node.
type BaseConfig struct {
	DataDirParent string `mapstructure:"data-folder"`
	FileLock      string `mapstructure:"filelock"`

	// App is the name of the application executed by the node.
	App string `mapstructure:"app"`
	// Namespace of the rollup blobs: hex of the full namespace or of a version zero sub id.
	Namespace types.Namespace `mapstructure:"namespace"`
	// AccountHRP is the human readable part of bech32 account ids.
	AccountHRP string `mapstructure:"account-hrp"`

	DatabaseConnections     int  `mapstructure:"db-connections"`
	DatabaseLatencyMetering bool `mapstructure:"db-latency-metering"`

	CollectMetrics bool               `mapstructure:"metrics"`
	MetricsPort    int                `mapstructure:"metrics-port"`
	MetricsPush    metrics.PushConfig `mapstructure:"metrics-push"`
}

// DAConfig selects the DA layer.
type DAConfig struct {
	Mode     string          `mapstructure:"mode"`
	Celestia celestia.Config `mapstructure:"celestia"`
}

// APIConfig configures the query API server and the client used by the cli.
type APIConfig struct {
	Enable     bool `mapstructure:"enable"`
	api.Config `mapstructure:",squash"`
	Client     api.ClientConfig `mapstructure:"client"`
}

// DefaultConfig returns the default configuration for a go-shard node.
func DefaultConfig() Config {
	return Config{
		BaseConfig: defaultBaseConfig(),
		Genesis:    DefaultGenesisConfig(),
		VM:         vm.DefaultConfig(),
		Ingest:     ingest.DefaultConfig(),
		DA: DAConfig{
			Mode:     DACelestia,
			Celestia: celestia.DefaultConfig(),
		},
		API: APIConfig{
			Enable: true,
			Config: api.DefaultConfig(),
			Client: api.DefaultClientConfig(),
		},
		LocalDA: localda.DefaultConfig(),
		Submit:  submit.DefaultConfig(),
		LOGGING: DefaultLoggingConfig(),
	}
}

// DefaultTestConfig returns the default config for tests.
func DefaultTestConfig() Config {
	conf := DefaultConfig()
	conf.BaseConfig = defaultTestConfig()
	conf.DA.Mode = DALocal
	conf.LocalDA.BlockTime = 100 * time.Millisecond
	conf.LocalDA.Listen = ""
	conf.API.Listen = "127.0.0.1:0"
	conf.Ingest.BackoffMin = 10 * time.Millisecond
	conf.Ingest.BackoffMax = 100 * time.Millisecond
	return conf
}

func defaultBaseConfig() BaseConfig {
	return BaseConfig{
		DataDirParent:       defaultDataDir,
		FileLock:            filepath.Join(os.TempDir(), "go-shard.lock"),
		App:                 "transfer",
		Namespace:           MustNamespace(DefaultNamespaceID),
		AccountHRP:          types.DefaultAccountHRP,
		DatabaseConnections: 8,
		MetricsPort:         1010,
		MetricsPush: metrics.PushConfig{
			Period: time.Minute,
		},
	}
}

func defaultTestConfig() BaseConfig {
	conf := defaultBaseConfig()
	conf.DataDirParent = filepath.Join(os.TempDir(), defaultDataDirName+"-test")
	conf.FileLock = filepath.Join(conf.DataDirParent, "LOCK")
	return conf
}

// MustNamespace creates a version zero namespace from the sub id, it panics on invalid input.
func MustNamespace(subID string) types.Namespace {
	ns, err := types.NewNamespaceV0([]byte(subID))
	if err != nil {
		panic(err)
	}
	return ns
}

// LoadConfig loads the config file into vip. An empty path leaves vip untouched.
func LoadConfig(path string, vip *viper.Viper) error {
	if path == "" {
		return nil
	}
	vip.SetConfigFile(path)
	if err := vip.ReadInConfig(); err != nil {
		return fmt.Errorf("can't load config at %s: %w", path, err)
	}
	return nil
}

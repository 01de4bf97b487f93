// Package cmd holds the build information and the flags shared by go-shard commands.
package cmd

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/shardnet/go-shard/config"
	"github.com/shardnet/go-shard/config/presets"
)

var (
	// Version is the app's semantic version. Designed to be overwritten by make.
	Version string

	// Branch is the git branch used to build the App. Designed to be overwritten by make.
	Branch string

	// Commit is the git commit used to build the app. Designed to be overwritten by make.
	Commit string
)

// AddFlags adds node flags to the flag set, the values are written into cfg.
// It returns the pointer to the config file path.
func AddFlags(flagSet *pflag.FlagSet, cfg *config.Config) (configPath *string) {
	configPath = flagSet.StringP("config", "c", "", "load configuration from file")
	flagSet.StringVarP(&cfg.Preset, "preset", "p", "",
		fmt.Sprintf("preset overwrites default values of the config. options %+s", presets.Options()))

	/** ======================== BaseConfig Flags ========================== **/
	flagSet.StringVarP(&cfg.DataDirParent, "data-folder", "d",
		cfg.DataDirParent, "specify data directory for go-shard")
	flagSet.StringVar(&cfg.FileLock, "filelock",
		cfg.FileLock, "filesystem lock to prevent running more than one instance")
	flagSet.StringVar(&cfg.App, "app",
		cfg.App, "name of the application executed by the node")
	flagSet.Var(NewTextValue(&cfg.Namespace), "namespace",
		"hex of the namespace or of a version zero sub id")
	flagSet.StringVar(&cfg.AccountHRP, "account-hrp",
		cfg.AccountHRP, "human readable part of account ids")
	flagSet.StringVar(&cfg.LOGGING.Encoder, "log-encoder",
		cfg.LOGGING.Encoder, "log as json instead of plain text")
	flagSet.BoolVar(&cfg.CollectMetrics, "metrics",
		cfg.CollectMetrics, "collect node metrics")
	flagSet.IntVar(&cfg.MetricsPort, "metrics-port",
		cfg.MetricsPort, "metric server port")
	flagSet.StringVar(&cfg.MetricsPush.URL, "metrics-push",
		cfg.MetricsPush.URL, "push metrics to url")
	flagSet.DurationVar(&cfg.MetricsPush.Period, "metrics-push-period",
		cfg.MetricsPush.Period, "push period")
	flagSet.BoolVar(&cfg.DatabaseLatencyMetering, "db-latency-metering",
		cfg.DatabaseLatencyMetering, "if enabled collect latency histogram for every database query")

	/** ======================== Genesis Flags ========================== **/
	flagSet.Var(NewStringToUint64Value(&cfg.Genesis.Accounts), "accounts",
		"list of prefunded accounts, account=balance separated by comma")

	/** ======================== VM Flags ========================== **/
	flagSet.BoolVar(&cfg.VM.VerifySignatures, "verify-signatures",
		cfg.VM.VerifySignatures, "verify transaction signatures, disabling it is insecure")
	flagSet.BoolVar(&cfg.VM.EnforceNonces, "enforce-nonces",
		cfg.VM.EnforceNonces, "reject transactions with unexpected nonces")

	/** ======================== DA Flags ========================== **/
	flagSet.StringVar(&cfg.DA.Mode, "da",
		cfg.DA.Mode, fmt.Sprintf("da layer: %s or %s", config.DACelestia, config.DALocal))
	flagSet.StringVar(&cfg.DA.Celestia.URL, "da-url",
		cfg.DA.Celestia.URL, "json-rpc endpoint of the celestia node")
	flagSet.StringVar(&cfg.DA.Celestia.AuthToken, "da-auth-token",
		cfg.DA.Celestia.AuthToken, "auth token of the celestia node")
	flagSet.StringVar(&cfg.LocalDA.Listen, "localda-listen",
		cfg.LocalDA.Listen, "address of the local da json-rpc server, empty disables it")
	flagSet.DurationVar(&cfg.LocalDA.BlockTime, "localda-block-time",
		cfg.LocalDA.BlockTime, "interval between local da blocks")

	/** ======================== Ingest Flags ========================== **/
	flagSet.IntVar(&cfg.Ingest.Prefetch, "prefetch",
		cfg.Ingest.Prefetch, "number of heights fetched ahead of the applied one")

	/** ======================== API Flags ========================== **/
	flagSet.BoolVar(&cfg.API.Enable, "api",
		cfg.API.Enable, "serve the query api")
	flagSet.StringVar(&cfg.API.Listen, "api-listen",
		cfg.API.Listen, "address of the query api")

	return configPath
}

package presets

import (
	"time"

	"github.com/shardnet/go-shard/config"
)

func init() {
	register("mocha", mocha())
}

// mocha targets the public celestia testnet. The node must be given an auth token.
func mocha() config.Config {
	conf := config.DefaultConfig()
	conf.Namespace = config.MustNamespace("shardmocha")
	conf.DA.Mode = config.DACelestia
	conf.DA.Celestia.URL = "https://rpc-mocha.pops.one"
	conf.DA.Celestia.RequestTimeout = time.Minute
	conf.DA.Celestia.RequestsPerSecond = 5
	conf.DA.Celestia.VerifyHeight = true
	conf.Ingest.Prefetch = 8
	conf.Ingest.CacheSize = 256
	conf.Ingest.BackoffMin = time.Second
	conf.Ingest.BackoffMax = time.Minute
	conf.LOGGING.Encoder = "json"
	return conf
}

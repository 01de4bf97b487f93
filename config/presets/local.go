package presets

import (
	"time"

	"github.com/shardnet/go-shard/config"
)

func init() {
	register("local", local())
}

// local talks to a celestia-node light client on localhost.
func local() config.Config {
	conf := config.DefaultConfig()
	conf.Namespace = config.MustNamespace("local")
	conf.DA.Mode = config.DACelestia
	conf.DA.Celestia.URL = "http://127.0.0.1:26658"
	conf.DA.Celestia.RequestsPerSecond = 50
	conf.Ingest.BackoffMin = 200 * time.Millisecond
	conf.Ingest.BackoffMax = 10 * time.Second
	return conf
}

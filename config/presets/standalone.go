package presets

import (
	"os"
	"path/filepath"
	"time"

	"github.com/shardnet/go-shard/config"
)

func init() {
	register("standalone", standalone())
}

// standalone runs the devnet DA inside the node and serves it on the celestia-node port.
func standalone() config.Config {
	conf := config.DefaultConfig()
	conf.DataDirParent = filepath.Join(os.TempDir(), "go-shard")
	conf.FileLock = filepath.Join(conf.DataDirParent, "LOCK")
	conf.Namespace = config.MustNamespace("standalone")

	conf.DA.Mode = config.DALocal
	conf.DA.Celestia.URL = "http://" + conf.LocalDA.Listen
	conf.LocalDA.BlockTime = time.Second

	conf.Ingest.Prefetch = 1
	conf.Ingest.BackoffMin = 100 * time.Millisecond
	conf.Ingest.BackoffMax = 2 * time.Second

	conf.CollectMetrics = true
	conf.API.Listen = "0.0.0.0:9070"
	return conf
}

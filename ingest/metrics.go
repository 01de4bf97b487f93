package ingest

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shardnet/go-shard/metrics"
)

const subsystem = "ingest"

var (
	heightGauge = metrics.NewGauge(
		"height",
		subsystem,
		"Last processed DA height",
		[]string{},
	).WithLabelValues()

	stateGauge = metrics.NewGauge(
		"state",
		subsystem,
		"Current state of the ingestion loop",
		[]string{"state"},
	)

	txsTotal = metrics.NewCounter(
		"txs_total",
		subsystem,
		"Number of processed transactions by result",
		[]string{"result"},
	)
	appliedTxs = txsTotal.WithLabelValues("applied")
	droppedTxs = txsTotal.WithLabelValues("dropped")

	droppedTotal = metrics.NewCounter(
		"dropped_total",
		subsystem,
		"Number of dropped transactions by reason",
		[]string{"reason"},
	)

	fetchRetries = metrics.NewCounter(
		"fetch_retries_total",
		subsystem,
		"Number of retried heights by reason",
		[]string{"reason"},
	)

	applyDuration = metrics.NewHistogramWithBuckets(
		"apply_duration_seconds",
		subsystem,
		"Duration of applying and checkpointing a height",
		[]string{},
		prometheus.ExponentialBuckets(0.001, 2, 16),
	).WithLabelValues()
)

func reportState(current State) {
	for _, state := range allStates {
		value := 0.0
		if state == current {
			value = 1
		}
		stateGauge.WithLabelValues(state.String()).Set(value)
	}
}

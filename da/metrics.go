package da

import (
	"errors"

	"github.com/shardnet/go-shard/metrics"
)

const subsystem = "da"

// Request statuses.
const (
	StatusOK          = "ok"
	StatusUnavailable = "unavailable"
	StatusNotProduced = "not_produced"
	StatusMismatch    = "mismatch"
	StatusError       = "error"
)

// Requests counts requests sent to the DA layer by method and status.
var Requests = metrics.NewCounter(
	"requests_total",
	subsystem,
	"Number of requests to the DA layer",
	[]string{"method", "status"},
)

// Status maps the result of a request to the status label.
func Status(err error) string {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrNotProduced):
		return StatusNotProduced
	case errors.Is(err, ErrHeightMismatch):
		return StatusMismatch
	case errors.Is(err, ErrUnavailable):
		return StatusUnavailable
	default:
		return StatusError
	}
}

// Observe counts the request.
func Observe(method string, err error) {
	Requests.WithLabelValues(method, Status(err)).Inc()
}

// Package da defines the boundary to the data availability layer.
//
// The DA layer is trusted to order and retain blobs. Blobs published under the
// rollup namespace in block H, ordered by their index, are the transactions of height H.
package da

import (
	"context"
	"errors"

	"github.com/shardnet/go-shard/common/types"
)

//go:generate mockgen -typed -package=mocks -destination=./mocks/mocks.go -source=./interface.go

var (
	// ErrUnavailable is returned when the DA layer can't be reached or failed to serve a request.
	ErrUnavailable = errors.New("da unavailable")
	// ErrNotProduced is returned for heights above the DA head.
	ErrNotProduced = errors.New("da height not produced")
	// ErrHeightMismatch is returned when the DA layer answered with data of another height.
	ErrHeightMismatch = errors.New("da height mismatch")
)

// Client reads and publishes rollup blobs.
type Client interface {
	// GetBlobs returns blobs of the namespace included at height. A height without
	// rollup blobs returns an empty slice.
	GetBlobs(ctx context.Context, ns types.Namespace, height types.Height) ([]types.Blob, error)
	// Submit publishes blobs and returns the height they were included at.
	Submit(ctx context.Context, ns types.Namespace, blobs [][]byte) (types.Height, error)
	// Head returns the latest produced height.
	Head(ctx context.Context) (types.Height, error)
}

// IsTransient returns true if the request may succeed when retried.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrNotProduced) ||
		errors.Is(err, ErrHeightMismatch)
}

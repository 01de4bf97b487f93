package types

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Blob is a piece of rollup data published in a DA block under the rollup namespace.
type Blob struct {
	Data       []byte
	Commitment []byte
	// Index is the position of the blob in the block as reported by the DA layer.
	Index int
}

// SortBlobs orders blobs by the index reported by the DA layer.
// Blobs with equal index keep the order they were received in.
func SortBlobs(blobs []Blob) {
	slices.SortStableFunc(blobs, func(a, b Blob) int {
		switch {
		case a.Index < b.Index:
			return -1
		case a.Index > b.Index:
			return 1
		}
		return 0
	})
}

// BlobRef references a submitted transaction: the DA height it was included in and its id.
type BlobRef struct {
	Height Height        `json:"height"`
	TxID   TransactionID `json:"tx_id"`
}

// String formats the reference as <height>/<txid>.
func (r BlobRef) String() string {
	return fmt.Sprintf("%d/%s", r.Height, r.TxID)
}

// ParseBlobRef parses a reference formatted by BlobRef.String.
func ParseBlobRef(s string) (BlobRef, error) {
	height, id, ok := strings.Cut(s, "/")
	if !ok {
		return BlobRef{}, errors.New("blob reference must be <height>/<txid>")
	}
	h, err := strconv.ParseUint(height, 10, 64)
	if err != nil {
		return BlobRef{}, fmt.Errorf("parse height: %w", err)
	}
	ref := BlobRef{Height: Height(h)}
	if err := ref.TxID.UnmarshalText([]byte(id)); err != nil {
		return BlobRef{}, err
	}
	return ref, nil
}

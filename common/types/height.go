package types

import (
	"strconv"

	"go.uber.org/zap/zapcore"
)

// Height is a height of a DA layer block.
type Height uint64

// Uint64 returns the height as uint64.
func (h Height) Uint64() uint64 { return uint64(h) }

// Add returns h + delta.
func (h Height) Add(delta uint64) Height { return h + Height(delta) }

// Sub returns h - delta, it saturates at zero.
func (h Height) Sub(delta uint64) Height {
	if uint64(h) < delta {
		return 0
	}
	return h - Height(delta)
}

// Before returns true if h is lower than other.
func (h Height) Before(other Height) bool { return h < other }

// String implements fmt.Stringer.
func (h Height) String() string { return strconv.FormatUint(uint64(h), 10) }

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (h Height) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddUint64("height", uint64(h))
	return nil
}

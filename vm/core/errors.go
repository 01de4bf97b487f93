package core

import (
	"errors"

	"github.com/shardnet/go-shard/common/types"
)

var (
	// ErrInvalidSignature is returned when the envelope can't be authenticated.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrNonceMismatch is returned when the envelope nonce differs from the expected one.
	ErrNonceMismatch = errors.New("nonce mismatch")
	// ErrApplicationRejected is returned when the application rules reject a transaction.
	ErrApplicationRejected = errors.New("rejected by application")
	// ErrApplication is returned when the application failed to process a verified transaction.
	ErrApplication = errors.New("application error")
	// ErrInternal is returned for broken invariants. The height is aborted.
	ErrInternal = errors.New("internal")
)

// Reason names of the dropped transactions.
const (
	ReasonDecode      = "DecodeError"
	ReasonSignature   = "InvalidSignature"
	ReasonNonce       = "NonceMismatch"
	ReasonRejected    = "ApplicationRejected"
	ReasonApplication = "ApplicationError"
	ReasonUnknown     = "Unknown"
)

// Reason returns the name of the kind of error that caused a transaction to be dropped.
func Reason(err error) string {
	switch {
	case errors.Is(err, types.ErrMalformed):
		return ReasonDecode
	case errors.Is(err, ErrInvalidSignature):
		return ReasonSignature
	case errors.Is(err, ErrNonceMismatch):
		return ReasonNonce
	case errors.Is(err, ErrApplicationRejected):
		return ReasonRejected
	case errors.Is(err, ErrApplication):
		return ReasonApplication
	default:
		return ReasonUnknown
	}
}

// ErrUnknownView is returned by applications for views they don't define.
var ErrUnknownView = errors.New("unknown view")

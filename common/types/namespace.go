package types

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	// NamespaceSize is the size of a DA namespace: one version byte and the id.
	NamespaceSize = 29
	// NamespaceIDSize is the size of the namespace id.
	NamespaceIDSize = NamespaceSize - 1
	// NamespaceVersionZero is the only namespace version accepted for rollup data.
	NamespaceVersionZero = 0
	// NamespaceSubIDMaxSize is the number of user controlled bytes in a version zero namespace.
	NamespaceSubIDMaxSize = 10

	namespaceV0PrefixSize = NamespaceIDSize - NamespaceSubIDMaxSize
)

var (
	// ErrInvalidNamespace is returned for namespaces that can't be used by a rollup.
	ErrInvalidNamespace = errors.New("invalid namespace")

	namespaceV0Prefix = make([]byte, namespaceV0PrefixSize)
)

// Namespace scopes the blobs of one rollup instance in the DA layer.
type Namespace [NamespaceSize]byte

// NewNamespaceV0 creates a version zero namespace from a sub id of at most 10 bytes.
// The sub id is left padded with zeroes.
func NewNamespaceV0(subID []byte) (Namespace, error) {
	var ns Namespace
	if len(subID) == 0 || len(subID) > NamespaceSubIDMaxSize {
		return ns, fmt.Errorf("%w: sub id must be 1..%d bytes, got %d",
			ErrInvalidNamespace, NamespaceSubIDMaxSize, len(subID))
	}
	ns[0] = NamespaceVersionZero
	copy(ns[NamespaceSize-len(subID):], subID)
	if ns.IsEmpty() {
		return ns, fmt.Errorf("%w: empty", ErrInvalidNamespace)
	}
	return ns, nil
}

// ParseNamespace parses either a full hex encoded namespace (29 bytes) or a hex encoded
// version zero sub id.
func ParseNamespace(s string) (Namespace, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Namespace{}, fmt.Errorf("%w: %w", ErrInvalidNamespace, err)
	}
	if len(raw) != NamespaceSize {
		return NewNamespaceV0(raw)
	}
	var ns Namespace
	copy(ns[:], raw)
	if err := ns.Validate(); err != nil {
		return Namespace{}, err
	}
	return ns, nil
}

// Validate checks that the namespace is a version zero namespace with the reserved prefix.
func (n Namespace) Validate() error {
	if n.Version() != NamespaceVersionZero {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidNamespace, n.Version())
	}
	if !bytes.Equal(n[1:1+namespaceV0PrefixSize], namespaceV0Prefix) {
		return fmt.Errorf("%w: version zero namespace must start with %d zero bytes",
			ErrInvalidNamespace, namespaceV0PrefixSize)
	}
	if n.IsEmpty() {
		return fmt.Errorf("%w: empty", ErrInvalidNamespace)
	}
	return nil
}

// Version returns the namespace version byte.
func (n Namespace) Version() byte { return n[0] }

// ID returns the 28-byte namespace id.
func (n Namespace) ID() []byte { return n[1:] }

// Bytes returns the full namespace.
func (n Namespace) Bytes() []byte { return n[:] }

// IsEmpty returns true if the namespace id is all zeroes.
func (n Namespace) IsEmpty() bool {
	return n == Namespace{}
}

// String returns the hex encoding of the full namespace.
func (n Namespace) String() string { return hex.EncodeToString(n[:]) }

// MarshalText implements encoding.TextMarshaler.
func (n Namespace) MarshalText() ([]byte, error) { return []byte(n.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *Namespace) UnmarshalText(text []byte) error {
	ns, err := ParseNamespace(string(text))
	if err != nil {
		return err
	}
	*n = ns
	return nil
}

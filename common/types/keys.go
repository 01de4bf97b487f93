package types

import (
	"encoding/hex"

	"github.com/spacemeshos/go-scale"
)

const (
	// PublicKeySize is the size of an ed25519 public key.
	PublicKeySize = 32
	// EdSignatureSize is the size of an ed25519 signature.
	EdSignatureSize = 64
)

// PublicKey is an ed25519 public key of an account.
type PublicKey [PublicKeySize]byte

// BytesToPublicKey copies b into a PublicKey. Extra bytes are ignored.
func BytesToPublicKey(b []byte) PublicKey {
	var pk PublicKey
	copy(pk[:], b)
	return pk
}

// Bytes returns the key as a byte slice.
func (pk PublicKey) Bytes() []byte { return pk[:] }

// String returns the hex representation of the key.
func (pk PublicKey) String() string { return hex.EncodeToString(pk[:]) }

// ShortString returns the first 5 characters of the key, for logging purposes.
func (pk PublicKey) ShortString() string { return pk.String()[:5] }

// MarshalText returns the hex representation of pk.
func (pk PublicKey) MarshalText() ([]byte, error) { return []byte(pk.String()), nil }

// UnmarshalText parses a key in hex syntax.
func (pk *PublicKey) UnmarshalText(input []byte) error {
	return decodeFixedHex("public key", input, pk[:])
}

// EncodeScale implements scale codec interface.
func (pk *PublicKey) EncodeScale(e *scale.Encoder) (int, error) {
	return scale.EncodeByteArray(e, pk[:])
}

// DecodeScale implements scale codec interface.
func (pk *PublicKey) DecodeScale(d *scale.Decoder) (int, error) {
	return scale.DecodeByteArray(d, pk[:])
}

// EdSignature is an ed25519 signature.
type EdSignature [EdSignatureSize]byte

// String returns the hex representation of the signature.
func (s EdSignature) String() string { return hex.EncodeToString(s[:]) }

// EncodeScale implements scale codec interface.
func (s *EdSignature) EncodeScale(e *scale.Encoder) (int, error) {
	return scale.EncodeByteArray(e, s[:])
}

// DecodeScale implements scale codec interface.
func (s *EdSignature) DecodeScale(d *scale.Decoder) (int, error) {
	return scale.DecodeByteArray(d, s[:])
}

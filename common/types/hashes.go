package types

import (
	"encoding/hex"
	"fmt"

	"github.com/spacemeshos/go-scale"

	"github.com/shardnet/go-shard/hash"
)

// Hash32Length is the expected length of the hash.
const Hash32Length = 32

// Hash32 represents the 32-byte blake3 hash of arbitrary data.
type Hash32 [Hash32Length]byte

// EmptyHash32 is the zero value of Hash32.
var EmptyHash32 = Hash32{}

// CalcHash32 returns the blake3 hash of the data.
func CalcHash32(data ...[]byte) Hash32 {
	return hash.Sum(data...)
}

// Bytes gets the byte representation of the underlying hash.
func (h Hash32) Bytes() []byte { return h[:] }

// Hex converts a hash to a hex string.
func (h Hash32) Hex() string { return hex.EncodeToString(h[:]) }

// String implements the stringer interface.
func (h Hash32) String() string { return h.Hex() }

// ShortString returns the first 5 characters of the hash, for logging purposes.
func (h Hash32) ShortString() string { return h.Hex()[:5] }

// MarshalText returns the hex representation of h.
func (h Hash32) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

// UnmarshalText parses a hash in hex syntax.
func (h *Hash32) UnmarshalText(input []byte) error {
	return decodeFixedHex("hash", input, h[:])
}

// EncodeScale implements scale codec interface.
func (h *Hash32) EncodeScale(e *scale.Encoder) (int, error) {
	return scale.EncodeByteArray(e, h[:])
}

// DecodeScale implements scale codec interface.
func (h *Hash32) DecodeScale(d *scale.Decoder) (int, error) {
	return scale.DecodeByteArray(d, h[:])
}

// TransactionID is the blake3 hash of the encoded envelope, as posted to the DA layer.
type TransactionID Hash32

// EmptyTransactionID is the zero value of TransactionID.
var EmptyTransactionID = TransactionID{}

// CalcTransactionID computes the id of the raw envelope bytes.
func CalcTransactionID(raw []byte) TransactionID {
	return TransactionID(CalcHash32(raw))
}

// Hash32 returns the id as a plain hash.
func (id TransactionID) Hash32() Hash32 { return Hash32(id) }

// String implements fmt.Stringer.
func (id TransactionID) String() string { return Hash32(id).Hex() }

// ShortString returns the first 5 characters of the id, for logging purposes.
func (id TransactionID) ShortString() string { return Hash32(id).ShortString() }

// MarshalText returns the hex representation of id.
func (id TransactionID) MarshalText() ([]byte, error) { return Hash32(id).MarshalText() }

// UnmarshalText parses an id in hex syntax.
func (id *TransactionID) UnmarshalText(input []byte) error {
	return decodeFixedHex("transaction id", input, id[:])
}

func decodeFixedHex(name string, input, dst []byte) error {
	if len(input) != 2*len(dst) {
		return fmt.Errorf("%s: expected %d hex characters, got %d", name, 2*len(dst), len(input))
	}
	if _, err := hex.Decode(dst, input); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

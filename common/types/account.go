package types

import (
	"errors"
	"fmt"

	"github.com/cosmos/btcutil/bech32"
	"github.com/spacemeshos/go-scale"
)

// AccountIDLength is the length of the account identifier.
const AccountIDLength = 20

var (
	// ErrWrongAccountIDLength is returned when the length of the account id is not correct.
	ErrWrongAccountIDLength = errors.New("wrong account id length")
	// ErrUnsupportedNetwork is returned when the human readable part doesn't match the configured one.
	ErrUnsupportedNetwork = errors.New("unsupported network")
	// ErrDecodeBech32 is returned when an error occurs during decoding bech32.
	ErrDecodeBech32 = errors.New("error decoding bech32")
)

// DefaultAccountHRP is the default human readable part of account ids.
const DefaultAccountHRP = "shard"

var accountHRP = DefaultAccountHRP

// SetAccountHRP updates the human readable part used to encode and decode account ids.
// It must be called before any account id is printed or parsed.
func SetAccountHRP(update string) {
	accountHRP = update
}

// AccountHRP returns the configured human readable part.
func AccountHRP() string {
	return accountHRP
}

// AccountID identifies an account. It is derived from the account's public key.
type AccountID [AccountIDLength]byte

// EmptyAccountID is the zero value of AccountID.
var EmptyAccountID = AccountID{}

// DeriveAccountID computes the account id from a public key:
// the last 20 bytes of blake3(public key).
func DeriveAccountID(pk PublicKey) AccountID {
	h := CalcHash32(pk[:])
	var id AccountID
	copy(id[:], h[Hash32Length-AccountIDLength:])
	return id
}

// StringToAccountID parses a bech32 account id like `shard1abc...`.
func StringToAccountID(src string) (AccountID, error) {
	var id AccountID
	hrp, data, err := bech32.DecodeNoLimit(src)
	if err != nil {
		return id, fmt.Errorf("%w: %w", ErrDecodeBech32, err)
	}
	// bech32 uses 5-bit groups, convert them back to 8-bit bytes.
	converted, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return id, fmt.Errorf("%w: converting bits: %w", ErrDecodeBech32, err)
	}
	if len(converted) != AccountIDLength {
		return id, fmt.Errorf("expected %d bytes, got %d: %w", AccountIDLength, len(converted), ErrWrongAccountIDLength)
	}
	if hrp != accountHRP {
		return id, fmt.Errorf("wrong network id: expected `%s`, got `%s`: %w", accountHRP, hrp, ErrUnsupportedNetwork)
	}
	copy(id[:], converted)
	return id, nil
}

// Bytes returns the id as a byte slice.
func (a AccountID) Bytes() []byte { return a[:] }

// IsEmpty returns true for the zero id.
func (a AccountID) IsEmpty() bool { return a == EmptyAccountID }

// String encodes the id as bech32 with the configured human readable part.
func (a AccountID) String() string {
	converted, err := bech32.ConvertBits(a[:], 8, 5, true)
	if err != nil {
		panic(fmt.Sprintf("converting bech32 bits: %v", err))
	}
	result, err := bech32.Encode(accountHRP, converted)
	if err != nil {
		panic(fmt.Sprintf("encoding bech32: %v", err))
	}
	return result
}

// ShortString returns a shortened bech32 form, for logging purposes.
func (a AccountID) ShortString() string {
	s := a.String()
	return s[:len(accountHRP)+6]
}

// MarshalText implements encoding.TextMarshaler.
func (a AccountID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *AccountID) UnmarshalText(text []byte) error {
	id, err := StringToAccountID(string(text))
	if err != nil {
		return err
	}
	*a = id
	return nil
}

// EncodeScale implements scale codec interface.
func (a *AccountID) EncodeScale(e *scale.Encoder) (int, error) {
	return scale.EncodeByteArray(e, a[:])
}

// DecodeScale implements scale codec interface.
func (a *AccountID) DecodeScale(d *scale.Decoder) (int, error) {
	return scale.DecodeByteArray(d, a[:])
}

package types

import (
	"errors"
	"fmt"

	"github.com/spacemeshos/go-scale"

	"github.com/shardnet/go-shard/codec"
)

const (
	// EnvelopeVersion is the only supported envelope encoding version.
	EnvelopeVersion = 0
	// MaxPayloadSize is the upper bound for the application payload.
	MaxPayloadSize = 64 << 10
)

var (
	// ErrMalformed is returned for bytes that can't be decoded into a known envelope.
	ErrMalformed = errors.New("malformed transaction")

	errUnsupportedVersion = errors.New("unsupported version")
	errInvalidPresence    = errors.New("invalid presence flag")
)

// TxType selects the application transaction variant carried in the payload.
type TxType uint8

// Envelope is a signed and versioned container around an application payload.
//
// Nonce, PublicKey and Signature are optional. PublicKey is set by the first
// transaction of an account so the registry can bind the key to the account id.
type Envelope struct {
	TxType    TxType
	Payload   []byte
	Sender    AccountID
	Nonce     *uint64
	PublicKey *PublicKey
	Signature *EdSignature
}

// HasNonce returns true if the nonce is set.
func (e *Envelope) HasNonce() bool { return e.Nonce != nil }

// NonceOrZero returns the nonce or 0 if it is not set.
func (e *Envelope) NonceOrZero() uint64 {
	if e.Nonce == nil {
		return 0
	}
	return *e.Nonce
}

// EncodeScale implements scale codec interface.
func (e *Envelope) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := e.encodeBody(enc)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := encodePresence(enc, e.PublicKey != nil)
		if err != nil {
			return total, err
		}
		total += n
		if e.PublicKey != nil {
			n, err := e.PublicKey.EncodeScale(enc)
			if err != nil {
				return total, err
			}
			total += n
		}
	}
	{
		n, err := encodePresence(enc, e.Signature != nil)
		if err != nil {
			return total, err
		}
		total += n
		if e.Signature != nil {
			n, err := e.Signature.EncodeScale(enc)
			if err != nil {
				return total, err
			}
			total += n
		}
	}
	return total, nil
}

func (e *Envelope) encodeBody(enc *scale.Encoder) (total int, err error) {
	{
		n, err := scale.EncodeCompact8(enc, EnvelopeVersion)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeByte(enc, byte(e.TxType))
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeByteSliceWithLimit(enc, e.Payload, MaxPayloadSize)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeByteArray(enc, e.Sender[:])
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := encodePresence(enc, e.Nonce != nil)
		if err != nil {
			return total, err
		}
		total += n
		if e.Nonce != nil {
			n, err := scale.EncodeCompact64(enc, *e.Nonce)
			if err != nil {
				return total, err
			}
			total += n
		}
	}
	return total, nil
}

// DecodeScale implements scale codec interface.
func (e *Envelope) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		version, n, err := scale.DecodeCompact8(dec)
		if err != nil {
			return total, err
		}
		if version != EnvelopeVersion {
			return total, fmt.Errorf("%w: %d", errUnsupportedVersion, version)
		}
		total += n
	}
	{
		field, n, err := scale.DecodeByte(dec)
		if err != nil {
			return total, err
		}
		e.TxType = TxType(field)
		total += n
	}
	{
		field, n, err := scale.DecodeByteSliceWithLimit(dec, MaxPayloadSize)
		if err != nil {
			return total, err
		}
		if len(field) == 0 {
			field = nil
		}
		e.Payload = field
		total += n
	}
	{
		n, err := scale.DecodeByteArray(dec, e.Sender[:])
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		present, n, err := decodePresence(dec)
		if err != nil {
			return total, err
		}
		total += n
		e.Nonce = nil
		if present {
			nonce, n, err := scale.DecodeCompact64(dec)
			if err != nil {
				return total, err
			}
			total += n
			e.Nonce = &nonce
		}
	}
	{
		present, n, err := decodePresence(dec)
		if err != nil {
			return total, err
		}
		total += n
		e.PublicKey = nil
		if present {
			var pk PublicKey
			n, err := pk.DecodeScale(dec)
			if err != nil {
				return total, err
			}
			total += n
			e.PublicKey = &pk
		}
	}
	{
		present, n, err := decodePresence(dec)
		if err != nil {
			return total, err
		}
		total += n
		e.Signature = nil
		if present {
			var sig EdSignature
			n, err := sig.DecodeScale(dec)
			if err != nil {
				return total, err
			}
			total += n
			e.Signature = &sig
		}
	}
	return total, nil
}

func encodePresence(enc *scale.Encoder, present bool) (int, error) {
	if present {
		return scale.EncodeByte(enc, 1)
	}
	return scale.EncodeByte(enc, 0)
}

func decodePresence(dec *scale.Decoder) (bool, int, error) {
	flag, n, err := scale.DecodeByte(dec)
	if err != nil {
		return false, n, err
	}
	switch flag {
	case 0:
		return false, n, nil
	case 1:
		return true, n, nil
	default:
		return false, n, fmt.Errorf("%w: %d", errInvalidPresence, flag)
	}
}

// SigningBody returns the bytes covered by the signature:
// version, tx type, payload, sender and nonce.
func (e *Envelope) SigningBody() []byte {
	return codec.MustEncode(signingBody{e})
}

// SigningDigest returns the hash of the signing body. This is the message that is signed.
func (e *Envelope) SigningDigest() Hash32 {
	return CalcHash32(e.SigningBody())
}

type signingBody struct {
	*Envelope
}

func (b signingBody) EncodeScale(enc *scale.Encoder) (int, error) {
	return b.encodeBody(enc)
}

// EncodeEnvelope encodes the envelope into bytes posted to the DA layer.
func EncodeEnvelope(e *Envelope) ([]byte, error) {
	return codec.Encode(e)
}

// DecodeEnvelope decodes raw bytes into an envelope. The whole buffer must be consumed
// and, if known is not nil, the transaction type must be recognized by it.
// Every failure wraps ErrMalformed.
func DecodeEnvelope(raw []byte, known func(TxType) bool) (*Envelope, error) {
	var env Envelope
	if err := codec.Decode(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if known != nil && !known(env.TxType) {
		return nil, fmt.Errorf("%w: unknown transaction type %d", ErrMalformed, env.TxType)
	}
	return &env, nil
}

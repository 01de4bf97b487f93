package types_test

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/spacemeshos/go-scale"
	"github.com/stretchr/testify/require"

	"github.com/shardnet/go-shard/codec"
	"github.com/shardnet/go-shard/common/types"
)

func randomEnvelope(rng *rand.Rand) *types.Envelope {
	env := &types.Envelope{
		TxType:  types.TxType(rng.Intn(4)),
		Payload: make([]byte, 1+rng.Intn(200)),
	}
	rng.Read(env.Payload)
	rng.Read(env.Sender[:])
	if rng.Intn(2) == 0 {
		nonce := rng.Uint64()
		env.Nonce = &nonce
	}
	if rng.Intn(2) == 0 {
		var pk types.PublicKey
		rng.Read(pk[:])
		env.PublicKey = &pk
	}
	if rng.Intn(2) == 0 {
		var sig types.EdSignature
		rng.Read(sig[:])
		env.Signature = &sig
	}
	return env
}

func knownTypes(tt types.TxType) bool { return tt < 4 }

func TestEnvelopeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(101))
	for i := 0; i < 200; i++ {
		env := randomEnvelope(rng)
		raw, err := types.EncodeEnvelope(env)
		require.NoError(t, err)

		decoded, err := types.DecodeEnvelope(raw, knownTypes)
		require.NoError(t, err)
		require.Equal(t, env, decoded)

		again, err := types.EncodeEnvelope(decoded)
		require.NoError(t, err)
		require.Equal(t, raw, again, "encoding must be deterministic")
	}
}

func TestEnvelopeDecodeErrors(t *testing.T) {
	nonce := uint64(7)
	env := &types.Envelope{
		TxType:  1,
		Payload: []byte("payload"),
		Sender:  types.AccountID{1, 2, 3},
		Nonce:   &nonce,
	}
	raw, err := types.EncodeEnvelope(env)
	require.NoError(t, err)

	t.Run("truncated", func(t *testing.T) {
		for i := 0; i < len(raw); i++ {
			_, err := types.DecodeEnvelope(raw[:i], knownTypes)
			require.ErrorIs(t, err, types.ErrMalformed, "prefix %d", i)
		}
	})
	t.Run("trailing bytes", func(t *testing.T) {
		_, err := types.DecodeEnvelope(append(raw[:len(raw):len(raw)], 0), knownTypes)
		require.ErrorIs(t, err, types.ErrMalformed)
		require.ErrorIs(t, err, codec.ErrTrailingBytes)
	})
	t.Run("unknown type", func(t *testing.T) {
		_, err := types.DecodeEnvelope(raw, func(tt types.TxType) bool { return tt == 0 })
		require.ErrorIs(t, err, types.ErrMalformed)
	})
	t.Run("unsupported version", func(t *testing.T) {
		bad := append([]byte{}, raw...)
		bad[0] = 1 << 2 // compact encoding of 1
		_, err := types.DecodeEnvelope(bad, knownTypes)
		require.ErrorIs(t, err, types.ErrMalformed)
	})
	t.Run("invalid presence", func(t *testing.T) {
		// version, type, payload length + payload, sender and then nonce presence
		bad := append([]byte{}, raw...)
		pos := 1 + 1 + 1 + len(env.Payload) + types.AccountIDLength
		require.Equal(t, byte(1), bad[pos])
		bad[pos] = 2
		_, err := types.DecodeEnvelope(bad, knownTypes)
		require.ErrorIs(t, err, types.ErrMalformed)
	})
	t.Run("payload too large", func(t *testing.T) {
		large := &types.Envelope{Payload: make([]byte, types.MaxPayloadSize+1)}
		_, err := types.EncodeEnvelope(large)
		require.Error(t, err)
	})
	t.Run("decode payload too large", func(t *testing.T) {
		var buf bytes.Buffer
		enc := scale.NewEncoder(&buf)
		_, err := scale.EncodeCompact8(enc, types.EnvelopeVersion)
		require.NoError(t, err)
		_, err = scale.EncodeByte(enc, 1)
		require.NoError(t, err)
		_, err = scale.EncodeCompact32(enc, types.MaxPayloadSize+1)
		require.NoError(t, err)
		buf.Write(make([]byte, types.MaxPayloadSize+1))
		buf.Write(make([]byte, types.AccountIDLength))
		buf.Write([]byte{0, 0, 0})

		_, err = types.DecodeEnvelope(buf.Bytes(), knownTypes)
		require.ErrorIs(t, err, types.ErrMalformed)
	})
	t.Run("garbage", func(t *testing.T) {
		rng := rand.New(rand.NewSource(7))
		for i := 0; i < 500; i++ {
			buf := make([]byte, rng.Intn(64))
			rng.Read(buf)
			require.NotPanics(t, func() {
				_, _ = types.DecodeEnvelope(buf, knownTypes)
			})
		}
	})
}

func TestSigningBody(t *testing.T) {
	nonce := uint64(1)
	env := &types.Envelope{TxType: 2, Payload: []byte{1}, Sender: types.AccountID{9}, Nonce: &nonce}
	body := env.SigningBody()

	var sig types.EdSignature
	env.Signature = &sig
	pk := types.PublicKey{1}
	env.PublicKey = &pk
	require.Equal(t, body, env.SigningBody(), "signature and key are not covered")

	nonce = 2
	require.NotEqual(t, body, env.SigningBody(), "nonce is covered")
}

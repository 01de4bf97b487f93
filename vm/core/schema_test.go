package core_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/spacemeshos/go-scale"
	"github.com/stretchr/testify/require"

	"github.com/shardnet/go-shard/common/types"
	"github.com/shardnet/go-shard/vm/core"
)

func TestSchemaEncode(t *testing.T) {
	schema := core.TxSchema{
		Name: "all",
		Type: 3,
		Fields: []core.Field{
			{Name: "small", Kind: core.KindU8},
			{Name: "big", Kind: core.KindU64},
			{Name: "text", Kind: core.KindString},
			{Name: "flag", Kind: core.KindBool},
			{Name: "to", Kind: core.KindAccount},
		},
	}
	to := types.AccountID{1, 2, 3}
	payload, err := schema.Encode([]string{"7", "1000000", "hello", "true", to.String()})
	require.NoError(t, err)

	var expected bytes.Buffer
	enc := scale.NewEncoder(&expected)
	_, err = scale.EncodeByte(enc, 7)
	require.NoError(t, err)
	_, err = scale.EncodeCompact64(enc, 1000000)
	require.NoError(t, err)
	_, err = core.EncodeString(enc, "hello")
	require.NoError(t, err)
	_, err = core.EncodeBool(enc, true)
	require.NoError(t, err)
	_, err = to.EncodeScale(enc)
	require.NoError(t, err)
	require.Equal(t, expected.Bytes(), payload)

	dec := scale.NewDecoder(bytes.NewReader(payload[1+4:]))
	text, _, err := core.DecodeString(dec)
	require.NoError(t, err)
	require.Equal(t, "hello", text)
	flag, _, err := core.DecodeBool(dec)
	require.NoError(t, err)
	require.True(t, flag)

	for _, tc := range []struct {
		name   string
		values []string
	}{
		{"arity", []string{"1"}},
		{"u8 overflow", []string{"256", "1", "x", "true", to.String()}},
		{"u64 negative", []string{"1", "-1", "x", "true", to.String()}},
		{"bool", []string{"1", "1", "x", "maybe", to.String()}},
		{"account", []string{"1", "1", "x", "true", "bob"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := schema.Encode(tc.values)
			require.ErrorIs(t, err, core.ErrSchema)
		})
	}

	found, ok := core.Lookup([]core.TxSchema{schema}, "all")
	require.True(t, ok)
	require.Equal(t, schema.Type, found.Type)
	_, ok = core.Lookup([]core.TxSchema{schema}, "none")
	require.False(t, ok)
}

func TestDecodeBoolInvalid(t *testing.T) {
	_, _, err := core.DecodeBool(scale.NewDecoder(bytes.NewReader([]byte{2})))
	require.Error(t, err)
}

func TestReason(t *testing.T) {
	for _, tc := range []struct {
		err    error
		reason string
	}{
		{fmt.Errorf("wrap: %w", types.ErrMalformed), core.ReasonDecode},
		{core.ErrInvalidSignature, core.ReasonSignature},
		{fmt.Errorf("too low: %w", core.ErrNonceMismatch), core.ReasonNonce},
		{core.ErrApplicationRejected, core.ReasonRejected},
		{core.ErrApplication, core.ReasonApplication},
		{core.ErrInternal, core.ReasonUnknown},
	} {
		require.Equal(t, tc.reason, core.Reason(tc.err))
	}
}

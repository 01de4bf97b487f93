package core

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/spacemeshos/go-scale"

	"github.com/shardnet/go-shard/common/types"
)

// MaxStringSize is the upper bound for string fields of application transactions.
const MaxStringSize = 256

// ErrSchema is returned when values don't match the declared fields.
var ErrSchema = errors.New("schema mismatch")

// FieldKind is the type of a transaction field.
type FieldKind string

const (
	KindU8      FieldKind = "u8"
	KindU64     FieldKind = "u64"
	KindString  FieldKind = "string"
	KindBool    FieldKind = "bool"
	KindAccount FieldKind = "account"
)

// Field is a named transaction field.
type Field struct {
	Name string    `json:"name"`
	Kind FieldKind `json:"kind"`
}

// TxSchema declares a transaction type of an application.
// Fields are encoded in order with the same rules the application uses to decode them.
type TxSchema struct {
	Name   string       `json:"name"`
	Type   types.TxType `json:"type"`
	Fields []Field      `json:"fields"`
}

// Lookup finds the schema by name.
func Lookup(schemas []TxSchema, name string) (TxSchema, bool) {
	for _, schema := range schemas {
		if schema.Name == name {
			return schema, true
		}
	}
	return TxSchema{}, false
}

// Encode parses values according to the fields and encodes them as the payload.
func (s TxSchema) Encode(values []string) ([]byte, error) {
	if len(values) != len(s.Fields) {
		return nil, fmt.Errorf("%w: %s expects %d values (%s), got %d",
			ErrSchema, s.Name, len(s.Fields), s.usage(), len(values))
	}
	var buf bytes.Buffer
	enc := scale.NewEncoder(&buf)
	for i, field := range s.Fields {
		if err := encodeField(enc, field, values[i]); err != nil {
			return nil, fmt.Errorf("%w: field %s: %w", ErrSchema, field.Name, err)
		}
	}
	return buf.Bytes(), nil
}

func (s TxSchema) usage() string {
	var b bytes.Buffer
	for i, field := range s.Fields {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "<%s:%s>", field.Name, field.Kind)
	}
	return b.String()
}

func encodeField(enc *scale.Encoder, field Field, value string) error {
	var err error
	switch field.Kind {
	case KindU8:
		var v uint64
		v, err = strconv.ParseUint(value, 10, 8)
		if err != nil {
			return err
		}
		_, err = scale.EncodeByte(enc, byte(v))
	case KindU64:
		var v uint64
		v, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		_, err = scale.EncodeCompact64(enc, v)
	case KindString:
		_, err = EncodeString(enc, value)
	case KindBool:
		var v bool
		v, err = strconv.ParseBool(value)
		if err != nil {
			return err
		}
		_, err = EncodeBool(enc, v)
	case KindAccount:
		var id types.AccountID
		id, err = types.StringToAccountID(value)
		if err != nil {
			return err
		}
		_, err = id.EncodeScale(enc)
	default:
		return fmt.Errorf("unknown kind %q", field.Kind)
	}
	return err
}

// EncodeString encodes a string field.
func EncodeString(enc *scale.Encoder, value string) (int, error) {
	return scale.EncodeByteSliceWithLimit(enc, []byte(value), MaxStringSize)
}

// DecodeString decodes a string field.
func DecodeString(dec *scale.Decoder) (string, int, error) {
	value, n, err := scale.DecodeByteSliceWithLimit(dec, MaxStringSize)
	if err != nil {
		return "", n, err
	}
	return string(value), n, nil
}

// EncodeBool encodes a bool field as a single byte.
func EncodeBool(enc *scale.Encoder, value bool) (int, error) {
	if value {
		return scale.EncodeByte(enc, 1)
	}
	return scale.EncodeByte(enc, 0)
}

// DecodeBool decodes a bool field. Bytes other than 0 and 1 are rejected.
func DecodeBool(dec *scale.Decoder) (bool, int, error) {
	value, n, err := scale.DecodeByte(dec)
	if err != nil {
		return false, n, err
	}
	switch value {
	case 0:
		return false, n, nil
	case 1:
		return true, n, nil
	}
	return false, n, fmt.Errorf("invalid bool %d", value)
}

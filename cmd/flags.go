package cmd

import (
	"encoding"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TextValue is a flag backed by an encoding.TextUnmarshaler.
type TextValue interface {
	encoding.TextMarshaler
	encoding.TextUnmarshaler
}

type textValue struct {
	value TextValue
}

// NewTextValue creates a flag value that parses the text into value.
func NewTextValue(value TextValue) *textValue {
	return &textValue{value: value}
}

func (t *textValue) String() string {
	text, err := t.value.MarshalText()
	if err != nil {
		return ""
	}
	return string(text)
}

func (t *textValue) Set(s string) error {
	return t.value.UnmarshalText([]byte(s))
}

func (t *textValue) Type() string {
	return "text"
}

type stringToUint64Value struct {
	value *map[string]uint64
}

// NewStringToUint64Value creates a flag value that parses key=value pairs separated by comma.
func NewStringToUint64Value(p *map[string]uint64) *stringToUint64Value {
	return &stringToUint64Value{value: p}
}

func (s *stringToUint64Value) Set(val string) error {
	parsed := map[string]uint64{}
	for _, pair := range strings.Split(val, ",") {
		if pair == "" {
			continue
		}
		key, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("%s must be formatted as key=value", pair)
		}
		value, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("parse value of %s: %w", key, err)
		}
		parsed[key] = value
	}
	*s.value = parsed
	return nil
}

func (s *stringToUint64Value) Type() string {
	return "stringToUint64"
}

func (s *stringToUint64Value) String() string {
	if s.value == nil {
		return ""
	}
	pairs := make([]string, 0, len(*s.value))
	for key, value := range *s.value {
		pairs = append(pairs, key+"="+strconv.FormatUint(value, 10))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

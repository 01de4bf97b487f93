// Package log contains the zap helpers shared by go-shard components.
package log

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// ConsoleEncoder writes human readable lines.
	ConsoleEncoder = "console"
	// JSONEncoder writes one json object per line.
	JSONEncoder = "json"
)

const defaultLevel = zapcore.InfoLevel

// Option modifies logger construction.
type Option func(*options)

type options struct {
	encoder string
	output  io.Writer
	hooks   []func(zapcore.Entry) error
}

// WithEncoder selects console or json output.
func WithEncoder(encoder string) Option {
	return func(o *options) {
		o.encoder = encoder
	}
}

// WithOutput overwrites the default stdout output.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.output = w
	}
}

// WithHooks registers hooks that are invoked for every written entry.
func WithHooks(hooks ...func(zapcore.Entry) error) Option {
	return func(o *options) {
		o.hooks = append(o.hooks, hooks...)
	}
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "T",
		LevelKey:       "L",
		NameKey:        "N",
		CallerKey:      zapcore.OmitKey,
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "M",
		StacktraceKey:  "S",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// NewWithLevel creates a named logger. The level is shared with the caller so it can be
// changed at runtime.
func NewWithLevel(module string, level zap.AtomicLevel, opts ...Option) (*zap.Logger, error) {
	o := &options{encoder: ConsoleEncoder, output: os.Stdout}
	for _, opt := range opts {
		opt(o)
	}
	var enc zapcore.Encoder
	switch o.encoder {
	case ConsoleEncoder:
		enc = zapcore.NewConsoleEncoder(encoderConfig())
	case JSONEncoder:
		enc = zapcore.NewJSONEncoder(encoderConfig())
	default:
		return nil, fmt.Errorf("unknown log encoder %q", o.encoder)
	}
	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(o.output)), level)
	logger := zap.New(core)
	if len(o.hooks) > 0 {
		logger = logger.WithOptions(zap.Hooks(o.hooks...))
	}
	return logger.Named(module), nil
}

// New creates a named logger at the default level.
func New(module string, opts ...Option) (*zap.Logger, error) {
	return NewWithLevel(module, zap.NewAtomicLevelAt(defaultLevel), opts...)
}

// ParseLevel parses level name, empty string selects the default level.
func ParseLevel(lvl string) (zapcore.Level, error) {
	if lvl == "" {
		return defaultLevel, nil
	}
	var level zapcore.Level
	if err := level.Set(lvl); err != nil {
		return 0, fmt.Errorf("parse log level %q: %w", lvl, err)
	}
	return level, nil
}

type shortStringer interface {
	ShortString() string
}

type shortString struct {
	val shortStringer
}

func (s shortString) String() string {
	return s.val.ShortString()
}

// ZShortStringer logs the short form of a hash or key.
func ZShortStringer(key string, val shortStringer) zap.Field {
	return zap.Stringer(key, shortString{val: val})
}

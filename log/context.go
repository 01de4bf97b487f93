package log

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey int

const (
	sessionIDKey ctxKey = iota
	sessionFieldsKey
)

// WithSessionID returns a context which knows its session id.
// A session tracks a single thread of execution, for example processing of one DA height
// or one submitted transaction. Optional fields are printed with every contextual log.
func WithSessionID(ctx context.Context, id string, fields ...zap.Field) context.Context {
	ctx = context.WithValue(ctx, sessionIDKey, id)
	if len(fields) > 0 {
		ctx = context.WithValue(ctx, sessionFieldsKey, fields)
	}
	return ctx
}

// WithNewSessionID does the same as WithSessionID with a random id.
func WithNewSessionID(ctx context.Context, fields ...zap.Field) context.Context {
	return WithSessionID(ctx, uuid.NewString(), fields...)
}

// ExtractSessionID returns the session id stored in ctx.
func ExtractSessionID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok
}

type marshalledContext struct {
	context.Context
}

func (c marshalledContext) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	if c.Context == nil {
		return nil
	}
	if id, ok := ExtractSessionID(c.Context); ok {
		encoder.AddString("sessionId", id)
	}
	if fields, ok := c.Value(sessionFieldsKey).([]zap.Field); ok {
		for _, field := range fields {
			field.AddTo(encoder)
		}
	}
	return nil
}

// ZContext inlines the session id and session fields of ctx into a log line.
func ZContext(ctx context.Context) zap.Field {
	return zap.Inline(marshalledContext{ctx})
}

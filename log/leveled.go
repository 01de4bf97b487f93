package log

import "go.uber.org/zap"

// Leveled wraps zap.Logger so it can be used as the leveled logger of HTTP clients
// that log with a message and key value pairs.
type Leveled struct {
	inner *zap.SugaredLogger
}

// NewLeveled creates Leveled from the logger.
func NewLeveled(logger *zap.Logger) *Leveled {
	return &Leveled{inner: logger.Sugar()}
}

func (l *Leveled) Error(msg string, kv ...any) { l.inner.Errorw(msg, kv...) }
func (l *Leveled) Warn(msg string, kv ...any)  { l.inner.Warnw(msg, kv...) }
func (l *Leveled) Info(msg string, kv ...any)  { l.inner.Infow(msg, kv...) }
func (l *Leveled) Debug(msg string, kv ...any) { l.inner.Debugw(msg, kv...) }

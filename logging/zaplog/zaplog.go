// Package zaplog adapts go.uber.org/zap to the logging.Logger contract.
package zaplog

import (
	"go.uber.org/zap"

	"github.com/langfork/warden/logging"
)

// Logger wraps a zap.Logger.
type Logger struct{ L *zap.Logger }

// New returns a Logger around l.
func New(l *zap.Logger) Logger { return Logger{L: l} }

func (z Logger) Debug(msg string, f logging.Fields) { z.L.Debug(msg, zf(f)...) }
func (z Logger) Info(msg string, f logging.Fields)  { z.L.Info(msg, zf(f)...) }
func (z Logger) Warn(msg string, f logging.Fields)  { z.L.Warn(msg, zf(f)...) }
func (z Logger) Error(msg string, f logging.Fields) { z.L.Error(msg, zf(f)...) }

func zf(f logging.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		out = append(out, zap.Any(k, v))
	}
	return out
}

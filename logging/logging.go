// Package logging defines the minimal structured logger consumed by warden.
// Adapters for concrete logging stacks live in subpackages.
package logging

// Fields is a structured field map attached to a log line.
type Fields map[string]any

// Logger is a tiny leveled logger. Core packages accept it by value and
// never log through a global.
type Logger interface {
	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, f Fields)
}

// Nop discards all log lines. It is the default wherever no logger is
// supplied.
type Nop struct{}

func (Nop) Debug(string, Fields) {}
func (Nop) Info(string, Fields)  {}
func (Nop) Warn(string, Fields)  {}
func (Nop) Error(string, Fields) {}

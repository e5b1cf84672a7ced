// Package logging provides the node/pipeline logging sink.
package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// Field is a structured key-value pair attached to a log line.
type Field struct {
	Key   string
	Value any
}

// F builds a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Sink is the minimal logging interface a Node accepts at construction.
// Nodes and resource nodes depend only on this interface, never on zerolog
// directly.
type Sink interface {
	Info(msg string, fields ...Field)
	Error(msg string, err error, fields ...Field)
}

// zerologSink is the default Sink implementation, backed by
// github.com/rs/zerolog.
type zerologSink struct {
	logger zerolog.Logger
}

// NewZerologSink creates a Sink writing JSON lines to stderr at the given
// level ("debug", "info", "warn", "error"; unknown values fall back to info).
func NewZerologSink(component string, level string) Sink {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).
		Level(lvl).
		With().
		Timestamp().
		Str("component", component).
		Logger()
	return &zerologSink{logger: logger}
}

// NewConsoleSink creates a Sink writing human-readable console output,
// useful for local development and examples.
func NewConsoleSink(component string) Sink {
	writer := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	logger := zerolog.New(writer).
		With().
		Timestamp().
		Str("component", component).
		Logger()
	return &zerologSink{logger: logger}
}

func (s *zerologSink) Info(msg string, fields ...Field) {
	ev := s.logger.Info()
	applyFields(ev, fields)
	ev.Msg(msg)
}

func (s *zerologSink) Error(msg string, err error, fields ...Field) {
	ev := s.logger.Error().Err(err)
	applyFields(ev, fields)
	ev.Msg(msg)
}

func applyFields(ev *zerolog.Event, fields []Field) {
	for _, f := range fields {
		ev.Interface(f.Key, f.Value)
	}
}

// Noop is a Sink that discards everything; useful for tests that don't
// care about log output.
var Noop Sink = noopSink{}

type noopSink struct{}

func (noopSink) Info(string, ...Field)         {}
func (noopSink) Error(string, error, ...Field) {}

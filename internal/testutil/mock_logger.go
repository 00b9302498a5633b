// Package testutil provides shared helpers for the pipeline's tests.
package testutil

import (
	"sync"

	"github.com/turtacn/scholar-etl/internal/infrastructure/monitoring/logging"
)

// MockLogger implements logging.Logger and records every entry. Child
// loggers created with With, Named or WithError share the parent's record.
type MockLogger struct {
	mu       *sync.Mutex
	messages *[]LogMessage
	fields   []logging.Field
	name     string
}

// LogMessage is one entry captured by MockLogger.
type LogMessage struct {
	Level   string
	Logger  string
	Message string
	Fields  []logging.Field
}

// Field returns the value of the field named key, if present.
func (m LogMessage) Field(key string) (interface{}, bool) {
	for _, f := range m.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// NewMockLogger creates an empty MockLogger.
func NewMockLogger() *MockLogger {
	return &MockLogger{mu: &sync.Mutex{}, messages: &[]LogMessage{}}
}

func (m *MockLogger) log(level, msg string, fields []logging.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := append(append([]logging.Field{}, m.fields...), fields...)
	*m.messages = append(*m.messages, LogMessage{Level: level, Logger: m.name, Message: msg, Fields: all})
}

func (m *MockLogger) Debug(msg string, fields ...logging.Field) { m.log("debug", msg, fields) }
func (m *MockLogger) Info(msg string, fields ...logging.Field)  { m.log("info", msg, fields) }
func (m *MockLogger) Warn(msg string, fields ...logging.Field)  { m.log("warn", msg, fields) }
func (m *MockLogger) Error(msg string, fields ...logging.Field) { m.log("error", msg, fields) }
func (m *MockLogger) Fatal(msg string, fields ...logging.Field) { m.log("fatal", msg, fields) }

func (m *MockLogger) With(fields ...logging.Field) logging.Logger {
	child := *m
	child.fields = append(append([]logging.Field{}, m.fields...), fields...)
	return &child
}

func (m *MockLogger) Named(name string) logging.Logger {
	child := *m
	if m.name != "" {
		name = m.name + "." + name
	}
	child.name = name
	return &child
}

func (m *MockLogger) WithError(err error) logging.Logger {
	if err == nil {
		return m
	}
	return m.With(logging.Err(err))
}

func (m *MockLogger) Sync() error { return nil }

// Messages returns a copy of all recorded entries.
func (m *MockLogger) Messages() []LogMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LogMessage, len(*m.messages))
	copy(out, *m.messages)
	return out
}

// Clear removes all recorded entries.
func (m *MockLogger) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	*m.messages = (*m.messages)[:0]
}

// HasMessage reports whether an entry with level and msg was recorded.
func (m *MockLogger) HasMessage(level, msg string) bool {
	return m.Count(level, msg) > 0
}

// Count returns how many entries with level and msg were recorded.
func (m *MockLogger) Count(level, msg string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, logged := range *m.messages {
		if logged.Level == level && logged.Message == msg {
			n++
		}
	}
	return n
}

//Personal.AI order the ending

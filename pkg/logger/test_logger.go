package logger

import (
	"sync"

	"github.com/rs/zerolog"
)

// TestEntry is a single captured log call.
type TestEntry struct {
	Level   string
	Message string
	Fields  map[string]interface{}
}

// TestLogger captures log entries for assertions in tests. Derived loggers
// share the entry sink, so a single TestLogger observes a whole component.
type TestLogger struct {
	mu      *sync.Mutex
	fields  map[string]interface{}
	entries *[]TestEntry
}

// NewTestLogger creates a logger that records every entry in memory.
func NewTestLogger() *TestLogger {
	entries := make([]TestEntry, 0, 16)
	return &TestLogger{
		mu:      &sync.Mutex{},
		fields:  make(map[string]interface{}),
		entries: &entries,
	}
}

// Entries returns a snapshot of everything logged so far.
func (l *TestLogger) Entries() []TestEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]TestEntry, len(*l.entries))
	copy(out, *l.entries)
	return out
}

// HasMessage reports whether any entry carries the given message.
func (l *TestLogger) HasMessage(msg string) bool {
	for _, e := range l.Entries() {
		if e.Message == msg {
			return true
		}
	}
	return false
}

func (l *TestLogger) record(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	*l.entries = append(*l.entries, TestEntry{Level: level, Message: msg, Fields: merged})
}

func (l *TestLogger) Debug(msg string) { l.record("debug", msg, nil) }
func (l *TestLogger) Info(msg string)  { l.record("info", msg, nil) }
func (l *TestLogger) Warn(msg string)  { l.record("warn", msg, nil) }
func (l *TestLogger) Error(msg string) { l.record("error", msg, nil) }
func (l *TestLogger) Fatal(msg string) { l.record("fatal", msg, nil) }

func (l *TestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	l.record("debug", msg, fields)
}

func (l *TestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	l.record("info", msg, fields)
}

func (l *TestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	l.record("warn", msg, fields)
}

func (l *TestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	l.record("error", msg, fields)
}

func (l *TestLogger) WithField(key string, value interface{}) Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

func (l *TestLogger) WithFields(fields map[string]interface{}) Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	child := &TestLogger{
		mu:      l.mu,
		fields:  make(map[string]interface{}, len(l.fields)+len(fields)),
		entries: l.entries,
	}
	for k, v := range l.fields {
		child.fields[k] = v
	}
	for k, v := range fields {
		child.fields[k] = v
	}
	return child
}

func (l *TestLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

// GetZerolog returns a disabled zerolog instance; tests only read Entries.
func (l *TestLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}

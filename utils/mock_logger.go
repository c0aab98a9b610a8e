package utils

import (
	"fmt"
	"strings"
	"sync"
)

// MockLogger records every message regardless of level. Tests use it to
// assert on what a component logged.
type MockLogger struct {
	mu       sync.Mutex
	Messages []LogMessage
}

type LogMessage struct {
	Level   string
	Message string
	Args    []any
}

func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (m *MockLogger) record(level, msg string, args []any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, LogMessage{Level: level, Message: msg, Args: args})
}

func (m *MockLogger) Debug(msg string, args ...any) { m.record("DEBUG", msg, args) }
func (m *MockLogger) Info(msg string, args ...any)  { m.record("INFO", msg, args) }
func (m *MockLogger) Warn(msg string, args ...any)  { m.record("WARN", msg, args) }
func (m *MockLogger) Error(msg string, args ...any) { m.record("ERROR", msg, args) }
func (m *MockLogger) SetLevel(LogLevel)             {}

// GetMessages returns a copy of the recorded messages.
func (m *MockLogger) GetMessages() []LogMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LogMessage{}, m.Messages...)
}

// HasMessage reports whether a message with the given level and text was logged.
func (m *MockLogger) HasMessage(level, text string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.Messages {
		if msg.Level == level && msg.Message == text {
			return true
		}
	}
	return false
}

func (m *MockLogger) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = nil
}

func (m *MockLogger) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sb strings.Builder
	for _, msg := range m.Messages {
		fmt.Fprintf(&sb, "[%s] %s %v\n", msg.Level, msg.Message, msg.Args)
	}
	return sb.String()
}

package frost

import (
	"time"

	"github.com/google/uuid"
)

// The manager's ambient dependencies. ManagerOptions injects test doubles
// for all three; the defaults below are the production implementations.

// Clock supplies archive timestamps.
type Clock interface {
	Now() time.Time
}

// IDGenerator allocates archive record IDs.
type IDGenerator interface {
	New() string
}

// Logger receives operation-level log records. Args follow slog
// conventions: alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// UUIDGenerator issues random UUID record IDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }

// NopLogger discards all log output.
type NopLogger struct{}

func NewNopLogger() *NopLogger { return &NopLogger{} }

func (*NopLogger) Debug(string, ...any) {}
func (*NopLogger) Info(string, ...any)  {}
func (*NopLogger) Warn(string, ...any)  {}
func (*NopLogger) Error(string, ...any) {}

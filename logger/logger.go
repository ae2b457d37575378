package logger

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Level represents the logging level
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// String returns the string representation of Level
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	default:
		return "info"
	}
}

// ParseLevel parses a string to Level
func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error", "err":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Field is a type-safe field for structured logging
type Field interface {
	apply(event *zerolog.Event) *zerolog.Event
}

type (
	stringField struct {
		key   string
		value string
	}
	intField struct {
		key   string
		value int
	}
	boolField struct {
		key   string
		value bool
	}
	durationField struct {
		key   string
		value time.Duration
	}
	errorField struct {
		value error
	}
	anyField struct {
		key   string
		value interface{}
	}
)

// Type-safe field constructors
func String(key, value string) Field {
	return stringField{key: key, value: value}
}

func Int(key string, value int) Field {
	return intField{key: key, value: value}
}

func Bool(key string, value bool) Field {
	return boolField{key: key, value: value}
}

func Dur(key string, value time.Duration) Field {
	return durationField{key: key, value: value}
}

func Err(value error) Field {
	return errorField{value: value}
}

func Any(key string, value interface{}) Field {
	return anyField{key: key, value: value}
}

// Logger defines the public interface for logging
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// WithComponent returns a derived logger tagged with a component name
	WithComponent(name string) Logger
}

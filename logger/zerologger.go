package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// OutputFormat represents the output format
type OutputFormat int

const (
	ConsoleFormat OutputFormat = iota
	JSONFormat
)

// FileConfig configures rotated file output
type FileConfig struct {
	Filename   string
	MaxSize    int // megabytes before rotation
	MaxAge     int // days to retain
	MaxBackups int
	Compress   bool
}

// Config holds the configuration for the logger
type Config struct {
	Level      Level
	Format     OutputFormat
	Output     io.Writer // defaults to os.Stdout
	FileConfig *FileConfig
}

// DefaultConfig returns a console logger configuration at info level
func DefaultConfig() *Config {
	return &Config{
		Level:  InfoLevel,
		Format: ConsoleFormat,
		Output: os.Stdout,
	}
}

// zerologLogger implements Logger using zerolog
type zerologLogger struct {
	logger zerolog.Logger
}

// New creates a Logger from the given configuration
func New(config *Config) Logger {
	if config == nil {
		config = DefaultConfig()
	}

	var level zerolog.Level
	switch config.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}

	var writers []io.Writer

	if config.FileConfig != nil {
		if err := os.MkdirAll(filepath.Dir(config.FileConfig.Filename), 0o755); err == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   config.FileConfig.Filename,
				MaxSize:    config.FileConfig.MaxSize,
				MaxAge:     config.FileConfig.MaxAge,
				MaxBackups: config.FileConfig.MaxBackups,
				Compress:   config.FileConfig.Compress,
				LocalTime:  true,
			})
		}
	}

	output := config.Output
	if output == nil {
		output = os.Stdout
	}
	if config.Format == ConsoleFormat {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: "15:04:05",
		})
	} else {
		writers = append(writers, output)
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &zerologLogger{logger: zl}
}

// Nop returns a logger that discards everything
func Nop() Logger {
	return &zerologLogger{logger: zerolog.Nop()}
}

func (z *zerologLogger) emit(event *zerolog.Event, msg string, fields []Field) {
	for _, f := range fields {
		event = f.apply(event)
	}
	event.Msg(msg)
}

func (z *zerologLogger) Debug(msg string, fields ...Field) {
	z.emit(z.logger.Debug(), msg, fields)
}

func (z *zerologLogger) Info(msg string, fields ...Field) {
	z.emit(z.logger.Info(), msg, fields)
}

func (z *zerologLogger) Warn(msg string, fields ...Field) {
	z.emit(z.logger.Warn(), msg, fields)
}

func (z *zerologLogger) Error(msg string, fields ...Field) {
	z.emit(z.logger.Error(), msg, fields)
}

func (z *zerologLogger) WithComponent(name string) Logger {
	return &zerologLogger{logger: z.logger.With().Str("component", name).Logger()}
}

// Zerolog field implementations
func (f stringField) apply(event *zerolog.Event) *zerolog.Event {
	return event.Str(f.key, f.value)
}

func (f intField) apply(event *zerolog.Event) *zerolog.Event {
	return event.Int(f.key, f.value)
}

func (f boolField) apply(event *zerolog.Event) *zerolog.Event {
	return event.Bool(f.key, f.value)
}

func (f durationField) apply(event *zerolog.Event) *zerolog.Event {
	return event.Dur(f.key, f.value)
}

func (f errorField) apply(event *zerolog.Event) *zerolog.Event {
	return event.Err(f.value)
}

func (f anyField) apply(event *zerolog.Event) *zerolog.Event {
	return event.Interface(f.key, f.value)
}

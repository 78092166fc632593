package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var (
	// Logger is the global logger instance
	Logger zerolog.Logger
)

// Level represents log level
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init initializes the global logger
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
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

	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// WithComponent creates a child logger with a component field
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithGuildID creates a child logger with a guild_id field
func WithGuildID(guildID uint64) zerolog.Logger {
	return Logger.With().Uint64("guild_id", guildID).Logger()
}

// WithRaidID creates a child logger with a raid_id field
func WithRaidID(raidID uint64) zerolog.Logger {
	return Logger.With().Uint64("raid_id", raidID).Logger()
}

// WithWorker creates a child logger with a worker field
func WithWorker(worker string) zerolog.Logger {
	return Logger.With().Str("worker", worker).Logger()
}

// Info logs an info-level message on the global logger
func Info(msg string) {
	Logger.Info().Msg(msg)
}

// Debug logs a debug-level message on the global logger
func Debug(msg string) {
	Logger.Debug().Msg(msg)
}

// Warn logs a warn-level message on the global logger
func Warn(msg string) {
	Logger.Warn().Msg(msg)
}

// Error logs an error-level message on the global logger
func Error(msg string) {
	Logger.Error().Msg(msg)
}

// Errorf logs an error with an attached err field
func Errorf(format string, err error) {
	Logger.Error().Err(err).Msg(format)
}

// Fatal logs a fatal message and exits the process
func Fatal(msg string) {
	Logger.Fatal().Msg(msg)
}

package common

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/rs/zerolog"
)

// Names of all loggers used by this module
const (
	LoggerEngine     = "engine"
	LoggerTransport  = "transport"
	LoggerServer     = "server"
	LoggerClient     = "client"
	LoggerSerializer = "serializer"
)

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// asyncLogger implements the ILogger interface on top of zerolog
type asyncLogger struct {
	mu     sync.RWMutex
	level  logger.LogLevel
	logger zerolog.Logger
}

func (l *asyncLogger) SetLevel(level logger.LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *asyncLogger) enabled(level logger.LogLevel) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level >= level
}

func (l *asyncLogger) Debugf(format string, args ...interface{}) {
	if l.enabled(logger.DEBUG) {
		l.logger.Debug().Msgf(format, args...)
	}
}

func (l *asyncLogger) Infof(format string, args ...interface{}) {
	if l.enabled(logger.INFO) {
		l.logger.Info().Msgf(format, args...)
	}
}

func (l *asyncLogger) Warningf(format string, args ...interface{}) {
	if l.enabled(logger.WARNING) {
		l.logger.Warn().Msgf(format, args...)
	}
}

func (l *asyncLogger) Errorf(format string, args ...interface{}) {
	if l.enabled(logger.ERROR) {
		l.logger.Error().Msgf(format, args...)
	}
}

func (l *asyncLogger) Panicf(format string, args ...interface{}) {
	if l.enabled(logger.CRITICAL) {
		panic(fmt.Sprintf(format, args...))
	}
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

var (
	logOutput   io.Writer = os.Stdout
	factoryOnce sync.Once
)

// CreateLogger creates a zerolog backed logger for the given package.
// It matches dragonboats logger.Factory signature.
func CreateLogger(pkgName string) logger.ILogger {
	output := zerolog.ConsoleWriter{
		Out:        logOutput,
		TimeFormat: time.RFC3339,
	}

	return &asyncLogger{
		level:  logger.INFO,
		logger: zerolog.New(output).With().Timestamp().Str("pkg", pkgName).Logger(),
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logger.DEBUG, nil
	case "info", "":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return logger.INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// InitLoggers installs the custom logger factory and sets the level of all
// loggers of this module
func InitLoggers(level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	// Set as the global logger factory (only once per process)
	factoryOnce.Do(func() {
		logger.SetLoggerFactory(CreateLogger)
	})

	for _, name := range []string{LoggerEngine, LoggerTransport, LoggerServer, LoggerClient, LoggerSerializer} {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}

package log

import (
	"io"
	"os"
	"strings"
	"sync"

	"sdfrontend/internal/core"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AppLogger is the application logger implementation.
// It keeps the printf-style core.Logger surface on top of a zap core.
type AppLogger struct {
	sugar      *zap.SugaredLogger
	base       *zap.Logger
	debug      bool
	fileHandle *os.File
	mu         sync.RWMutex
}

func newEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout(core.TimeFormatDateTime)
	cfg.EncodeLevel = func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString("[" + l.CapitalString() + "]")
	}
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	cfg.CallerKey = zapcore.OmitKey
	return cfg
}

func newZapLogger(output io.Writer, debugMode bool) *zap.Logger {
	level := zapcore.InfoLevel
	if debugMode {
		level = zapcore.DebugLevel
	}
	zcore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(newEncoderConfig()),
		zapcore.AddSync(output),
		level,
	)
	return zap.New(zcore)
}

// NewAppLoggerWithConfig creates a logger instance with configuration.
func NewAppLoggerWithConfig(output io.Writer, debugMode bool) *AppLogger {
	base := newZapLogger(output, debugMode)
	return &AppLogger{
		sugar:      base.Sugar(),
		base:       base,
		debug:      debugMode,
		fileHandle: nil,
	}
}

// Debug logs a message at DEBUG level.
func (l *AppLogger) Debug(format string, args ...any) {
	if l != nil && l.debug {
		l.sugar.Debugf(format, args...)
	}
}

// Info logs a message at INFO level.
func (l *AppLogger) Info(format string, args ...any) {
	if l != nil {
		l.sugar.Infof(format, args...)
	}
}

// Warn logs a message at WARN level.
func (l *AppLogger) Warn(format string, args ...any) {
	if l != nil {
		l.sugar.Warnf(format, args...)
	}
}

// Error logs a message at ERROR level.
func (l *AppLogger) Error(format string, args ...any) {
	if l != nil {
		l.sugar.Errorf(format, args...)
	}
}

// Fatal logs a message at FATAL level and terminates the process.
func (l *AppLogger) Fatal(format string, args ...any) {
	if l != nil {
		l.sugar.Fatalf(format, args...)
		return
	}
	zap.NewExample().Sugar().Fatalf(format, args...)
}

// Zap exposes the structured logger for middleware that logs fields.
func (l *AppLogger) Zap() *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l.base
}

// Close flushes buffered entries and closes the log file handle.
func (l *AppLogger) Close() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	_ = l.base.Sync()
	if l.fileHandle != nil {
		err := l.fileHandle.Close()
		l.fileHandle = nil
		return err
	}
	return nil
}

// containsPathTraversal checks if path contains parent directory references.
func containsPathTraversal(path string) bool {
	return strings.Contains(path, "../") ||
		strings.Contains(path, "..\\") ||
		strings.Contains(path, "/..") ||
		strings.Contains(path, "\\..") ||
		path == ".."
}

// createDebugFileOutput creates debug file output, falls back gracefully on failure.
func createDebugFileOutput(warn func(string, ...any)) (io.Writer, *os.File) {
	debugFile := os.Getenv("DEBUG_FILE")
	if debugFile == "" {
		return os.Stdout, nil
	}

	if len(debugFile) > core.MaxDebugFilePathLength {
		warn("DEBUG_FILE path too long, falling back to stdout")
		return os.Stdout, nil
	}

	if containsPathTraversal(debugFile) {
		warn("DEBUG_FILE contains path traversal characters, falling back to stdout")
		return os.Stdout, nil
	}

	//nolint:gosec // G304: debugFile from env var, validated by containsPathTraversal
	file, err := os.OpenFile(debugFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, core.FilePermissionReadWrite)
	if err != nil {
		warn("Failed to open DEBUG_FILE '%s': %v, falling back to stdout", debugFile, err)
		return os.Stdout, nil
	}

	return file, file
}

// IsDebug returns whether the app is running in debug mode.
func IsDebug() bool {
	return os.Getenv("GIN_MODE") == "debug"
}

// CreateLogger creates a logger instance (for dependency injection).
func CreateLogger() core.Logger {
	debugMode := IsDebug()

	var pending []func(l *AppLogger)
	output, fileHandle := createDebugFileOutput(func(format string, args ...any) {
		pending = append(pending, func(l *AppLogger) { l.Warn(format, args...) })
	})

	logger := NewAppLoggerWithConfig(output, debugMode)
	logger.fileHandle = fileHandle
	for _, emit := range pending {
		emit(logger)
	}

	return logger
}

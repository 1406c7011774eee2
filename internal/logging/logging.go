// Package logging sets up the slog logger every chatforge process shares:
// console output plus two lumberjack-rotated files per component — one
// named after the component, one shared "latest.log" — mirroring the
// original's per-service-plus-combined rotating-file layout (grounded on
// original_source/ChatManager/shared/logging_setup.py's setup_logging).
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kallsen-dev/chatforge/internal/routerconfig"
)

// Log is the process-wide logger set by the most recent Init call.
var Log *slog.Logger

const (
	defaultMaxBytes    = 5 * 1024 * 1024
	defaultBackupCount = 5
)

// Init configures Log for component (e.g. "router", "emitter",
// "worker.gamble") from cfg, rotating both a component-named file and a
// shared "latest.log" under cfg.Dir (spec.md §6 logging keys).
func Init(component string, cfg routerconfig.Logging) (*slog.Logger, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	backups := cfg.BackupCount
	if backups <= 0 {
		backups = defaultBackupCount
	}
	maxMegabytes := maxBytes / (1024 * 1024)
	if maxMegabytes <= 0 {
		maxMegabytes = 1
	}

	componentFile := &lumberjack.Logger{
		Filename:   filepath.Join(dir, component+".log"),
		MaxSize:    maxMegabytes,
		MaxBackups: backups,
	}
	latestFile := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "latest.log"),
		MaxSize:    maxMegabytes,
		MaxBackups: backups,
	}

	multi := io.MultiWriter(os.Stdout, componentFile, latestFile)

	handler := slog.NewTextHandler(multi, &slog.HandlerOptions{
		Level: levelFromString(cfg.Level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String("time", a.Value.Time().Format("2006-01-02 15:04:05"))
			}
			return a
		},
	})

	Log = slog.New(handler).With("component", component)
	slog.SetDefault(Log)
	return Log, nil
}

func levelFromString(level string) slog.Level {
	switch level {
	case "debug", "DEBUG":
		return slog.LevelDebug
	case "warn", "WARN", "warning", "WARNING":
		return slog.LevelWarn
	case "error", "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debug logs at debug level on the package logger.
func Debug(msg string, args ...any) { Log.Debug(msg, args...) }

// Info logs at info level on the package logger.
func Info(msg string, args ...any) { Log.Info(msg, args...) }

// Warn logs at warn level on the package logger.
func Warn(msg string, args ...any) { Log.Warn(msg, args...) }

// Error logs at error level on the package logger.
func Error(msg string, args ...any) { Log.Error(msg, args...) }

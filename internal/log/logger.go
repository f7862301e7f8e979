package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// LevelTrace is below slog.LevelDebug; --debug selects it.
const LevelTrace = slog.Level(-8)

var (
	once   sync.Once
	logger *slog.Logger
)

// Options configures Setup.
type Options struct {
	Level  string
	Writer io.Writer // Defaults to os.Stderr
}

// ParseLevel maps a level name to a slog level.
// logic: default to INFO. If level is invalid, fallback to INFO.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup initializes the global logger. Only the first call has any effect.
func Setup(opts Options) {
	once.Do(func() {
		w := opts.Writer
		if w == nil {
			w = os.Stderr
		}
		handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       ParseLevel(opts.Level),
			ReplaceAttr: replaceLevel,
		})
		logger = slog.New(handler)
		slog.SetDefault(logger)
	})
}

// replaceLevel renders LevelTrace as "TRACE" instead of "DEBUG-4".
func replaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if lvl, ok := a.Value.Any().(slog.Level); ok && lvl <= LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}

// Get returns the configured logger, or a default one if Setup hasn't been called.
func Get() *slog.Logger {
	if logger == nil {
		Setup(Options{Level: "INFO"})
	}
	return logger
}

// WithComponent returns a logger with the component field set.
func WithComponent(name string) *slog.Logger {
	return Get().With(slog.String("component", name))
}

// WithInvocation returns a logger with the invocation_id field set.
func WithInvocation(id string) *slog.Logger {
	return Get().With(slog.String("invocation_id", id))
}

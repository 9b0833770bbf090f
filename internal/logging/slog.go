package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Overridden in tests.
var (
	osStdout io.Writer = os.Stdout
	osPipe             = os.Pipe
)

// SlogManager manages slog-based logging for an editing session.
type SlogManager struct {
	logger *slog.Logger
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func handlerOptions(level slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}
}

// Setup initializes the logging system. Records go to file when one is
// given, otherwise to stdout, and to every extra handler as well. A non-nil
// state is appended to each record.
func (m *SlogManager) Setup(file io.Writer, level string, state SessionAttrs, extra ...slog.Handler) {
	out := file
	if out == nil {
		out = osStdout
	}
	opts := handlerOptions(parseLevel(level))

	var h slog.Handler = newFanout(append([]slog.Handler{slog.NewTextHandler(out, opts)}, extra...)...)
	if state != nil {
		h = sessionHandler{Handler: h, state: state}
	}

	m.logger = slog.New(h)
	m.logger.Info("Logging initialized", "level", level)
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// WriteLog writes a log entry with the specified command name, data, and level.
func (m *SlogManager) WriteLog(command, data, level string) {
	if m.logger == nil {
		return
	}

	switch parseLevel(level) {
	case slog.LevelDebug:
		m.logger.Debug(data, "command", command)
	case slog.LevelWarn:
		m.logger.Warn(data, "command", command)
	case slog.LevelError:
		m.logger.Error(data, "command", command)
	default:
		m.logger.Info(data, "command", command)
	}
}

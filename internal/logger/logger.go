package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Logger carries the component/file/function context of a log line. It is a
// value type: File and Function return copies, so a package-level logger can
// be narrowed per call without synchronisation.
type Logger struct {
	component string
	file      string
	function  string
}

// Init installs the process-wide slog handler. format is "json" or "text".
func Init(w io.Writer, level, format string) {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func New(component string) Logger {
	return Logger{component: component}
}

func (l Logger) File(file string) Logger {
	l.file = file
	return l
}

func (l Logger) Function(function string) Logger {
	l.function = function
	return l
}

func (l Logger) slog() *slog.Logger {
	log := slog.Default().With("component", l.component)
	if l.file != "" {
		log = log.With("file", l.file)
	}
	if l.function != "" {
		log = log.With("function", l.function)
	}
	return log
}

func (l Logger) Debug(msg string, args ...any) {
	l.slog().Debug(msg, args...)
}

func (l Logger) Info(msg string, args ...any) {
	l.slog().Info(msg, args...)
}

func (l Logger) Warn(msg string, args ...any) {
	l.slog().Warn(msg, args...)
}

// Er logs err without returning it.
func (l Logger) Er(msg string, err error, args ...any) {
	l.slog().Error(msg, append([]any{"error", err}, args...)...)
}

// Err logs err and returns it wrapped with msg. The original error stays
// reachable through errors.Is / errors.As.
func (l Logger) Err(msg string, err error, args ...any) error {
	if err == nil {
		return l.Error(msg, args...)
	}
	l.Er(msg, err, args...)
	return fmt.Errorf("%s: %w", msg, err)
}

func (l Logger) ErMsg(msg string, args ...any) {
	l.slog().Error(msg, args...)
}

func (l Logger) ErrMsg(msg string) error {
	l.ErMsg(msg)
	return errors.New(msg)
}

// Error logs msg with the given attributes and returns it as an error.
func (l Logger) Error(msg string, args ...any) error {
	l.ErMsg(msg, args...)
	return errors.New(msg)
}

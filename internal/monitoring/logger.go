package monitoring

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// ParseLevel maps debug/info/warn/error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(s)))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

// NewConsoleLogger returns a tint-coloured slog logger writing to w.
func NewConsoleLogger(w io.Writer, level slog.Level, color bool) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    !color,
	}))
}

// UseSlog routes Logf and the standard log package through logger. Logf
// lines are emitted at info level; a leading "[Component]" tag becomes the
// component attribute.
func UseSlog(logger *slog.Logger) {
	slog.SetDefault(logger)
	SetLogger(func(format string, v ...interface{}) {
		msg := fmt.Sprintf(format, v...)
		if component, rest, ok := splitComponent(msg); ok {
			logger.Log(context.Background(), slog.LevelInfo, rest, "component", component)
			return
		}
		logger.Log(context.Background(), slog.LevelInfo, msg)
	})
}

func splitComponent(msg string) (string, string, bool) {
	if !strings.HasPrefix(msg, "[") {
		return "", msg, false
	}
	end := strings.Index(msg, "]")
	if end <= 1 {
		return "", msg, false
	}
	return msg[1:end], strings.TrimSpace(msg[end+1:]), true
}

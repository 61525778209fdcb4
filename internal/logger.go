package internal

import (
	"io"
	"log/slog"
	"strings"
	"time"
)

// redactedKeys never reach log output in the clear.
var redactedKeys = map[string]bool{
	"api_key":        true,
	"secret_key":     true,
	"webhook_secret": true,
	"database_url":   true,
}

// NewLogger returns a JSON logger in prod and a text logger otherwise.
// An unknown level logs a warning and falls back to info.
func NewLogger(w io.Writer, env string, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		slog.Default().Warn("invalid log level, using info", "value", level)
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if redactedKeys[a.Key] {
				return slog.String(a.Key, "[redacted]")
			}
			if env == "prod" && a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
				return slog.String(slog.TimeKey, a.Value.Time().UTC().Format(time.RFC3339Nano))
			}
			return a
		},
	}

	if env == "prod" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

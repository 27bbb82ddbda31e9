// ABOUTME: slog logger construction from the configured level
// ABOUTME: Logs go to stderr so stdout stays free for the MCP stdio transport
package config

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger returns a text logger on stderr at the given level.
func NewLogger(level string) *slog.Logger {
	return newLogger(os.Stderr, level)
}

func newLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)}))
}

func parseLevel(level string) slog.Leveler {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

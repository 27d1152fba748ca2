package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/rs/zerolog"
)

const (
	BackendSlog    = "slog"
	BackendZerolog = "zerolog"
)

// New builds a JSON logger writing to w for the given backend and level
// ("debug", "info", "warn", "error"). An empty backend selects slog.
func New(backend, level string, w io.Writer) (Logger, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendSlog:
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(normalizeLevel(level))); err != nil {
			return nil, fmt.Errorf("log level %q: %w", level, err)
		}
		h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
		return NewSlogLogger(slog.New(h)), nil

	case BackendZerolog:
		lvl, err := zerolog.ParseLevel(normalizeLevel(level))
		if err != nil {
			return nil, fmt.Errorf("log level %q: %w", level, err)
		}
		l := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
		return NewZerologLogger(l), nil

	default:
		return nil, fmt.Errorf("unknown log backend %q", backend)
	}
}

func normalizeLevel(level string) string {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		return "info"
	}
	return level
}

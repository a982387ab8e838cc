// Package logx configures the process logger. Log output goes to stderr
// so it never interleaves with the UCI protocol on stdout.
package logx

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a zerolog logger writing console output to stderr.
// The KESTREL_LOG environment variable selects the level; the default is
// warn so GUI users see nothing but protocol traffic.
func NewLogger() zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}

	level := zerolog.WarnLevel
	if env := strings.ToLower(os.Getenv("KESTREL_LOG")); env != "" {
		if parsed, err := zerolog.ParseLevel(env); err == nil {
			level = parsed
		}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

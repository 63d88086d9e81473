// Package logger configures the process-wide zerolog root logger.
package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Setup builds the root logger. Level names follow zerolog (trace through
// panic, defaulting to info on anything unparseable); format "pretty" selects
// the human console writer, everything else emits raw JSON lines.
func Setup(level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	log := zerolog.New(os.Stdout)
	if format == "pretty" {
		log = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	return log.With().Timestamp().Caller().Logger()
}

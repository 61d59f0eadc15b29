package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Setup configures the global zerolog logger.
func Setup(level, format string) error {
	return SetupWriter(os.Stderr, level, format)
}

func SetupWriter(out io.Writer, level, format string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)

	switch format {
	case FormatConsole, "":
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}).
			With().Timestamp().Logger()
	case FormatJSON:
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	default:
		return fmt.Errorf("invalid log format %q", format)
	}
	return nil
}

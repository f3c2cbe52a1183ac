// Package telemetry provides structured logging for the fault-detection
// core, wrapping zerolog the way the pack's device-monitoring daemons do.
package telemetry

import (
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	log                zerolog.Logger
	errInvalidLogLevel = errors.New("telemetry: invalid log level")
)

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	log = zerolog.New(out).Level(zerolog.InfoLevel).With().Timestamp().Logger()
}

// Init (re)configures the global logger at the given level, writing to w.
func Init(level string, w io.Writer) error {
	lvl, err := parseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	log = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	if err != nil {
		log.Warn().Str("requested_level", level).Msg("telemetry:invalid-level-using-info")
		return err
	}
	return nil
}

func parseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.InfoLevel, errInvalidLogLevel
	}
}

// Get returns the global logger.
func Get() *zerolog.Logger { return &log }

// With returns a child logger builder with preset fields, e.g.
// telemetry.With().Str("detector", "chronic_idle").Logger().
func With() zerolog.Context { return log.With() }

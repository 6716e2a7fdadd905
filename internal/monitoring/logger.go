package monitoring

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logf is the package-level diagnostic logger. It defaults to an info-level
// zerolog event on the global logger but may be replaced by SetLogger. Tests
// or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = infof

func infof(format string, v ...interface{}) {
	log.Info().Msgf(format, v...)
}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Setup configures the global zerolog logger that backs the default Logf.
// A nil writer means stderr with human-readable console output.
func Setup(w io.Writer, debug bool) {
	if w == nil {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	Logf = infof
}

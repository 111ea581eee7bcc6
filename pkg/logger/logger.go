package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var zlog zerolog.Logger

// Init sets up the process-wide structured logger: pretty console output in
// development, JSON otherwise.
func Init(env string) {
	var w io.Writer
	if env == "development" || env == "dev" {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	} else {
		w = os.Stdout
	}

	zlog = zerolog.New(w).With().
		Timestamp().
		Str("service", "tasky-backend").
		Logger()

	zerolog.TimeFieldFormat = time.RFC3339
}

// L returns the global logger.
func L() zerolog.Logger {
	return zlog
}

package logger

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	instance zerolog.Logger
	once     sync.Once
)

// New returns the process-wide logger. Development mode uses the console
// writer, otherwise JSON lines on stderr.
func New(development bool) zerolog.Logger {
	once.Do(func() {
		if development {
			instance = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
				Level(zerolog.DebugLevel).
				With().Timestamp().Logger()
			return
		}
		instance = zerolog.New(os.Stderr).
			Level(zerolog.InfoLevel).
			With().Timestamp().Logger()
	})
	return instance
}

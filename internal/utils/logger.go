package utils

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the global logger. Without debug all logging is off
// so the console stays clean for progress output; with debug everything goes
// to the log file.
func InitLogger(debug bool) {
	if !debug {
		zerolog.SetGlobalLevel(zerolog.Disabled)
		return
	}
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	f, err := os.OpenFile(LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		f = os.Stderr
	}
	output := zerolog.ConsoleWriter{
		Out:        f,
		TimeFormat: time.DateTime,
		NoColor:    true,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

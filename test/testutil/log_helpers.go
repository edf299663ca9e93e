// Package testutil holds logging helpers shared by integration tests.
package testutil

import (
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitTestLogger routes global logging through a console writer so test
// output stays readable. Level comes from MNEMO_TEST_LOG_LEVEL, defaulting
// to warn so passing runs stay quiet.
func InitTestLogger() {
	level := zerolog.WarnLevel
	if raw := os.Getenv("MNEMO_TEST_LOG_LEVEL"); raw != "" {
		if parsed, err := zerolog.ParseLevel(raw); err == nil {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

// WithLogLevel overrides the global log level for one test and restores the
// previous level when the test finishes.
func WithLogLevel(t *testing.T, level zerolog.Level) {
	t.Helper()
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(level)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })
}

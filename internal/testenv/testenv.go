// Package testenv provides utilities for tests that need an external service
// or a logger tied to the running test.
package testenv

import (
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

const (
	// EnvRedisURL is the environment variable that points tests at a Redis
	// server, e.g. redis://localhost:6379/15. Tests needing Redis are skipped
	// when it is not set.
	EnvRedisURL = "AGENDA_TEST_REDIS_URL"

	// EnvLogLevel sets the level of Logger. Defaults to debug.
	EnvLogLevel = "AGENDA_TEST_LOG_LEVEL"
)

// RedisURL returns the Redis server to test against, or skips t.
func RedisURL(t testing.TB) string {
	t.Helper()
	url := os.Getenv(EnvRedisURL)
	if url == "" {
		t.Skipf("%s not set", EnvRedisURL)
	}
	return url
}

// Logger returns a logger whose output goes to t.Log, without timestamps, so
// it only shows for failing or verbose tests.
func Logger(t testing.TB) zerolog.Logger {
	level := zerolog.DebugLevel
	if l, err := zerolog.ParseLevel(os.Getenv(EnvLogLevel)); err == nil && l != zerolog.NoLevel {
		level = l
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: testWriter{t}, NoColor: true, PartsExclude: []string{zerolog.TimestampFieldName}}).Level(level)
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

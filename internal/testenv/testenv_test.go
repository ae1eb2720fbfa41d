package testenv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// recordingTB captures Log and Skip calls.
type recordingTB struct {
	testing.TB
	logs    []string
	skipped bool
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Log(args ...any) {
	for _, a := range args {
		r.logs = append(r.logs, a.(string))
	}
}

func (r *recordingTB) Skipf(string, ...any) { r.skipped = true }

func TestRedisURL(t *testing.T) {
	t.Setenv(EnvRedisURL, "")
	rec := &recordingTB{}
	assert.Empty(t, RedisURL(rec))
	assert.True(t, rec.skipped)

	t.Setenv(EnvRedisURL, "redis://localhost:6379/15")
	rec = &recordingTB{}
	assert.Equal(t, "redis://localhost:6379/15", RedisURL(rec))
	assert.False(t, rec.skipped)
}

func TestLogger(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	rec := &recordingTB{}
	log := Logger(rec)
	log.Debug().Str("op", "load").Msg("contacts loaded")

	if assert.Len(t, rec.logs, 1) {
		assert.Contains(t, rec.logs[0], "contacts loaded")
		assert.Contains(t, rec.logs[0], "op=load")
	}

	t.Setenv(EnvLogLevel, "warn")
	rec = &recordingTB{}
	log = Logger(rec)
	log.Info().Msg("hidden")
	assert.Empty(t, rec.logs)
}

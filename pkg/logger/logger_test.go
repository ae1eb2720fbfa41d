package logger_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/agendacontatos/agenda.go/pkg/logger"
	"github.com/stretchr/testify/require"
)

func TestLog(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	templogger, err := logger.New().FromBuffer(buff).Make()
	require.NoError(t, err)
	require.NotNil(t, templogger)
	// Get Stats Before
	require.Equal(t, buff.Len(), 0)
	templogger.Logger.Info().Msg("Test")
	// Get Stats After
	require.Contains(t, buff.String(), "Test")
}

func TestLogLevelFiltersDebug(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	templogger, err := logger.New().FromBuffer(buff).Level("warn").Make()
	require.NoError(t, err)

	templogger.Logger.Info().Msg("quiet")
	require.Equal(t, 0, buff.Len())

	templogger.Logger.Warn().Msg("loud")
	require.Contains(t, buff.String(), "loud")
}

func TestLogInvalidLevel(t *testing.T) {
	_, err := logger.New().FromBuffer(&bytes.Buffer{}).Level("chatty").Make()
	require.Error(t, err)
}

func TestLogFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agenda.log")
	templogger, err := logger.New().FromPath(path).Make()
	require.NoError(t, err)

	templogger.Logger.Info().Str("op", "load").Msg("written")
	require.NoError(t, templogger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"op":"load"`)
}

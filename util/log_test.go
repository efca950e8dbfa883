package util

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"
)

func TestInitLog(t *testing.T) {
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetLevel(log.InfoLevel)
	})

	require.Error(t, InitLog("loud", LogConsole))

	require.NoError(t, InitLog("debug", LogConsole))
	assert.Equal(t, log.DebugLevel, log.GetLevel())
	assert.True(t, log.StandardLogger().ReportCaller)
}

func TestLogOutput(t *testing.T) {
	assert.Equal(t, os.Stderr, logOutput(""))
	assert.Equal(t, os.Stderr, logOutput(LogConsole))
	assert.Equal(t, os.Stdout, logOutput(LogStdout))

	path := filepath.Join(t.TempDir(), "iceagent.log")
	out, ok := logOutput(path).(*lumberjack.Logger)
	require.True(t, ok)
	assert.Equal(t, filepath.ToSlash(path), out.Filename)
}

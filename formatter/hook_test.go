package formatter

import (
	"bytes"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilePathParsing(t *testing.T) {
	testCases := []struct {
		filePath         string
		expectedFileName string
	}{
		{
			filePath:         "/home/dev/src/iceagent/agent/agent.go",
			expectedFileName: "agent/agent.go",
		},
		{
			filePath:         "/home/dev/iceagent/repos/iceagent/engine/pionice/engine.go",
			expectedFileName: "engine/pionice/engine.go",
		},
		{
			filePath:         "/go/pkg/mod/github.com/pion/ice/v4@v4.0.10/agent.go",
			expectedFileName: "v4@v4.0.10/agent.go",
		},
	}

	hook := NewContextHook()
	for _, testCase := range testCases {
		assert.Equal(t, testCase.expectedFileName, hook.relative(testCase.filePath), "parsed path for %s", testCase.filePath)
	}
}

func TestTextFormatter_Format(t *testing.T) {
	entry := &logrus.Entry{
		Time:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   logrus.DebugLevel,
		Message: "stream built",
		Data: logrus.Fields{
			"stream":    7,
			"agent":     "a1",
			sourceField: "agent/builder.go:42",
		},
	}

	out, err := NewTextFormatter().Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02T03:04:05Z DEBG [agent: a1, stream: 7] agent/builder.go:42: stream built\n", string(out))
}

func TestSetTextFormatter_Idempotent(t *testing.T) {
	logger := logrus.New()
	SetTextFormatter(logger)
	SetTextFormatter(logger)

	hooks := 0
	for _, hook := range logger.Hooks[logrus.DebugLevel] {
		if _, ok := hook.(*ContextHook); ok {
			hooks++
		}
	}
	assert.Equal(t, 1, hooks)
}

func TestSetTextFormatter(t *testing.T) {
	logger := logrus.New()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	SetTextFormatter(logger)

	logger.WithField("agent", "x").Info("hello")
	assert.Contains(t, buf.String(), "INFO [agent: x] formatter/hook_test.go:")
	assert.Contains(t, buf.String(), ": hello\n")
}

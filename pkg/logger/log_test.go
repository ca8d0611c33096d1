package logger_test

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/hbomb79/mediascan/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T, minLevel logger.LogStatus) *bytes.Buffer {
	color.NoColor = true
	buf := &bytes.Buffer{}
	logger.SetOutput(buf)
	logger.SetMinLoggingLevel(minLevel.Level())
	t.Cleanup(func() {
		logger.SetOutput(&bytes.Buffer{})
		logger.SetMinLoggingLevel(logger.DEFAULT_MIN_STAT.Level())
	})

	return buf
}

func Test_Emit_FiltersBelowMinimumLevel(t *testing.T) {
	buf := captureLogs(t, logger.WARNING)
	log := logger.Get("Filter")

	log.Emit(logger.INFO, "hidden %d", 1)
	log.Emit(logger.ERROR, "shown %d", 2)

	assert.NotContains(t, buf.String(), "hidden 1")
	assert.Contains(t, buf.String(), "[Filter] (!!) shown 2\n")
}

func Test_Emit_PadsNamesToLongestSeen(t *testing.T) {
	buf := captureLogs(t, logger.VERBOSE)

	logger.Get("AVeryLongLoggerName").Emit(logger.INFO, "first")
	logger.Get("Short").Emit(logger.INFO, "second")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Equal(t, bytes.Index(lines[0], []byte("(I)")), bytes.Index(lines[1], []byte("(I)")))
}

func Test_ParseLogStatus(t *testing.T) {
	tests := []struct {
		input    string
		expected logger.LogStatus
		err      bool
	}{
		{"debug", logger.DEBUG, false},
		{" WARN ", logger.WARNING, false},
		{"Verbose", logger.VERBOSE, false},
		{"loud", logger.INFO, true},
	}

	for _, test := range tests {
		status, err := logger.ParseLogStatus(test.input)
		if test.err {
			assert.Error(t, err, test.input)
			continue
		}

		assert.NoError(t, err, test.input)
		assert.Equal(t, test.expected, status, test.input)
	}
}

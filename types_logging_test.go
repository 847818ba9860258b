package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type logCall struct {
	level   string
	message string
	args    []any
}

type captureLogger struct {
	calls []logCall
}

func (l *captureLogger) record(level, message string, args ...any) {
	l.calls = append(l.calls, logCall{level: level, message: message, args: args})
}

func (l *captureLogger) Debug(message string, args ...any) { l.record("debug", message, args...) }
func (l *captureLogger) Info(message string, args ...any)  { l.record("info", message, args...) }
func (l *captureLogger) Warn(message string, args ...any)  { l.record("warn", message, args...) }
func (l *captureLogger) Error(message string, args ...any) { l.record("error", message, args...) }

func TestNewLoggerSatisfiesContract(t *testing.T) {
	logger := NewLogger("controller")
	require.NotNil(t, logger)

	// exercise every level, none should panic
	logger.Debug("debug %s", "value")
	logger.Info("info %s", "value")
	logger.Warn("warn %s", "value")
	logger.Error("error %s", "value")
}

func TestDefaultLoggerNewline(t *testing.T) {
	require.Equal(t, "message\n", newline("message"))
	require.Equal(t, "message\n", newline("message\n"))
	require.Equal(t, "", newline(""))
}

func TestCaptureLoggerIsALogger(t *testing.T) {
	capture := &captureLogger{}
	var logger Logger = capture

	logger.Warn("renewal failed: %v", "timeout")
	require.Len(t, capture.calls, 1)
	require.Equal(t, "warn", capture.calls[0].level)
}

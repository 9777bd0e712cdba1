package diag

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func saveAndRestoreState() func() {
	originalDebug := EnableDebug
	originalQuiet := QuietMode
	originalOutput := output
	originalFile := logFile
	originalLogger := logrusLg
	return func() {
		EnableDebug = originalDebug
		QuietMode = originalQuiet
		output = originalOutput
		logFile = originalFile
		logrusLg = originalLogger
	}
}

func TestSetQuietMode(t *testing.T) {
	defer saveAndRestoreState()()

	SetQuietMode(true)
	assert.True(t, QuietMode)

	SetQuietMode(false)
	assert.False(t, QuietMode)
}

func TestEnabled(t *testing.T) {
	defer saveAndRestoreState()()

	EnableDebug = "false"
	QuietMode = false
	assert.False(t, Enabled())

	EnableDebug = "true"
	assert.True(t, Enabled())

	QuietMode = true
	assert.False(t, Enabled(), "QuietMode must override EnableDebug")
}

func TestDebugOutput(t *testing.T) {
	defer saveAndRestoreState()()

	var buf bytes.Buffer
	SetOutput(&buf)
	EnableDebug = "true"
	QuietMode = false

	Debug("GRAMMAR", "cache hit for %s", "python")

	out := buf.String()
	assert.Contains(t, out, "[DEBUG:GRAMMAR]")
	assert.Contains(t, out, "cache hit for python")
}

func TestDebugSuppressedWhenDisabled(t *testing.T) {
	defer saveAndRestoreState()()

	var buf bytes.Buffer
	SetOutput(&buf)
	EnableDebug = "false"
	QuietMode = false

	Debug("GRAMMAR", "should not appear")

	assert.Empty(t, buf.String())
}

func TestWarnAlwaysEmitsUnlessQuiet(t *testing.T) {
	defer saveAndRestoreState()()

	var buf bytes.Buffer
	SetOutput(&buf)
	EnableDebug = "false" // Warn ignores the debug gate
	QuietMode = false

	Warn("arbiter", "downshifted %s to sliding window: %s", "main.cbl", "no grammar")

	out := buf.String()
	assert.Contains(t, out, "[WARN:arbiter]")
	assert.Contains(t, out, "downshifted main.cbl to sliding window: no grammar")
}

func TestWarnSuppressedInQuietMode(t *testing.T) {
	defer saveAndRestoreState()()

	var buf bytes.Buffer
	SetOutput(&buf)
	QuietMode = true

	Warn("arbiter", "should not appear")

	assert.Empty(t, buf.String())
}

func TestConcurrentLogging(t *testing.T) {
	defer saveAndRestoreState()()

	var buf bytes.Buffer
	SetOutput(&buf)
	EnableDebug = "true"
	QuietMode = false

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(id int) {
			Debug("CONCURRENT", "message from goroutine %d", id)
			Info("CONCURRENT", "info from goroutine %d", id)
			Warn("CONCURRENT", "warn from goroutine %d", id)
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestInitLogFile(t *testing.T) {
	defer saveAndRestoreState()()

	logPath, err := InitLogFile()
	assert.NoError(t, err)
	assert.NotEmpty(t, logPath)

	_, err = os.Stat(logPath)
	assert.NoError(t, err)

	EnableDebug = "true"
	QuietMode = false
	Debug("TEST", "log message written to file")

	assert.NoError(t, CloseLogFile())

	content, err := os.ReadFile(logPath)
	assert.NoError(t, err)
	assert.Contains(t, string(content), "log message written to file")

	os.Remove(logPath)
}

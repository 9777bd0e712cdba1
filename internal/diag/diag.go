// Package diag is the chunker's diagnostic sink: the single place §7's
// propagation policy writes to when a recoverable error causes a downshift
// to the next chunking tier, and the general-purpose debug/progress logger
// used by the grammar download subsystem and batch processing.
//
// It defaults to a cheap, dependency-free writer (mirroring the teacher's
// own layered approach: build-flag or CHUNKER_DEBUG=1 gated, mutex-protected), and
// can be upgraded to route through github.com/sirupsen/logrus when a
// structured logger is attached with SetLogger.
package diag

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// EnableDebug is a build flag: go build -ldflags "-X .../internal/diag.EnableDebug=true"
var EnableDebug = "false"

// QuietMode suppresses all sink output, e.g. while serving a machine-
// readable protocol on stdio where stray writes would corrupt the stream.
var QuietMode = false

var (
	mu       sync.Mutex
	output   io.Writer
	logFile  *os.File
	logrusLg *logrus.Logger
)

// SetQuietMode enables or disables QuietMode.
func SetQuietMode(enabled bool) { QuietMode = enabled }

// SetOutput sets a custom writer for sink output. Pass nil to disable.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// SetLogger attaches a structured logrus.Logger; once attached, Warn/Info/
// Debug route through it with component fields instead of the plain writer.
func SetLogger(l *logrus.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logrusLg = l
}

// InitLogFile initializes sink output to a timestamped file under the OS
// temp directory and returns its path.
func InitLogFile() (string, error) {
	mu.Lock()
	defer mu.Unlock()

	logDir := filepath.Join(os.TempDir(), "chunker-logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02T150405")
	logPath := filepath.Join(logDir, fmt.Sprintf("chunker-%s.log", timestamp))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create log file: %w", err)
	}

	logFile = file
	output = file
	return logPath, nil
}

// CloseLogFile closes the log file opened by InitLogFile, if any.
func CloseLogFile() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		output = nil
		return err
	}
	return nil
}

// Enabled reports whether sink output should be produced at all.
func Enabled() bool {
	if QuietMode {
		return false
	}
	if EnableDebug == "true" {
		return true
	}
	if v := os.Getenv("CHUNKER_DEBUG"); v == "1" || v == "true" {
		return true
	}
	return logrusLg != nil
}

func writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return output
}

// Debug logs low-volume diagnostic detail (grammar cache hits, strategy
// selection, etc). Suppressed unless Enabled().
func Debug(component, format string, args ...any) {
	if !Enabled() {
		return
	}
	if logrusLg != nil {
		logrusLg.WithField("component", component).Debugf(format, args...)
		return
	}
	w := writer()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "[DEBUG:%s] "+format+"\n", append([]any{component}, args...)...)
}

// Info logs progress for long-running operations (grammar download,
// batch/watch re-chunking).
func Info(component, format string, args ...any) {
	if !Enabled() {
		return
	}
	if logrusLg != nil {
		logrusLg.WithField("component", component).Infof(format, args...)
		return
	}
	w := writer()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "[INFO:%s] "+format+"\n", append([]any{component}, args...)...)
}

// Warn records a §7 downshift: a recoverable error caused a fallback to the
// next chunking tier. Unlike Debug/Info, warnings are always emitted
// (subject only to QuietMode) because they document a quality-affecting
// decision a consumer of the chunk set may need to know about.
func Warn(component, format string, args ...any) {
	if QuietMode {
		return
	}
	if logrusLg != nil {
		logrusLg.WithField("component", component).Warnf(format, args...)
		return
	}
	w := writer()
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, "[WARN:%s] "+format+"\n", append([]any{component}, args...)...)
}

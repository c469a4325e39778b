package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func resetLogger() {
	SetVerbose(false)
	SetOutput(os.Stderr)
}

// TestSetVerbose tests toggling verbose mode.
func TestSetVerbose(t *testing.T) {
	defer resetLogger()

	SetVerbose(true)
	assert.True(t, IsVerbose())

	SetVerbose(false)
	assert.False(t, IsVerbose())
}

// TestDebug_Silent tests that debug output is suppressed when verbose is off.
func TestDebug_Silent(t *testing.T) {
	defer resetLogger()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Debug("hidden %s", "message")
	assert.Empty(t, buf.String())
}

// TestDebug_Verbose tests debug output when verbose is on.
func TestDebug_Verbose(t *testing.T) {
	defer resetLogger()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Debug("visible %d", 42)
	assert.Contains(t, buf.String(), "[DEBUG] visible 42")
}

// TestInfoWarnSection tests the remaining log levels.
func TestInfoWarnSection(t *testing.T) {
	defer resetLogger()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Info("info %s", "line")
	Warn("warn %s", "line")
	Section("Build")

	out := buf.String()
	assert.Contains(t, out, "[INFO] info line")
	assert.Contains(t, out, "[WARN] warn line")
	assert.Contains(t, out, "=== Build ===")
}

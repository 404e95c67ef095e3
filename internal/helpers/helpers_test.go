package helpers

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	noColor := color.NoColor
	color.NoColor = true
	buf := &bytes.Buffer{}
	prev := SetOutput(buf)
	prevNow := now
	now = func() time.Time { return time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC) }
	t.Cleanup(func() {
		SetOutput(prev)
		SetVerbose(false)
		color.NoColor = noColor
		now = prevNow
	})
	return buf
}

func TestPrintFormatsLevelAndTimestamp(t *testing.T) {
	buf := captureOutput(t)

	PrintInfo("Adding comment: %d", 2)
	PrintError("Failed to create issue '%s'", "IT-3")

	assert.Equal(t,
		"2024-03-01 12:30:00 - INFO - Adding comment: 2\n"+
			"2024-03-01 12:30:00 - ERROR - Failed to create issue 'IT-3'\n",
		buf.String())
}

func TestPrintDebugOnlyWhenVerbose(t *testing.T) {
	buf := captureOutput(t)

	PrintDebug("hidden")
	assert.Empty(t, buf.String())

	SetVerbose(true)
	PrintDebug("shown %s", "now")
	assert.Contains(t, buf.String(), "DEBUG - shown now")
}

func TestDumpJSON(t *testing.T) {
	captureOutput(t)
	dir := filepath.Join(t.TempDir(), "dumps")

	path, err := DumpJSON(dir, "IT-7", map[string]string{"key": "IT-7"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "IT-7-20240301-123000.json"), path)
	assert.True(t, FileExists(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"key": "IT-7"}`, string(data))

	path, err = DumpJSON("", "IT-7", nil)
	require.NoError(t, err)
	assert.Empty(t, path)
}

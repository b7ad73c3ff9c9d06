package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"DEBUG", LevelDebug},
		{"WARNING", LevelWarn},
		{"Error", LevelError},
		{"dEbUg", LevelDebug},
		{" info ", LevelInfo},
		{"", LevelInfo},
		{"trace", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected Format
	}{
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{"Json", FormatJSON},
		{"text", FormatText},
		{"", FormatText},
		{"yaml", FormatText},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseFormat(tt.input))
		})
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: LevelInfo, Format: FormatJSON, Output: &buf})

	log.Debug("hidden")
	log.Info("served", "status", 200)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "served", rec["msg"])
	assert.EqualValues(t, 200, rec["status"])
}

func TestOpen_WithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stubd.log")
	var console bytes.Buffer

	log, closer := Open(Config{Level: LevelInfo, Output: &console, File: &FileConfig{Path: path, MaxSizeMB: 1}})
	log.Info("hello", "k", "v")
	require.NoError(t, closer.Close())

	assert.Contains(t, console.String(), "msg=hello")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestOpen_FileLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stubd.log")
	var console bytes.Buffer
	debug := LevelDebug

	log, closer := Open(Config{Level: LevelInfo, Output: &console, File: &FileConfig{Path: path, Level: &debug}})
	log.Debug("request matched")
	require.NoError(t, closer.Close())

	assert.Empty(t, console.String())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"request matched"`)
}

func TestOpen_NoFileCloserIsSafe(t *testing.T) {
	_, closer := Open(Config{Output: &bytes.Buffer{}})
	assert.NoError(t, closer.Close())
}

func TestSlogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewSlogNotifier(New(Config{Level: LevelDebug, Output: &buf}))

	n.Info("Response status 200 with body ok")
	n.Error("render failed", errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, "Response status 200 with body ok")
	assert.Contains(t, out, "error=boom")

	assert.NotPanics(t, func() { NewSlogNotifier(nil).Info("x") })
}

func TestConsoleNotifier(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var buf bytes.Buffer
	n := NewConsoleNotifier(&buf)
	n.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 6e6, time.UTC) }

	n.Info("Response status 201 with body created")
	n.Error("proxy failed", errors.New("refused"))
	n.Error("no detail", nil)

	assert.Equal(t,
		"03:04:05.006 Response status 201 with body created\n"+
			"03:04:05.006 proxy failed: refused\n"+
			"03:04:05.006 no detail\n",
		buf.String())
}

func TestBytes(t *testing.T) {
	assert.Equal(t, "0 B", Bytes(-1))
	assert.Equal(t, "1.5 kB", Bytes(1500))
}

func TestNopNotifier(t *testing.T) {
	var n Notifier = NopNotifier{}
	assert.NotPanics(t, func() {
		n.Info("x")
		n.Error("y", errors.New("z"))
	})
}

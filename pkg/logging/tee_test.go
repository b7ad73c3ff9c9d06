package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestTeeHandler_LevelsPerSink(t *testing.T) {
	var console, file bytes.Buffer
	h := newTeeHandler(
		slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewJSONHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	log := slog.New(h).With("component", "engine").WithGroup("req")

	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))
	log.Debug("matched", "id", "a")
	log.Warn("slow", "id", "b")

	assert.NotContains(t, console.String(), "matched")
	assert.Contains(t, console.String(), "component=engine")
	assert.Contains(t, console.String(), "req.id=b")
	assert.Contains(t, file.String(), `"msg":"matched"`)
	assert.Contains(t, file.String(), `"req":{"id":"a"}`)
	assert.Contains(t, file.String(), `"msg":"slow"`)
}

func TestTeeHandler_FileErrorKeepsConsole(t *testing.T) {
	var console bytes.Buffer
	text := slog.NewTextHandler(&console, nil)
	h := newTeeHandler(text, failingHandler{text})

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "hello", 0)
	err := h.Handle(context.Background(), r)

	assert.EqualError(t, err, "disk full")
	assert.Contains(t, console.String(), "msg=hello")
}

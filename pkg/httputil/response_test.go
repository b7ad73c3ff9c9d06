package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	t.Run("writes JSON with correct content type", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()

		WriteJSON(rec, http.StatusOK, map[string]string{"foo": "bar"})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"foo":"bar"}`, rec.Body.String())
	})

	t.Run("handles nil data", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()

		WriteJSON(rec, http.StatusAccepted, nil)

		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Empty(t, rec.Body.String())
	})
}

func TestErrorHelpers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		write   func(w http.ResponseWriter)
		status  int
		errCode string
	}{
		{"bad request", func(w http.ResponseWriter) { WriteBadRequest(w, "invalid_json", "msg") }, http.StatusBadRequest, "invalid_json"},
		{"not found", func(w http.ResponseWriter) { WriteNotFound(w, "not_found", "msg") }, http.StatusNotFound, "not_found"},
		{"too large", WriteRequestTooLarge, http.StatusRequestEntityTooLarge, "body_too_large"},
		{"internal", func(w http.ResponseWriter) { WriteInternalError(w, "render_failed", "msg") }, http.StatusInternalServerError, "render_failed"},
		{"unavailable", func(w http.ResponseWriter) { WriteServiceUnavailable(w, "journal_disabled", "msg") }, http.StatusServiceUnavailable, "journal_disabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()

			tt.write(rec)

			assert.Equal(t, tt.status, rec.Code)
			var got ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.errCode, got.Error)
			assert.NotEmpty(t, got.Message)
		})
	}
}

func TestWriteText(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()

	WriteText(rec, http.StatusNotFound, "nothing here\n")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "13", rec.Header().Get("Content-Length"))
	assert.Equal(t, "nothing here\n", rec.Body.String())
}

func TestSuccessHelpers(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteCreated(rec, map[string]string{"id": "1"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	WriteOK(rec, []int{1, 2})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[1,2]`, rec.Body.String())

	rec = httptest.NewRecorder()
	WriteNoContent(rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

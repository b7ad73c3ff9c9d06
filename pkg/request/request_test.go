package request

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromHTTP(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "http://example.com/user/alice?expand=true&x=1", strings.NewReader(`{"a":1}`))
	r.Header.Set("X-Token", "abc")
	r.RemoteAddr = "10.1.2.3:5555"

	req, err := FromHTTP(r, 0)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/user/alice?expand=true&x=1", req.URL)
	assert.Equal(t, "http://example.com/user/alice?expand=true&x=1", req.AbsoluteURL)
	assert.Equal(t, "/user/alice", req.Path())
	assert.Equal(t, "true", req.QueryParam("expand"))
	assert.Equal(t, "abc", req.Header("x-token"))
	assert.True(t, req.HasHeader("X-TOKEN"))
	assert.False(t, req.HasHeader("X-Missing"))
	assert.Equal(t, `{"a":1}`, req.BodyString())
	assert.Equal(t, "10.1.2.3", req.ClientIP)
}

func TestFromHTTP_BodyTooLarge(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(strings.Repeat("x", 11)))

	_, err := FromHTTP(r, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBodyTooLarge))
}

func TestFromHTTP_BodyAtLimit(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(strings.Repeat("x", 10)))

	req, err := FromHTTP(r, 10)
	require.NoError(t, err)
	assert.Len(t, req.Body, 10)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header http.Header
		remote string
		want   string
	}{
		{"forwarded for", http.Header{"X-Forwarded-For": {"1.1.1.1, 2.2.2.2"}}, "3.3.3.3:1", "1.1.1.1"},
		{"real ip", http.Header{"X-Real-Ip": {"4.4.4.4"}}, "3.3.3.3:1", "4.4.4.4"},
		{"remote addr", http.Header{}, "3.3.3.3:1", "3.3.3.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header = tt.header
			r.RemoteAddr = tt.remote
			assert.Equal(t, tt.want, clientIP(r))
		})
	}
}

func TestNew(t *testing.T) {
	req := New(http.MethodGet, "/things?id=7", nil, nil)
	assert.Equal(t, "/things", req.Path())
	assert.Equal(t, "7", req.QueryParam("id"))
	assert.NotNil(t, req.Headers)
	assert.Empty(t, req.BodyString())
}

// Package request provides the immutable view of an incoming HTTP request that
// the matching engine, captures and the request journal operate on.
package request

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultMaxBodySize is the largest request body read for matching (10MB).
const DefaultMaxBodySize = 10 << 20

// ErrBodyTooLarge is returned by FromHTTP when the body exceeds the limit.
var ErrBodyTooLarge = errors.New("request body too large")

// Request is a fully buffered HTTP request.
// It is built once per incoming request and is safe to share between goroutines
// as long as callers do not mutate it.
type Request struct {
	Method string `json:"method"`

	// URL is the request target as received: path plus raw query, no scheme or host.
	URL string `json:"url"`

	// AbsoluteURL includes scheme and host.
	AbsoluteURL string `json:"absoluteUrl"`

	Headers  http.Header `json:"headers,omitempty"`
	Body     []byte      `json:"-"`
	ClientIP string      `json:"clientIp,omitempty"`
	LoggedAt time.Time   `json:"loggedDate"`

	query url.Values
}

// FromHTTP buffers r into a Request. Bodies larger than maxBody bytes are
// rejected with ErrBodyTooLarge; maxBody <= 0 selects DefaultMaxBodySize.
func FromHTTP(r *http.Request, maxBody int64) (*Request, error) {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodySize
	}

	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(io.LimitReader(r.Body, maxBody+1))
		if err != nil {
			return nil, fmt.Errorf("reading request body: %w", err)
		}
		if int64(len(body)) > maxBody {
			return nil, ErrBodyTooLarge
		}
	}

	target := r.URL.RequestURI()
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	return &Request{
		Method:      r.Method,
		URL:         target,
		AbsoluteURL: scheme + "://" + r.Host + target,
		Headers:     r.Header.Clone(),
		Body:        body,
		ClientIP:    clientIP(r),
		LoggedAt:    time.Now(),
		query:       parseQuery(target),
	}, nil
}

// New builds a Request directly, mainly for tests and programmatic callers.
func New(method, target string, headers http.Header, body []byte) *Request {
	if headers == nil {
		headers = http.Header{}
	}
	return &Request{
		Method:      method,
		URL:         target,
		AbsoluteURL: "http://localhost" + target,
		Headers:     headers,
		Body:        body,
		LoggedAt:    time.Now(),
		query:       parseQuery(target),
	}
}

// Header returns the first value of the named header (case-insensitive), or "".
func (r *Request) Header(key string) string {
	return r.Headers.Get(key)
}

// HeaderValues returns all values of the named header.
func (r *Request) HeaderValues(key string) []string {
	return r.Headers.Values(key)
}

// HasHeader reports whether the header is present at all.
func (r *Request) HasHeader(key string) bool {
	_, ok := r.Headers[http.CanonicalHeaderKey(key)]
	return ok
}

// BodyString returns the body as text.
func (r *Request) BodyString() string {
	return string(r.Body)
}

// Path returns the URL without its query string.
func (r *Request) Path() string {
	if i := strings.IndexByte(r.URL, '?'); i >= 0 {
		return r.URL[:i]
	}
	return r.URL
}

// Query returns the parsed query parameters. The result must not be modified.
func (r *Request) Query() url.Values {
	if r.query == nil {
		return parseQuery(r.URL)
	}
	return r.query
}

// QueryParam returns the first value of the named query parameter, or "".
func (r *Request) QueryParam(key string) string {
	return r.Query().Get(key)
}

func parseQuery(target string) url.Values {
	raw := ""
	if i := strings.IndexByte(target, '?'); i >= 0 {
		raw = target[i+1:]
	}
	q, err := url.ParseQuery(raw)
	if err != nil {
		return url.Values{}
	}
	return q
}

// clientIP prefers proxy headers over the socket address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if i := strings.LastIndexByte(r.RemoteAddr, ':'); i > 0 {
		return r.RemoteAddr[:i]
	}
	return r.RemoteAddr
}

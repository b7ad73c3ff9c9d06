// Package proxy renders proxy responses: the original request is forwarded to
// the mapping's proxy base URL and the upstream answer is returned as the
// stub response.
package proxy

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/getmockd/stubd/pkg/logging"
)

const (
	// DefaultMaxBodySize is the default maximum upstream body size (10MB).
	DefaultMaxBodySize = 10 * 1024 * 1024

	// DefaultTimeout bounds a whole upstream exchange.
	DefaultTimeout = 60 * time.Second
)

// ErrNoOriginalRequest is returned for definitions not produced by a serve.
var ErrNoOriginalRequest = errors.New("response definition carries no original request")

// ErrUpstreamBodyTooLarge is returned when the upstream body exceeds MaxBodySize.
var ErrUpstreamBodyTooLarge = errors.New("upstream response body too large")

// Options configures proxy behavior.
type Options struct {
	// PreserveHostHeader forwards the client's Host header instead of the
	// upstream host.
	PreserveHostHeader bool
	// ProxyVia routes upstream requests through this HTTP proxy.
	ProxyVia string
	// Timeout bounds each upstream exchange (0 = DefaultTimeout).
	Timeout time.Duration
	// MaxBodySize bounds upstream response bodies (0 = DefaultMaxBodySize).
	MaxBodySize int64
	// Transport replaces the default transport; ProxyVia is then ignored.
	Transport http.RoundTripper
	// Logger for upstream traffic (nil = no logging).
	Logger *slog.Logger
}

// Proxy forwards requests upstream.
type Proxy struct {
	client       *http.Client
	preserveHost bool
	maxBody      int64
	log          *slog.Logger
}

// New creates a Proxy with the given options.
func New(opts Options) (*Proxy, error) {
	transport := opts.Transport
	if transport == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.Proxy = nil
		t.DisableCompression = true
		if opts.ProxyVia != "" {
			via, err := url.Parse(opts.ProxyVia)
			if err != nil {
				return nil, fmt.Errorf("parsing proxy-via URL: %w", err)
			}
			t.Proxy = http.ProxyURL(via)
		}
		transport = t
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxBody := opts.MaxBodySize
	if maxBody <= 0 {
		maxBody = DefaultMaxBodySize
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}

	return &Proxy{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		preserveHost: opts.PreserveHostHeader,
		maxBody:      maxBody,
		log:          log,
	}, nil
}

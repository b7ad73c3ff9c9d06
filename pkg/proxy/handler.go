package proxy

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/getmockd/stubd/pkg/stub"
)

// Render forwards the request that selected def to def.ProxyURL() and returns
// the upstream status, headers and body. Transport failures are returned as
// errors; upstream error statuses are returned as responses.
func (p *Proxy) Render(def *stub.ResponseDefinition) (*stub.Response, error) {
	req := def.OriginalRequest()
	if req == nil {
		return nil, ErrNoOriginalRequest
	}
	start := time.Now()
	target := def.ProxyURL()

	outReq, err := http.NewRequest(req.Method, target, bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("building upstream request: %w", err)
	}
	copyHeaders(outReq.Header, req.Headers)
	removeHopByHopHeaders(outReq.Header)
	outReq.Header.Del("Content-Length")
	if req.ClientIP != "" {
		outReq.Header.Set("X-Forwarded-For", req.ClientIP)
	}
	if p.preserveHost {
		if u, err := url.Parse(req.AbsoluteURL); err == nil && u.Host != "" {
			outReq.Host = u.Host
		}
	}

	resp, err := p.client.Do(outReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("reading upstream response: %w", err)
	}
	if int64(len(body)) > p.maxBody {
		return nil, fmt.Errorf("%w: more than %d bytes from %s", ErrUpstreamBodyTooLarge, p.maxBody, target)
	}

	headers := make(http.Header, len(resp.Header))
	copyHeaders(headers, resp.Header)
	removeHopByHopHeaders(headers)
	headers.Del("Content-Length")

	p.log.Debug("proxied request",
		"method", req.Method,
		"target", target,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	return &stub.Response{
		Status:     resp.StatusCode,
		Headers:    headers,
		Body:       body,
		Configured: true,
		FromProxy:  true,
	}, nil
}

// copyHeaders copies headers from src to dst.
func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}

// removeHopByHopHeaders removes headers that should not be forwarded.
func removeHopByHopHeaders(h http.Header) {
	hopByHopHeaders := []string{
		"Connection",
		"Keep-Alive",
		"Proxy-Authenticate",
		"Proxy-Authorization",
		"Proxy-Connection",
		"TE",
		"Trailers",
		"Transfer-Encoding",
		"Upgrade",
	}

	for _, header := range hopByHopHeaders {
		h.Del(header)
	}
}

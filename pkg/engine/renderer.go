package engine

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/getmockd/stubd/pkg/logging"
	"github.com/getmockd/stubd/pkg/stub"
	"github.com/getmockd/stubd/pkg/util"
)

// ErrDelayInterrupted aborts a response whose fixed delay was cut short.
var ErrDelayInterrupted = errors.New("response delay interrupted")

// ErrNoProxy is returned for a proxy response when no ProxyRenderer is set.
var ErrNoProxy = errors.New("proxy responses are not enabled")

// ErrNoFileSource is returned for a file body when no FileSource is set.
var ErrNoFileSource = errors.New("body files are not enabled")

// Sleeper blocks the calling goroutine.
type Sleeper interface {
	Sleep(d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(d time.Duration) error

// Sleep calls f(d).
func (f SleeperFunc) Sleep(d time.Duration) error { return f(d) }

// TimeSleeper sleeps with time.Sleep and is never interrupted.
var TimeSleeper Sleeper = SleeperFunc(func(d time.Duration) error {
	time.Sleep(d)
	return nil
})

// FileSource reads response body files.
type FileSource interface {
	ReadBinaryFile(name string) ([]byte, error)
}

// ProxyRenderer produces a response by forwarding the original request.
type ProxyRenderer interface {
	Render(def *stub.ResponseDefinition) (*stub.Response, error)
}

// Renderer turns a served ResponseDefinition into a concrete Response.
type Renderer struct {
	settings *GlobalSettingsHolder
	files    FileSource
	proxy    ProxyRenderer
	sleeper  Sleeper
	notifier logging.Notifier
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithSettings sets the global settings consulted for the default delay.
func WithSettings(h *GlobalSettingsHolder) RendererOption {
	return func(r *Renderer) {
		if h != nil {
			r.settings = h
		}
	}
}

// WithFileSource sets the collaborator for bodyFileName responses.
func WithFileSource(fs FileSource) RendererOption {
	return func(r *Renderer) { r.files = fs }
}

// WithProxyRenderer sets the collaborator for proxyBaseUrl responses.
func WithProxyRenderer(p ProxyRenderer) RendererOption {
	return func(r *Renderer) { r.proxy = p }
}

// WithSleeper replaces TimeSleeper.
func WithSleeper(s Sleeper) RendererOption {
	return func(r *Renderer) {
		if s != nil {
			r.sleeper = s
		}
	}
}

// WithNotifier sets the diagnostic sink.
func WithNotifier(n logging.Notifier) RendererOption {
	return func(r *Renderer) {
		if n != nil {
			r.notifier = n
		}
	}
}

// NewRenderer creates a Renderer. Without options it has no file source, no
// proxy, empty settings and a silent notifier.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{
		settings: &GlobalSettingsHolder{},
		sleeper:  TimeSleeper,
		notifier: logging.NopNotifier{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Settings returns the holder consulted for the global delay.
func (r *Renderer) Settings() *GlobalSettingsHolder {
	return r.settings
}

// Render produces the response for def. The not-configured sentinel renders
// as 404 without delay. Otherwise the effective delay is applied first, then
// the response is proxied or built from the definition.
func (r *Renderer) Render(def *stub.ResponseDefinition) (*stub.Response, error) {
	if !def.IsConfigured() {
		return stub.NotConfiguredResponse(), nil
	}

	if err := r.delay(def); err != nil {
		return nil, err
	}

	if def.IsProxy() {
		return r.renderProxy(def)
	}
	return r.renderDirect(def)
}

func (r *Renderer) delay(def *stub.ResponseDefinition) error {
	ms, ok := def.Delay()
	if !ok {
		global := r.settings.Get().FixedDelay
		if global == nil {
			return nil
		}
		ms = *global
	}
	if ms <= 0 {
		return nil
	}
	if err := r.sleeper.Sleep(time.Duration(ms) * time.Millisecond); err != nil {
		return fmt.Errorf("%w: %w", ErrDelayInterrupted, err)
	}
	return nil
}

func (r *Renderer) renderProxy(def *stub.ResponseDefinition) (*stub.Response, error) {
	if r.proxy == nil {
		return nil, ErrNoProxy
	}
	resp, err := r.proxy.Render(def)
	if err != nil {
		r.notifier.Error("Proxy to "+def.ProxyURL()+" failed", err)
		return nil, fmt.Errorf("proxying to %s: %w", def.ProxyURL(), err)
	}
	resp.FromProxy = true
	resp.Configured = true
	r.notifier.Info(fmt.Sprintf("Proxied response status %d from %s", resp.Status, def.ProxyURL()))
	return resp, nil
}

func (r *Renderer) renderDirect(def *stub.ResponseDefinition) (*stub.Response, error) {
	rep := def.Replacer()

	headers := make(http.Header, len(def.Headers))
	for name, values := range def.Headers {
		for _, v := range rep.ReplaceAll(values) {
			headers.Add(name, v)
		}
	}

	resp := &stub.Response{
		Status:     def.EffectiveStatus(),
		Headers:    headers,
		Fault:      def.Fault,
		Configured: true,
	}

	var preview string
	switch {
	case def.HasFile():
		if r.files == nil {
			return nil, ErrNoFileSource
		}
		body, err := r.files.ReadBinaryFile(def.BodyFileName)
		if err != nil {
			r.notifier.Error("Reading body file "+def.BodyFileName+" failed", err)
			return nil, fmt.Errorf("reading body file %s: %w", def.BodyFileName, err)
		}
		resp.Body = body
		preview = binaryPreview(def.BodyFileName, len(body))
	case def.HasBinaryBody():
		body, err := def.BinaryBody()
		if err != nil {
			return nil, err
		}
		resp.Body = body
		preview = binaryPreview("base64 body", len(body))
	default:
		text := rep.Replace(def.Body)
		resp.Body = []byte(text)
		preview = util.TruncateBody(text, util.MaxPreviewChars)
	}

	r.notifier.Info(fmt.Sprintf("Response status %d with body %s", resp.Status, preview))
	return resp, nil
}

func binaryPreview(what string, n int) string {
	return "<" + what + ", " + logging.Bytes(n) + ">"
}

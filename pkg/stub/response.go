package stub

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/getmockd/stubd/pkg/capture"
	"github.com/getmockd/stubd/pkg/request"
)

// DefaultStatus is used when a response definition omits its status.
const DefaultStatus = http.StatusOK

// ResponseDefinition is the template a mapping renders. At most one of Body,
// Base64Body, BodyFileName and ProxyBaseURL may be set.
type ResponseDefinition struct {
	Status                 int     `json:"status,omitempty" yaml:"status,omitempty"`
	Headers                Headers `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body                   string  `json:"body,omitempty" yaml:"body,omitempty"`
	Base64Body             string  `json:"base64Body,omitempty" yaml:"base64Body,omitempty"`
	BodyFileName           string  `json:"bodyFileName,omitempty" yaml:"bodyFileName,omitempty"`
	FixedDelayMilliseconds *int    `json:"fixedDelayMilliseconds,omitempty" yaml:"fixedDelayMilliseconds,omitempty"`
	ProxyBaseURL           string  `json:"proxyBaseUrl,omitempty" yaml:"proxyBaseUrl,omitempty"`
	Fault                  Fault   `json:"fault,omitempty" yaml:"fault,omitempty"`

	notConfigured   bool
	binary          []byte
	replacer        *capture.Replacer
	originalRequest *request.Request
}

// NotConfigured returns the sentinel served when no mapping matches.
func NotConfigured() *ResponseDefinition {
	return &ResponseDefinition{Status: http.StatusNotFound, notConfigured: true}
}

// IsConfigured reports whether d came from a mapping.
func (d *ResponseDefinition) IsConfigured() bool { return !d.notConfigured }

// EffectiveStatus returns Status or DefaultStatus.
func (d *ResponseDefinition) EffectiveStatus() int {
	if d.Status == 0 {
		return DefaultStatus
	}
	return d.Status
}

// Delay returns the fixed delay in milliseconds, if one is set.
func (d *ResponseDefinition) Delay() (int, bool) {
	if d.FixedDelayMilliseconds == nil {
		return 0, false
	}
	return *d.FixedDelayMilliseconds, true
}

// IsProxy reports whether rendering is delegated to a proxy.
func (d *ResponseDefinition) IsProxy() bool { return d.ProxyBaseURL != "" }

// HasFile reports whether the body is read from a file.
func (d *ResponseDefinition) HasFile() bool { return d.BodyFileName != "" }

// HasBinaryBody reports whether the body is inline base64 data.
func (d *ResponseDefinition) HasBinaryBody() bool { return d.Base64Body != "" }

// BinaryBody returns the decoded base64 body.
func (d *ResponseDefinition) BinaryBody() ([]byte, error) {
	if d.binary != nil {
		return d.binary, nil
	}
	return base64.StdEncoding.DecodeString(d.Base64Body)
}

// Replacer returns the attached placeholder replacer, or nil.
func (d *ResponseDefinition) Replacer() *capture.Replacer { return d.replacer }

// AttachReplacer sets the replacer used while rendering. Call it on a copy.
func (d *ResponseDefinition) AttachReplacer(r *capture.Replacer) { d.replacer = r }

// OriginalRequest returns the request being served, if attached.
func (d *ResponseDefinition) OriginalRequest() *request.Request { return d.originalRequest }

// SetOriginalRequest attaches the request being served. Call it on a copy.
func (d *ResponseDefinition) SetOriginalRequest(r *request.Request) { d.originalRequest = r }

// ProxyURL returns the upstream URL for the attached request.
func (d *ResponseDefinition) ProxyURL() string {
	target := ""
	if d.originalRequest != nil {
		target = d.originalRequest.URL
	}
	return strings.TrimSuffix(d.ProxyBaseURL, "/") + target
}

// Copy returns a per-serve copy. Headers are deep-copied so the stored
// template is never affected by rendering.
func (d *ResponseDefinition) Copy() *ResponseDefinition {
	cp := *d
	cp.Headers = d.Headers.Clone()
	return &cp
}

// Validate checks the definition and decodes the base64 body.
func (d *ResponseDefinition) Validate() error {
	var errs []error

	sources := 0
	for _, set := range []bool{d.Body != "", d.Base64Body != "", d.BodyFileName != "", d.ProxyBaseURL != ""} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		errs = append(errs, errors.New("only one of body, base64Body, bodyFileName, proxyBaseUrl may be set"))
	}
	if d.Status != 0 && (d.Status < 100 || d.Status > 599) {
		errs = append(errs, fmt.Errorf("status %d out of range", d.Status))
	}
	if d.FixedDelayMilliseconds != nil && *d.FixedDelayMilliseconds < 0 {
		errs = append(errs, errors.New("fixedDelayMilliseconds must be >= 0"))
	}
	if !d.Fault.Valid() {
		errs = append(errs, fmt.Errorf("unknown fault %q", d.Fault))
	}
	if d.Base64Body != "" {
		b, err := base64.StdEncoding.DecodeString(d.Base64Body)
		if err != nil {
			errs = append(errs, fmt.Errorf("base64Body: %w", err))
		}
		d.binary = b
	}
	return errors.Join(errs...)
}

// UnmarshalJSON accepts body as a string or as inline JSON, which is kept as
// its JSON text.
func (d *ResponseDefinition) UnmarshalJSON(data []byte) error {
	type alias ResponseDefinition
	aux := struct {
		*alias
		Body json.RawMessage `json:"body,omitempty"`
	}{alias: (*alias)(d)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	d.Body = ""
	if len(aux.Body) == 0 || string(aux.Body) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(aux.Body, &s); err == nil {
		d.Body = s
		return nil
	}
	d.Body = string(aux.Body)
	return nil
}

// UnmarshalYAML accepts body as a scalar or as a mapping/sequence, which is
// converted to JSON text.
func (d *ResponseDefinition) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("response: expected mapping node, got %d", value.Kind)
	}

	type alias ResponseDefinition
	var a alias

	var bodyNode *yaml.Node
	filtered := &yaml.Node{Kind: yaml.MappingNode, Tag: value.Tag}
	for i := 0; i+1 < len(value.Content); i += 2 {
		if value.Content[i].Value == "body" {
			bodyNode = value.Content[i+1]
			continue
		}
		filtered.Content = append(filtered.Content, value.Content[i], value.Content[i+1])
	}
	if err := filtered.Decode(&a); err != nil {
		return err
	}
	*d = ResponseDefinition(a)

	if bodyNode == nil {
		return nil
	}
	if bodyNode.Kind == yaml.ScalarNode {
		d.Body = bodyNode.Value
		return nil
	}

	var bodyObj any
	if err := bodyNode.Decode(&bodyObj); err != nil {
		return fmt.Errorf("failed to decode body: %w", err)
	}
	bodyJSON, err := json.Marshal(bodyObj)
	if err != nil {
		return fmt.Errorf("failed to marshal body to JSON: %w", err)
	}
	d.Body = string(bodyJSON)
	return nil
}

// Response is a rendered response ready for the transport.
type Response struct {
	Status     int
	Headers    http.Header
	Body       []byte
	Fault      Fault
	Configured bool
	FromProxy  bool
}

// NotConfiguredResponse is rendered for the NotConfigured sentinel.
func NotConfiguredResponse() *Response {
	return &Response{Status: http.StatusNotFound, Headers: http.Header{}}
}

// BodyString returns the body as text.
func (r *Response) BodyString() string { return string(r.Body) }

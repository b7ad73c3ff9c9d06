package capture

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/getmockd/stubd/pkg/request"
)

// Source identifies which part of a request a Capture reads.
type Source string

// Capture sources.
const (
	SourceURL    Source = "URL"
	SourceHeader Source = "HEADER"
	SourceBody   Source = "BODY"
)

// Defaults applied when a capture omits pattern or group.
const (
	DefaultPattern = "(.*)"
	DefaultGroup   = 1
)

// Validation errors returned by Compile.
var (
	ErrMissingTarget  = errors.New("capture target is required")
	ErrMissingKey     = errors.New("header capture key is required")
	ErrUnknownSource  = errors.New("unknown capture source")
	ErrInvalidPattern = errors.New("invalid capture pattern")
	ErrInvalidGroup   = errors.New("capture group out of range")
)

// Extractor is implemented by anything that can pull one value out of a request.
type Extractor interface {
	Capture(req *request.Request) (string, bool)
}

// Capture extracts a named value from a request.
type Capture struct {
	Source       Source `json:"source" yaml:"source"`
	Target       string `json:"target" yaml:"target"`
	Key          string `json:"key,omitempty" yaml:"key,omitempty"`
	Pattern      string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	CaptureGroup *int   `json:"captureGroup,omitempty" yaml:"captureGroup,omitempty"`

	re *regexp.Regexp
}

var _ Extractor = (*Capture)(nil)

// URL returns a capture of the request URL into target.
func URL(target string) *Capture {
	return &Capture{Source: SourceURL, Target: target}
}

// Header returns a capture of the named header into target.
func Header(key, target string) *Capture {
	return &Capture{Source: SourceHeader, Key: key, Target: target}
}

// Body returns a capture of the request body into target.
func Body(target string) *Capture {
	return &Capture{Source: SourceBody, Target: target}
}

// WithPattern sets the regular expression and returns c.
func (c *Capture) WithPattern(pattern string) *Capture {
	c.Pattern = pattern
	c.re = nil
	return c
}

// WithGroup sets the capture group and returns c.
func (c *Capture) WithGroup(group int) *Capture {
	c.CaptureGroup = &group
	return c
}

// EffectivePattern returns the configured pattern or DefaultPattern.
func (c *Capture) EffectivePattern() string {
	if c.Pattern == "" {
		return DefaultPattern
	}
	return c.Pattern
}

// Group returns the configured capture group or DefaultGroup.
func (c *Capture) Group() int {
	if c.CaptureGroup == nil {
		return DefaultGroup
	}
	return *c.CaptureGroup
}

// HasEssentialData reports whether the mandatory fields are present.
func (c *Capture) HasEssentialData() bool {
	if c.Target == "" {
		return false
	}
	if c.Source == SourceHeader && c.Key == "" {
		return false
	}
	return true
}

// Compile validates the capture and compiles its pattern.
// It must be called before the capture is shared between goroutines.
func (c *Capture) Compile() error {
	if c.Target == "" {
		return ErrMissingTarget
	}
	switch c.Source {
	case SourceURL, SourceBody:
	case SourceHeader:
		if c.Key == "" {
			return fmt.Errorf("capture %q: %w", c.Target, ErrMissingKey)
		}
	default:
		return fmt.Errorf("capture %q: %w: %q", c.Target, ErrUnknownSource, c.Source)
	}

	re, err := regexp.Compile(c.EffectivePattern())
	if err != nil {
		return fmt.Errorf("capture %q: %w: %w", c.Target, ErrInvalidPattern, err)
	}
	if g := c.Group(); g < 0 || g > re.NumSubexp() {
		return fmt.Errorf("capture %q: %w: group %d, pattern has %d", c.Target, ErrInvalidGroup, g, re.NumSubexp())
	}
	c.re = re
	return nil
}

// Capture reads the configured part of req and returns the text of the
// capture group, or false when the pattern does not match.
func (c *Capture) Capture(req *request.Request) (string, bool) {
	return c.capture(c.input(req))
}

func (c *Capture) input(req *request.Request) string {
	switch c.Source {
	case SourceURL:
		return req.URL
	case SourceHeader:
		return req.Header(c.Key)
	case SourceBody:
		return req.BodyString()
	default:
		return ""
	}
}

func (c *Capture) capture(value string) (string, bool) {
	re := c.re
	if re == nil {
		var err error
		if re, err = regexp.Compile(c.EffectivePattern()); err != nil {
			return "", false
		}
	}
	m := re.FindStringSubmatchIndex(value)
	if m == nil {
		return "", false
	}
	g := c.Group()
	if 2*g+1 >= len(m) || m[2*g] < 0 {
		// Group exists but did not participate in the match.
		return "", false
	}
	return value[m[2*g]:m[2*g+1]], true
}

// Collect runs every capture against req and returns target -> value.
// Captures that do not match are recorded as "".
func Collect(req *request.Request, captures []*Capture) map[string]string {
	values := make(map[string]string, len(captures))
	for _, c := range captures {
		v, _ := c.Capture(req)
		values[c.Target] = v
	}
	return values
}

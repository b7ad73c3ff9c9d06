package matching

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/expr-lang/expr/vm"

	"github.com/getmockd/stubd/pkg/request"
)

// MethodAny matches every HTTP method.
const MethodAny = "ANY"

// RequestPattern is the predicate half of a stub mapping.
type RequestPattern struct {
	Method          string                   `json:"method,omitempty" yaml:"method,omitempty"`
	URL             string                   `json:"url,omitempty" yaml:"url,omitempty"`
	URLPattern      string                   `json:"urlPattern,omitempty" yaml:"urlPattern,omitempty"`
	URLPath         string                   `json:"urlPath,omitempty" yaml:"urlPath,omitempty"`
	URLPathPattern  string                   `json:"urlPathPattern,omitempty" yaml:"urlPathPattern,omitempty"`
	Headers         map[string]*ValuePattern `json:"headers,omitempty" yaml:"headers,omitempty"`
	QueryParameters map[string]*ValuePattern `json:"queryParameters,omitempty" yaml:"queryParameters,omitempty"`
	BodyPatterns    []*ValuePattern          `json:"bodyPatterns,omitempty" yaml:"bodyPatterns,omitempty"`
	Expression      string                   `json:"expression,omitempty" yaml:"expression,omitempty"`

	compiled bool
	urlRe    *regexp.Regexp
	program  *vm.Program
}

// NewRequestPattern returns a pattern for method and exact url.
func NewRequestPattern(method, url string) *RequestPattern {
	return &RequestPattern{Method: method, URL: url}
}

// AnyRequest returns a pattern matching every request.
func AnyRequest() *RequestPattern {
	return &RequestPattern{Method: MethodAny}
}

// WithHeader adds a header condition and returns p.
func (p *RequestPattern) WithHeader(name string, v *ValuePattern) *RequestPattern {
	if p.Headers == nil {
		p.Headers = make(map[string]*ValuePattern)
	}
	p.Headers[name] = v
	p.compiled = false
	return p
}

// WithQueryParam adds a query parameter condition and returns p.
func (p *RequestPattern) WithQueryParam(name string, v *ValuePattern) *RequestPattern {
	if p.QueryParameters == nil {
		p.QueryParameters = make(map[string]*ValuePattern)
	}
	p.QueryParameters[name] = v
	p.compiled = false
	return p
}

// WithBody adds a body condition and returns p.
func (p *RequestPattern) WithBody(v *ValuePattern) *RequestPattern {
	p.BodyPatterns = append(p.BodyPatterns, v)
	p.compiled = false
	return p
}

// Compile validates the pattern and prepares regexps, JSONPath, XPath and
// expressions. All problems are reported together.
func (p *RequestPattern) Compile() error {
	var errs []error

	urlFields := 0
	for _, s := range []string{p.URL, p.URLPattern, p.URLPath, p.URLPathPattern} {
		if s != "" {
			urlFields++
		}
	}
	if urlFields > 1 {
		errs = append(errs, fmt.Errorf("%w: only one of url, urlPattern, urlPath, urlPathPattern may be set", ErrInvalidPattern))
	}

	p.urlRe = nil
	switch {
	case p.URLPattern != "":
		re, err := compileWhole(p.URLPattern)
		if err != nil {
			errs = append(errs, err)
		}
		p.urlRe = re
	case p.URLPathPattern != "":
		re, err := compileWhole(p.URLPathPattern)
		if err != nil {
			errs = append(errs, err)
		}
		p.urlRe = re
	}

	for _, name := range slices.Sorted(maps.Keys(p.Headers)) {
		if err := compileValue(p.Headers[name]); err != nil {
			errs = append(errs, fmt.Errorf("header %s: %w", name, err))
		}
	}
	for _, name := range slices.Sorted(maps.Keys(p.QueryParameters)) {
		if err := compileValue(p.QueryParameters[name]); err != nil {
			errs = append(errs, fmt.Errorf("query parameter %s: %w", name, err))
		}
	}
	for i, bp := range p.BodyPatterns {
		if err := compileValue(bp); err != nil {
			errs = append(errs, fmt.Errorf("body pattern %d: %w", i, err))
		}
	}

	p.program = nil
	if p.Expression != "" {
		program, err := compileExpression(p.Expression)
		if err != nil {
			errs = append(errs, err)
		}
		p.program = program
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	p.compiled = true
	return nil
}

func compileValue(v *ValuePattern) error {
	if v == nil {
		return fmt.Errorf("%w: empty value pattern", ErrInvalidPattern)
	}
	return v.Compile()
}

// Matches reports whether req satisfies every condition. It has no side
// effects. An uncompiled or invalid pattern matches nothing.
func (p *RequestPattern) Matches(req *request.Request) bool {
	if p == nil || !p.compiled {
		return false
	}
	return p.matchMethod(req) &&
		p.matchURL(req) &&
		p.matchHeaders(req) &&
		p.matchQuery(req) &&
		p.matchBody(req) &&
		p.matchExpression(req)
}

func (p *RequestPattern) matchMethod(req *request.Request) bool {
	if p.Method == "" || strings.EqualFold(p.Method, MethodAny) {
		return true
	}
	return strings.EqualFold(p.Method, req.Method)
}

func (p *RequestPattern) matchURL(req *request.Request) bool {
	switch {
	case p.URL != "":
		return req.URL == p.URL
	case p.URLPattern != "":
		return p.urlRe.MatchString(req.URL)
	case p.URLPath != "":
		return req.Path() == p.URLPath
	case p.URLPathPattern != "":
		return p.urlRe.MatchString(req.Path())
	}
	return true
}

func (p *RequestPattern) matchHeaders(req *request.Request) bool {
	for name, v := range p.Headers {
		if !v.MatchValues(req.Headers.Values(name)) {
			return false
		}
	}
	return true
}

func (p *RequestPattern) matchQuery(req *request.Request) bool {
	q := req.Query()
	for name, v := range p.QueryParameters {
		if !v.MatchValues(q[name]) {
			return false
		}
	}
	return true
}

func (p *RequestPattern) matchBody(req *request.Request) bool {
	if len(p.BodyPatterns) == 0 {
		return true
	}
	body := req.BodyString()
	for _, v := range p.BodyPatterns {
		if !v.Match(body) {
			return false
		}
	}
	return true
}

func (p *RequestPattern) matchExpression(req *request.Request) bool {
	if p.program == nil {
		return true
	}
	return runExpression(p.program, req)
}

// URLDescription returns the URL condition in "kind value" form, or "any URL".
func (p *RequestPattern) URLDescription() string {
	switch {
	case p.URL != "":
		return "url " + p.URL
	case p.URLPattern != "":
		return "urlPattern " + p.URLPattern
	case p.URLPath != "":
		return "urlPath " + p.URLPath
	case p.URLPathPattern != "":
		return "urlPathPattern " + p.URLPathPattern
	}
	return "any URL"
}

// String summarises the pattern for logs.
func (p *RequestPattern) String() string {
	method := p.Method
	if method == "" {
		method = MethodAny
	}
	return method + " " + p.URLDescription()
}

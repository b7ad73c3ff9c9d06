package matching

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"github.com/ohler55/ojg/jp"
)

// ErrInvalidPattern is wrapped by every compile error in this package.
var ErrInvalidPattern = errors.New("invalid request pattern")

// ValuePattern tests a single string value. Exactly one operator must be set.
type ValuePattern struct {
	EqualTo         *string `json:"equalTo,omitempty" yaml:"equalTo,omitempty"`
	CaseInsensitive bool    `json:"caseInsensitive,omitempty" yaml:"caseInsensitive,omitempty"`
	Contains        *string `json:"contains,omitempty" yaml:"contains,omitempty"`
	Matches         *string `json:"matches,omitempty" yaml:"matches,omitempty"`
	DoesNotMatch    *string `json:"doesNotMatch,omitempty" yaml:"doesNotMatch,omitempty"`
	Absent          *bool   `json:"absent,omitempty" yaml:"absent,omitempty"`
	EqualToJSON     *string `json:"equalToJson,omitempty" yaml:"equalToJson,omitempty"`
	MatchesJSONPath *string `json:"matchesJsonPath,omitempty" yaml:"matchesJsonPath,omitempty"`
	MatchesXPath    *string `json:"matchesXPath,omitempty" yaml:"matchesXPath,omitempty"`

	compiled bool
	re       *regexp.Regexp
	jsonPath jp.Expr
	jsonWant any
	xpath    etree.Path
	xattr    string
}

// EqualTo returns a pattern matching exactly s.
func EqualTo(s string) *ValuePattern { return &ValuePattern{EqualTo: &s} }

// EqualToIgnoreCase returns a case-insensitive equality pattern.
func EqualToIgnoreCase(s string) *ValuePattern {
	return &ValuePattern{EqualTo: &s, CaseInsensitive: true}
}

// Containing returns a substring pattern.
func Containing(s string) *ValuePattern { return &ValuePattern{Contains: &s} }

// Matching returns a pattern that must match the whole value.
func Matching(re string) *ValuePattern { return &ValuePattern{Matches: &re} }

// NotMatching returns the negation of Matching.
func NotMatching(re string) *ValuePattern { return &ValuePattern{DoesNotMatch: &re} }

// Absent returns a pattern requiring the value to be missing.
func Absent() *ValuePattern {
	t := true
	return &ValuePattern{Absent: &t}
}

// EqualToJSON returns a pattern comparing JSON documents semantically.
func EqualToJSON(doc string) *ValuePattern { return &ValuePattern{EqualToJSON: &doc} }

// MatchingJSONPath returns a pattern requiring the JSONPath to select something.
func MatchingJSONPath(path string) *ValuePattern { return &ValuePattern{MatchesJSONPath: &path} }

// MatchingXPath returns a pattern requiring the XPath to select something.
func MatchingXPath(path string) *ValuePattern { return &ValuePattern{MatchesXPath: &path} }

// Operator returns the name of the configured operator, or "" when none is set.
func (v *ValuePattern) Operator() string {
	op, _ := v.operator()
	return op
}

// Expected returns the operand of the configured operator.
func (v *ValuePattern) Expected() string {
	_, val := v.operator()
	return val
}

func (v *ValuePattern) operator() (string, string) {
	switch {
	case v.EqualTo != nil:
		return "equalTo", *v.EqualTo
	case v.Contains != nil:
		return "contains", *v.Contains
	case v.Matches != nil:
		return "matches", *v.Matches
	case v.DoesNotMatch != nil:
		return "doesNotMatch", *v.DoesNotMatch
	case v.Absent != nil:
		return "absent", fmt.Sprint(*v.Absent)
	case v.EqualToJSON != nil:
		return "equalToJson", *v.EqualToJSON
	case v.MatchesJSONPath != nil:
		return "matchesJsonPath", *v.MatchesJSONPath
	case v.MatchesXPath != nil:
		return "matchesXPath", *v.MatchesXPath
	}
	return "", ""
}

func (v *ValuePattern) operatorCount() int {
	n := 0
	for _, set := range []bool{
		v.EqualTo != nil, v.Contains != nil, v.Matches != nil, v.DoesNotMatch != nil,
		v.Absent != nil, v.EqualToJSON != nil, v.MatchesJSONPath != nil, v.MatchesXPath != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

// Compile validates the pattern and prepares its operand.
func (v *ValuePattern) Compile() error {
	if n := v.operatorCount(); n != 1 {
		return fmt.Errorf("%w: value pattern needs exactly one operator, has %d", ErrInvalidPattern, n)
	}

	switch {
	case v.Matches != nil:
		re, err := compileWhole(*v.Matches)
		if err != nil {
			return err
		}
		v.re = re
	case v.DoesNotMatch != nil:
		re, err := compileWhole(*v.DoesNotMatch)
		if err != nil {
			return err
		}
		v.re = re
	case v.EqualToJSON != nil:
		want, err := parseJSON(*v.EqualToJSON)
		if err != nil {
			return fmt.Errorf("%w: equalToJson: %w", ErrInvalidPattern, err)
		}
		v.jsonWant = want
	case v.MatchesJSONPath != nil:
		x, err := jp.ParseString(*v.MatchesJSONPath)
		if err != nil {
			return fmt.Errorf("%w: JSONPath %q: %w", ErrInvalidPattern, *v.MatchesJSONPath, err)
		}
		v.jsonPath = x
	case v.MatchesXPath != nil:
		p, attr, err := compileXPath(*v.MatchesXPath)
		if err != nil {
			return err
		}
		v.xpath, v.xattr = p, attr
	}
	v.compiled = true
	return nil
}

// compileWhole compiles re so that it must match the entire input.
func compileWhole(re string) (*regexp.Regexp, error) {
	compiled, err := regexp.Compile(`^(?:` + re + `)$`)
	if err != nil {
		return nil, fmt.Errorf("%w: regexp %q: %w", ErrInvalidPattern, re, err)
	}
	return compiled, nil
}

func (v *ValuePattern) ready() (*ValuePattern, bool) {
	if v.compiled {
		return v, true
	}
	cp := *v
	if err := cp.Compile(); err != nil {
		return nil, false
	}
	return &cp, true
}

// Match tests a single present value.
func (v *ValuePattern) Match(value string) bool {
	p, ok := v.ready()
	if !ok {
		return false
	}
	return p.match(value, true)
}

// MatchValues tests a possibly missing, possibly multi-valued field such as a
// header. The pattern matches when any value matches; absent inverts presence.
func (v *ValuePattern) MatchValues(values []string) bool {
	p, ok := v.ready()
	if !ok {
		return false
	}
	if p.Absent != nil {
		return (len(values) == 0) == *p.Absent
	}
	for _, val := range values {
		if p.match(val, true) {
			return true
		}
	}
	return false
}

func (v *ValuePattern) match(value string, present bool) bool {
	switch {
	case v.Absent != nil:
		return present != *v.Absent
	case v.EqualTo != nil:
		if v.CaseInsensitive {
			return strings.EqualFold(value, *v.EqualTo)
		}
		return value == *v.EqualTo
	case v.Contains != nil:
		return strings.Contains(value, *v.Contains)
	case v.Matches != nil:
		return v.re.MatchString(value)
	case v.DoesNotMatch != nil:
		return !v.re.MatchString(value)
	case v.EqualToJSON != nil:
		got, err := parseJSON(value)
		return err == nil && jsonEqual(got, v.jsonWant)
	case v.MatchesJSONPath != nil:
		return matchJSONPath(v.jsonPath, value)
	case v.MatchesXPath != nil:
		return matchXPath(v.xpath, v.xattr, value)
	}
	return false
}

// String renders the pattern for diagnostics.
func (v *ValuePattern) String() string {
	op, val := v.operator()
	if op == "" {
		return "<empty>"
	}
	if v.CaseInsensitive {
		op += " (case-insensitive)"
	}
	return op + " " + truncate(val, 80)
}

// truncate shortens a string to maxLen, appending "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

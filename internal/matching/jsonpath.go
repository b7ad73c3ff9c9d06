package matching

import (
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// parseJSON decodes a JSON document into generic values.
func parseJSON(s string) (any, error) {
	return oj.ParseString(s)
}

// matchJSONPath reports whether x selects at least one node of the body.
// Bodies that are not JSON never match.
func matchJSONPath(x jp.Expr, body string) bool {
	data, err := parseJSON(body)
	if err != nil {
		return false
	}
	return len(x.Get(data)) > 0
}

// ValidateJSONPathExpression validates a JSONPath expression at load time.
func ValidateJSONPathExpression(path string) error {
	_, err := jp.ParseString(path)
	return err
}

// jsonEqual compares decoded JSON values. Object key order is irrelevant and
// numbers compare by value regardless of integer or float representation.
func jsonEqual(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}

	switch e := expected.(type) {
	case map[string]any:
		a, ok := actual.(map[string]any)
		if !ok || len(a) != len(e) {
			return false
		}
		for k, ev := range e {
			av, ok := a[k]
			if !ok || !jsonEqual(av, ev) {
				return false
			}
		}
		return true
	case []any:
		a, ok := actual.([]any)
		if !ok || len(a) != len(e) {
			return false
		}
		for i := range e {
			if !jsonEqual(a[i], e[i]) {
				return false
			}
		}
		return true
	}

	actualNum, actualIsNum := toFloat64(actual)
	expectedNum, expectedIsNum := toFloat64(expected)
	if actualIsNum || expectedIsNum {
		return actualIsNum && expectedIsNum && actualNum == expectedNum
	}

	return actual == expected
}

// toFloat64 attempts to convert a value to float64.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

package matching

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValuePattern_Match(t *testing.T) {
	tests := []struct {
		name    string
		pattern *ValuePattern
		value   string
		want    bool
	}{
		{"equalTo match", EqualTo("abc"), "abc", true},
		{"equalTo mismatch", EqualTo("abc"), "ABC", false},
		{"equalTo case insensitive", EqualToIgnoreCase("abc"), "ABC", true},
		{"equalTo empty", EqualTo(""), "", true},
		{"contains", Containing("ell"), "hello", true},
		{"contains mismatch", Containing("xyz"), "hello", false},
		{"matches whole value", Matching(`\d+`), "12345", true},
		{"matches is anchored", Matching(`\d+`), "abc123", false},
		{"matches alternation anchored", Matching(`a|b`), "ab", false},
		{"doesNotMatch", NotMatching(`\d+`), "abc", true},
		{"doesNotMatch mismatch", NotMatching(`\d+`), "123", false},
		{"absent against present value", Absent(), "x", false},
		{"equalToJson ignores order", EqualToJSON(`{"a":1,"b":[1,2]}`), `{"b":[1,2],"a":1.0}`, true},
		{"equalToJson differs", EqualToJSON(`{"a":1}`), `{"a":2}`, false},
		{"equalToJson extra key", EqualToJSON(`{"a":1}`), `{"a":1,"b":2}`, false},
		{"equalToJson not json", EqualToJSON(`{"a":1}`), `nope`, false},
		{"jsonpath selects", MatchingJSONPath(`$.user.name`), `{"user":{"name":"alice"}}`, true},
		{"jsonpath missing", MatchingJSONPath(`$.user.email`), `{"user":{"name":"alice"}}`, false},
		{"jsonpath filter", MatchingJSONPath(`$.items[?(@.qty > 2)]`), `{"items":[{"qty":1},{"qty":5}]}`, true},
		{"jsonpath filter none", MatchingJSONPath(`$.items[?(@.qty > 9)]`), `{"items":[{"qty":1},{"qty":5}]}`, false},
		{"jsonpath not json", MatchingJSONPath(`$.a`), `<a/>`, false},
		{"xpath element", MatchingXPath(`/order/item`), `<order><item>1</item></order>`, true},
		{"xpath missing", MatchingXPath(`/order/customer`), `<order><item>1</item></order>`, false},
		{"xpath anywhere", MatchingXPath(`//item`), `<a><b><item/></b></a>`, true},
		{"xpath attribute", MatchingXPath(`/order/@id`), `<order id="7"/>`, true},
		{"xpath attribute missing", MatchingXPath(`/order/@id`), `<order/>`, false},
		{"xpath predicate", MatchingXPath(`/order/item[@sku='A1']`), `<order><item sku="A1"/></order>`, true},
		{"xpath not xml", MatchingXPath(`/order`), `{"order":1}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.pattern.Compile())
			assert.Equal(t, tt.want, tt.pattern.Match(tt.value))
		})
	}
}

func TestValuePattern_MatchValues(t *testing.T) {
	assert.True(t, Absent().MatchValues(nil))
	assert.False(t, Absent().MatchValues([]string{"x"}))
	assert.False(t, EqualTo("x").MatchValues(nil))
	assert.True(t, EqualTo("b").MatchValues([]string{"a", "b"}))

	f := false
	present := &ValuePattern{Absent: &f}
	assert.True(t, present.MatchValues([]string{"x"}))
	assert.False(t, present.MatchValues(nil))
}

func TestValuePattern_Compile(t *testing.T) {
	tests := []struct {
		name    string
		pattern *ValuePattern
	}{
		{"no operator", &ValuePattern{}},
		{"two operators", &ValuePattern{EqualTo: ptr("a"), Contains: ptr("b")}},
		{"bad regex", Matching(`(unclosed`)},
		{"bad negated regex", NotMatching(`[z-a]`)},
		{"bad json", EqualToJSON(`{"a":`)},
		{"bad jsonpath", MatchingJSONPath(`$.a[`)},
		{"bad xpath", MatchingXPath(`/order[`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pattern.Compile()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPattern))
		})
	}
}

func TestValuePattern_UncompiledStillMatches(t *testing.T) {
	assert.True(t, Matching(`a+`).Match("aaa"))
	assert.False(t, Matching(`(bad`).Match("anything"))
}

func TestValuePattern_JSON(t *testing.T) {
	var v ValuePattern
	require.NoError(t, json.Unmarshal([]byte(`{"equalTo":"x","caseInsensitive":true}`), &v))
	require.NoError(t, v.Compile())
	assert.True(t, v.Match("X"))
	assert.Equal(t, "equalTo", v.Operator())
	assert.Equal(t, "x", v.Expected())
	assert.Equal(t, "equalTo (case-insensitive) x", v.String())
}

func TestJSONEqual(t *testing.T) {
	assert.True(t, jsonEqual(nil, nil))
	assert.False(t, jsonEqual(nil, "x"))
	assert.True(t, jsonEqual(int64(1), float64(1)))
	assert.False(t, jsonEqual("1", int64(1)))
	assert.False(t, jsonEqual([]any{int64(1)}, []any{int64(1), int64(2)}))
	assert.True(t, jsonEqual(map[string]any{"a": true}, map[string]any{"a": true}))
}

func ptr(s string) *string { return &s }

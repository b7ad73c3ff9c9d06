package matching

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/stubd/pkg/request"
)

func TestBreakdown(t *testing.T) {
	p := compiled(t, NewRequestPattern("POST", "/orders").
		WithHeader("X-Token", EqualTo("abc")))

	nm := p.Breakdown(request.New("POST", "/orders", http.Header{"X-Token": {"wrong"}}, nil))

	require.Len(t, nm.Fields, 3)
	assert.Equal(t, ScoreMethod+ScoreURL, nm.Score)
	assert.Equal(t, ScoreMethod+ScoreURL+ScoreHeader, nm.MaxPossibleScore)
	assert.Equal(t, 71, nm.MatchPercentage)
	assert.False(t, nm.Fields[2].Matched)
	assert.Equal(t, `method and url matched, but header X-Token expected equalTo abc, got "wrong"`, nm.Reason)
}

func TestBreakdown_MissingHeader(t *testing.T) {
	p := compiled(t, AnyRequest().WithHeader("X-Token", EqualTo("abc")))

	nm := p.Breakdown(request.New("GET", "/", nil, nil))
	require.Len(t, nm.Fields, 1)
	assert.Equal(t, "(missing)", nm.Fields[0].Actual)
	assert.Equal(t, 0, nm.Score)
}

func TestCollectNearMisses(t *testing.T) {
	candidates := []Candidate{
		{ID: "method-only", Pattern: compiled(t, NewRequestPattern("GET", "/other"))},
		{ID: "url-only", Pattern: compiled(t, &RequestPattern{Method: "DELETE", URLPath: "/orders"})},
		{ID: "nothing", Pattern: compiled(t, NewRequestPattern("PUT", "/x"))},
		{ID: "close", Pattern: compiled(t, (&RequestPattern{Method: "GET", URLPath: "/orders"}).WithQueryParam("id", EqualTo("1")))},
	}

	got := CollectNearMisses(candidates, request.New("GET", "/orders?id=2", nil, nil), 2)

	require.Len(t, got, 2)
	assert.Equal(t, "close", got[0].MappingID)
	assert.Equal(t, "url-only", got[1].MappingID)
}

func TestGenerateReason(t *testing.T) {
	assert.Equal(t, "no fields to compare", GenerateReason(nil))
	assert.Equal(t, "all specified fields matched", GenerateReason([]FieldResult{{Field: "url", Matched: true}}))
	assert.Equal(t, `expression "x" evaluated to false`, GenerateReason([]FieldResult{{Field: "expression", Expected: "x"}}))
}

func TestJoinFields(t *testing.T) {
	assert.Equal(t, "", joinFields(nil))
	assert.Equal(t, "a", joinFields([]string{"a"}))
	assert.Equal(t, "a and b", joinFields([]string{"a", "b"}))
	assert.Equal(t, "a, b, and c", joinFields([]string{"a", "b", "c"}))
}

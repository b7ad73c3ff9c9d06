package matching

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/getmockd/stubd/pkg/request"
)

// Field weights used to rank near misses. More specific conditions weigh more.
const (
	ScoreMethod     = 10
	ScoreURL        = 15
	ScoreHeader     = 10
	ScoreQueryParam = 5
	ScoreBody       = 20
	ScoreExpression = 10
)

// FieldResult describes whether a single pattern field matched the request.
type FieldResult struct {
	Field    string `json:"field"`
	Matched  bool   `json:"matched"`
	Score    int    `json:"score"`
	MaxScore int    `json:"maxScore"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
}

// NearMiss is a stub mapping that partially matched an incoming request.
type NearMiss struct {
	MappingID        string        `json:"mappingId,omitempty"`
	Score            int           `json:"score"`
	MaxPossibleScore int           `json:"maxPossibleScore"`
	MatchPercentage  int           `json:"matchPercentage"`
	Fields           []FieldResult `json:"fields"`
	Reason           string        `json:"reason"`
}

// Candidate pairs a pattern with the id reported for it.
type Candidate struct {
	ID      string
	Pattern *RequestPattern
}

// Breakdown evaluates every field of p against req without short-circuiting.
// Only fields the pattern specifies are included.
func (p *RequestPattern) Breakdown(req *request.Request) *NearMiss {
	result := &NearMiss{}
	if p == nil || !p.compiled {
		return result
	}

	add := func(f FieldResult) {
		if f.Matched {
			f.Score = f.MaxScore
		}
		result.Score += f.Score
		result.MaxPossibleScore += f.MaxScore
		result.Fields = append(result.Fields, f)
	}

	if p.Method != "" && !strings.EqualFold(p.Method, MethodAny) {
		add(FieldResult{
			Field:    "method",
			Matched:  p.matchMethod(req),
			MaxScore: ScoreMethod,
			Expected: p.Method,
			Actual:   req.Method,
		})
	}

	if desc := p.URLDescription(); desc != "any URL" {
		actual := req.URL
		if p.URLPath != "" || p.URLPathPattern != "" {
			actual = req.Path()
		}
		add(FieldResult{
			Field:    "url",
			Matched:  p.matchURL(req),
			MaxScore: ScoreURL,
			Expected: desc,
			Actual:   actual,
		})
	}

	for _, name := range slices.Sorted(maps.Keys(p.Headers)) {
		v := p.Headers[name]
		actual := req.Header(name)
		if !req.HasHeader(name) {
			actual = "(missing)"
		}
		add(FieldResult{
			Field:    "header " + name,
			Matched:  v.MatchValues(req.Headers.Values(name)),
			MaxScore: ScoreHeader,
			Expected: v.String(),
			Actual:   actual,
		})
	}

	q := req.Query()
	for _, name := range slices.Sorted(maps.Keys(p.QueryParameters)) {
		v := p.QueryParameters[name]
		actual := q.Get(name)
		if _, ok := q[name]; !ok {
			actual = "(missing)"
		}
		add(FieldResult{
			Field:    "query " + name,
			Matched:  v.MatchValues(q[name]),
			MaxScore: ScoreQueryParam,
			Expected: v.String(),
			Actual:   actual,
		})
	}

	body := req.BodyString()
	for _, v := range p.BodyPatterns {
		add(FieldResult{
			Field:    "body",
			Matched:  v.Match(body),
			MaxScore: ScoreBody,
			Expected: v.String(),
			Actual:   truncate(body, 80),
		})
	}

	if p.program != nil {
		add(FieldResult{
			Field:    "expression",
			Matched:  p.matchExpression(req),
			MaxScore: ScoreExpression,
			Expected: p.Expression,
		})
	}

	if result.MaxPossibleScore > 0 {
		result.MatchPercentage = (result.Score * 100) / result.MaxPossibleScore
	}
	result.Reason = GenerateReason(result.Fields)
	return result
}

// CollectNearMisses evaluates all candidates against the request and returns
// the top N by partial match score. Candidates with nothing matched are
// skipped. Only called for unmatched requests, so matched traffic pays nothing.
func CollectNearMisses(candidates []Candidate, req *request.Request, topN int) []NearMiss {
	if topN <= 0 {
		topN = 3
	}

	var out []NearMiss
	for _, c := range candidates {
		nm := c.Pattern.Breakdown(req)
		if nm.Score == 0 {
			continue
		}
		nm.MappingID = c.ID
		out = append(out, *nm)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MatchPercentage != out[j].MatchPercentage {
			return out[i].MatchPercentage > out[j].MatchPercentage
		}
		return out[i].Score > out[j].Score
	})

	if len(out) > topN {
		out = out[:topN]
	}
	return out
}

// GenerateReason creates a human-readable explanation of why a pattern
// partially matched but ultimately failed.
func GenerateReason(fields []FieldResult) string {
	if len(fields) == 0 {
		return "no fields to compare"
	}

	var matched []string
	var firstMismatch *FieldResult
	for i := range fields {
		if fields[i].Matched {
			matched = append(matched, fields[i].Field)
		} else if firstMismatch == nil {
			firstMismatch = &fields[i]
		}
	}

	if firstMismatch == nil {
		return "all specified fields matched"
	}
	if len(matched) == 0 {
		return formatMismatch(firstMismatch)
	}
	return joinFields(matched) + " matched, but " + formatMismatch(firstMismatch)
}

func formatMismatch(f *FieldResult) string {
	if f.Field == "expression" {
		return fmt.Sprintf("expression %q evaluated to false", f.Expected)
	}
	return fmt.Sprintf("%s expected %s, got %q", f.Field, f.Expected, f.Actual)
}

// joinFields joins field names with commas and "and".
func joinFields(fields []string) string {
	switch len(fields) {
	case 0:
		return ""
	case 1:
		return fields[0]
	case 2:
		return fields[0] + " and " + fields[1]
	default:
		return strings.Join(fields[:len(fields)-1], ", ") + ", and " + fields[len(fields)-1]
	}
}

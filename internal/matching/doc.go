// Package matching provides the request predicate used by stub mappings.
//
// A RequestPattern is a pure boolean function over a request. It combines:
//
//   - Method: exact (case-insensitive) or ANY
//   - URL: at most one of url, urlPattern, urlPath, urlPathPattern
//   - Headers and query parameters: name to ValuePattern
//   - Body patterns: every ValuePattern must match the body
//   - Expression: an expr-lang boolean over the request
//
// A ValuePattern holds exactly one operator: equalTo, contains, matches,
// doesNotMatch, absent, equalToJson, matchesJsonPath or matchesXPath.
//
// Patterns are compiled once with Compile when a mapping is registered so
// that invalid regular expressions, JSONPath, XPath and expressions are
// rejected up front. After Compile a pattern is read-only and safe for
// concurrent use.
//
// For requests that matched nothing, Breakdown reports per-field results and
// CollectNearMisses ranks candidate patterns by how much of them matched.
package matching

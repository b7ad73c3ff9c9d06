package matching

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/getmockd/stubd/pkg/request"
)

// exprEnvironment is the request as expressions see it. JSON is the decoded
// body, or nil when the body is not JSON; reading a field of a nil JSON fails
// at run time, which counts as no match.
type exprEnvironment struct {
	Method  string            `expr:"method"`
	URL     string            `expr:"url"`
	Path    string            `expr:"path"`
	Headers map[string]string `expr:"headers"`
	Query   map[string]string `expr:"query"`
	Body    string            `expr:"body"`
	JSON    any               `expr:"json"`
}

// compileExpression compiles a boolean request expression, for example
//
//	method == "POST" && headers["Content-Type"] contains "json" && json.amount > 100
func compileExpression(src string) (*vm.Program, error) {
	program, err := expr.Compile(src, expr.Env(exprEnvironment{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: expression %q: %w", ErrInvalidPattern, src, err)
	}
	return program, nil
}

// exprEnv exposes the request to expressions. Header names are canonical
// (Content-Type); headers and query hold the first value of each name.
func exprEnv(req *request.Request) exprEnvironment {
	headers := make(map[string]string, len(req.Headers))
	for k, v := range req.Headers {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	q := req.Query()
	query := make(map[string]string, len(q))
	for k, v := range q {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}

	var body any
	if len(req.Body) > 0 {
		if parsed, err := parseJSON(req.BodyString()); err == nil {
			body = parsed
		}
	}

	return exprEnvironment{
		Method:  req.Method,
		URL:     req.URL,
		Path:    req.Path(),
		Headers: headers,
		Query:   query,
		Body:    req.BodyString(),
		JSON:    body,
	}
}

// runExpression evaluates program; evaluation errors count as no match.
func runExpression(program *vm.Program, req *request.Request) bool {
	out, err := expr.Run(program, exprEnv(req))
	if err != nil {
		return false
	}
	b, ok := out.(bool)
	return ok && b
}

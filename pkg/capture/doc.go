// Package capture extracts named values from incoming requests and substitutes
// them into response text.
//
// # Captures
//
// A Capture reads one part of a request, selected by its Source:
//
//   - URL: the request target (path plus query) as received
//   - HEADER: the first value of the header named by Key
//   - BODY: the raw request body as text
//
// The text is searched (not anchored) with Pattern, which defaults to "(.*)",
// and the text of CaptureGroup (default 1) is returned. A pattern that does not
// match yields no value; Collect records such values as the empty string so a
// later substitution degrades to empty text instead of failing.
//
// Captures are validated and compiled once, when the owning stub mapping is
// registered:
//
//	c := capture.URL("name").WithPattern(`/user/(.*)`)
//	if err := c.Compile(); err != nil {
//	    return err
//	}
//	value, ok := c.Capture(req)
//
// # Replacer
//
// A Replacer substitutes placeholder tokens built from a delimiter pair
// (default "${" and "}") and a variable name:
//
//	r, _ := capture.NewReplacer(map[string]string{"name": "alice"}, nil)
//	r.Replace("hello ${name}") // "hello alice"
//
// A Replacer with no variables returns its input unchanged.
package capture

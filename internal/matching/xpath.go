package matching

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// compileXPath compiles an XPath expression. A trailing /@name step selects an
// attribute, which etree paths cannot express directly; it is returned
// separately.
func compileXPath(xpath string) (etree.Path, string, error) {
	elemPath, attr := xpath, ""
	if i := strings.LastIndex(xpath, "/@"); i >= 0 {
		elemPath, attr = xpath[:i], xpath[i+2:]
		if elemPath == "" || attr == "" {
			return etree.Path{}, "", fmt.Errorf("%w: XPath %q", ErrInvalidPattern, xpath)
		}
	}
	p, err := etree.CompilePath(elemPath)
	if err != nil {
		return etree.Path{}, "", fmt.Errorf("%w: XPath %q: %w", ErrInvalidPattern, xpath, err)
	}
	return p, attr, nil
}

// matchXPath reports whether the path selects at least one element (or, when
// attr is set, one element carrying that attribute). Bodies that are not XML
// never match.
func matchXPath(p etree.Path, attr, body string) bool {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(body); err != nil || doc.Root() == nil {
		return false
	}
	elems := doc.FindElementsPath(p)
	if attr == "" {
		return len(elems) > 0
	}
	for _, e := range elems {
		if e.SelectAttr(attr) != nil {
			return true
		}
	}
	return false
}

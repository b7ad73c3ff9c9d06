package util

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// MaxPreviewChars is the number of characters of a body kept in diagnostic output.
const MaxPreviewChars = 200

// TruncationMarker is appended to a body preview that was cut short.
const TruncationMarker = "..."

// TruncateBody truncates data to maxChars characters (runes), appending
// TruncationMarker if anything was cut. If maxChars <= 0, MaxPreviewChars is used.
func TruncateBody(data string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = MaxPreviewChars
	}
	if utf8.RuneCountInString(data) <= maxChars {
		return data
	}
	n := 0
	for i := range data {
		if n == maxChars {
			return data[:i] + TruncationMarker
		}
		n++
	}
	return data
}

// SafeFilePath cleans a relative path and reports whether it stays inside the
// directory it will be joined to. Absolute paths, empty paths and paths that
// still contain ".." after cleaning are rejected.
func SafeFilePath(p string) (string, bool) {
	if p == "" {
		return "", false
	}
	// Treat backslashes as separators regardless of OS.
	p = strings.ReplaceAll(p, `\`, "/")
	if strings.HasPrefix(p, "/") || filepath.IsAbs(p) {
		return "", false
	}
	cleaned := filepath.ToSlash(filepath.Clean(p))
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", false
	}
	return filepath.FromSlash(cleaned), true
}

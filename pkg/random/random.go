// Package random generates random strings from character-class templates.
//
// Each marker character in a template is replaced by one character drawn
// uniformly from its class; every other character is copied as is:
//
//	a  a-z
//	A  A-Z
//	z  0-9a-z
//	Z  0-9A-Z
//	x  0-9a-f
//	X  0-9A-F
//	0  0-9
//
// So "XXXX-0000" yields values like "3FA9-0412". Values come from crypto/rand.
package random

import (
	"crypto/rand"
	"errors"
)

const (
	digits = "0123456789"
	lower  = "abcdefghijklmnopqrstuvwxyz"
	upper  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

var alphabets = map[byte]string{
	'a': lower,
	'A': upper,
	'z': digits + lower,
	'Z': digits + upper,
	'x': digits + "abcdef",
	'X': digits + "ABCDEF",
	'0': digits,
}

// ErrMissingTarget is returned by Pattern.Validate when no target is set.
var ErrMissingTarget = errors.New("random value target is required")

// Pattern binds a template to the variable name it is published under.
type Pattern struct {
	Target  string `json:"target" yaml:"target"`
	Pattern string `json:"pattern" yaml:"pattern"`
}

// Validate checks the pattern has a target.
func (p Pattern) Validate() error {
	if p.Target == "" {
		return ErrMissingTarget
	}
	return nil
}

// Generate returns one fresh value for p.
func (p Pattern) Generate() string {
	return Generate(p.Pattern)
}

// Alphabet returns the characters a marker draws from, or "" when c is not a marker.
func Alphabet(c byte) string {
	return alphabets[c]
}

// Generate expands template. Markers are ASCII, so the template is walked
// byte by byte and everything else, invalid UTF-8 included, is copied
// verbatim; the result has the same length as template.
func Generate(template string) string {
	src := &byteSource{}
	out := make([]byte, len(template))
	for i := 0; i < len(template); i++ {
		alphabet, ok := alphabets[template[i]]
		if !ok {
			out[i] = template[i]
			continue
		}
		out[i] = alphabet[src.intN(len(alphabet))]
	}
	return string(out)
}

// Values generates one value per pattern keyed by target.
func Values(patterns []Pattern) map[string]string {
	if len(patterns) == 0 {
		return nil
	}
	out := make(map[string]string, len(patterns))
	for _, p := range patterns {
		out[p.Target] = p.Generate()
	}
	return out
}

// byteSource hands out crypto/rand bytes in small batches.
type byteSource struct {
	buf [64]byte
	pos int
	n   int
}

func (s *byteSource) next() byte {
	if s.pos >= s.n {
		// crypto/rand.Read never returns an error on supported platforms.
		_, _ = rand.Read(s.buf[:])
		s.pos, s.n = 0, len(s.buf)
	}
	c := s.buf[s.pos]
	s.pos++
	return c
}

// intN returns a uniform value in [0, n) for 0 < n <= 256, rejecting bytes
// above the largest multiple of n to avoid modulo bias.
func (s *byteSource) intN(n int) int {
	limit := 256 - 256%n
	for {
		v := int(s.next())
		if v < limit {
			return v % n
		}
	}
}

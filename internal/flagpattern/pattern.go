// Package flagpattern evaluates the compact flag-pattern grammar used to
// recognize design records by their flag strings.
//
// A pattern starts with a mode marker followed by a literal character set:
//
//	+abc   flags contain at least one of a, b, c
//	-abc   flags contain none of a, b, c
//	*abc   flags contain all of a, b, c
//	(+ab-cd*ef   all three sections, in that fixed order
//
// Each section runs to the next marker, so "+g-K" reads as "any of g, none
// of K". Sections must appear in + - * order.
//
// Matching is a byte-set scan. It is case-sensitive and never uses regular
// expressions.
package flagpattern

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is returned for a non-empty pattern that does not start with
// a recognized marker.
var ErrMalformed = errors.New("malformed flag pattern")

const (
	markAny      = '+'
	markNone     = '-'
	markAll      = '*'
	markCombined = '('
)

// Pattern is a compiled flag pattern. The zero value matches nothing.
type Pattern struct {
	src    string
	anyOf  string
	noneOf string
	allOf  string
}

// Compile parses pattern. An empty pattern compiles to the zero Pattern,
// which never matches.
func Compile(pattern string) (Pattern, error) {
	if pattern == "" {
		return Pattern{}, nil
	}

	body := pattern
	switch pattern[0] {
	case markCombined:
		body = pattern[1:]
	case markAny, markNone, markAll:
	default:
		return Pattern{}, fmt.Errorf("%w %q: missing leading marker", ErrMalformed, pattern)
	}
	sections, err := splitSections(body)
	if err != nil {
		return Pattern{}, fmt.Errorf("%w %q: %v", ErrMalformed, pattern, err)
	}
	return Pattern{src: pattern, anyOf: sections[0], noneOf: sections[1], allOf: sections[2]}, nil
}

// MustCompile is like Compile but panics on a malformed pattern. Intended
// for package-level pattern tables.
func MustCompile(pattern string) Pattern {
	p, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return p
}

// splitSections splits a pattern body into its match-any, anti-match and
// match-all sections. Characters before the first marker belong to the
// match-any section, which is how "(A-B" spells its "+" implicitly. Sections
// may be empty but must keep their + - * order.
func splitSections(body string) ([3]string, error) {
	var sections [3]strings.Builder
	current := 0
	for i := 0; i < len(body); i++ {
		next := -1
		switch body[i] {
		case markAny:
			next = 0
		case markNone:
			next = 1
		case markAll:
			next = 2
		}
		if next < 0 {
			sections[current].WriteByte(body[i])
			continue
		}
		if next < current || (next == current && (i > 0 || next != 0)) {
			return [3]string{}, fmt.Errorf("section %q out of order at offset %d", body[i], i)
		}
		current = next
	}
	return [3]string{sections[0].String(), sections[1].String(), sections[2].String()}, nil
}

// Match reports whether flags satisfy the pattern.
func (p Pattern) Match(flags string) bool {
	if p.src == "" {
		return false
	}
	if p.anyOf != "" && !containsAnyByte(flags, p.anyOf) {
		return false
	}
	if containsAnyByte(flags, p.noneOf) {
		return false
	}
	for i := 0; i < len(p.allOf); i++ {
		if strings.IndexByte(flags, p.allOf[i]) < 0 {
			return false
		}
	}
	return true
}

func containsAnyByte(s, set string) bool {
	for i := 0; i < len(set); i++ {
		if strings.IndexByte(s, set[i]) >= 0 {
			return true
		}
	}
	return false
}

// String returns the source pattern.
func (p Pattern) String() string {
	return p.src
}

// Match compiles pattern and evaluates it against flags. An empty pattern
// returns false. A malformed pattern panics: pattern tables are static and
// a bad entry is a programming error.
func Match(flags, pattern string) bool {
	return MustCompile(pattern).Match(flags)
}

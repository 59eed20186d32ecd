// Package textnorm repairs the text artifacts this document family is
// known for: invisible whitespace, OCR homoglyphs from Greek/Cyrillic
// blocks, and accented labels that must fold for matching.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// invisibleSpaces are code points that render as nothing or as odd
// spacing in extracted PDF text.
var invisibleSpaces = []rune{
	'\u00a0', // NBSP
	'\u202f', // narrow NBSP
	'\u2007', // figure space
	'\u2009', // thin space
	'\u200a', // hair space
	'\u200b', // zero-width space
	'\u200c', // ZW non-joiner
	'\u200d', // ZW joiner
	'\u2060', // word joiner
	'\ufeff', // BOM
	'\u2063', // invisible separator
	'\u00ad', // soft hyphen
}

var horizontalWS = regexp.MustCompile(`[ \t\r\f\v]+`)

// NormalizeWhitespace replaces invisible space code points with ASCII
// spaces, collapses horizontal whitespace runs and trims both ends.
// Idempotent. Newlines are preserved.
func NormalizeWhitespace(s string) string {
	if s == "" {
		return s
	}
	for _, r := range invisibleSpaces {
		s = strings.ReplaceAll(s, string(r), " ")
	}
	s = horizontalWS.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// homoglyphs maps Greek and Cyrillic letters to their Latin look-alikes.
// Unmapped runes pass through.
var homoglyphs = map[rune]string{
	// Greek
	'Α': "A", 'Β': "B", 'Ε': "E", 'Ζ': "Z", 'Η': "H", 'Ι': "I", 'Κ': "K",
	'Μ': "M", 'Ν': "N", 'Ο': "O", 'Ρ': "R", 'Τ': "T", 'Υ': "Y", 'Χ': "X",
	'Δ': "D", 'Λ': "L", 'Σ': "S", 'Φ': "F", 'Θ': "Th", 'Ξ': "X", 'Ψ': "Ps", 'Ω': "O",
	'ο': "o", 'ρ': "p", 'κ': "k", 'ι': "i", 'ν': "v", 'χ': "x", 'τ': "t",
	'μ': "m", 'υ': "y", 'σ': "s", 'ς': "s", 'φ': "f", 'ψ': "ps",
	// Cyrillic
	'А': "A", 'В': "B", 'Е': "E", 'К': "K", 'М': "M", 'Н': "H", 'О': "O",
	'Р': "P", 'С': "C", 'Т': "T", 'У': "Y", 'Х': "X", 'І': "I",
	'а': "a", 'е': "e", 'к': "k", 'м': "m", 'н': "h", 'о': "o", 'р': "p",
	'с': "c", 'т': "t", 'у': "y", 'х': "x", 'і': "i",
}

// RepairHomoglyphs substitutes visually similar Greek/Cyrillic letters
// with Latin ones. Pure and idempotent on already-Latin input.
func RepairHomoglyphs(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if rep, ok := homoglyphs[r]; ok {
			b.WriteString(rep)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// HasSuspectGlyphs reports whether s looks OCR-corrupted: any rune in
// the Greek or Cyrillic blocks, or any non-space rune above U+024F
// (past Latin Extended-B).
func HasSuspectGlyphs(s string) bool {
	for _, r := range s {
		if r >= 0x0370 && r <= 0x03FF {
			return true
		}
		if r >= 0x0400 && r <= 0x04FF {
			return true
		}
		if r > 0x024F && !unicode.IsSpace(r) {
			return true
		}
	}
	return false
}

var accentFold = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

// FoldAccentsLower lowercases s and strips combining marks
// (NFKD decomposition), so "Matrícula" matches "matricula".
func FoldAccentsLower(s string) string {
	out, _, err := transform.String(accentFold, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}

// Digits strips every non-digit rune.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

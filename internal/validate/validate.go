// Package validate normalizes single field values to their canonical
// Brazilian representations. Every function is pure and reports invalid
// input through its ok result instead of an error.
package validate

import (
	"fmt"
	"strings"
	"time"

	"github.com/lfbrandt/pdf-excel-ingestor/internal/textnorm"
)

// CPF validates the 11-digit taxpayer id and returns it as
// XXX.XXX.XXX-XX. Both check digits must match the weighted mod-11
// scheme; a run of 11 identical digits is always rejected.
func CPF(raw string) (string, bool) {
	d := textnorm.Digits(raw)
	if len(d) != 11 || d == strings.Repeat(string(d[0]), 11) {
		return "", false
	}
	if cpfDigit(d[:9]) != int(d[9]-'0') || cpfDigit(d[:10]) != int(d[10]-'0') {
		return "", false
	}
	return fmt.Sprintf("%s.%s.%s-%s", d[0:3], d[3:6], d[6:9], d[9:11]), true
}

func cpfDigit(digs string) int {
	sum := 0
	for i, c := range digs {
		sum += int(c-'0') * (len(digs) + 1 - i)
	}
	r := (sum * 10) % 11
	if r == 10 {
		return 0
	}
	return r
}

// CNPJ formats a 14-digit company id as XX.XXX.XXX/XXXX-XX. No checksum
// is applied; anything that is not 14 digits falls back to the
// whitespace-normalized raw string.
func CNPJ(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	d := textnorm.Digits(raw)
	if len(d) != 14 {
		return textnorm.NormalizeWhitespace(raw), true
	}
	return fmt.Sprintf("%s.%s.%s/%s-%s", d[0:2], d[2:5], d[5:8], d[8:12], d[12:14]), true
}

// dateLayouts are tried in order, day first. Two-digit years go through
// Go's pivoting "06" layout.
var dateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02/01/06",
	"2/1/06",
	"02/01/2006 15:04",
	"2006/01/02",
}

// Date normalizes separators (\ - . to /) and parses with day-first
// preference, returning DD/MM/YYYY.
func Date(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	s := textnorm.NormalizeWhitespace(raw)
	for _, sep := range []string{`\`, "-", "."} {
		s = strings.ReplaceAll(s, sep, "/")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("02/01/2006"), true
		}
	}
	return "", false
}

// Phone normalizes an area code and subscriber number. The result is a
// 2-digit DDD plus NNNNN-NNNN, or nothing. 8-digit numbers gain the
// mobile "9" prefix; 10/11-digit numbers carry their own DDD in the
// first two digits.
func Phone(ddd, number string) (string, string, bool) {
	dddD := textnorm.Digits(ddd)
	if len(dddD) != 2 {
		dddD = ""
	}
	numD := textnorm.Digits(number)

	switch len(numD) {
	case 8:
		numD = "9" + numD
	case 9:
		// already a bare mobile number
	case 10:
		numD = "9" + numD[2:]
	case 11:
		numD = numD[2:]
	default:
		numD = ""
	}
	if numD != "" && dddD == "" {
		dddD = numD[:2]
	}
	if len(numD) != 9 {
		return "", "", false
	}
	return dddD, numD[:5] + "-" + numD[5:], true
}

// CEP formats an 8-digit postal code as NNNNN-NNN, falling back to the
// whitespace-normalized raw string otherwise.
func CEP(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	d := textnorm.Digits(raw)
	if len(d) == 8 {
		return d[:5] + "-" + d[5:], true
	}
	return textnorm.NormalizeWhitespace(raw), true
}

// PIS accepts exactly 11 digits, no checksum.
func PIS(raw string) (string, bool) {
	d := textnorm.Digits(raw)
	if len(d) != 11 {
		return "", false
	}
	return d, true
}

// Sexo resolves a sex value through the configured synonym map keyed by
// its accent-folded form; unmatched values fall back to the upper-cased
// trimmed input.
func Sexo(raw string, table map[string]string) (string, bool) {
	if raw == "" {
		return "", false
	}
	key := strings.TrimSpace(textnorm.FoldAccentsLower(raw))
	if v, ok := table[key]; ok {
		return v, true
	}
	return strings.ToUpper(strings.TrimSpace(raw)), true
}

// Inclusao resolves an accommodation-inclusion value. Any token
// containing "24" short-circuits to the table's "24h" entry; unmatched
// values fall back to the title-cased normalized input.
func Inclusao(raw string, table map[string]string) (string, bool) {
	if raw == "" {
		return "", false
	}
	key := strings.ReplaceAll(textnorm.FoldAccentsLower(raw), " ", "")
	if strings.Contains(key, "24") {
		if v, ok := table["24h"]; ok {
			return v, true
		}
		return "24h", true
	}
	if v, ok := table[key]; ok {
		return v, true
	}
	return titleCase(textnorm.NormalizeWhitespace(raw)), true
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

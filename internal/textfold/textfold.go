// SPDX-License-Identifier: Apache-2.0

// Package textfold normalizes Spanish legal text for keyword matching.
package textfold

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s and strips diacritics, so "Constitución" and
// "constitucion" compare equal. Offsets into the result do not map back to s.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// ContainsAny reports whether folded contains any of the (already folded) needles.
func ContainsAny(folded string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(folded, n) {
			return true
		}
	}
	return false
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// abbreviations never end a sentence even when followed by a period.
var abbreviations = map[string]bool{
	"art": true, "arts": true, "apdo": true, "ap": true, "num": true,
	"n": true, "pag": true, "pags": true, "sr": true, "sra": true,
	"dr": true, "dra": true, "vid": true, "cfr": true, "disp": true,
	"adic": true, "trans": true, "ss": true, "aprox": true,
}

// Sentences splits s on terminal punctuation followed by whitespace. A period
// after a known abbreviation ("Art.") or between digits ("149.1") does not split.
func Sentences(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '.' && c != ';' && c != '!' && c != '?' {
			continue
		}
		next := i + 1
		if next < len(s) && s[next] != ' ' && s[next] != '\n' && s[next] != '\t' && s[next] != '\r' {
			continue
		}
		if c == '.' && abbreviations[Fold(lastWord(s[start:i]))] {
			continue
		}
		if seg := strings.TrimSpace(s[start : i+1]); seg != "" {
			out = append(out, seg)
		}
		start = i + 1
	}
	if seg := strings.TrimSpace(s[start:]); seg != "" {
		out = append(out, seg)
	}
	return out
}

func lastWord(s string) string {
	end := len(s)
	i := end
	for i > 0 {
		r, size := utf8.DecodeLastRuneInString(s[:i])
		if !unicode.IsLetter(r) {
			break
		}
		i -= size
	}
	return s[i:end]
}

var spaces = regexp.MustCompile(`\s+`)

// Squash collapses runs of whitespace into single spaces and trims the result.
func Squash(s string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

// WordPattern compiles a word-bounded matcher for an already folded phrase.
func WordPattern(phrase string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + strings.ReplaceAll(regexp.QuoteMeta(phrase), " ", `\s+`) + `\b`)
}

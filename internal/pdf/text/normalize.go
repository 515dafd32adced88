// Package text maps arbitrary Unicode input onto the repertoire the standard
// PDF fonts can show through WinAnsiEncoding.
package text

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// substitutions covers characters that survive canonical decomposition but
// have no place in the target repertoire. Values are plain ASCII.
var substitutions = map[rune]string{
	// letters without a canonical decomposition
	'Œ': "OE", 'œ': "oe",
	'Ĳ': "IJ", 'ĳ': "ij",
	'Ł': "L", 'ł': "l",
	'Đ': "D", 'đ': "d",
	'Ħ': "H", 'ħ': "h",
	'Ŧ': "T", 'ŧ': "t",
	'Ŋ': "N", 'ŋ': "n",
	'ı': "i", 'ƒ': "f",

	// ligatures
	'ﬀ': "ff", 'ﬁ': "fi", 'ﬂ': "fl",
	'ﬃ': "ffi", 'ﬄ': "ffl", 'ﬅ': "st", 'ﬆ': "st",

	// quotes and guillemets
	'«': `"`, '»': `"`,
	'‹': "'", '›': "'",
	'‘': "'", '’': "'", '‚': "'", '‛': "'",
	'“': `"`, '”': `"`, '„': `"`, '‟': `"`,
	'′': "'", '″': `"`,

	// dashes
	'‐': "-", '‑': "-", '‒': "-", '–': "-",
	'—': "-", '―': "-", '−': "-",

	// punctuation and symbols
	'…': "...", '•': "*", '€': "EUR", '™': "TM",

	// whitespace
	'\t': " ", '\n': " ", '\r': " ",
	'\u00a0': " ", '\u2000': " ", '\u2001': " ", '\u2002': " ", '\u2003': " ",
	'\u2004': " ", '\u2005': " ", '\u2006': " ", '\u2007': " ", '\u2008': " ",
	'\u2009': " ", '\u200a': " ", '\u202f': " ", '\u205f': " ", '\u3000': " ",
	'\u200b': "", '\ufeff': "",
}

// Normalize returns s restricted to printable ASCII and the printable part of
// the Latin-1 supplement. Accents are removed through canonical decomposition,
// the substitution table handles the rest and anything left over is dropped.
// Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(s string) string {
	if s == "" {
		return s
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	decomposed, _, err := transform.String(t, s)
	if err != nil {
		decomposed = s
	}

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if sub, ok := substitutions[r]; ok {
			b.WriteString(sub)
			continue
		}
		if IsPrintable(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SanitizeASCII is the hard fallback used when a write is rejected: every rune
// outside printable ASCII and printable Latin-1 is dropped, nothing is mapped.
func SanitizeASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if IsPrintable(r) {
			return r
		}
		return -1
	}, s)
}

// IsPrintable reports whether r is printable ASCII (U+0020-U+007E) or printable
// Latin-1 supplement (U+00A0-U+00FF).
func IsPrintable(r rune) bool {
	return (r >= 0x20 && r <= 0x7E) || (r >= 0xA0 && r <= 0xFF)
}

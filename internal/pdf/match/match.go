// Package match resolves free-form data keys against the field names of a
// document using three tiers: exact, normalized-equal and token-substring.
package match

import (
	"strings"
	"unicode"
)

// Tier identifies which comparison produced a match.
type Tier int

const (
	TierNone Tier = iota
	TierExact
	TierNormalized
	TierToken
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierNormalized:
		return "normalized"
	case TierToken:
		return "token"
	default:
		return "none"
	}
}

// MarshalText renders the tier by name in JSON output.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Match is a successful resolution.
type Match struct {
	Field string `json:"field"`
	Tier  Tier   `json:"tier"`
}

// minTokenLen is the shortest token considered by the token-substring tier.
const minTokenLen = 3

// Matcher holds a catalog of field names with their normalized forms. It is
// immutable after construction and safe for concurrent use.
type Matcher struct {
	names      []string
	normalized []string
}

// NewMatcher builds a matcher over names; catalog order is the tie-break order.
func NewMatcher(names []string) *Matcher {
	m := &Matcher{
		names:      append([]string(nil), names...),
		normalized: make([]string, len(names)),
	}
	for i, name := range names {
		m.normalized[i] = NormalizeKey(name)
	}
	return m
}

// Names returns the catalog in order.
func (m *Matcher) Names() []string {
	return append([]string(nil), m.names...)
}

// Resolve finds the field a key refers to. The first tier that matches wins
// and within a tier the first catalog entry wins.
func (m *Matcher) Resolve(key string) (Match, bool) {
	for _, name := range m.names {
		if name == key {
			return Match{Field: name, Tier: TierExact}, true
		}
	}

	normKey := NormalizeKey(key)
	if normKey != "" {
		for i, norm := range m.normalized {
			if norm == normKey {
				return Match{Field: m.names[i], Tier: TierNormalized}, true
			}
		}
	}

	tokens := Tokens(key)
	if len(tokens) == 0 {
		return Match{}, false
	}
	for i, norm := range m.normalized {
		if norm == "" {
			continue
		}
		for _, token := range tokens {
			if strings.Contains(norm, token) || strings.Contains(token, norm) {
				return Match{Field: m.names[i], Tier: TierToken}, true
			}
		}
	}

	return Match{}, false
}

// Resolve is a one-shot helper for callers that do not keep a Matcher around.
func Resolve(key string, names []string) (string, bool) {
	match, ok := NewMatcher(names).Resolve(key)
	return match.Field, ok
}

// NormalizeKey lowercases s and drops everything that is not a letter or digit.
func NormalizeKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Tokens splits a key into lowercase alphabetic words. Words break on every
// non-letter (digits, '_', '-', spaces) and where a lowercase letter is
// followed by an uppercase one. Words shorter than three letters are dropped.
func Tokens(key string) []string {
	var (
		tokens  []string
		current []rune
		prev    rune
	)
	flush := func() {
		if len(current) >= minTokenLen {
			tokens = append(tokens, strings.ToLower(string(current)))
		}
		current = current[:0]
	}

	for _, r := range key {
		switch {
		case !unicode.IsLetter(r):
			flush()
		case unicode.IsUpper(r) && unicode.IsLower(prev):
			flush()
			current = append(current, r)
		default:
			current = append(current, r)
		}
		prev = r
	}
	flush()

	return tokens
}

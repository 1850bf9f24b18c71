// Package identity canonicalizes restaurant name guesses across mentions so
// the same establishment aggregates into one record.
//
// Two guesses refer to the same identity when their normalized forms are
// equal, or when the shorter form's full token sequence appears as a
// contiguous run of whole tokens inside the longer one and the shorter form
// is at least minMergeRunes runes. Whole-token containment (rather than raw
// substring) keeps "Alo" from swallowing "Alobar" while still merging it
// with "ALO Restaurant". Ambiguous partial matches join the group with the
// longest canonical form seen so far in the run.
package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/beli-buzz/backend/internal/models"
)

// minMergeRunes guards against collapsing unrelated short names: a partial
// match only merges when the shorter normalized form has at least this many
// runes.
const minMergeRunes = 3

// Group is one resolved restaurant identity with its member mentions.
type Group struct {
	Canonical string // display name, the longest original guess in the group
	Slug      string // stable id derived from the canonical name
	Mentions  []models.Mention
}

type group struct {
	normalized string
	tokens     []string
	canonical  string
	mentions   []models.Mention
}

// Resolve folds mentions into identity groups. Groups come back in
// first-mention order; the operation is idempotent for already-canonical
// name sets.
func Resolve(mentions []models.Mention) []Group {
	var groups []*group

	for _, m := range mentions {
		normalized := Normalize(m.NameGuess)
		if normalized == "" {
			continue
		}
		tokens := strings.Fields(normalized)

		g := findGroup(groups, normalized, tokens)
		if g == nil {
			groups = append(groups, &group{
				normalized: normalized,
				tokens:     tokens,
				canonical:  strings.TrimSpace(m.NameGuess),
				mentions:   []models.Mention{m},
			})
			continue
		}

		g.mentions = append(g.mentions, m)
		// A longer variant upgrades the group: specificity wins.
		if len([]rune(normalized)) > len([]rune(g.normalized)) {
			g.normalized = normalized
			g.tokens = tokens
			g.canonical = strings.TrimSpace(m.NameGuess)
		}
	}

	out := make([]Group, 0, len(groups))
	for _, g := range groups {
		out = append(out, Group{
			Canonical: g.canonical,
			Slug:      Slug(g.canonical),
			Mentions:  g.mentions,
		})
	}
	return out
}

// findGroup picks the matching group, preferring the longest canonical form
// when more than one partial match applies.
func findGroup(groups []*group, normalized string, tokens []string) *group {
	var best *group
	for _, g := range groups {
		if !sameIdentity(g.normalized, g.tokens, normalized, tokens) {
			continue
		}
		if best == nil || len([]rune(g.normalized)) > len([]rune(best.normalized)) {
			best = g
		}
	}
	return best
}

func sameIdentity(aNorm string, aTokens []string, bNorm string, bTokens []string) bool {
	if aNorm == bNorm {
		return true
	}

	short, long := aTokens, bTokens
	shortNorm := aNorm
	if len([]rune(bNorm)) < len([]rune(aNorm)) {
		short, long = bTokens, aTokens
		shortNorm = bNorm
	}
	if len([]rune(shortNorm)) < minMergeRunes {
		return false
	}
	return containsTokenRun(long, short)
}

// containsTokenRun reports whether needle appears as a contiguous run of
// whole tokens inside haystack.
func containsTokenRun(haystack, needle []string) bool {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return false
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases, strips diacritics and punctuation, and collapses
// whitespace. Canonicalization is a function of name text only.
func Normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if folded, _, err := transform.String(stripMarks, name); err == nil {
		name = folded
	}

	var b strings.Builder
	b.Grow(len(name))
	prevSpace := false
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			prevSpace = false
			continue
		}
		if !prevSpace {
			b.WriteByte(' ')
			prevSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Slug derives the stable published id from a canonical name.
func Slug(canonical string) string {
	return strings.Join(strings.Fields(Normalize(canonical)), "-")
}

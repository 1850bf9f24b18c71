package identity_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/beli-buzz/backend/internal/identity"
	"github.com/beli-buzz/backend/internal/models"
)

func mention(name string) models.Mention {
	return models.Mention{NameGuess: name, Sentiment: 7, SourceID: "src"}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "casing", input: "ALO Restaurant", want: "alo restaurant"},
		{name: "punctuation", input: "The Burger's Priest!", want: "the burger s priest"},
		{name: "diacritics", input: "Café Boulud", want: "cafe boulud"},
		{name: "whitespace", input: "  Seven   Lives \t Tacos ", want: "seven lives tacos"},
		{name: "empty", input: "???", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, identity.Normalize(tt.input))
		})
	}
}

func TestResolveMergesPartialNameVariants(t *testing.T) {
	groups := identity.Resolve([]models.Mention{
		mention("Alo"),
		mention("ALO Restaurant"),
		mention("Alobar"),
	})

	require.Len(t, groups, 2)

	require.Equal(t, "ALO Restaurant", groups[0].Canonical)
	require.Equal(t, "alo-restaurant", groups[0].Slug)
	require.Len(t, groups[0].Mentions, 2)

	require.Equal(t, "Alobar", groups[1].Canonical)
	require.Equal(t, "alobar", groups[1].Slug)
	require.Len(t, groups[1].Mentions, 1)
}

func TestResolveOrderIndependentGrouping(t *testing.T) {
	a := identity.Resolve([]models.Mention{mention("Alo"), mention("ALO Restaurant"), mention("Alobar")})
	b := identity.Resolve([]models.Mention{mention("ALO Restaurant"), mention("Alobar"), mention("Alo")})

	require.Len(t, a, 2)
	require.Len(t, b, 2)
	for _, groups := range [][]identity.Group{a, b} {
		slugs := map[string]int{}
		for _, g := range groups {
			slugs[g.Slug] = len(g.Mentions)
		}
		require.Equal(t, map[string]int{"alo-restaurant": 2, "alobar": 1}, slugs)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	first := identity.Resolve([]models.Mention{
		mention("Pai Northern Thai Kitchen"),
		mention("pai northern thai kitchen"),
		mention("Seven Lives Tacos"),
	})
	require.Len(t, first, 2)

	// Feed the canonical names back in: same grouping.
	var again []models.Mention
	for _, g := range first {
		again = append(again, mention(g.Canonical))
	}
	second := identity.Resolve(again)
	require.Len(t, second, len(first))
	for i := range first {
		require.Equal(t, first[i].Slug, second[i].Slug)
	}
}

func TestResolveShortNamesNeverMergeOnPartialMatch(t *testing.T) {
	// "L" is below the merge threshold, so it cannot join "L Restaurant"
	// through the partial-match rule.
	groups := identity.Resolve([]models.Mention{mention("L Restaurant"), mention("L")})
	require.Len(t, groups, 2)
}

func TestResolveAmbiguousMatchPrefersLongerCanonical(t *testing.T) {
	groups := identity.Resolve([]models.Mention{
		mention("Bar Isabel"),
		mention("Bar Isabel Annex Location"),
		mention("Bar Isabel Annex"),
	})

	// "Bar Isabel" seeds a group, the longer form upgrades it, and the
	// partial "Bar Isabel Annex" joins the longest canonical seen so far.
	require.Len(t, groups, 1)
	require.Equal(t, "Bar Isabel Annex Location", groups[0].Canonical)
	require.Len(t, groups[0].Mentions, 3)
}

func TestSlugIsStable(t *testing.T) {
	require.Equal(t, identity.Slug("The Burger's Priest"), identity.Slug("the burger s priest"))
	require.Equal(t, "seven-lives-tacos", identity.Slug("Seven Lives Tacos"))
}

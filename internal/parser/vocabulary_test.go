package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVocabularyFirstTermWins(t *testing.T) {
	v := NewVocabulary([]Term{
		{Label: "A", Tokens: []string{"alpha"}},
		{Label: "B", Tokens: []string{"alpha", "beta"}},
	}, false)

	got, ok := v.Match("ALPHA beta")
	assert.True(t, ok)
	assert.Equal(t, "A", got)

	got, ok = v.Match("just beta")
	assert.True(t, ok)
	assert.Equal(t, "B", got)

	_, ok = v.Match("gamma")
	assert.False(t, ok)
}

func TestVocabularyWholeWord(t *testing.T) {
	substring := NewVocabulary([]Term{{Label: "Ride", Tokens: []string{"ride"}}}, false)
	whole := NewVocabulary([]Term{{Label: "Ride", Tokens: []string{"ride"}}}, true)

	_, ok := substring.Match("Freeride Special")
	assert.True(t, ok)

	_, ok = whole.Match("Freeride Special")
	assert.False(t, ok)

	got, ok := whole.Match("Ride Warpig")
	assert.True(t, ok)
	assert.Equal(t, "Ride", got)
}

func TestVocabularySkipsEmptyTerms(t *testing.T) {
	v := NewVocabulary([]Term{
		{Label: "", Tokens: []string{"x"}},
		{Label: "Blank", Tokens: []string{" ", ""}},
		{Label: "Kept", Tokens: []string{" Kept "}},
	}, true)

	assert.Equal(t, 1, v.Len())
	assert.Equal(t, []string{"Kept"}, v.Labels())
}

func TestBrandVocabularySpellings(t *testing.T) {
	v := BrandVocabulary("Never Summer", "", "Lib Tech")

	for _, text := range []string{"Never Summer Proto", "NeverSummer Proto", "never-summer proto"} {
		got, ok := v.Match(text)
		assert.True(t, ok, text)
		assert.Equal(t, "Never Summer", got, text)
	}
	assert.Equal(t, []string{"Never Summer", "Lib Tech"}, v.Labels())
}

func TestContainsWord(t *testing.T) {
	tests := []struct {
		haystack, needle string
		want             bool
	}{
		{"k2 paradise", "k2", true},
		{"ride, warpig", "ride", true},
		{"freeride ride", "ride", true},
		{"freeride", "ride", false},
		{"rides", "ride", false},
		{"anything", "", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, containsWord(tt.haystack, tt.needle), "%q in %q", tt.needle, tt.haystack)
	}
}

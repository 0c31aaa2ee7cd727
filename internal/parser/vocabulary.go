package parser

import (
	"strings"
)

// Term is one label of a Vocabulary together with the tokens that select it.
type Term struct {
	Label  string
	Tokens []string
}

// Vocabulary is an ordered label → token set lookup. Matching is
// case-insensitive and the first term with a hit wins, so term order is the
// tie-break for texts that match several labels.
type Vocabulary struct {
	terms     []Term
	wholeWord bool
}

// NewVocabulary copies terms and lower-cases their tokens. With wholeWord set
// a token only matches when it is not embedded in a longer word.
func NewVocabulary(terms []Term, wholeWord bool) Vocabulary {
	copied := make([]Term, 0, len(terms))
	for _, t := range terms {
		tokens := make([]string, 0, len(t.Tokens))
		for _, tok := range t.Tokens {
			if tok = strings.ToLower(strings.TrimSpace(tok)); tok != "" {
				tokens = append(tokens, tok)
			}
		}
		if t.Label == "" || len(tokens) == 0 {
			continue
		}
		copied = append(copied, Term{Label: t.Label, Tokens: tokens})
	}
	return Vocabulary{terms: copied, wholeWord: wholeWord}
}

// BrandVocabulary builds a whole-word vocabulary from brand names. Multi-word
// names also match their joined and hyphenated spellings.
func BrandVocabulary(brands ...string) Vocabulary {
	terms := make([]Term, 0, len(brands))
	for _, b := range brands {
		b = strings.TrimSpace(b)
		if b == "" {
			continue
		}
		tokens := []string{b}
		if strings.Contains(b, " ") {
			tokens = append(tokens,
				strings.ReplaceAll(b, " ", ""),
				strings.ReplaceAll(b, " ", "-"),
			)
		}
		terms = append(terms, Term{Label: b, Tokens: tokens})
	}
	return NewVocabulary(terms, true)
}

func (v Vocabulary) Len() int {
	return len(v.terms)
}

func (v Vocabulary) Labels() []string {
	labels := make([]string, len(v.terms))
	for i, t := range v.terms {
		labels[i] = t.Label
	}
	return labels
}

// Match returns the label of the first term that has a token in any of texts.
func (v Vocabulary) Match(texts ...string) (string, bool) {
	lowered := make([]string, len(texts))
	for i, t := range texts {
		lowered[i] = strings.ToLower(t)
	}

	for _, term := range v.terms {
		for _, text := range lowered {
			for _, tok := range term.Tokens {
				if v.contains(text, tok) {
					return term.Label, true
				}
			}
		}
	}
	return "", false
}

func (v Vocabulary) contains(text, token string) bool {
	if v.wholeWord {
		return containsWord(text, token)
	}
	return strings.Contains(text, token)
}

// DefaultBrands is the brand list used when none is configured.
func DefaultBrands() []string {
	return []string{
		"Burton", "Lib Tech", "Salomon", "K2", "Capita", "Ride", "Rome",
		"Never Summer", "Gnu", "Arbor", "Bataleon", "YES", "Rossignol", "Roxy",
		"Jones", "Nitro", "Head", "Flow", "DC", "Nidecker", "Academy", "Slash",
	}
}

// DefaultCategories orders gender before age group, riding style and skill
// level. "Women's" must stay ahead of "Men's" because its tokens contain
// the men's ones.
func DefaultCategories() Vocabulary {
	return NewVocabulary([]Term{
		{Label: "Women's", Tokens: []string{"women", "womens", "women's", "wmns", "ladies", "female", "女款", "女子", "女"}},
		{Label: "Kids", Tokens: []string{"kids", "kid's", "youth", "junior", "jr.", "boys", "girls", "toddler", "儿童", "青少年", "童"}},
		{Label: "Freestyle", Tokens: []string{"park", "twin", "freestyle", "jib", "pipe", "公园", "自由式"}},
		{Label: "Powder", Tokens: []string{"powder", "swallowtail", "fish", "粉雪", "深雪"}},
		{Label: "Freeride", Tokens: []string{"freeride", "backcountry", "big mountain", "splitboard", "野雪", "自由滑"}},
		{Label: "All-Mountain", Tokens: []string{"all-mountain", "all mountain", "allmountain", "全能", "全山"}},
		{Label: "Beginner", Tokens: []string{"beginner", "entry level", "learner", "rental", "入门", "初学"}},
		{Label: "Men's", Tokens: []string{"men's", "mens", "男款", "男子", "男"}},
	}, false)
}

// defaultGenericWords are capitalised words that look like a brand to the
// first-word heuristic but never are one.
func defaultGenericWords() map[string]bool {
	words := []string{
		"unbranded", "generic", "other", "new", "sale", "used", "demo", "the",
		"men's", "mens", "women's", "womens", "kids", "kid's", "youth", "junior",
		"boys", "girls", "park", "twin", "all", "freestyle", "freeride",
		"powder", "beginner", "directional", "camber", "rocker", "hybrid",
		"snowboard", "snowboards", "board", "splitboard", "package", "complete",
	}
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

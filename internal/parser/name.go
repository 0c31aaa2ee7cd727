package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

var placeholderNames = map[string]bool{
	"unknown product": true,
	"untitled":        true,
	"product":         true,
	"n/a":             true,
	"未知产品":            true,
}

// priceLabels are the words a price line is left with once its amounts are
// removed.
var priceLabels = map[string]bool{
	"was": true, "now": true, "sale": true, "price": true, "from": true,
	"reg": true, "regular": true, "msrp": true, "only": true, "save": true,
}

// extractName tries the title sub-selectors, then anchor text, then the
// container's text lines and finally image alt text.
func (p *ListingParser) extractName(c *Container) Field[string] {
	for _, s := range p.selectors.Name {
		if name, ok := p.firstName(c.Find(s.Selector), s.Attr, false); ok {
			return found(name)
		}
	}

	if name, ok := p.firstName(c.Find("a"), "", true); ok {
		return found(name)
	}

	for _, line := range c.Lines {
		if name, ok := p.nameFromLine(line); ok {
			return found(name)
		}
	}

	if name, ok := p.firstName(c.Find("img[alt]"), "alt", false); ok {
		return found(name)
	}

	return Field[string]{}
}

func (p *ListingParser) firstName(sel *goquery.Selection, attr string, skipNoise bool) (string, bool) {
	var name string
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var raw string
		if attr != "" {
			raw = s.AttrOr(attr, "")
		} else {
			raw = s.Text()
		}
		if skipNoise && p.isNoise(raw) {
			return true
		}
		if candidate, ok := p.acceptName(raw); ok {
			name = candidate
			return false
		}
		return true
	})
	return name, name != ""
}

func (p *ListingParser) nameFromLine(line string) (string, bool) {
	if p.patterns.barePrice.MatchString(line) {
		return "", false
	}

	if p.isNoise(line) {
		return "", false
	}

	stripped := collapseSpace(p.patterns.priceToken.ReplaceAllString(line, " "))
	if onlyPriceLabels(stripped) {
		return "", false
	}
	n := utf8.RuneCountInString(stripped)
	if n < MinLineLength || n > MaxLineLength {
		return "", false
	}
	return p.acceptName(stripped)
}

func (p *ListingParser) isNoise(text string) bool {
	lower := strings.ToLower(text)
	for _, noise := range p.selectors.NoiseWords {
		if strings.Contains(lower, noise) {
			return true
		}
	}
	return false
}

// onlyPriceLabels reports whether every word of s is a price label such as
// "was" or "now".
func onlyPriceLabels(s string) bool {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if !priceLabels[w] {
			return false
		}
	}
	return true
}

// acceptName rejects too-short, placeholder and price-only candidates.
func (p *ListingParser) acceptName(raw string) (string, bool) {
	name := collapseSpace(raw)
	if utf8.RuneCountInString(name) < MinNameLength {
		return "", false
	}
	if p.patterns.barePrice.MatchString(name) {
		return "", false
	}
	if placeholderNames[strings.ToLower(name)] {
		return "", false
	}
	return truncateRunes(name, MaxNameLength), true
}

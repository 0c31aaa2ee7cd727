package parser

import (
	"strings"
	"unicode/utf8"

	"github.com/maltedev/snowboard-monitor/internal/models"
)

// extractBrand resolves the brand from the vocabulary, then from
// "<Brand> Snowboard" / "Brand: <Brand>" phrases, then from the first word
// of the name. Unresolved brands get models.UnknownBrand.
func (p *ListingParser) extractBrand(name, text string) Field[string] {
	if brand, ok := p.brands.Match(name, text); ok {
		return found(brand)
	}

	for _, src := range []string{name, text} {
		if m := p.patterns.brandLabel.FindStringSubmatch(src); len(m) > 1 {
			if brand, ok := p.acceptBrand(m[1]); ok {
				return found(brand)
			}
		}
		if m := p.patterns.brandBefore.FindStringSubmatch(src); len(m) > 1 {
			if brand, ok := p.acceptBrand(m[1]); ok {
				return found(brand)
			}
		}
	}

	if fields := strings.Fields(name); len(fields) > 0 {
		first := strings.Trim(fields[0], ",.:;!?()[]\"")
		if hasUpperFirst(first) && !isAllUpper(first) {
			if brand, ok := p.acceptBrand(first); ok {
				return found(brand)
			}
		}
	}

	return Field[string]{Value: models.UnknownBrand}
}

func (p *ListingParser) acceptBrand(raw string) (string, bool) {
	brand := collapseSpace(raw)
	if utf8.RuneCountInString(brand) < 2 {
		return "", false
	}
	if p.genericWords[strings.ToLower(brand)] {
		return "", false
	}
	return brand, true
}

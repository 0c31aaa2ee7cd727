package parser

import (
	"math"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PriceInfo holds the prices found in one container. Any field may be nil.
type PriceInfo struct {
	Current  *float64
	Original *float64
	Discount *int
}

// extractPrice scans the container text with the monetary patterns. Two or
// more distinct amounts give current = min and original = max; a single
// amount is the current price. Without any amount in the text the price
// sub-elements are tried for a current price only.
func (p *ListingParser) extractPrice(c *Container) PriceInfo {
	values := p.priceValues(c.Text)

	switch {
	case len(values) >= 2:
		low, high := values[0], values[len(values)-1]
		discount := DiscountPercent(low, high)
		return PriceInfo{Current: &low, Original: &high, Discount: &discount}
	case len(values) == 1:
		current := values[0]
		return PriceInfo{Current: &current}
	}

	if current, ok := p.scopedPrice(c); ok {
		return PriceInfo{Current: &current}
	}
	return PriceInfo{}
}

// priceValues returns the distinct plausible amounts in text, ascending.
func (p *ListingParser) priceValues(text string) []float64 {
	seen := make(map[int64]bool)
	var values []float64

	for _, re := range p.patterns.prices {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			v, ok := parseAmount(m[1])
			if !ok || !plausiblePrice(v) {
				continue
			}
			cents := int64(math.Round(v * 100))
			if seen[cents] {
				continue
			}
			seen[cents] = true
			values = append(values, float64(cents)/100)
		}
	}

	sort.Float64s(values)
	return values
}

func (p *ListingParser) scopedPrice(c *Container) (float64, bool) {
	var price float64
	var ok bool

	for _, s := range p.selectors.Price {
		c.Find(s.Selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			raw := sel.Text()
			if s.Attr != "" {
				raw = sel.AttrOr(s.Attr, "")
			}
			m := p.patterns.amount.FindString(strings.TrimSpace(raw))
			if m == "" {
				return true
			}
			if v, parsed := parseAmount(m); parsed && plausiblePrice(v) {
				price, ok = v, true
				return false
			}
			return true
		})
		if ok {
			return price, true
		}
	}
	return 0, false
}

func plausiblePrice(v float64) bool {
	return v > 0 && v <= MaxPlausiblePrice
}

// DiscountPercent is round((original-current)/original*100), never negative.
func DiscountPercent(current, original float64) int {
	if original <= 0 || current >= original {
		return 0
	}
	return int(math.Round((original - current) / original * 100))
}

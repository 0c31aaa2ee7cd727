package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// extractImage walks the image selectors and, per element, the candidate
// attributes until a value normalizes to an absolute image URL.
func (p *ListingParser) extractImage(c *Container) Field[string] {
	for _, selector := range p.selectors.Image {
		var image string
		c.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			for _, attr := range p.selectors.ImageAttrs {
				raw := strings.TrimSpace(s.AttrOr(attr, ""))
				if raw == "" {
					continue
				}
				if normalized, ok := p.normalizeImage(raw, strings.HasSuffix(attr, "srcset")); ok {
					image = normalized
					return false
				}
			}
			return true
		})
		if image != "" {
			return found(image)
		}
	}
	return Field[string]{}
}

func (p *ListingParser) normalizeImage(raw string, srcset bool) (string, bool) {
	if srcset || strings.ContainsAny(raw, " \t\n") {
		raw = firstSrcsetEntry(raw)
	}
	if raw == "" || hasUnsafeScheme(raw) {
		return "", false
	}

	u, ok := resolveReference(p.base, raw)
	if !ok || !hasImageExtension(u) {
		return "", false
	}
	return u.String(), true
}

// extractURL takes the first usable anchor inside the container, then the
// container itself or its nearest enclosing anchor.
func (p *ListingParser) extractURL(c *Container) Field[string] {
	for _, selector := range p.selectors.Link {
		var link string
		c.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if normalized, ok := p.normalizeLink(s.AttrOr("href", "")); ok {
				link = normalized
				return false
			}
			return true
		})
		if link != "" {
			return found(link)
		}
	}

	if anchor := c.Selection.Closest("a[href]"); anchor.Length() > 0 {
		if link, ok := p.normalizeLink(anchor.AttrOr("href", "")); ok {
			return found(link)
		}
	}
	return Field[string]{}
}

func (p *ListingParser) normalizeLink(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") || hasUnsafeScheme(raw) {
		return "", false
	}

	u, ok := resolveReference(p.base, raw)
	if !ok {
		return "", false
	}
	u.Fragment = ""
	return u.String(), true
}

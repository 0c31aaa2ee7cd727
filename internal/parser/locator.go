package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	// MinStrategyMatches is the match count a strategy has to exceed.
	MinStrategyMatches = 3
	// FallbackLimit caps the containers returned by the fallback scan.
	FallbackLimit = 50
)

// Container is one markup node believed to describe a single product.
type Container struct {
	Selection *goquery.Selection
	Lines     []string
	Text      string
}

func NewContainer(sel *goquery.Selection) *Container {
	lines := textLines(sel)
	return &Container{
		Selection: sel,
		Lines:     lines,
		Text:      strings.Join(lines, " "),
	}
}

func (c *Container) Find(selector string) *goquery.Selection {
	return c.Selection.Find(selector)
}

// Strategy is one step of the locator cascade: a matcher and the predicate
// deciding whether its (normalized) matches are accepted.
type Strategy struct {
	Name   string
	Match  func(doc *goquery.Document) *goquery.Selection
	Accept func(matches int) bool
}

// SelectorStrategy accepts a CSS selector once it yields more than min matches.
func SelectorStrategy(name, selector string, min int) Strategy {
	return Strategy{
		Name: name,
		Match: func(doc *goquery.Document) *goquery.Selection {
			return doc.Find(selector)
		},
		Accept: moreThan(min),
	}
}

func moreThan(min int) func(int) bool {
	return func(n int) bool { return n > min }
}

// Locator evaluates strategies in order and returns the matches of the first
// accepted one. When none is accepted the fallback runs unconditionally and
// its result is capped at limit.
type Locator struct {
	strategies []Strategy
	fallback   Strategy
	limit      int
}

func NewLocator(strategies []Strategy, fallback Strategy, limit int) *Locator {
	return &Locator{
		strategies: append([]Strategy(nil), strategies...),
		fallback:   fallback,
		limit:      limit,
	}
}

// DefaultLocator goes from explicit product ids to class-name patterns to an
// image-ancestor search, and falls back to a class keyword scan.
func DefaultLocator() *Locator {
	strategies := []Strategy{
		SelectorStrategy("product-id-attributes",
			"[data-product-id], [data-productid], [data-product-sku], [data-sku], [data-pid], [data-item-id]",
			MinStrategyMatches),
		SelectorStrategy("product-class",
			"[class*='product-card'], [class*='product-item'], [class*='product-tile'], [class*='productCard'], [class*='ProductCard'], [class*='product-grid-item'], li[class*='product']",
			MinStrategyMatches),
		SelectorStrategy("card-class",
			"article[class*='card'], div[class*='card'], li[class*='card'], div[class*='tile'], li[class*='tile'], li[class*='item'], div[class*='grid-item']",
			MinStrategyMatches),
		imageAncestorStrategy(MinStrategyMatches),
	}

	return NewLocator(strategies, classKeywordStrategy("product", "item", "card", "tile"), FallbackLimit)
}

// Locate returns the candidate containers and the name of the strategy that
// produced them.
func (l *Locator) Locate(doc *goquery.Document) ([]*Container, string) {
	for _, s := range l.strategies {
		matches := normalizeMatches(s.Match(doc))
		if s.Accept(matches.Length()) {
			return toContainers(matches, 0), s.Name
		}
	}

	if l.fallback.Match == nil {
		return nil, ""
	}
	matches := normalizeMatches(l.fallback.Match(doc))
	if matches.Length() == 0 {
		return nil, l.fallback.Name
	}
	return toContainers(matches, l.limit), l.fallback.Name
}

func toContainers(sel *goquery.Selection, limit int) []*Container {
	var containers []*Container
	sel.EachWithBreak(func(i int, s *goquery.Selection) bool {
		if limit > 0 && i >= limit {
			return false
		}
		containers = append(containers, NewContainer(s))
		return true
	})
	return containers
}

// imageAncestorStrategy collects, for every image, the closest block
// ancestor whose text carries a currency amount.
func imageAncestorStrategy(min int) Strategy {
	priced := regexp.MustCompile(`(?:\$|€|£|¥|USD|EUR)\s?\d`)

	return Strategy{
		Name: "image-ancestor",
		Match: func(doc *goquery.Document) *goquery.Selection {
			var nodes []*html.Node
			seen := make(map[*html.Node]bool)

			doc.Find("img").Each(func(_ int, img *goquery.Selection) {
				depth := 0
				for p := img.Parent(); p.Length() > 0 && depth < 6; p = p.Parent() {
					depth++
					switch goquery.NodeName(p) {
					case "div", "li", "article", "section":
					default:
						continue
					}
					if priced.MatchString(p.Text()) {
						if n := p.Get(0); !seen[n] {
							seen[n] = true
							nodes = append(nodes, n)
						}
						return
					}
				}
			})

			return doc.FindNodes(nodes...)
		},
		Accept: moreThan(min),
	}
}

// classKeywordStrategy scans block elements whose class attribute contains
// any of keywords.
func classKeywordStrategy(keywords ...string) Strategy {
	return Strategy{
		Name: "class-keyword-scan",
		Match: func(doc *goquery.Document) *goquery.Selection {
			return doc.Find("div[class], li[class], article[class], section[class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
				class := strings.ToLower(s.AttrOr("class", ""))
				for _, kw := range keywords {
					if strings.Contains(class, kw) {
						return true
					}
				}
				return false
			})
		},
		Accept: func(n int) bool { return n > 0 },
	}
}

// normalizeMatches drops wrapper matches that enclose two or more
// product-like matches, then keeps only the outermost of what remains so a
// card and its own title element are not both returned.
func normalizeMatches(sel *goquery.Selection) *goquery.Selection {
	if sel == nil || sel.Length() < 2 {
		return sel
	}

	nodes := sel.Nodes
	productLike := make([]bool, len(nodes))
	for i := range nodes {
		productLike[i] = isProductLike(sel.Eq(i))
	}

	var kept []*html.Node
	for i, n := range nodes {
		inner := 0
		for j, m := range nodes {
			if i != j && productLike[j] && isAncestor(n, m) {
				inner++
			}
		}
		if inner < 2 {
			kept = append(kept, n)
		}
	}

	var outer []*html.Node
	for i, n := range kept {
		nested := false
		for j, m := range kept {
			if i != j && isAncestor(m, n) {
				nested = true
				break
			}
		}
		if !nested {
			outer = append(outer, n)
		}
	}

	if len(outer) == 0 {
		return sel
	}
	return sel.FilterNodes(outer...)
}

func isProductLike(s *goquery.Selection) bool {
	hasImage := goquery.NodeName(s) == "img" || s.Find("img").Length() > 0
	return hasImage && len(strings.TrimSpace(s.Text())) >= MinNameLength
}

func isAncestor(ancestor, n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

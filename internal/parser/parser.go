package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"time"

	"github.com/maltedev/snowboard-monitor/internal/models"
)

var (
	ErrInvalidBaseURL  = errors.New("invalid base URL")
	ErrContainerFailed = errors.New("container extraction failed")
)

const (
	MinNameLength     = 3
	MaxNameLength     = 150
	MinLineLength     = 5
	MaxLineLength     = 100
	MaxPlausiblePrice = 10000.0
)

type Parser interface {
	ParsePage(html string) (*PageResult, error)
}

// Field is the outcome of one extractor: the value and whether it was found
// in the markup (false means unresolved or defaulted).
type Field[T any] struct {
	Value T
	Found bool
}

func found[T any](v T) Field[T] {
	return Field[T]{Value: v, Found: true}
}

// Ptr returns nil for an unresolved field.
func (f Field[T]) Ptr() *T {
	if !f.Found {
		return nil
	}
	v := f.Value
	return &v
}

// AttrSelector reads Attr from elements matching Selector, or their text
// when Attr is empty.
type AttrSelector struct {
	Selector string
	Attr     string
}

// Selectors are the ordered sub-selector lists the extractors walk through.
type Selectors struct {
	Name       []AttrSelector
	Price      []AttrSelector
	Image      []string
	ImageAttrs []string
	Link       []string
	NoiseWords []string
}

func DefaultSelectors() Selectors {
	return Selectors{
		Name: []AttrSelector{
			{Selector: "[itemprop='name']"},
			{Selector: "[class*='product-name'], [class*='product-title'], [class*='productName'], [class*='productTitle']"},
			{Selector: "[class*='card-title'], [class*='item-title'], [class*='tile-title']"},
			{Selector: "h1, h2, h3, h4, h5"},
			{Selector: "[class*='title']"},
			{Selector: "[title]", Attr: "title"},
		},
		Price: []AttrSelector{
			{Selector: "[itemprop='price']", Attr: "content"},
			{Selector: "[data-price]", Attr: "data-price"},
			{Selector: "[itemprop='price']"},
			{Selector: "[class*='price'], [class*='Price']"},
		},
		Image: []string{
			"img[itemprop='image']",
			"img[class*='product'], img[class*='primary']",
			"img",
			"picture source",
		},
		ImageAttrs: []string{"src", "data-src", "data-lazy-src", "data-original", "data-srcset", "srcset"},
		Link: []string{
			"a[href*='product']",
			"a[class*='product'], a[class*='title'], a[class*='name']",
			"h1 a, h2 a, h3 a, h4 a",
			"a[href]",
		},
		NoiseWords: []string{"select", "compare", "add to cart", "size", "color", "colour", "quick view", "wishlist"},
	}
}

type Options struct {
	// BaseURL resolves relative image and product links.
	BaseURL    string
	Brands     *Vocabulary
	Categories *Vocabulary
	Selectors  *Selectors
	Locator    *Locator
	Logger     *slog.Logger
	Now        func() time.Time
}

type patterns struct {
	prices      []*regexp.Regexp
	amount      *regexp.Regexp
	barePrice   *regexp.Regexp
	priceToken  *regexp.Regexp
	brandBefore *regexp.Regexp
	brandLabel  *regexp.Regexp
}

func compilePatterns() patterns {
	const number = `\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?|\d{1,3}(?:\.\d{3})*,\d{2}|\d+(?:\.\d{1,2})?`
	const currency = `(?:US\$|CA\$|C\$|A\$|\$|€|£|¥)`

	return patterns{
		prices: []*regexp.Regexp{
			regexp.MustCompile(currency + `\s?(` + number + `)`),
			regexp.MustCompile(`(` + number + `)\s?(?:USD|EUR|GBP|CAD|AUD)\b`),
			regexp.MustCompile(`(?i:price|now|sale|was|reg|regular|msrp)\s*:\s*` + currency + `?\s?(` + number + `)`),
		},
		amount:      regexp.MustCompile(number),
		barePrice:   regexp.MustCompile(`^(?:(?i:price|now|sale|was|from)\s*:?\s*)?` + currency + `?\s?(?:` + number + `)\s?(?:USD|EUR|GBP|CAD|AUD)?$`),
		priceToken:  regexp.MustCompile(`(?:` + currency + `\s?(?:` + number + `))|(?:(?:` + number + `)\s?(?:USD|EUR|GBP|CAD|AUD)\b)`),
		brandBefore: regexp.MustCompile(`\b([A-Z][A-Za-z0-9'&\-]*)\s+(?i:snowboards?|board)\b`),
		brandLabel:  regexp.MustCompile(`(?i:brand)\s*:\s*([A-Za-z0-9][\w&'\-]*(?:\s[A-Z][\w&'\-]*)?)`),
	}
}

// ListingParser turns one listing page into product records. It holds no
// state between calls.
type ListingParser struct {
	base         *url.URL
	locator      *Locator
	brands       Vocabulary
	categories   Vocabulary
	selectors    Selectors
	genericWords map[string]bool
	patterns     patterns
	logger       *slog.Logger
	now          func() time.Time
}

func New(opts Options) (*ListingParser, error) {
	p := &ListingParser{
		locator:      opts.Locator,
		genericWords: defaultGenericWords(),
		patterns:     compilePatterns(),
		logger:       opts.Logger,
		now:          opts.Now,
	}

	if opts.BaseURL != "" {
		base, err := url.Parse(opts.BaseURL)
		if err != nil || !base.IsAbs() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, opts.BaseURL)
		}
		p.base = base
	}

	if opts.Brands != nil {
		p.brands = *opts.Brands
	} else {
		p.brands = BrandVocabulary(DefaultBrands()...)
	}

	if opts.Categories != nil {
		p.categories = *opts.Categories
	} else {
		p.categories = DefaultCategories()
	}

	if opts.Selectors != nil {
		p.selectors = *opts.Selectors
	} else {
		p.selectors = DefaultSelectors()
	}

	if p.locator == nil {
		p.locator = DefaultLocator()
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With("component", "listing_parser")
	if p.now == nil {
		p.now = time.Now
	}

	return p, nil
}

var _ Parser = (*ListingParser)(nil)

// PageResult summarises one parsed page.
type PageResult struct {
	Strategy   string
	Containers int
	Unresolved int
	Failed     int
	Products   []*models.Product
}

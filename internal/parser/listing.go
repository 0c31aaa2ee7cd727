package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/snowboard-monitor/internal/models"
)

// ParsePage locates the product containers of one listing page and
// assembles a record per container. Containers without a resolvable name are
// skipped, and a container whose extraction panics is skipped and counted
// without affecting the rest of the page.
func (p *ListingParser) ParsePage(html string) (*PageResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	containers, strategy := p.locator.Locate(doc)
	result := &PageResult{
		Strategy:   strategy,
		Containers: len(containers),
		Products:   make([]*models.Product, 0, len(containers)),
	}

	for i, c := range containers {
		product, err := p.safeAssemble(c)
		switch {
		case err != nil:
			result.Failed++
			p.logger.Warn("skipping container", "index", i, "error", err)
		case product == nil:
			result.Unresolved++
		default:
			result.Products = append(result.Products, product)
		}
	}

	p.logger.Debug("parsed page",
		"strategy", strategy,
		"containers", result.Containers,
		"products", len(result.Products),
		"unresolved", result.Unresolved,
		"failed", result.Failed,
	)

	return result, nil
}

func (p *ListingParser) safeAssemble(c *Container) (product *models.Product, err error) {
	defer func() {
		if r := recover(); r != nil {
			product = nil
			err = fmt.Errorf("%w: %v", ErrContainerFailed, r)
		}
	}()
	return p.Assemble(c), nil
}

// Assemble runs every extractor against c. It returns nil when the name is
// unresolved, the only condition that rejects a container.
func (p *ListingParser) Assemble(c *Container) *models.Product {
	name := p.extractName(c)
	if !name.Found {
		return nil
	}

	brand := p.extractBrand(name.Value, c.Text)
	price := p.extractPrice(c)

	product := &models.Product{
		Brand:         brand.Value,
		Name:          name.Value,
		CurrentPrice:  price.Current,
		OriginalPrice: price.Original,
		Discount:      price.Discount,
		ImageURL:      p.extractImage(c).Ptr(),
		ProductURL:    p.extractURL(c).Ptr(),
		Category:      p.extractCategory(name.Value).Value,
		ScrapedAt:     p.now(),
	}
	product.ID = product.StableID()

	return product
}

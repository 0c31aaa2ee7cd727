package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// UnknownBrand is assigned when no brand could be recognised.
	UnknownBrand = "Other"
	// DefaultCategory is the catalog-wide bucket for unclassified boards.
	DefaultCategory = "Snowboards"
)

type Product struct {
	ID            string    `json:"id"`
	Brand         string    `json:"brand"`
	Name          string    `json:"name"`
	CurrentPrice  *float64  `json:"current_price"`
	OriginalPrice *float64  `json:"original_price"`
	Discount      *int      `json:"discount"`
	ImageURL      *string   `json:"image_url"`
	ProductURL    *string   `json:"product_url"`
	Category      string    `json:"category"`
	ScrapedAt     time.Time `json:"scraped_at"`
}

// IdentityKey is the deduplication key: brand, name and current price,
// case-folded and whitespace-collapsed.
func (p *Product) IdentityKey() string {
	price := ""
	if p.CurrentPrice != nil {
		price = fmt.Sprintf("%.2f", *p.CurrentPrice)
	}
	return strings.Join([]string{
		strings.ToLower(strings.TrimSpace(p.Brand)),
		strings.ToLower(strings.Join(strings.Fields(p.Name), " ")),
		price,
	}, "|")
}

// StableID derives a deterministic record id from the identity key.
func (p *Product) StableID() string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(p.IdentityKey())).String()
}

func (p *Product) DiscountLabel() string {
	if p.Discount == nil {
		return ""
	}
	return fmt.Sprintf("%d%%", *p.Discount)
}

func (p *Product) Validate() []string {
	var errors []string

	if strings.TrimSpace(p.Name) == "" {
		errors = append(errors, "Name is required")
	}

	if p.Brand == "" {
		errors = append(errors, "Brand is required")
	}

	if p.CurrentPrice != nil && p.OriginalPrice != nil && *p.CurrentPrice > *p.OriginalPrice {
		errors = append(errors, "Current price exceeds original price")
	}

	if p.Discount != nil && (p.CurrentPrice == nil || p.OriginalPrice == nil) {
		errors = append(errors, "Discount without both prices")
	}

	return errors
}

// Catalog is the envelope persisted after every run.
type Catalog struct {
	RunID        string            `json:"run_id"`
	Source       string            `json:"source"`
	LastUpdated  time.Time         `json:"last_updated"`
	ProductCount int               `json:"product_count"`
	BrandCount   int               `json:"brand_count"`
	Products     []*Product        `json:"products"`
	Images       map[string]string `json:"images,omitempty"`
}

func NewCatalog(source string, products []*Product) *Catalog {
	if products == nil {
		products = make([]*Product, 0)
	}
	return &Catalog{
		RunID:        uuid.New().String(),
		Source:       source,
		LastUpdated:  time.Now(),
		ProductCount: len(products),
		BrandCount:   len(Brands(products)),
		Products:     products,
	}
}

// Brands returns the distinct brands of products, sorted.
func Brands(products []*Product) []string {
	seen := make(map[string]struct{})
	for _, p := range products {
		seen[p.Brand] = struct{}{}
	}

	brands := make([]string, 0, len(seen))
	for b := range seen {
		brands = append(brands, b)
	}
	sort.Strings(brands)
	return brands
}

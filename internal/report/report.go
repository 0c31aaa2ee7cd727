// Package report renders the static HTML dashboard of a catalog.
package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/maltedev/snowboard-monitor/internal/models"
)

const (
	// MaxCards bounds the number of product cards on the dashboard.
	MaxCards = 50
	// PlaceholderImage is shown for products without an image.
	PlaceholderImage = "https://via.placeholder.com/300x200?text=No+Image"
	FileName         = "index.html"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

var dashboard = template.Must(template.ParseFS(templateFS, "templates/dashboard.html"))

type card struct {
	Brand    string
	Name     string
	Category string
	Price    string
	Original string
	Discount string
	Image    string
	URL      string
	Search   string
}

type view struct {
	ProductCount int
	BrandCount   int
	LastUpdated  string
	Source       string
	Cards        []card
	Hidden       bool
}

// Render writes the dashboard for c. Products are shown in catalog order;
// downloaded images are preferred over remote ones.
func Render(w io.Writer, c *models.Catalog) error {
	if c == nil {
		c = models.NewCatalog("", nil)
	}

	v := view{
		ProductCount: c.ProductCount,
		BrandCount:   c.BrandCount,
		LastUpdated:  c.LastUpdated.Format("2006-01-02 15:04"),
		Source:       c.Source,
	}

	products := c.Products
	if len(products) > MaxCards {
		products = products[:MaxCards]
		v.Hidden = true
	}

	for _, p := range products {
		v.Cards = append(v.Cards, newCard(p, c.Images))
	}

	return dashboard.Execute(w, v)
}

// WriteFile renders the dashboard to dir/index.html.
func WriteFile(dir string, c *models.Catalog) (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, c); err != nil {
		return "", fmt.Errorf("failed to render dashboard: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write dashboard: %w", err)
	}
	return path, nil
}

func newCard(p *models.Product, images map[string]string) card {
	c := card{
		Brand:    p.Brand,
		Name:     p.Name,
		Category: p.Category,
		Price:    money(p.CurrentPrice),
		Discount: p.DiscountLabel(),
		Image:    PlaceholderImage,
		Search:   strings.ToLower(p.Brand + " " + p.Name),
	}

	// original price only makes sense next to a lower current price
	if p.OriginalPrice != nil && (p.CurrentPrice == nil || *p.OriginalPrice > *p.CurrentPrice) {
		c.Original = money(p.OriginalPrice)
	}

	if local, ok := images[p.ID]; ok && local != "" {
		c.Image = local
	} else if p.ImageURL != nil && *p.ImageURL != "" {
		c.Image = *p.ImageURL
	}

	if p.ProductURL != nil {
		c.URL = *p.ProductURL
	}
	return c
}

func money(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("$%.2f", *v)
}

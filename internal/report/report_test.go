package report

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/snowboard-monitor/internal/models"
)

func ptr[T any](v T) *T { return &v }

func sampleCatalog() *models.Catalog {
	products := []*models.Product{
		{
			ID:            "a",
			Brand:         "Burton",
			Name:          "Custom X",
			CurrentPrice:  ptr(899.99),
			OriginalPrice: ptr(999.99),
			Discount:      ptr(10),
			ImageURL:      ptr("https://cdn.example.com/custom.jpg"),
			ProductURL:    ptr("https://snowboards.com/p/custom-x"),
			Category:      "All-Mountain",
		},
		{
			ID:       "b",
			Brand:    models.UnknownBrand,
			Name:     "Park <Twin>",
			Category: "Freestyle",
		},
	}
	c := models.NewCatalog("https://snowboards.com", products)
	c.LastUpdated = time.Date(2026, 1, 15, 8, 30, 0, 0, time.UTC)
	return c
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleCatalog()))
	html := buf.String()

	assert.Contains(t, html, "2026-01-15 08:30")
	assert.Contains(t, html, "https://snowboards.com")
	assert.Contains(t, html, `<span class="price">$899.99</span>`)
	assert.Contains(t, html, `<span class="original">$999.99</span>`)
	assert.Contains(t, html, `<span class="badge">-10%</span>`)
	assert.Contains(t, html, `src="https://cdn.example.com/custom.jpg"`)
	assert.Contains(t, html, "Park &lt;Twin&gt;")
	assert.NotContains(t, html, "Park <Twin>")
	assert.Contains(t, html, PlaceholderImage[:30])
	assert.Contains(t, html, `id="search"`)
	assert.NotContains(t, html, "Showing")
}

func TestRenderPrefersLocalImages(t *testing.T) {
	c := sampleCatalog()
	c.Images = map[string]string{"a": "images/a.jpg"}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, c))

	assert.Contains(t, buf.String(), `src="images/a.jpg"`)
	assert.NotContains(t, buf.String(), "cdn.example.com")
}

func TestRenderLimitsCards(t *testing.T) {
	products := make([]*models.Product, 0, MaxCards+10)
	for i := 0; i < MaxCards+10; i++ {
		products = append(products, &models.Product{
			ID:       fmt.Sprintf("id-%d", i),
			Brand:    "Burton",
			Name:     fmt.Sprintf("Board %d", i),
			Category: models.DefaultCategory,
		})
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, models.NewCatalog("test", products)))

	assert.Equal(t, MaxCards, strings.Count(buf.String(), `<div class="card"`))
	assert.Contains(t, buf.String(), fmt.Sprintf("Showing %d of %d products", MaxCards, MaxCards+10))
}

func TestRenderNilCatalog(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, nil))
	assert.Contains(t, buf.String(), "Snowboard Monitor")
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteFile(dir, sampleCatalog())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Custom X")
}

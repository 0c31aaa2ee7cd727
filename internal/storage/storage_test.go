package storage

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/snowboard-monitor/internal/models"
)

func ptr[T any](v T) *T { return &v }

func sampleCatalog() *models.Catalog {
	scrapedAt := time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)
	products := []*models.Product{
		{
			ID:            "a",
			Brand:         "Burton",
			Name:          "Burton Custom X Snowboard",
			CurrentPrice:  ptr(899.99),
			OriginalPrice: ptr(999.99),
			Discount:      ptr(10),
			ImageURL:      ptr("https://snowboards.com/images/custom-x.jpg"),
			ProductURL:    ptr("https://snowboards.com/products/burton-custom-x"),
			Category:      models.DefaultCategory,
			ScrapedAt:     scrapedAt,
		},
		{
			ID:           "b",
			Brand:        models.UnknownBrand,
			Name:         "Unbranded Park Twin",
			CurrentPrice: ptr(450.0),
			Category:     "Freestyle",
			ScrapedAt:    scrapedAt,
		},
	}
	return models.NewCatalog("https://snowboards.com/products/2672/equipment-snowboards", products)
}

func TestStoreSaveAndReload(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "data")
	webDir := filepath.Join(t.TempDir(), "web")

	store, err := New(dataDir, webDir)
	require.NoError(t, err)

	_, err = store.Current()
	assert.ErrorIs(t, err, ErrNoCatalog)

	catalog := sampleCatalog()
	require.NoError(t, store.SaveCatalog(catalog))
	require.NoError(t, store.SaveFeed(catalog))

	current, err := store.Current()
	require.NoError(t, err)
	assert.Same(t, catalog, current)

	reopened, err := New(dataDir, webDir)
	require.NoError(t, err)
	loaded, err := reopened.Current()
	require.NoError(t, err)

	assert.Equal(t, catalog.RunID, loaded.RunID)
	assert.Equal(t, 2, loaded.ProductCount)
	require.Len(t, loaded.Products, 2)
	assert.Equal(t, catalog.Products[0].CurrentPrice, loaded.Products[0].CurrentPrice)
	assert.Nil(t, loaded.Products[1].Discount)

	feed, err := ReadCatalog(store.FeedPath())
	require.NoError(t, err)
	assert.Equal(t, catalog.RunID, feed.RunID)
}

func TestCatalogJSONShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), CatalogFile)
	require.NoError(t, WriteJSON(path, sampleCatalog()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "last_updated")
	assert.Equal(t, float64(2), raw["product_count"])

	products := raw["products"].([]any)
	twin := products[1].(map[string]any)
	assert.Nil(t, twin["original_price"])
	assert.Nil(t, twin["discount"])
	assert.Nil(t, twin["image_url"])
	assert.Equal(t, "Other", twin["brand"])
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), CSVFile)
	require.NoError(t, WriteCSV(path, sampleCatalog().Products))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{
		"a", "Burton", "Burton Custom X Snowboard", "899.99", "999.99", "10%",
		"Snowboards", "https://snowboards.com/images/custom-x.jpg",
		"https://snowboards.com/products/burton-custom-x", "2026-01-15T09:30:00Z",
	}, rows[1])
	assert.Equal(t, "", rows[2][4])
	assert.Equal(t, "", rows[2][5])
}

func TestWriteAtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", FeedFile)

	require.NoError(t, WriteJSON(path, sampleCatalog()))
	require.NoError(t, WriteJSON(path, sampleCatalog()))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, FeedFile, entries[0].Name())
}

func TestReadCatalogErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadCatalog(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, ErrNoCatalog)

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte("{not json"), 0o644))
	_, err = ReadCatalog(broken)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoCatalog)
}

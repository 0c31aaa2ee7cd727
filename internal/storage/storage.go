package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/maltedev/snowboard-monitor/internal/models"
)

const (
	CatalogFile = "snowboards.json"
	CSVFile     = "snowboards.csv"
	FeedFile    = "data.json"
)

var ErrNoCatalog = errors.New("no catalog stored yet")

var csvHeader = []string{
	"id", "brand", "name", "current_price", "original_price", "discount",
	"category", "image_url", "product_url", "scraped_at",
}

// Store keeps the latest catalog on disk and in memory. The catalog file and
// the CSV export live in dataDir, the dashboard feed in webDir.
type Store struct {
	mu      sync.RWMutex
	dataDir string
	webDir  string
	current *models.Catalog
}

func New(dataDir, webDir string) (*Store, error) {
	for _, dir := range []string{dataDir, webDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	s := &Store{dataDir: dataDir, webDir: webDir}

	// Load existing data if file exists
	if err := s.Load(); err != nil && !errors.Is(err, ErrNoCatalog) {
		return nil, err
	}

	return s, nil
}

func (s *Store) CatalogPath() string { return filepath.Join(s.dataDir, CatalogFile) }
func (s *Store) CSVPath() string     { return filepath.Join(s.dataDir, CSVFile) }
func (s *Store) FeedPath() string    { return filepath.Join(s.webDir, FeedFile) }

// SaveCatalog persists c as the catalog file and makes it the current one.
func (s *Store) SaveCatalog(c *models.Catalog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := WriteJSON(s.CatalogPath(), c); err != nil {
		return err
	}
	s.current = c
	return nil
}

func (s *Store) SaveCSV(c *models.Catalog) error {
	return WriteCSV(s.CSVPath(), c.Products)
}

// SaveFeed writes the catalog next to the dashboard so it can be served as
// a static file.
func (s *Store) SaveFeed(c *models.Catalog) error {
	return WriteJSON(s.FeedPath(), c)
}

func (s *Store) Current() (*models.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil, ErrNoCatalog
	}
	return s.current, nil
}

func (s *Store) Load() error {
	c, err := ReadCatalog(s.CatalogPath())
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.current = c
	s.mu.Unlock()
	return nil
}

// ReadCatalog decodes a catalog file. A missing file is ErrNoCatalog.
func ReadCatalog(path string) (*models.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCatalog
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var c models.Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if c.Products == nil {
		c.Products = make([]*models.Product, 0)
	}
	return &c, nil
}

func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return writeAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

func WriteCSV(path string, products []*models.Product) error {
	return writeAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(csvHeader); err != nil {
			return err
		}
		for _, p := range products {
			if err := cw.Write(csvRow(p)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

func csvRow(p *models.Product) []string {
	return []string{
		p.ID,
		p.Brand,
		p.Name,
		formatPrice(p.CurrentPrice),
		formatPrice(p.OriginalPrice),
		p.DiscountLabel(),
		p.Category,
		deref(p.ImageURL),
		deref(p.ProductURL),
		p.ScrapedAt.Format(time.RFC3339),
	}
}

func formatPrice(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// writeAtomic writes to a temp file in the target directory first and renames
// it into place.
func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, path)
}

// Package monitor runs the scrape and hands the result to every output:
// catalog files, images, database, event stream and dashboard.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/snowboard-monitor/internal/models"
	"github.com/maltedev/snowboard-monitor/internal/observability"
	"github.com/maltedev/snowboard-monitor/internal/report"
	"github.com/maltedev/snowboard-monitor/internal/scraper"
)

// ErrNoProducts is returned when a run collected nothing. The previous
// catalog is left in place.
var ErrNoProducts = errors.New("run collected no products")

type Scraper interface {
	Run(ctx context.Context) (*scraper.RunResult, error)
}

type CatalogStore interface {
	SaveCatalog(c *models.Catalog) error
	SaveCSV(c *models.Catalog) error
	SaveFeed(c *models.Catalog) error
}

type ImageDownloader interface {
	Download(ctx context.Context, products []*models.Product) (map[string]string, error)
}

type ProductRepository interface {
	UpsertProducts(ctx context.Context, runID string, products []*models.Product) ([]string, error)
}

type EventPublisher interface {
	PublishNew(ctx context.Context, products []*models.Product) (int, error)
}

// Options wires the collaborators. Scraper and Store are required; the
// others are skipped when nil.
type Options struct {
	Scraper   Scraper
	Store     CatalogStore
	Images    ImageDownloader
	Database  ProductRepository
	Events    EventPublisher
	Source    string
	ReportDir string
	Metrics   *observability.Metrics
	Logger    *slog.Logger
}

// Summary describes one completed run
type Summary struct {
	RunID       string
	Products    int
	Brands      int
	Pages       int
	StopReason  string
	Images      int
	NewProducts int
	Published   int
	ReportPath  string
	Duration    time.Duration
}

type Monitor struct {
	scraper   Scraper
	store     CatalogStore
	images    ImageDownloader
	database  ProductRepository
	events    EventPublisher
	source    string
	reportDir string
	metrics   *observability.Metrics
	logger    *slog.Logger
}

func New(opts Options) (*Monitor, error) {
	if opts.Scraper == nil {
		return nil, fmt.Errorf("scraper is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Monitor{
		scraper:   opts.Scraper,
		store:     opts.Store,
		images:    opts.Images,
		database:  opts.Database,
		events:    opts.Events,
		source:    opts.Source,
		reportDir: opts.ReportDir,
		metrics:   opts.Metrics,
		logger:    logger.With("component", "monitor"),
	}, nil
}

// RunOnce scrapes the catalog and publishes it. Only a cancelled scrape, an
// empty result or a failure to save the catalog file fail the run; the
// other outputs are logged and skipped on error.
func (m *Monitor) RunOnce(ctx context.Context) (*Summary, error) {
	start := time.Now()

	result, err := m.scraper.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("scrape failed: %w", err)
	}
	if len(result.Products) == 0 {
		m.logger.Warn("scrape returned no products, keeping previous catalog", "reason", result.StopReason)
		return nil, ErrNoProducts
	}

	catalog := models.NewCatalog(m.source, result.Products)
	summary := &Summary{
		RunID:      catalog.RunID,
		Products:   catalog.ProductCount,
		Brands:     catalog.BrandCount,
		Pages:      result.Pages,
		StopReason: result.StopReason,
	}
	logger := m.logger.With("run_id", catalog.RunID)

	if m.images != nil {
		images, err := m.images.Download(ctx, catalog.Products)
		if err != nil {
			logger.Warn("image download incomplete", "error", err)
		}
		catalog.Images = images
		summary.Images = len(images)
	}

	if err := m.store.SaveCatalog(catalog); err != nil {
		return nil, fmt.Errorf("failed to save catalog: %w", err)
	}
	if err := m.store.SaveCSV(catalog); err != nil {
		logger.Error("failed to save csv", "error", err)
	}
	if err := m.store.SaveFeed(catalog); err != nil {
		logger.Error("failed to save feed", "error", err)
	}

	if m.database != nil {
		newIDs, err := m.database.UpsertProducts(ctx, catalog.RunID, catalog.Products)
		if err != nil {
			logger.Error("failed to store products", "error", err)
		}
		summary.NewProducts = len(newIDs)
	}

	if m.events != nil {
		published, err := m.events.PublishNew(ctx, catalog.Products)
		if err != nil {
			logger.Error("failed to publish events", "error", err)
		}
		summary.Published = published
	}

	if m.reportDir != "" {
		path, err := report.WriteFile(m.reportDir, catalog)
		if err != nil {
			logger.Error("failed to write dashboard", "error", err)
		}
		summary.ReportPath = path
	}

	summary.Duration = time.Since(start)
	m.metrics.RunCompleted(summary.Duration, summary.Products)

	logger.Info("run completed",
		"products", summary.Products,
		"brands", summary.Brands,
		"pages", summary.Pages,
		"stop_reason", summary.StopReason,
		"images", summary.Images,
		"new_products", summary.NewProducts,
		"published", summary.Published,
		"duration", summary.Duration,
	)

	return summary, nil
}

// Serve runs immediately and then on every interval until ctx is cancelled.
func (m *Monitor) Serve(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		_, err := m.RunOnce(ctx)
		switch {
		case err == nil, errors.Is(err, ErrNoProducts):
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			m.logger.Error("run failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maltedev/snowboard-monitor/internal/browser"
	"github.com/maltedev/snowboard-monitor/internal/config"
	"github.com/maltedev/snowboard-monitor/internal/database"
	"github.com/maltedev/snowboard-monitor/internal/events"
	"github.com/maltedev/snowboard-monitor/internal/images"
	"github.com/maltedev/snowboard-monitor/internal/logger"
	"github.com/maltedev/snowboard-monitor/internal/monitor"
	"github.com/maltedev/snowboard-monitor/internal/observability"
	"github.com/maltedev/snowboard-monitor/internal/parser"
	"github.com/maltedev/snowboard-monitor/internal/ratelimit"
	"github.com/maltedev/snowboard-monitor/internal/scraper"
	"github.com/maltedev/snowboard-monitor/internal/storage"
)

// app holds the collaborators shared by all commands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	store   *storage.Store
	db      *database.DB
	closers []func()
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	store, err := storage.New(cfg.Output.DataDir, cfg.Output.WebDir)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		logger:  log,
		metrics: observability.New(nil),
		store:   store,
	}, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// database connects and migrates once; nil when no database is configured.
func (a *app) database(ctx context.Context) (*database.DB, error) {
	if a.db != nil || !a.cfg.Database.Enabled() {
		return a.db, nil
	}

	db, err := database.New(ctx, database.Config{
		Host:     a.cfg.Database.Host,
		Port:     a.cfg.Database.Port,
		User:     a.cfg.Database.User,
		Password: a.cfg.Database.Password,
		Database: a.cfg.Database.DBName,
		SSLMode:  a.cfg.Database.SSLMode,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)

	if err := db.Migrate(ctx); err != nil {
		return nil, err
	}

	a.db = db
	return db, nil
}

func (a *app) parser() (*parser.ListingParser, error) {
	opts := parser.Options{
		BaseURL: a.cfg.Scraper.BaseURL,
		Logger:  a.logger,
	}
	if len(a.cfg.Scraper.Brands) > 0 {
		brands := parser.BrandVocabulary(a.cfg.Scraper.Brands...)
		opts.Brands = &brands
	}
	return parser.New(opts)
}

func (a *app) pageSource() (scraper.PageSource, error) {
	sc := a.cfg.Scraper

	if sc.Fetcher == config.FetcherBrowser {
		opts := browser.DefaultOptions()
		opts.Headless = a.cfg.Browser.Headless
		opts.Timeout = a.cfg.Browser.Timeout
		opts.MaxRetries = sc.MaxRetries + 1
		opts.ViewportWidth = a.cfg.Browser.ViewportWidth
		opts.ViewportHeight = a.cfg.Browser.ViewportHeight
		opts.AcceptLanguage = a.cfg.Browser.AcceptLanguage
		opts.TimezoneID = a.cfg.Browser.TimezoneID
		opts.Locale = a.cfg.Browser.Locale
		opts.Logger = a.logger
		if len(sc.UserAgents) > 0 {
			opts.UserAgent = sc.UserAgents[0]
		}

		b, err := browser.New(opts)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			if err := b.Close(); err != nil {
				a.logger.Warn("failed to close browser", "error", err)
			}
		})
		return scraper.NewBrowserSource(b, sc.ListingURL)
	}

	return scraper.NewHTTPSource(scraper.HTTPOptions{
		ListingURL: sc.ListingURL,
		UserAgents: sc.UserAgents,
		Timeout:    sc.Timeout,
		MaxRetries: sc.MaxRetries,
		RetryDelay: sc.RetryDelay,
		Logger:     a.logger,
	})
}

// monitor wires the full pipeline from the configuration.
func (a *app) monitor(ctx context.Context) (*monitor.Monitor, error) {
	p, err := a.parser()
	if err != nil {
		return nil, err
	}

	source, err := a.pageSource()
	if err != nil {
		return nil, err
	}

	opts := monitor.Options{
		Scraper: scraper.NewCatalogScraper(source, p, scraper.Options{
			MaxPages: a.cfg.Scraper.MaxPages,
			Limiter:  ratelimit.NewAdaptiveLimiter(a.cfg.Scraper.RateLimitMin, a.cfg.Scraper.RateLimitMax),
			Metrics:  a.metrics,
			Logger:   a.logger,
		}),
		Store:     a.store,
		Source:    a.cfg.Scraper.ListingURL,
		ReportDir: a.cfg.Output.WebDir,
		Metrics:   a.metrics,
		Logger:    a.logger,
	}

	if a.cfg.Output.DownloadImages {
		ua := ""
		if len(a.cfg.Scraper.UserAgents) > 0 {
			ua = a.cfg.Scraper.UserAgents[0]
		}
		opts.Images = images.New(images.Options{
			Dir:         a.cfg.Output.ImagesDir,
			Concurrency: a.cfg.Output.ImageConcurrency,
			Rate:        a.cfg.Output.ImageRate,
			Timeout:     a.cfg.Scraper.Timeout,
			UserAgent:   ua,
			Metrics:     a.metrics,
			Logger:      a.logger,
		})
	}

	db, err := a.database(ctx)
	if err != nil {
		return nil, err
	}
	if db != nil {
		opts.Database = db
	}

	if a.cfg.Redis.Enabled() {
		rc := events.Config{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
			Stream:   a.cfg.Redis.Stream,
			SeenSet:  a.cfg.Redis.SeenSet,
		}
		client, err := events.NewClient(ctx, rc)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { client.Close() })
		opts.Events = events.NewPublisher(client, rc, a.logger)
	}

	return monitor.New(opts)
}

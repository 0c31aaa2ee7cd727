package scraper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/maltedev/snowboard-monitor/internal/dedup"
	"github.com/maltedev/snowboard-monitor/internal/models"
	"github.com/maltedev/snowboard-monitor/internal/observability"
	"github.com/maltedev/snowboard-monitor/internal/parser"
	"github.com/maltedev/snowboard-monitor/internal/ratelimit"
)

// Reasons a run stopped paginating.
const (
	StopFetchFailed = "fetch_failed"
	StopEmptyPage   = "empty_page"
	StopParseFailed = "parse_failed"
	StopMaxPages    = "max_pages"
	StopCancelled   = "cancelled"
)

type Options struct {
	// MaxPages caps the pages visited; zero or less means no cap.
	MaxPages int
	Limiter  ratelimit.RateLimiter
	Metrics  *observability.Metrics
	Logger   *slog.Logger
}

// RunResult is the outcome of one catalog run. Products are deduplicated and
// in first-seen order.
type RunResult struct {
	Products   []*models.Product
	Pages      int
	Containers int
	Skipped    int
	Duplicates int
	StopReason string
	StartedAt  time.Time
	Duration   time.Duration
}

// CatalogScraper walks the listing pages in order and collects the product
// records of all of them.
type CatalogScraper struct {
	source   PageSource
	parser   parser.Parser
	maxPages int
	limiter  ratelimit.RateLimiter
	metrics  *observability.Metrics
	logger   *slog.Logger
}

type feedbackLimiter interface {
	RecordSuccess()
	RecordError()
}

func NewCatalogScraper(source PageSource, p parser.Parser, opts Options) *CatalogScraper {
	s := &CatalogScraper{
		source:   source,
		parser:   p,
		maxPages: opts.MaxPages,
		limiter:  opts.Limiter,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}
	if s.limiter == nil {
		s.limiter = ratelimit.Unlimited{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "catalog_scraper")
	return s
}

// Run fetches page 1, 2, ... until a page cannot be fetched, a page has no
// product containers or the page cap is reached. Those conditions end the run
// normally with whatever was collected; only cancellation of ctx is returned
// as an error, together with the partial result.
func (s *CatalogScraper) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{StartedAt: time.Now()}
	seen := dedup.New()

	finish := func(reason string) {
		result.StopReason = reason
		result.Products = seen.Records()
		result.Duplicates = seen.Dropped()
		result.Duration = time.Since(result.StartedAt)
		s.logger.Info("catalog run finished",
			"reason", reason,
			"pages", result.Pages,
			"products", len(result.Products),
			"duplicates", result.Duplicates,
			"duration", result.Duration,
		)
	}

	s.logger.Info("starting catalog run", "max_pages", s.maxPages)

	for page := 1; ; page++ {
		if s.maxPages > 0 && page > s.maxPages {
			finish(StopMaxPages)
			return result, nil
		}

		if err := s.limiter.Wait(ctx); err != nil {
			finish(StopCancelled)
			return result, err
		}

		html, err := s.source.FetchPage(ctx, page)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				finish(StopCancelled)
				return result, ctx.Err()
			}
			s.metrics.PageFailed()
			s.recordError()
			s.logger.Warn("page fetch failed, stopping", "page", page, "error", err)
			finish(StopFetchFailed)
			return result, nil
		}

		pageResult, err := s.parser.ParsePage(html)
		if err != nil {
			s.logger.Warn("page parse failed, stopping", "page", page, "error", err)
			finish(StopParseFailed)
			return result, nil
		}

		if pageResult.Containers == 0 {
			s.logger.Info("no product containers on page", "page", page)
			finish(StopEmptyPage)
			return result, nil
		}

		dropped := seen.Dropped()
		kept := seen.AddAll(pageResult.Products)
		dropped = seen.Dropped() - dropped
		skipped := pageResult.Unresolved + pageResult.Failed

		result.Pages++
		result.Containers += pageResult.Containers
		result.Skipped += skipped
		s.metrics.ObservePage(pageResult.Containers, skipped, kept, dropped)
		s.recordSuccess()

		s.logger.Info("page parsed",
			"page", page,
			"strategy", pageResult.Strategy,
			"containers", pageResult.Containers,
			"records", kept,
			"duplicates", dropped,
		)
	}
}

func (s *CatalogScraper) recordSuccess() {
	if l, ok := s.limiter.(feedbackLimiter); ok {
		l.RecordSuccess()
	}
}

func (s *CatalogScraper) recordError() {
	if l, ok := s.limiter.(feedbackLimiter); ok {
		l.RecordError()
	}
}

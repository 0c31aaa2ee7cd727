package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
)

type HTTPOptions struct {
	ListingURL string
	UserAgents []string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	Logger     *slog.Logger
}

// HTTPSource fetches listing pages with plain HTTP requests. Transport errors,
// 429 and 5xx responses are retried with backoff.
type HTTPSource struct {
	client     *resty.Client
	listingURL string
	userAgents []string
	next       atomic.Uint32
	logger     *slog.Logger
}

func NewHTTPSource(opts HTTPOptions) (*HTTPSource, error) {
	if _, err := PageURL(opts.ListingURL, 1); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "http_source")

	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 100 * time.Millisecond
	}

	client := resty.New()
	client.SetTimeout(opts.Timeout)
	client.SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	client.SetHeader("Accept-Language", "en-US,en;q=0.9")
	client.SetRetryCount(opts.MaxRetries)
	client.SetRetryWaitTime(retryDelay)
	client.SetRetryMaxWaitTime(4 * retryDelay)
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil || r == nil {
			return true
		}
		return r.StatusCode() == 429 || r.StatusCode() >= 500
	})
	client.AddRetryHook(func(r *resty.Response, err error) {
		if r == nil {
			logger.Warn("retrying page request", "error", err)
			return
		}
		logger.Warn("retrying page request", "url", r.Request.URL, "status", r.StatusCode(), "error", err)
	})

	return &HTTPSource{
		client:     client,
		listingURL: opts.ListingURL,
		userAgents: opts.UserAgents,
		logger:     logger,
	}, nil
}

func (s *HTTPSource) FetchPage(ctx context.Context, page int) (string, error) {
	pageURL, err := PageURL(s.listingURL, page)
	if err != nil {
		return "", err
	}

	req := s.client.R().SetContext(ctx)
	if ua := s.userAgent(); ua != "" {
		req.SetHeader("User-Agent", ua)
	}

	resp, err := req.Get(pageURL)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: page %d: %v", ErrPageUnavailable, page, err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("%w: page %d: status %d", ErrPageUnavailable, page, resp.StatusCode())
	}

	s.logger.Debug("fetched page", "page", page, "url", pageURL, "bytes", len(resp.Body()))
	return resp.String(), nil
}

func (s *HTTPSource) userAgent() string {
	if len(s.userAgents) == 0 {
		return ""
	}
	i := s.next.Add(1) - 1
	return s.userAgents[int(i)%len(s.userAgents)]
}

// Renderer loads a URL in a real browser and returns the rendered markup.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// BrowserSource fetches listing pages through a Renderer, for listings that
// only fill in products with JavaScript.
type BrowserSource struct {
	renderer   Renderer
	listingURL string
}

func NewBrowserSource(renderer Renderer, listingURL string) (*BrowserSource, error) {
	if _, err := PageURL(listingURL, 1); err != nil {
		return nil, err
	}
	return &BrowserSource{renderer: renderer, listingURL: listingURL}, nil
}

func (s *BrowserSource) FetchPage(ctx context.Context, page int) (string, error) {
	pageURL, err := PageURL(s.listingURL, page)
	if err != nil {
		return "", err
	}

	content, err := s.renderer.Render(ctx, pageURL)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: page %d: %w", ErrPageUnavailable, page, err)
	}
	return content, nil
}

var (
	_ PageSource = (*HTTPSource)(nil)
	_ PageSource = (*BrowserSource)(nil)
)

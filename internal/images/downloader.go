// Package images mirrors product images into a local directory.
package images

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"

	"github.com/maltedev/snowboard-monitor/internal/models"
	"github.com/maltedev/snowboard-monitor/internal/observability"
	"github.com/maltedev/snowboard-monitor/internal/ratelimit"
)

// URLPrefix is the path under which downloaded images are served.
const URLPrefix = "images/"

const (
	resultDownloaded = "downloaded"
	resultCached     = "cached"
	resultFailed     = "failed"
)

var knownExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true, ".avif": true,
}

type Options struct {
	Dir         string
	Concurrency int
	// Rate is the number of downloads started per second.
	Rate      float64
	Timeout   time.Duration
	UserAgent string
	Metrics   *observability.Metrics
	Logger    *slog.Logger
}

type Downloader struct {
	client      *resty.Client
	dir         string
	concurrency int
	limiter     ratelimit.RateLimiter
	metrics     *observability.Metrics
	logger      *slog.Logger
}

func New(opts Options) *Downloader {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	var limiter ratelimit.RateLimiter = ratelimit.Unlimited{}
	if opts.Rate > 0 {
		limiter = ratelimit.NewTokenBucket(opts.Rate, opts.Concurrency)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := resty.New().SetTimeout(opts.Timeout)
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}

	return &Downloader{
		client:      client,
		dir:         opts.Dir,
		concurrency: opts.Concurrency,
		limiter:     limiter,
		metrics:     opts.Metrics,
		logger:      logger.With("component", "image_downloader"),
	}
}

// Download fetches the image of every product that has one and returns the
// local path of each stored image, keyed by product id. Images already on
// disk are not fetched again. Individual failures are logged and skipped;
// only cancellation of ctx is returned.
func (d *Downloader) Download(ctx context.Context, products []*models.Product) (map[string]string, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image dir: %w", err)
	}

	var mu sync.Mutex
	stored := make(map[string]string)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	for _, p := range products {
		if p.ImageURL == nil || p.ID == "" {
			continue
		}
		id, imageURL := p.ID, *p.ImageURL

		g.Go(func() error {
			name, err := d.fetch(gctx, id, imageURL)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				d.metrics.ImageResult(resultFailed)
				d.logger.Warn("image download failed", "id", id, "url", imageURL, "error", err)
				return nil
			}

			mu.Lock()
			stored[id] = URLPrefix + name
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return stored, err
	}

	d.logger.Info("images stored", "count", len(stored))
	return stored, nil
}

func (d *Downloader) fetch(ctx context.Context, id, imageURL string) (string, error) {
	name := FileName(id, imageURL)
	target := filepath.Join(d.dir, name)

	if info, err := os.Stat(target); err == nil && info.Size() > 0 {
		d.metrics.ImageResult(resultCached)
		return name, nil
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return "", err
	}

	resp, err := d.client.R().SetContext(ctx).Get(imageURL)
	if err != nil {
		return "", err
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("status %d", resp.StatusCode())
	}
	if ct := resp.Header().Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return "", fmt.Errorf("unexpected content type %q", ct)
	}
	if len(resp.Body()) == 0 {
		return "", fmt.Errorf("empty body")
	}

	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, resp.Body(), 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return "", err
	}

	d.metrics.ImageResult(resultDownloaded)
	return name, nil
}

// FileName is the local file name of a product image: the product id plus
// the extension of the image URL, ".jpg" when it has no usable one.
func FileName(id, imageURL string) string {
	ext := ".jpg"
	if u, err := url.Parse(imageURL); err == nil {
		if e := strings.ToLower(path.Ext(u.Path)); knownExtensions[e] {
			ext = e
		}
	}
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	return id + ext
}

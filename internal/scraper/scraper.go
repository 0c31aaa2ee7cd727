package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

var (
	ErrInvalidURL      = errors.New("invalid listing URL")
	ErrPageUnavailable = errors.New("listing page unavailable")
)

// PageSource returns the markup of one listing page, counted from 1.
type PageSource interface {
	FetchPage(ctx context.Context, page int) (string, error)
}

// PageURL builds the URL of a listing page: the first page is requested with
// view=all, later pages additionally carry page=N.
func PageURL(listingURL string, page int) (string, error) {
	u, err := url.Parse(listingURL)
	if err != nil || !u.IsAbs() {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, listingURL)
	}
	if page < 1 {
		return "", fmt.Errorf("%w: page %d", ErrInvalidURL, page)
	}

	q := u.Query()
	q.Del("page")
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	q.Set("view", "all")
	u.RawQuery = q.Encode()

	return u.String(), nil
}

package parser

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://snowboards.com"

func newTestParser(t *testing.T) *ListingParser {
	t.Helper()
	p, err := New(Options{BaseURL: testBaseURL})
	require.NoError(t, err)
	return p
}

func containerFrom(t *testing.T, fragment string) *Container {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body><div id="c">` + fragment + `</div></body></html>`))
	require.NoError(t, err)
	return NewContainer(doc.Find("#c"))
}

func documentFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func ptr[T any](v T) *T {
	return &v
}

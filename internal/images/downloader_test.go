package images

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/snowboard-monitor/internal/models"
)

func imageServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/missing.jpg":
			http.NotFound(w, r)
		case "/page.png":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html></html>"))
		default:
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write([]byte("\xff\xd8\xff\xe0fake-jpeg"))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func product(id, imageURL string) *models.Product {
	p := &models.Product{ID: id, Brand: "Burton", Name: "Burton " + id}
	if imageURL != "" {
		p.ImageURL = &imageURL
	}
	return p
}

func TestDownload(t *testing.T) {
	var hits atomic.Int32
	server := imageServer(t, &hits)
	dir := t.TempDir()

	d := New(Options{Dir: dir, Concurrency: 2})
	stored, err := d.Download(context.Background(), []*models.Product{
		product("custom", server.URL+"/custom.jpeg"),
		product("orca", server.URL+"/orca.webp?w=640"),
		product("missing", server.URL+"/missing.jpg"),
		product("html", server.URL+"/page.png"),
		product("none", ""),
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"custom": "images/custom.jpg",
		"orca":   "images/orca.webp",
	}, stored)
	assert.Equal(t, int32(4), hits.Load())

	data, err := os.ReadFile(filepath.Join(dir, "custom.jpg"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "fake-jpeg")

	_, err = os.Stat(filepath.Join(dir, "missing.jpg"))
	assert.True(t, os.IsNotExist(err))
}

func TestDownloadSkipsExistingFiles(t *testing.T) {
	var hits atomic.Int32
	server := imageServer(t, &hits)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.jpg"), []byte("cached"), 0o644))

	stored, err := New(Options{Dir: dir, Rate: 100}).Download(context.Background(), []*models.Product{
		product("custom", server.URL+"/custom.jpg"),
	})
	require.NoError(t, err)

	assert.Equal(t, "images/custom.jpg", stored["custom"])
	assert.Zero(t, hits.Load())
}

func TestDownloadCancelled(t *testing.T) {
	var hits atomic.Int32
	server := imageServer(t, &hits)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{Dir: t.TempDir()}).Download(ctx, []*models.Product{
		product("custom", server.URL+"/custom.jpg"),
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://cdn.example.com/a/board.PNG", "id.png"},
		{"https://cdn.example.com/a/board.jpeg?v=3", "id.jpg"},
		{"https://cdn.example.com/a/board", "id.jpg"},
		{"https://cdn.example.com/a/board.svg", "id.jpg"},
		{"::bad", "id.jpg"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FileName("id", tt.url), tt.url)
	}
}

package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/maltedev/snowboard-monitor/internal/models"
	"github.com/maltedev/snowboard-monitor/internal/report"
	"github.com/maltedev/snowboard-monitor/internal/storage"
)

const (
	defaultLimit = 20
	maxLimit     = 200
)

// CatalogSource provides the latest catalog.
type CatalogSource interface {
	Current() (*models.Catalog, error)
}

type Handlers struct {
	catalogs CatalogSource
	logger   *slog.Logger
}

func NewHandlers(catalogs CatalogSource, logger *slog.Logger) *Handlers {
	return &Handlers{
		catalogs: catalogs,
		logger:   logger,
	}
}

// ProductsResponse is one page of the filtered product list
type ProductsResponse struct {
	Products []*models.Product `json:"products"`
	Total    int               `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
	HasMore  bool              `json:"has_more"`
}

// StatsResponse summarises the current catalog
type StatsResponse struct {
	RunID        string         `json:"run_id"`
	Source       string         `json:"source"`
	LastUpdated  time.Time      `json:"last_updated"`
	ProductCount int            `json:"product_count"`
	BrandCount   int            `json:"brand_count"`
	Discounted   int            `json:"discounted"`
	Brands       map[string]int `json:"brands"`
	Categories   map[string]int `json:"categories"`
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{"status": "ok"}

	if c, err := h.catalogs.Current(); err == nil {
		health["last_updated"] = c.LastUpdated
		health["product_count"] = c.ProductCount
	} else {
		health["status"] = "waiting"
	}

	h.respondJSON(w, http.StatusOK, health)
}

// ListProducts supports brand, category and q filters, sort=name|price|discount
// and limit/offset paging.
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	c, ok := h.currentCatalog(w)
	if !ok {
		return
	}

	query := r.URL.Query()

	limit, err := intParam(query.Get("limit"), defaultLimit)
	if err != nil || limit < 1 {
		h.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset, err := intParam(query.Get("offset"), 0)
	if err != nil || offset < 0 {
		h.respondError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	sortBy := query.Get("sort")
	if sortBy != "" && sortBy != "name" && sortBy != "price" && sortBy != "discount" {
		h.respondError(w, http.StatusBadRequest, "sort must be one of name, price, discount")
		return
	}

	products := filterProducts(c.Products, query.Get("brand"), query.Get("category"), query.Get("q"))
	sortProducts(products, sortBy)

	total := len(products)
	if offset > total {
		offset = total
	}
	end := offset + min(limit, total-offset)

	h.respondJSON(w, http.StatusOK, ProductsResponse{
		Products: products[offset:end],
		Total:    total,
		Limit:    limit,
		Offset:   offset,
		HasMore:  end < total,
	})
}

func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	c, ok := h.currentCatalog(w)
	if !ok {
		return
	}

	stats := StatsResponse{
		RunID:        c.RunID,
		Source:       c.Source,
		LastUpdated:  c.LastUpdated,
		ProductCount: c.ProductCount,
		BrandCount:   c.BrandCount,
		Brands:       make(map[string]int),
		Categories:   make(map[string]int),
	}
	for _, p := range c.Products {
		stats.Brands[p.Brand]++
		stats.Categories[p.Category]++
		if p.Discount != nil {
			stats.Discounted++
		}
	}

	h.respondJSON(w, http.StatusOK, stats)
}

// Feed serves the whole catalog envelope
func (h *Handlers) Feed(w http.ResponseWriter, r *http.Request) {
	c, ok := h.currentCatalog(w)
	if !ok {
		return
	}
	h.respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	c, err := h.catalogs.Current()
	if err != nil && !errors.Is(err, storage.ErrNoCatalog) {
		h.logger.Error("failed to load catalog", "error", err)
		http.Error(w, "failed to load catalog", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.Render(w, c); err != nil {
		h.logger.Error("failed to render dashboard", "error", err)
	}
}

func (h *Handlers) currentCatalog(w http.ResponseWriter) (*models.Catalog, bool) {
	c, err := h.catalogs.Current()
	if err != nil {
		if errors.Is(err, storage.ErrNoCatalog) {
			h.respondError(w, http.StatusServiceUnavailable, "no catalog available yet")
			return nil, false
		}
		h.logger.Error("failed to load catalog", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load catalog")
		return nil, false
	}
	return c, true
}

func filterProducts(products []*models.Product, brand, category, q string) []*models.Product {
	q = strings.ToLower(strings.TrimSpace(q))

	out := make([]*models.Product, 0, len(products))
	for _, p := range products {
		if brand != "" && !strings.EqualFold(p.Brand, brand) {
			continue
		}
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Brand+" "+p.Name), q) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// sortProducts orders by name ascending, price ascending or discount
// descending. Products without the sort value go last.
func sortProducts(products []*models.Product, by string) {
	switch by {
	case "name":
		sort.SliceStable(products, func(i, j int) bool {
			return strings.ToLower(products[i].Name) < strings.ToLower(products[j].Name)
		})
	case "price":
		sort.SliceStable(products, func(i, j int) bool {
			a, b := products[i].CurrentPrice, products[j].CurrentPrice
			if a == nil || b == nil {
				return a != nil
			}
			return *a < *b
		})
	case "discount":
		sort.SliceStable(products, func(i, j int) bool {
			a, b := products[i].Discount, products[j].Discount
			if a == nil || b == nil {
				return a != nil
			}
			return *a > *b
		})
	}
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

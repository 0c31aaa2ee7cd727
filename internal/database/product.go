package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/maltedev/snowboard-monitor/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS snowboards (
	id             TEXT PRIMARY KEY,
	brand          TEXT NOT NULL,
	name           TEXT NOT NULL,
	current_price  DOUBLE PRECISION,
	original_price DOUBLE PRECISION,
	discount       INTEGER,
	image_url      TEXT,
	product_url    TEXT,
	category       TEXT NOT NULL,
	scraped_at     TIMESTAMPTZ NOT NULL,
	last_run_id    TEXT NOT NULL,
	first_seen_at  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_snowboards_brand ON snowboards (brand);
CREATE INDEX IF NOT EXISTS idx_snowboards_category ON snowboards (category);
CREATE INDEX IF NOT EXISTS idx_snowboards_last_run ON snowboards (last_run_id);
`

func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// UpsertProducts stores the records of one run in a single transaction and
// returns the ids that were not in the table before.
func (db *DB) UpsertProducts(ctx context.Context, runID string, products []*models.Product) ([]string, error) {
	query := `
		INSERT INTO snowboards (
			id, brand, name, current_price, original_price, discount,
			image_url, product_url, category, scraped_at, last_run_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			brand = EXCLUDED.brand,
			name = EXCLUDED.name,
			current_price = EXCLUDED.current_price,
			original_price = EXCLUDED.original_price,
			discount = EXCLUDED.discount,
			image_url = EXCLUDED.image_url,
			product_url = EXCLUDED.product_url,
			category = EXCLUDED.category,
			scraped_at = EXCLUDED.scraped_at,
			last_run_id = EXCLUDED.last_run_id,
			updated_at = CURRENT_TIMESTAMP
		RETURNING (xmax = 0) AS inserted`

	var inserted []string
	err := db.WithTx(ctx, func(tx pgx.Tx) error {
		for _, p := range products {
			var isNew bool
			err := tx.QueryRow(ctx, query,
				p.ID, p.Brand, p.Name, p.CurrentPrice, p.OriginalPrice, p.Discount,
				p.ImageURL, p.ProductURL, p.Category, p.ScrapedAt, runID,
			).Scan(&isNew)
			if err != nil {
				return fmt.Errorf("failed to upsert product %s: %w", p.ID, err)
			}
			if isNew {
				inserted = append(inserted, p.ID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return inserted, nil
}

type ListFilter struct {
	Brand    string
	Category string
	RunID    string
	Limit    int
	Offset   int
}

func buildListQuery(f ListFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.Brand != "" {
		add("brand = $%d", f.Brand)
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.RunID != "" {
		add("last_run_id = $%d", f.RunID)
	}

	var sb strings.Builder
	sb.WriteString(`SELECT id, brand, name, current_price, original_price, discount,
		image_url, product_url, category, scraped_at
		FROM snowboards`)
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY brand, name")

	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	return sb.String(), args
}

func (db *DB) ListProducts(ctx context.Context, f ListFilter) ([]*models.Product, error) {
	query, args := buildListQuery(f)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]*models.Product, 0)
	for rows.Next() {
		p := &models.Product{}
		if err := rows.Scan(
			&p.ID, &p.Brand, &p.Name, &p.CurrentPrice, &p.OriginalPrice, &p.Discount,
			&p.ImageURL, &p.ProductURL, &p.Category, &p.ScrapedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

// LastRun returns the id and time of the most recently stored run.
func (db *DB) LastRun(ctx context.Context) (string, time.Time, error) {
	var (
		runID string
		at    time.Time
	)
	err := db.pool.QueryRow(ctx,
		`SELECT last_run_id, MAX(updated_at) FROM snowboards GROUP BY last_run_id ORDER BY MAX(updated_at) DESC LIMIT 1`,
	).Scan(&runID, &at)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to get last run: %w", err)
	}
	return runID, at, nil
}

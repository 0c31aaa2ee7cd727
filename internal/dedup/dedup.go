// Package dedup collapses product records that share an identity key.
package dedup

import "github.com/maltedev/snowboard-monitor/internal/models"

// Deduplicator keeps the first record seen for every identity key. It is
// meant to live for a whole run so duplicates across pages are caught.
type Deduplicator struct {
	seen    map[string]struct{}
	records []*models.Product
	dropped int
}

func New() *Deduplicator {
	return &Deduplicator{seen: make(map[string]struct{})}
}

// Add records p unless a record with the same identity key was added before.
// It reports whether p was kept.
func (d *Deduplicator) Add(p *models.Product) bool {
	if p == nil {
		return false
	}

	key := p.IdentityKey()
	if _, ok := d.seen[key]; ok {
		d.dropped++
		return false
	}
	d.seen[key] = struct{}{}
	d.records = append(d.records, p)
	return true
}

// AddAll adds every record and returns how many were kept.
func (d *Deduplicator) AddAll(products []*models.Product) int {
	kept := 0
	for _, p := range products {
		if d.Add(p) {
			kept++
		}
	}
	return kept
}

// Records returns the kept records in insertion order.
func (d *Deduplicator) Records() []*models.Product {
	out := make([]*models.Product, len(d.records))
	copy(out, d.records)
	return out
}

func (d *Deduplicator) Len() int {
	return len(d.records)
}

// Dropped is the number of duplicates rejected so far.
func (d *Deduplicator) Dropped() int {
	return d.dropped
}

// Dedupe returns products without duplicates. Applying it to its own output
// returns the same sequence.
func Dedupe(products []*models.Product) []*models.Product {
	d := New()
	d.AddAll(products)
	return d.Records()
}

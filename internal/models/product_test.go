package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestIdentityKey(t *testing.T) {
	a := &Product{Brand: "K2", Name: "Paradise  Board", CurrentPrice: ptr(399.0)}
	b := &Product{Brand: "k2", Name: "PARADISE BOARD", CurrentPrice: ptr(399.00)}
	c := &Product{Brand: "K2", Name: "Paradise Board"}

	assert.Equal(t, "k2|paradise board|399.00", a.IdentityKey())
	assert.Equal(t, a.IdentityKey(), b.IdentityKey())
	assert.Equal(t, "k2|paradise board|", c.IdentityKey())
	assert.NotEqual(t, a.IdentityKey(), c.IdentityKey())
}

func TestStableIDIsDeterministic(t *testing.T) {
	a := &Product{Brand: "Burton", Name: "Custom X", CurrentPrice: ptr(899.99)}
	b := &Product{Brand: "BURTON", Name: "custom x", CurrentPrice: ptr(899.99)}

	assert.Equal(t, a.StableID(), b.StableID())
	assert.Len(t, a.StableID(), 36)
}

func TestDiscountLabel(t *testing.T) {
	assert.Equal(t, "", (&Product{}).DiscountLabel())
	assert.Equal(t, "10%", (&Product{Discount: ptr(10)}).DiscountLabel())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		product Product
		errors  int
	}{
		{
			name:    "valid product",
			product: Product{Name: "Custom", Brand: "Burton", CurrentPrice: ptr(1.0), OriginalPrice: ptr(2.0), Discount: ptr(50)},
			errors:  0,
		},
		{
			name:    "missing name and brand",
			product: Product{},
			errors:  2,
		},
		{
			name:    "inverted prices",
			product: Product{Name: "Custom", Brand: "Burton", CurrentPrice: ptr(3.0), OriginalPrice: ptr(2.0)},
			errors:  1,
		},
		{
			name:    "dangling discount",
			product: Product{Name: "Custom", Brand: "Burton", CurrentPrice: ptr(3.0), Discount: ptr(5)},
			errors:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, tt.product.Validate(), tt.errors)
		})
	}
}

func TestNewCatalog(t *testing.T) {
	products := []*Product{
		{Brand: "Burton", Name: "Custom"},
		{Brand: "K2", Name: "Paradise"},
		{Brand: "Burton", Name: "Process"},
	}

	catalog := NewCatalog("snowboards.com", products)

	assert.NotEmpty(t, catalog.RunID)
	assert.Equal(t, "snowboards.com", catalog.Source)
	assert.Equal(t, 3, catalog.ProductCount)
	assert.Equal(t, 2, catalog.BrandCount)
	assert.False(t, catalog.LastUpdated.IsZero())

	empty := NewCatalog("x", nil)
	assert.NotNil(t, empty.Products)
	assert.Equal(t, 0, empty.ProductCount)
}

func TestBrands(t *testing.T) {
	products := []*Product{{Brand: "Rome"}, {Brand: "Burton"}, {Brand: "Rome"}}
	assert.Equal(t, []string{"Burton", "Rome"}, Brands(products))
}

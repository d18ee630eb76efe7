package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a product does not exist or is not active.
var ErrNotFound = errors.New("product not found")

// DefaultTaxPercent is the GST rate applied when a catalog feed omits one.
var DefaultTaxPercent = decimal.NewFromInt(18)

// Product is a catalog item. The catalog owns its lifecycle; the checkout
// pipeline only reads price, tax, stock and the active flag.
type Product struct {
	ID         string
	Barcode    string
	Name       string
	Brand      string
	Category   string
	Price      decimal.Decimal
	TaxPercent decimal.Decimal
	StockCount int
	ImageURL   string
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// InStock reports whether the catalog lists any stock for the product. It is
// a display hint unless the strict stock policy is enabled.
func (p *Product) InStock() bool {
	return p.StockCount > 0
}

// Validate checks the catalog invariants of a product about to be written.
func (p *Product) Validate() error {
	switch {
	case p.ID == "":
		return errors.New("id is required")
	case p.Barcode == "":
		return errors.New("barcode is required")
	case p.Name == "":
		return errors.New("name is required")
	case p.Price.IsNegative():
		return errors.Errorf("price %s is negative", p.Price)
	case p.TaxPercent.IsNegative() || p.TaxPercent.GreaterThan(decimal.NewFromInt(100)):
		return errors.Errorf("tax percent %s is out of range", p.TaxPercent)
	case p.StockCount < 0:
		return errors.Errorf("stock count %d is negative", p.StockCount)
	}
	return nil
}

// Repository defines read operations for the product catalog.
type Repository interface {
	// GetByID returns the product regardless of its active flag.
	GetByID(ctx context.Context, id string) (*Product, error)
	// GetByBarcode returns the active product with the given barcode.
	GetByBarcode(ctx context.Context, barcode string) (*Product, error)
	// ListActive returns active products ordered by name. A non-empty query
	// filters case-insensitively on name, brand, category or barcode.
	ListActive(ctx context.Context, query string) ([]Product, error)
}

// Writer is used by operator tooling to load the catalog.
type Writer interface {
	Upsert(ctx context.Context, products ...Product) error
}

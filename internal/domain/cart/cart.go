// Package cart implements the per-user cart ledger.
package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/smart-trolley/internal/domain/pricing"
	"github.com/xenking/smart-trolley/internal/domain/product"
)

// Sentinel errors for cart mutations.
var (
	ErrLineNotFound    = errors.New("cart line not found")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrOutOfStock      = errors.New("product out of stock")
)

// InvalidQuantityError reports a rejected quantity. It matches
// ErrInvalidQuantity with errors.Is.
type InvalidQuantityError struct {
	Quantity int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity %d must not be negative", e.Quantity)
}

// Is makes errors.Is(err, ErrInvalidQuantity) succeed.
func (e *InvalidQuantityError) Is(target error) bool {
	return target == ErrInvalidQuantity
}

// StockPolicy decides whether stock counts gate purchases.
type StockPolicy string

const (
	// StockAdvisory only reports stock to the shopper.
	StockAdvisory StockPolicy = "advisory"
	// StockStrict rejects adds of out-of-stock products and commits whose
	// quantities exceed the catalog stock.
	StockStrict StockPolicy = "strict"
)

// ParseStockPolicy parses a configured policy. An empty value selects
// StockAdvisory.
func ParseStockPolicy(s string) (StockPolicy, error) {
	switch StockPolicy(s) {
	case "", StockAdvisory:
		return StockAdvisory, nil
	case StockStrict:
		return StockStrict, nil
	default:
		return "", errors.Errorf("unknown stock policy %q", s)
	}
}

// Line is one (user, product) entry of a cart. Quantity is always positive.
type Line struct {
	ID        string
	UserID    string
	ProductID string
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Item is a cart line joined with the live catalog row.
type Item struct {
	Line
	Product product.Product
}

// PricingLine converts the item for the pricing engine.
func (i *Item) PricingLine() pricing.Line {
	return pricing.Line{
		UnitPrice:  i.Product.Price,
		TaxPercent: i.Product.TaxPercent,
		Quantity:   i.Quantity,
	}
}

// LineTotal returns unit price × quantity at the current catalog price.
func (i *Item) LineTotal() decimal.Decimal {
	return pricing.LineTotal(i.PricingLine())
}

// PricingLines converts items for the pricing engine, keeping their order.
func PricingLines(items []Item) []pricing.Line {
	lines := make([]pricing.Line, len(items))
	for i := range items {
		lines[i] = items[i].PricingLine()
	}
	return lines
}

// Snapshot is the priced state of a cart at read time. Totals are exact;
// round them with Totals.Rounded before display.
type Snapshot struct {
	UserID string
	Items  []Item
	Totals pricing.Totals
}

// Empty reports whether the cart has no lines.
func (s *Snapshot) Empty() bool {
	return len(s.Items) == 0
}

// Count returns the number of units in the cart.
func (s *Snapshot) Count() int {
	n := 0
	for _, it := range s.Items {
		n += it.Quantity
	}
	return n
}

// Repository stores cart lines. Implementations must apply Increment as one
// atomic read-modify-write so concurrent adds are never lost.
type Repository interface {
	// Increment adds one unit of the product, creating the line on first add.
	Increment(ctx context.Context, userID, productID string) (*Line, error)
	// SetQuantity overwrites the quantity (n > 0) or returns ErrLineNotFound.
	SetQuantity(ctx context.Context, userID, lineID string, n int) error
	// Delete removes the line. Removing a missing line is not an error.
	Delete(ctx context.Context, userID, lineID string) error
	// Items returns the user's lines joined with products, oldest first.
	Items(ctx context.Context, userID string) ([]Item, error)
	// Clear removes every line of the user.
	Clear(ctx context.Context, userID string) error
}

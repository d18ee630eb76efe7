package cart

import (
	"context"
	"fmt"

	"github.com/xenking/smart-trolley/internal/domain/pricing"
	"github.com/xenking/smart-trolley/internal/domain/product"
)

// Ledger applies cart operations, re-validating every add against the
// current catalog.
type Ledger struct {
	lines    Repository
	products product.Repository
	policy   StockPolicy
}

// NewLedger creates a Ledger.
func NewLedger(lines Repository, products product.Repository, policy StockPolicy) *Ledger {
	if policy == "" {
		policy = StockAdvisory
	}
	return &Ledger{
		lines:    lines,
		products: products,
		policy:   policy,
	}
}

// AddOrIncrement adds one unit of the product to the user's cart. It returns
// product.ErrNotFound when the product is missing or inactive.
func (l *Ledger) AddOrIncrement(ctx context.Context, userID, productID string) (*Line, error) {
	if productID == "" {
		return nil, product.ErrNotFound
	}
	p, err := l.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return l.add(ctx, userID, p)
}

// AddByBarcode resolves a scanned barcode to an active product and adds it.
func (l *Ledger) AddByBarcode(ctx context.Context, userID, barcode string) (*Line, error) {
	if barcode == "" {
		return nil, product.ErrNotFound
	}
	p, err := l.products.GetByBarcode(ctx, barcode)
	if err != nil {
		return nil, fmt.Errorf("get product by barcode: %w", err)
	}
	return l.add(ctx, userID, p)
}

func (l *Ledger) add(ctx context.Context, userID string, p *product.Product) (*Line, error) {
	if !p.Active {
		return nil, product.ErrNotFound
	}
	if l.policy == StockStrict && !p.InStock() {
		return nil, ErrOutOfStock
	}

	line, err := l.lines.Increment(ctx, userID, p.ID)
	if err != nil {
		return nil, fmt.Errorf("increment cart line: %w", err)
	}
	return line, nil
}

// SetQuantity overwrites a line's quantity. Zero removes the line; negative
// values fail with ErrInvalidQuantity before storage is touched.
func (l *Ledger) SetQuantity(ctx context.Context, userID, lineID string, n int) error {
	switch {
	case n < 0:
		return &InvalidQuantityError{Quantity: n}
	case n == 0:
		return l.Remove(ctx, userID, lineID)
	}

	if err := l.lines.SetQuantity(ctx, userID, lineID, n); err != nil {
		return fmt.Errorf("set quantity: %w", err)
	}
	return nil
}

// Remove deletes a line. It is idempotent.
func (l *Ledger) Remove(ctx context.Context, userID, lineID string) error {
	if lineID == "" {
		return nil
	}
	if err := l.lines.Delete(ctx, userID, lineID); err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	return nil
}

// Snapshot reads the cart joined with live product data and prices it.
func (l *Ledger) Snapshot(ctx context.Context, userID string) (*Snapshot, error) {
	items, err := l.lines.Items(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	return &Snapshot{
		UserID: userID,
		Items:  items,
		Totals: pricing.Compute(PricingLines(items)),
	}, nil
}

// Count returns the number of units in the user's cart.
func (l *Ledger) Count(ctx context.Context, userID string) (int, error) {
	snap, err := l.Snapshot(ctx, userID)
	if err != nil {
		return 0, err
	}
	return snap.Count(), nil
}

// Clear empties the user's cart.
func (l *Ledger) Clear(ctx context.Context, userID string) error {
	if err := l.lines.Clear(ctx, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

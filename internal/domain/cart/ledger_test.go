package cart_test

import (
	"context"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/smart-trolley/internal/domain/cart"
	"github.com/xenking/smart-trolley/internal/domain/product"
	"github.com/xenking/smart-trolley/internal/storage/memory"
)

// --- Helpers ---

func newTestProduct(id, barcode, price, tax string, stock int) product.Product {
	return product.Product{
		ID:         id,
		Barcode:    barcode,
		Name:       "Product " + id,
		Brand:      "Brand",
		Category:   "Grocery",
		Price:      decimal.RequireFromString(price),
		TaxPercent: decimal.RequireFromString(tax),
		StockCount: stock,
		Active:     true,
	}
}

func newLedger(t *testing.T, policy cart.StockPolicy, products ...product.Product) (*cart.Ledger, *memory.Store) {
	t.Helper()
	store := memory.New()
	require.NoError(t, store.Upsert(context.Background(), products...))
	return cart.NewLedger(store, store, policy), store
}

type failingLines struct {
	cart.Repository
	err error
}

func (f *failingLines) SetQuantity(context.Context, string, string, int) error { return f.err }
func (f *failingLines) Delete(context.Context, string, string) error { return f.err }

// --- Tests ---

func TestAddOrIncrement_CreatesThenIncrements(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newLedger(t, cart.StockAdvisory, newTestProduct("p1", "111", "50", "12", 5))

	first, err := ledger.AddOrIncrement(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Quantity)

	second, err := ledger.AddOrIncrement(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.Quantity)

	snap, err := ledger.Snapshot(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 2, snap.Items[0].Quantity)
}

func TestAddOrIncrement_NotFound(t *testing.T) {
	ctx := context.Background()
	inactive := newTestProduct("p2", "222", "10", "5", 5)
	inactive.Active = false
	ledger, _ := newLedger(t, cart.StockAdvisory, inactive)

	_, err := ledger.AddOrIncrement(ctx, "u1", "missing")
	require.ErrorIs(t, err, product.ErrNotFound)

	_, err = ledger.AddOrIncrement(ctx, "u1", "p2")
	require.ErrorIs(t, err, product.ErrNotFound)

	_, err = ledger.AddOrIncrement(ctx, "u1", "")
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestAddOrIncrement_StockPolicy(t *testing.T) {
	ctx := context.Background()
	empty := newTestProduct("p1", "111", "56", "12", 0)

	t.Run("advisory allows out of stock", func(t *testing.T) {
		ledger, _ := newLedger(t, cart.StockAdvisory, empty)
		_, err := ledger.AddOrIncrement(ctx, "u1", "p1")
		require.NoError(t, err)
	})

	t.Run("strict rejects out of stock", func(t *testing.T) {
		ledger, _ := newLedger(t, cart.StockStrict, empty)
		_, err := ledger.AddOrIncrement(ctx, "u1", "p1")
		require.ErrorIs(t, err, cart.ErrOutOfStock)
	})
}

func TestAddByBarcode(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newLedger(t, cart.StockAdvisory, newTestProduct("p1", "8901063010260", "450", "5", 5))

	line, err := ledger.AddByBarcode(ctx, "u1", "8901063010260")
	require.NoError(t, err)
	assert.Equal(t, "p1", line.ProductID)

	_, err = ledger.AddByBarcode(ctx, "u1", "0000")
	require.ErrorIs(t, err, product.ErrNotFound)

	_, err = ledger.AddByBarcode(ctx, "u1", "")
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestAddOrIncrement_NoDuplicateLines(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newLedger(t, cart.StockAdvisory,
		newTestProduct("p1", "111", "10", "5", 5),
		newTestProduct("p2", "222", "20", "5", 5),
	)

	const adds = 50
	var wg sync.WaitGroup
	for range adds {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := ledger.AddOrIncrement(ctx, "u1", "p1")
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := ledger.AddOrIncrement(ctx, "u1", "p2")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := ledger.Snapshot(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, snap.Items, 2)
	for _, it := range snap.Items {
		assert.Equal(t, adds, it.Quantity, "product %s", it.ProductID)
	}
	assert.Equal(t, 2*adds, snap.Count())
}

func TestSetQuantity(t *testing.T) {
	ctx := context.Background()

	t.Run("overwrites quantity", func(t *testing.T) {
		ledger, _ := newLedger(t, cart.StockAdvisory, newTestProduct("p1", "111", "10", "5", 5))
		line, err := ledger.AddOrIncrement(ctx, "u1", "p1")
		require.NoError(t, err)

		require.NoError(t, ledger.SetQuantity(ctx, "u1", line.ID, 7))

		n, err := ledger.Count(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 7, n)
	})

	t.Run("zero removes the line and totals drop to zero", func(t *testing.T) {
		ledger, _ := newLedger(t, cart.StockAdvisory, newTestProduct("p1", "111", "10", "5", 5))
		line, err := ledger.AddOrIncrement(ctx, "u1", "p1")
		require.NoError(t, err)

		require.NoError(t, ledger.SetQuantity(ctx, "u1", line.ID, 0))

		snap, err := ledger.Snapshot(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, snap.Empty())
		totals := snap.Totals.Rounded()
		assert.Equal(t, "0.00", totals.Subtotal.StringFixed(2))
		assert.Equal(t, "0.00", totals.Tax.StringFixed(2))
		assert.Equal(t, "0.00", totals.Total.StringFixed(2))
	})

	t.Run("negative is rejected before storage", func(t *testing.T) {
		store := memory.New()
		failing := &failingLines{Repository: store, err: errors.New("storage must not be called")}
		ledger := cart.NewLedger(failing, store, cart.StockAdvisory)

		err := ledger.SetQuantity(ctx, "u1", "line", -1)
		require.ErrorIs(t, err, cart.ErrInvalidQuantity)

		var qtyErr *cart.InvalidQuantityError
		require.ErrorAs(t, err, &qtyErr)
		assert.Equal(t, -1, qtyErr.Quantity)
	})

	t.Run("unknown line", func(t *testing.T) {
		ledger, _ := newLedger(t, cart.StockAdvisory)
		err := ledger.SetQuantity(ctx, "u1", "missing", 3)
		require.ErrorIs(t, err, cart.ErrLineNotFound)
	})

	t.Run("other user's line", func(t *testing.T) {
		ledger, _ := newLedger(t, cart.StockAdvisory, newTestProduct("p1", "111", "10", "5", 5))
		line, err := ledger.AddOrIncrement(ctx, "owner", "p1")
		require.NoError(t, err)

		err = ledger.SetQuantity(ctx, "intruder", line.ID, 3)
		require.ErrorIs(t, err, cart.ErrLineNotFound)
	})
}

func TestRemove_Idempotent(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newLedger(t, cart.StockAdvisory, newTestProduct("p1", "111", "10", "5", 5))
	line, err := ledger.AddOrIncrement(ctx, "u1", "p1")
	require.NoError(t, err)

	require.NoError(t, ledger.Remove(ctx, "u1", line.ID))
	require.NoError(t, ledger.Remove(ctx, "u1", line.ID))
	require.NoError(t, ledger.Remove(ctx, "u1", "never-existed"))
	require.NoError(t, ledger.Remove(ctx, "u1", ""))

	snap, err := ledger.Snapshot(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, snap.Empty())
}

func TestRemove_StorageError(t *testing.T) {
	store := memory.New()
	boom := errors.New("connection reset")
	ledger := cart.NewLedger(&failingLines{Repository: store, err: boom}, store, cart.StockAdvisory)

	err := ledger.Remove(context.Background(), "u1", "line")
	require.ErrorIs(t, err, boom)
}

func TestSnapshot_JoinsLiveCatalog(t *testing.T) {
	ctx := context.Background()
	p1 := newTestProduct("p1", "111", "50", "12", 5)
	p2 := newTestProduct("p2", "222", "30", "5", 5)
	ledger, store := newLedger(t, cart.StockAdvisory, p1, p2)

	_, err := ledger.AddOrIncrement(ctx, "u1", "p1")
	require.NoError(t, err)
	_, err = ledger.AddOrIncrement(ctx, "u1", "p1")
	require.NoError(t, err)
	_, err = ledger.AddOrIncrement(ctx, "u1", "p2")
	require.NoError(t, err)

	snap, err := ledger.Snapshot(ctx, "u1")
	require.NoError(t, err)
	totals := snap.Totals.Rounded()
	assert.Equal(t, "130.00", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "13.50", totals.Tax.StringFixed(2))
	assert.Equal(t, "143.50", totals.Total.StringFixed(2))
	assert.Equal(t, []string{"p1", "p2"}, []string{snap.Items[0].ProductID, snap.Items[1].ProductID})

	// A catalog price edit shows up on the next read.
	p1.Price = decimal.RequireFromString("60")
	require.NoError(t, store.Upsert(ctx, p1))

	snap, err = ledger.Snapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "150.00", snap.Totals.Rounded().Subtotal.StringFixed(2))
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newLedger(t, cart.StockAdvisory, newTestProduct("p1", "111", "10", "5", 5))
	_, err := ledger.AddOrIncrement(ctx, "u1", "p1")
	require.NoError(t, err)
	_, err = ledger.AddOrIncrement(ctx, "u2", "p1")
	require.NoError(t, err)

	require.NoError(t, ledger.Clear(ctx, "u1"))

	n, err := ledger.Count(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = ledger.Count(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestParseStockPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    cart.StockPolicy
		wantErr bool
	}{
		{in: "", want: cart.StockAdvisory},
		{in: "advisory", want: cart.StockAdvisory},
		{in: "strict", want: cart.StockStrict},
		{in: "lenient", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := cart.ParseStockPolicy(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

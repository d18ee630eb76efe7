package memory_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/smart-trolley/internal/domain/analytics"
	"github.com/xenking/smart-trolley/internal/domain/cart"
	"github.com/xenking/smart-trolley/internal/domain/order"
	"github.com/xenking/smart-trolley/internal/domain/product"
	"github.com/xenking/smart-trolley/internal/storage/memory"
)

func TestStore_Analytics(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Upsert(ctx,
		product.Product{ID: "milk", Barcode: "1", Name: "Milk", Active: true,
			Price: decimal.RequireFromString("50"), TaxPercent: decimal.NewFromInt(12)},
		product.Product{ID: "bread", Barcode: "2", Name: "Bread", Active: true,
			Price: decimal.RequireFromString("30"), TaxPercent: decimal.NewFromInt(5)},
		product.Product{ID: "old", Barcode: "3", Name: "Old", Active: false,
			Price: decimal.RequireFromString("1"), TaxPercent: decimal.Zero},
	))

	ledger := cart.NewLedger(store, store, cart.StockAdvisory)
	committer, err := order.NewCommitter(store)
	require.NoError(t, err)

	buy := func(user string, ids ...string) {
		for _, id := range ids {
			_, err := ledger.AddOrIncrement(ctx, user, id)
			require.NoError(t, err)
		}
		_, err := committer.Commit(ctx, user, order.Customer{Phone: "1"}, "ref")
		require.NoError(t, err)
	}
	buy("u1", "milk", "milk", "bread")
	buy("u2", "bread")

	sum, err := analytics.NewService(store).Summary(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Orders)
	assert.Equal(t, "175.00", sum.Revenue.StringFixed(2))
	assert.Equal(t, "15.00", sum.Tax.StringFixed(2))
	assert.Equal(t, "87.50", sum.AverageOrderValue.StringFixed(2))
	assert.Equal(t, 2, sum.Products)
	assert.Equal(t, 2, sum.Customers)
	require.Len(t, sum.TopProducts, 2)
	assert.Equal(t, "milk", sum.TopProducts[0].ProductID)
	assert.Equal(t, 2, sum.TopProducts[0].Quantity)
	assert.Equal(t, "bread", sum.TopProducts[1].ProductID)
	assert.Equal(t, "60.00", sum.TopProducts[1].Revenue.StringFixed(2))
	require.Len(t, sum.RecentOrders, 2)
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/smart-trolley/internal/domain/analytics"
)

const (
	orderTotalsSQL = `SELECT COALESCE(sum(total_amount), 0), COALESCE(sum(tax_amount), 0), count(*)
		FROM orders`

	topProductsSQL = `SELECT product_id, min(product_name), min(barcode), sum(quantity), sum(line_total)
		FROM order_lines
		GROUP BY product_id
		ORDER BY sum(quantity) DESC, sum(line_total) DESC, product_id
		LIMIT $1`

	recentOrdersSQL = `SELECT o.id, o.user_id, o.customer_name, o.total_amount,
			COALESCE((SELECT sum(quantity) FROM order_lines l WHERE l.order_id = o.id), 0),
			o.created_at
		FROM orders o
		ORDER BY o.created_at DESC, o.id
		LIMIT $1`

	countCustomersSQL = `SELECT count(DISTINCT user_id) FROM orders`
)

var _ analytics.Repository = (*AnalyticsRepository)(nil)

// AnalyticsRepository runs the reporting queries. Each method uses its own
// pooled connection so the service can run them concurrently.
type AnalyticsRepository struct {
	pool     *pgxpool.Pool
	products *ProductRepository
}

// NewAnalyticsRepository returns an AnalyticsRepository that uses the given pool.
func NewAnalyticsRepository(pool *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{pool: pool, products: NewProductRepository(pool)}
}

// OrderTotals sums revenue and tax over all orders.
func (r *AnalyticsRepository) OrderTotals(ctx context.Context) (analytics.Totals, error) {
	var t analytics.Totals
	if err := r.pool.QueryRow(ctx, orderTotalsSQL).Scan(&t.Revenue, &t.Tax, &t.Orders); err != nil {
		return t, fmt.Errorf("order totals: %w", err)
	}
	return t, nil
}

// TopProducts ranks products by sold quantity.
func (r *AnalyticsRepository) TopProducts(ctx context.Context, limit int) ([]analytics.ProductSales, error) {
	rows, err := r.pool.Query(ctx, topProductsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (analytics.ProductSales, error) {
		var s analytics.ProductSales
		err := row.Scan(&s.ProductID, &s.Name, &s.Barcode, &s.Quantity, &s.Revenue)
		return s, err
	})
}

// RecentOrders returns the latest orders of all users.
func (r *AnalyticsRepository) RecentOrders(ctx context.Context, limit int) ([]analytics.RecentOrder, error) {
	rows, err := r.pool.Query(ctx, recentOrdersSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("recent orders: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (analytics.RecentOrder, error) {
		var o analytics.RecentOrder
		err := row.Scan(&o.ID, &o.UserID, &o.CustomerName, &o.Total, &o.Items, &o.CreatedAt)
		return o, err
	})
}

// CountProducts counts active catalog products.
func (r *AnalyticsRepository) CountProducts(ctx context.Context) (int, error) {
	return r.products.Count(ctx)
}

// CountCustomers counts distinct users with at least one order.
func (r *AnalyticsRepository) CountCustomers(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countCustomersSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("count customers: %w", err)
	}
	return n, nil
}

// Package analytics derives sales reports from committed orders.
package analytics

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Report sizes.
const (
	TopProductsLimit  = 5
	RecentOrdersLimit = 10
)

// Totals aggregates all orders.
type Totals struct {
	Revenue decimal.Decimal
	Tax     decimal.Decimal
	Orders  int
}

// ProductSales is the sold quantity and revenue of one product.
type ProductSales struct {
	ProductID string
	Name      string
	Barcode   string
	Quantity  int
	Revenue   decimal.Decimal
}

// RecentOrder is an order header in the recent orders list.
type RecentOrder struct {
	ID           string
	UserID       string
	CustomerName string
	Total        decimal.Decimal
	Items        int
	CreatedAt    time.Time
}

// Summary is the admin dashboard.
type Summary struct {
	Revenue           decimal.Decimal
	Tax               decimal.Decimal
	Orders            int
	AverageOrderValue decimal.Decimal
	Products          int
	Customers         int
	TopProducts       []ProductSales
	RecentOrders      []RecentOrder
}

// Repository runs the reporting queries.
type Repository interface {
	OrderTotals(ctx context.Context) (Totals, error)
	TopProducts(ctx context.Context, limit int) ([]ProductSales, error)
	RecentOrders(ctx context.Context, limit int) ([]RecentOrder, error)
	CountProducts(ctx context.Context) (int, error)
	CountCustomers(ctx context.Context) (int, error)
}

// Service builds summaries.
type Service struct {
	repo Repository
}

// NewService creates a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Summary runs the reporting queries concurrently.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	var (
		sum    Summary
		totals Totals
	)

	g, gctx := errgroup.WithContext(ctx)
	run := func(name string, f func(ctx context.Context) error) {
		g.Go(func() error {
			if err := f(gctx); err != nil {
				return errors.Wrap(err, name)
			}
			return nil
		})
	}
	run("order totals", func(ctx context.Context) (err error) {
		totals, err = s.repo.OrderTotals(ctx)
		return err
	})
	run("top products", func(ctx context.Context) (err error) {
		sum.TopProducts, err = s.repo.TopProducts(ctx, TopProductsLimit)
		return err
	})
	run("recent orders", func(ctx context.Context) (err error) {
		sum.RecentOrders, err = s.repo.RecentOrders(ctx, RecentOrdersLimit)
		return err
	})
	run("count products", func(ctx context.Context) (err error) {
		sum.Products, err = s.repo.CountProducts(ctx)
		return err
	})
	run("count customers", func(ctx context.Context) (err error) {
		sum.Customers, err = s.repo.CountCustomers(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sum.Revenue = totals.Revenue
	sum.Tax = totals.Tax
	sum.Orders = totals.Orders
	sum.AverageOrderValue = AverageOrderValue(totals.Revenue, totals.Orders)
	if sum.TopProducts == nil {
		sum.TopProducts = []ProductSales{}
	}
	if sum.RecentOrders == nil {
		sum.RecentOrders = []RecentOrder{}
	}

	return &sum, nil
}

// AverageOrderValue is revenue per order rounded to two places, or zero
// without orders.
func AverageOrderValue(revenue decimal.Decimal, orders int) decimal.Decimal {
	if orders <= 0 {
		return decimal.Zero
	}
	return revenue.DivRound(decimal.NewFromInt(int64(orders)), 2)
}

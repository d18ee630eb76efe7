package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/smart-trolley/internal/domain/analytics"
)

var _ analytics.Repository = (*Store)(nil)

// OrderTotals implements analytics.Repository.
func (s *Store) OrderTotals(context.Context) (analytics.Totals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := analytics.Totals{Revenue: decimal.Zero, Tax: decimal.Zero}
	for _, o := range s.orders {
		t.Revenue = t.Revenue.Add(o.Total)
		t.Tax = t.Tax.Add(o.Tax)
		t.Orders++
	}
	return t, nil
}

// TopProducts implements analytics.Repository.
func (s *Store) TopProducts(_ context.Context, limit int) ([]analytics.ProductSales, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := make(map[string]*analytics.ProductSales)
	for _, o := range s.orders {
		for _, l := range o.Lines {
			ps, ok := byID[l.ProductID]
			if !ok {
				ps = &analytics.ProductSales{ProductID: l.ProductID, Name: l.Name, Barcode: l.Barcode}
				byID[l.ProductID] = ps
			}
			ps.Quantity += l.Quantity
			ps.Revenue = ps.Revenue.Add(l.LineTotal)
		}
	}

	out := make([]analytics.ProductSales, 0, len(byID))
	for _, ps := range byID {
		out = append(out, *ps)
	}
	slices.SortFunc(out, func(a, b analytics.ProductSales) int {
		if a.Quantity != b.Quantity {
			return b.Quantity - a.Quantity
		}
		if c := b.Revenue.Cmp(a.Revenue); c != 0 {
			return c
		}
		return strings.Compare(a.ProductID, b.ProductID)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// RecentOrders implements analytics.Repository.
func (s *Store) RecentOrders(_ context.Context, limit int) ([]analytics.RecentOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]analytics.RecentOrder, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, analytics.RecentOrder{
			ID:           o.ID,
			UserID:       o.UserID,
			CustomerName: o.Customer.Name,
			Total:        o.Total,
			Items:        o.Count(),
			CreatedAt:    o.CreatedAt,
		})
	}
	slices.SortFunc(out, func(a, b analytics.RecentOrder) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CountProducts implements analytics.Repository.
func (s *Store) CountProducts(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, p := range s.products {
		if p.Active {
			n++
		}
	}
	return n, nil
}

// CountCustomers implements analytics.Repository.
func (s *Store) CountCustomers(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make(map[string]struct{})
	for _, o := range s.orders {
		users[o.UserID] = struct{}{}
	}
	return len(users), nil
}

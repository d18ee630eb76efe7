package order

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// DefaultHistoryLimit bounds order history reads when the caller passes no
// limit.
const DefaultHistoryLimit = 20

// Receipts reads committed orders back for their owners.
type Receipts struct {
	store Store
}

// NewReceipts creates a Receipts projector.
func NewReceipts(store Store) *Receipts {
	return &Receipts{store: store}
}

// Get returns the order and its lines. Orders of other users are reported as
// ErrNotFound.
func (r *Receipts) Get(ctx context.Context, userID, orderID string) (*Order, error) {
	if userID == "" || orderID == "" {
		return nil, ErrNotFound
	}
	o, err := r.store.Get(ctx, userID, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// History returns the user's most recent orders without lines.
func (r *Receipts) History(ctx context.Context, userID string, limit int) ([]Order, error) {
	if limit <= 0 || limit > 100 {
		limit = DefaultHistoryLimit
	}
	orders, err := r.store.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

const receiptWidth = 48

// WriteText renders a plain-text receipt.
func WriteText(w io.Writer, storeName string, o *Order) error {
	rule := strings.Repeat("-", receiptWidth)

	var b strings.Builder
	b.WriteString(center(strings.ToUpper(storeName)) + "\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "%-10s%s\n", "Order", o.ID)
	fmt.Fprintf(&b, "%-10s%s\n", "Date", o.CreatedAt.UTC().Format("2006-01-02 15:04 MST"))
	if o.Customer.Name != "" {
		fmt.Fprintf(&b, "%-10s%s\n", "Customer", o.Customer.Name)
	}
	fmt.Fprintf(&b, "%-10s%s\n", "Phone", o.Customer.Phone)
	if o.Customer.Email != "" {
		fmt.Fprintf(&b, "%-10s%s\n", "Email", o.Customer.Email)
	}
	fmt.Fprintf(&b, "%-10s%s (%s)\n", "Payment", o.PaymentReference, o.PaymentStatus)
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "%-22s%4s%11s%11s\n", "Item", "Qty", "Price", "Amount")
	for _, l := range o.Lines {
		fmt.Fprintf(&b, "%-22s%4d%11s%11s\n",
			truncate(l.Name, 21), l.Quantity, l.UnitPrice.StringFixed(2), l.LineTotal.StringFixed(2))
		fmt.Fprintf(&b, "  %s  GST %s%%\n", l.Barcode, l.TaxPercent.StringFixed(2))
	}
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "%-37s%11s\n", "Subtotal", o.Subtotal.StringFixed(2))
	fmt.Fprintf(&b, "%-37s%11s\n", "Tax", o.Tax.StringFixed(2))
	fmt.Fprintf(&b, "%-37s%11s\n", "Total", o.Total.StringFixed(2))
	fmt.Fprintf(&b, "%-37s%11d\n", "Items", o.Count())

	_, err := io.WriteString(w, b.String())
	return err
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "~"
}

func center(s string) string {
	pad := (receiptWidth - utf8.RuneCountInString(s)) / 2
	if pad <= 0 {
		return s
	}
	return strings.Repeat(" ", pad) + s
}

package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/smart-trolley/internal/domain/cart"
)

// StatusCompleted is the only payment status an order can have.
const StatusCompleted = "completed"

// Sentinel errors.
var (
	ErrNotFound  = errors.New("order not found")
	ErrEmptyCart = errors.New("cart is empty")
)

// CommitError wraps any storage failure during the commit transaction. The
// transaction was rolled back and the commit may be retried.
type CommitError struct {
	Err error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit order: %v", e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// ProductUnavailableError reports a cart line whose product was deactivated
// after it was added.
type ProductUnavailableError struct {
	ProductID string
	Name      string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %s (%s) is no longer available", e.ProductID, e.Name)
}

// InsufficientStockError reports a cart line exceeding the catalog stock
// under the strict stock policy.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("product %s: requested %d, %d in stock", e.ProductID, e.Requested, e.Available)
}

// Customer holds the contact details collected at checkout.
type Customer struct {
	Name  string
	Phone string
	Email string
}

// Order is an immutable record of a completed purchase.
type Order struct {
	ID               string
	UserID           string
	Customer         Customer
	Subtotal         decimal.Decimal
	Tax              decimal.Decimal
	Total            decimal.Decimal
	PaymentReference string
	PaymentStatus    string
	CreatedAt        time.Time
	Lines            []Line
}

// Line is a purchased item. Every field is copied from the catalog at commit
// time so later price edits never change a receipt.
type Line struct {
	ID         string
	OrderID    string
	ProductID  string
	Barcode    string
	Name       string
	Quantity   int
	UnitPrice  decimal.Decimal
	TaxPercent decimal.Decimal
	LineTotal  decimal.Decimal
}

// Count returns the number of units in the order.
func (o *Order) Count() int {
	n := 0
	for _, l := range o.Lines {
		n += l.Quantity
	}
	return n
}

// Tx is the set of writes the committer performs inside one transaction.
type Tx interface {
	// LockCart reads the user's cart joined with products and locks the
	// lines until the transaction ends.
	LockCart(ctx context.Context, userID string) ([]cart.Item, error)
	InsertOrder(ctx context.Context, o *Order) error
	InsertLines(ctx context.Context, lines []Line) error
	ClearCart(ctx context.Context, userID string) error
}

// Store persists orders.
type Store interface {
	// InTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	InTx(ctx context.Context, fn func(tx Tx) error) error
	// Get returns the order with its lines if it belongs to userID.
	Get(ctx context.Context, userID, orderID string) (*Order, error)
	// ListByUser returns the user's most recent order headers.
	ListByUser(ctx context.Context, userID string, limit int) ([]Order, error)
}

// Publisher announces committed orders to downstream consumers.
type Publisher interface {
	PublishCommitted(ctx context.Context, o *Order) error
}

package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/smart-trolley/internal/domain/cart"
	"github.com/xenking/smart-trolley/internal/domain/order"
)

const orderColumns = `id, user_id, customer_name, customer_phone, customer_email,
	subtotal, tax_amount, total_amount, payment_reference, payment_status, created_at`

const (
	insertOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND user_id = $2`

	listOrderLinesSQL = `SELECT id, order_id, product_id, barcode, product_name, quantity,
			unit_price, tax_percent, line_total
		FROM order_lines WHERE order_id = $1 ORDER BY position`

	listOrdersByUserSQL = `SELECT ` + orderColumns + `
		FROM orders WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2`
)

var orderLineColumns = []string{
	"id", "order_id", "position", "product_id", "barcode", "product_name",
	"quantity", "unit_price", "tax_percent", "line_total",
}

var (
	_ order.Store = (*OrderRepository)(nil)
	_ order.Tx    = (*orderTx)(nil)
)

// OrderRepository implements order.Store on PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// InTx runs fn in a read-committed transaction. The cart row locks taken by
// LockCart serialize concurrent commits of the same cart.
func (r *OrderRepository) InTx(ctx context.Context, fn func(tx order.Tx) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&orderTx{tx: tx})
	})
}

// Get returns the order with its lines if it belongs to userID.
func (r *OrderRepository) Get(ctx context.Context, userID, orderID string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, orderID, userID)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", orderID, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", orderID, err)
	}

	rows, err = r.pool.Query(ctx, listOrderLinesSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing lines of order %q: %w", orderID, err)
	}
	o.Lines, err = pgx.CollectRows(rows, scanOrderLine)
	if err != nil {
		return nil, fmt.Errorf("listing lines of order %q: %w", orderID, err)
	}
	return &o, nil
}

// ListByUser returns the user's most recent order headers.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, limit int) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

type orderTx struct {
	tx pgx.Tx
}

func (t *orderTx) LockCart(ctx context.Context, userID string) ([]cart.Item, error) {
	return queryCartItems(ctx, t.tx, lockCartItemsSQL, userID)
}

func (t *orderTx) InsertOrder(ctx context.Context, o *order.Order) error {
	_, err := t.tx.Exec(ctx, insertOrderSQL,
		o.ID, o.UserID, o.Customer.Name, o.Customer.Phone, o.Customer.Email,
		o.Subtotal, o.Tax, o.Total, o.PaymentReference, o.PaymentStatus, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting order %q: %w", o.ID, err)
	}
	return nil
}

func (t *orderTx) InsertLines(ctx context.Context, lines []order.Line) error {
	rows := make([][]any, len(lines))
	for i, l := range lines {
		rows[i] = []any{
			l.ID, l.OrderID, i, l.ProductID, l.Barcode, l.Name,
			l.Quantity, l.UnitPrice, l.TaxPercent, l.LineTotal,
		}
	}

	n, err := t.tx.CopyFrom(ctx, pgx.Identifier{"order_lines"}, orderLineColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("inserting order lines: %w", err)
	}
	if int(n) != len(lines) {
		return fmt.Errorf("inserted %d of %d order lines", n, len(lines))
	}
	return nil
}

func (t *orderTx) ClearCart(ctx context.Context, userID string) error {
	if _, err := t.tx.Exec(ctx, clearCartSQL, userID); err != nil {
		return fmt.Errorf("clearing cart: %w", err)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.Customer.Name, &o.Customer.Phone, &o.Customer.Email,
		&o.Subtotal, &o.Tax, &o.Total, &o.PaymentReference, &o.PaymentStatus, &o.CreatedAt,
	)
	return o, err
}

func scanOrderLine(row pgx.CollectableRow) (order.Line, error) {
	var l order.Line
	err := row.Scan(
		&l.ID, &l.OrderID, &l.ProductID, &l.Barcode, &l.Name, &l.Quantity,
		&l.UnitPrice, &l.TaxPercent, &l.LineTotal,
	)
	return l, err
}

package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/smart-trolley/internal/domain/cart"
)

const cartItemColumns = `c.id, c.user_id, c.product_id, c.quantity, c.created_at, c.updated_at,
	p.id, p.barcode, p.name, p.brand, p.category, p.price, p.tax_percent,
	p.stock_count, p.image_url, p.is_active, p.created_at, p.updated_at`

const (
	incrementCartLineSQL = `INSERT INTO cart_lines (id, user_id, product_id, quantity)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_lines.quantity + 1, updated_at = now()
		RETURNING id, user_id, product_id, quantity, created_at, updated_at`

	setCartLineQuantitySQL = `UPDATE cart_lines SET quantity = $3, updated_at = now()
		WHERE id = $1 AND user_id = $2`

	deleteCartLineSQL = `DELETE FROM cart_lines WHERE id = $1 AND user_id = $2`

	listCartItemsSQL = `SELECT ` + cartItemColumns + `
		FROM cart_lines c JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.created_at, c.id`

	lockCartItemsSQL = listCartItemsSQL + ` FOR UPDATE OF c`

	clearCartSQL = `DELETE FROM cart_lines WHERE user_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository on PostgreSQL. Every mutation
// is a single statement, so concurrent requests need no application lock.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Increment inserts a line with quantity 1 or adds one to the existing line.
func (r *CartRepository) Increment(ctx context.Context, userID, productID string) (*cart.Line, error) {
	rows, err := r.pool.Query(ctx, incrementCartLineSQL, uuid.NewString(), userID, productID)
	if err != nil {
		return nil, fmt.Errorf("incrementing cart line: %w", err)
	}
	l, err := pgx.CollectExactlyOneRow(rows, scanCartLine)
	if err != nil {
		return nil, fmt.Errorf("incrementing cart line: %w", err)
	}
	return &l, nil
}

// SetQuantity overwrites the quantity of the user's line.
func (r *CartRepository) SetQuantity(ctx context.Context, userID, lineID string, n int) error {
	tag, err := r.pool.Exec(ctx, setCartLineQuantitySQL, lineID, userID, n)
	if err != nil {
		return fmt.Errorf("setting quantity of cart line %q: %w", lineID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrLineNotFound
	}
	return nil
}

// Delete removes the user's line if it exists.
func (r *CartRepository) Delete(ctx context.Context, userID, lineID string) error {
	if _, err := r.pool.Exec(ctx, deleteCartLineSQL, lineID, userID); err != nil {
		return fmt.Errorf("deleting cart line %q: %w", lineID, err)
	}
	return nil
}

// Items returns the user's lines joined with the current product rows.
func (r *CartRepository) Items(ctx context.Context, userID string) ([]cart.Item, error) {
	return queryCartItems(ctx, r.pool, listCartItemsSQL, userID)
}

// Clear removes every line of the user.
func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, clearCartSQL, userID); err != nil {
		return fmt.Errorf("clearing cart: %w", err)
	}
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryCartItems(ctx context.Context, q querier, sql, userID string) ([]cart.Item, error) {
	rows, err := q.Query(ctx, sql, userID)
	if err != nil {
		return nil, fmt.Errorf("listing cart items: %w", err)
	}
	items, err := pgx.CollectRows(rows, scanCartItem)
	if err != nil {
		return nil, fmt.Errorf("listing cart items: %w", err)
	}
	return items, nil
}

func scanCartLine(row pgx.CollectableRow) (cart.Line, error) {
	var l cart.Line
	err := row.Scan(&l.ID, &l.UserID, &l.ProductID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

func scanCartItem(row pgx.CollectableRow) (cart.Item, error) {
	var (
		it cart.Item
		p  = &it.Product
	)
	err := row.Scan(
		&it.ID, &it.UserID, &it.ProductID, &it.Quantity, &it.CreatedAt, &it.UpdatedAt,
		&p.ID, &p.Barcode, &p.Name, &p.Brand, &p.Category, &p.Price, &p.TaxPercent,
		&p.StockCount, &p.ImageURL, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	return it, err
}

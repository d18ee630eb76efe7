package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/smart-trolley/internal/domain/product"
)

const productColumns = `id, barcode, name, brand, category, price, tax_percent,
	stock_count, image_url, is_active, created_at, updated_at`

const (
	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductByBarcodeSQL = `SELECT ` + productColumns + `
		FROM products WHERE barcode = $1 AND is_active`

	listActiveProductsSQL = `SELECT ` + productColumns + `
		FROM products
		WHERE is_active AND ($1 = '' OR
			name ILIKE '%' || $1 || '%' OR
			brand ILIKE '%' || $1 || '%' OR
			category ILIKE '%' || $1 || '%' OR
			barcode = $1)
		ORDER BY name, id`

	upsertProductSQL = `INSERT INTO products (id, barcode, name, brand, category, price,
			tax_percent, stock_count, image_url, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			barcode = EXCLUDED.barcode,
			name = EXCLUDED.name,
			brand = EXCLUDED.brand,
			category = EXCLUDED.category,
			price = EXCLUDED.price,
			tax_percent = EXCLUDED.tax_percent,
			stock_count = EXCLUDED.stock_count,
			image_url = EXCLUDED.image_url,
			is_active = EXCLUDED.is_active,
			updated_at = now()`
)

var (
	_ product.Repository = (*ProductRepository)(nil)
	_ product.Writer     = (*ProductRepository)(nil)
)

// ProductRepository implements the catalog on PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// GetByID returns a product regardless of its active flag.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	return r.one(ctx, getProductByIDSQL, id)
}

// GetByBarcode returns the active product with the given barcode.
func (r *ProductRepository) GetByBarcode(ctx context.Context, barcode string) (*product.Product, error) {
	return r.one(ctx, getProductByBarcodeSQL, barcode)
}

func (r *ProductRepository) one(ctx context.Context, sql, arg string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", arg, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", arg, err)
	}
	return &p, nil
}

// ListActive returns active products ordered by name, optionally filtered
// by a case-insensitive search over name, brand and category or an exact
// barcode.
func (r *ProductRepository) ListActive(ctx context.Context, query string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listActiveProductsSQL, strings.TrimSpace(query))
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Upsert inserts or updates products in one batch.
func (r *ProductRepository) Upsert(ctx context.Context, products ...product.Product) error {
	batch := &pgx.Batch{}
	for _, p := range products {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("product %q: %w", p.ID, err)
		}
		batch.Queue(upsertProductSQL,
			p.ID, p.Barcode, p.Name, p.Brand, p.Category, p.Price,
			p.TaxPercent, p.StockCount, p.ImageURL, p.Active,
		)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upserting products: %w", err)
	}
	return nil
}

// Count returns the number of active products.
func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM products WHERE is_active`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting products: %w", err)
	}
	return n, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Barcode, &p.Name, &p.Brand, &p.Category, &p.Price, &p.TaxPercent,
		&p.StockCount, &p.ImageURL, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"backoffice/internal/catalog"
	"backoffice/internal/core"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

const (
	queryListCategories   = `SELECT id, name FROM categories ORDER BY rowid`
	queryGetCategory      = `SELECT id, name FROM categories WHERE id = ?`
	queryInsertCategory   = `INSERT INTO categories (id, name) VALUES (?, ?)`
	queryUpdateCategory   = `UPDATE categories SET name = ? WHERE id = ?`
	queryDeleteCategory   = `DELETE FROM categories WHERE id = ?`
	queryPullCategory     = `DELETE FROM product_categories WHERE category_id = ?`
	queryListProducts     = `SELECT id, name, description, price_cents, image_url FROM products ORDER BY rowid`
	queryGetProduct       = `SELECT id, name, description, price_cents, image_url FROM products WHERE id = ?`
	queryInsertProduct    = `INSERT INTO products (id, name, description, price_cents, image_url) VALUES (?, ?, ?, ?, ?)`
	queryUpdateProduct    = `UPDATE products SET name = ?, description = ?, price_cents = ?, image_url = ? WHERE id = ?`
	queryDeleteProduct    = `DELETE FROM products WHERE id = ?`
	queryAllProductCats   = `SELECT product_id, category_id FROM product_categories ORDER BY product_id, position`
	queryProductCats      = `SELECT category_id FROM product_categories WHERE product_id = ? ORDER BY position`
	queryClearProductCat  = `DELETE FROM product_categories WHERE product_id = ?`
	queryInsertProductCat = `INSERT INTO product_categories (product_id, category_id, position) VALUES (?, ?, ?)`
	queryListOrders       = `SELECT id, date, total_cents, processed_at FROM orders ORDER BY rowid`
	queryGetOrder         = `SELECT id, date, total_cents, processed_at FROM orders WHERE id = ?`
	queryInsertOrder      = `INSERT INTO orders (id, date, total_cents) VALUES (?, ?, ?)`
	queryUpdateOrder      = `UPDATE orders SET date = ?, total_cents = ? WHERE id = ?`
	queryDeleteOrder      = `DELETE FROM orders WHERE id = ?`
	queryMarkProcessed    = `UPDATE orders SET processed_at = ? WHERE id = ?`
	queryAllOrderItems    = `SELECT order_id, product_id FROM order_products ORDER BY order_id, position`
	queryOrderItems       = `SELECT product_id FROM order_products WHERE order_id = ? ORDER BY position`
	queryClearOrderItems  = `DELETE FROM order_products WHERE order_id = ?`
	queryInsertOrderItem  = `INSERT INTO order_products (order_id, position, product_id) VALUES (?, ?, ?)`
)

// SQLiteRepository persists the catalog in SQLite. Prices and totals are
// stored as integer cents.
type SQLiteRepository struct {
	db    *sql.DB
	newID func() string
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return NewWithDB(db), nil
}

// NewWithDB wraps an already migrated database.
func NewWithDB(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, newID: uuid.NewString}
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, queryListCategories)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []core.Category{}
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	var c core.Category
	err := r.db.QueryRowContext(ctx, queryGetCategory, id).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, notFound("category", id)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	c.ID = r.newID()
	if _, err := r.db.ExecContext(ctx, queryInsertCategory, c.ID, c.Name); err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	slog.DebugContext(ctx, "Category saved to SQLite", "id", c.ID, "name", c.Name)
	return c, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	res, err := r.db.ExecContext(ctx, queryUpdateCategory, c.Name, c.ID)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	if err := requireRow(res, "category", c.ID); err != nil {
		return core.Category{}, err
	}
	return c, nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, queryDeleteCategory, id)
		if err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		if err := requireRow(res, "category", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, queryPullCategory, id); err != nil {
			return fmt.Errorf("pull category from products: %w", err)
		}
		return nil
	})
}

func (r *SQLiteRepository) ListProducts(ctx context.Context) ([]core.Product, error) {
	rows, err := r.db.QueryContext(ctx, queryListProducts)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := []core.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	cats, err := r.idLists(ctx, queryAllProductCats)
	if err != nil {
		return nil, fmt.Errorf("list product categories: %w", err)
	}
	for i := range out {
		out[i].CategoryIDs = orEmpty(cats[out[i].ID])
	}
	return out, nil
}

func (r *SQLiteRepository) GetProduct(ctx context.Context, id string) (core.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, queryGetProduct, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Product{}, notFound("product", id)
	}
	if err != nil {
		return core.Product{}, err
	}
	ids, err := r.idList(ctx, queryProductCats, id)
	if err != nil {
		return core.Product{}, fmt.Errorf("get product categories: %w", err)
	}
	p.CategoryIDs = ids
	return p, nil
}

func (r *SQLiteRepository) CreateProduct(ctx context.Context, p core.Product) (core.Product, error) {
	if err := p.Validate(); err != nil {
		return core.Product{}, err
	}
	p.ID = r.newID()
	p.CategoryIDs = orEmpty(p.CategoryIDs)
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, queryInsertProduct, p.ID, p.Name, p.Description, core.ToCents(p.Price), p.ImageURL); err != nil {
			return fmt.Errorf("create product: %w", err)
		}
		return insertLinks(ctx, tx, queryInsertProductCat, p.ID, dedupe(p.CategoryIDs))
	})
	if err != nil {
		return core.Product{}, err
	}
	p.CategoryIDs = dedupe(p.CategoryIDs)
	return p, nil
}

func (r *SQLiteRepository) UpdateProduct(ctx context.Context, p core.Product) (core.Product, error) {
	if err := p.Validate(); err != nil {
		return core.Product{}, err
	}
	p.CategoryIDs = dedupe(orEmpty(p.CategoryIDs))
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, queryUpdateProduct, p.Name, p.Description, core.ToCents(p.Price), p.ImageURL, p.ID)
		if err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		if err := requireRow(res, "product", p.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, queryClearProductCat, p.ID); err != nil {
			return fmt.Errorf("clear product categories: %w", err)
		}
		return insertLinks(ctx, tx, queryInsertProductCat, p.ID, p.CategoryIDs)
	})
	if err != nil {
		return core.Product{}, err
	}
	return p, nil
}

func (r *SQLiteRepository) DeleteProduct(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, queryDeleteProduct, id)
		if err != nil {
			return fmt.Errorf("delete product: %w", err)
		}
		if err := requireRow(res, "product", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, queryClearProductCat, id); err != nil {
			return fmt.Errorf("clear product categories: %w", err)
		}
		return nil
	})
}

func (r *SQLiteRepository) ListOrders(ctx context.Context) ([]core.Order, error) {
	rows, err := r.db.QueryContext(ctx, queryListOrders)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := []core.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	items, err := r.idLists(ctx, queryAllOrderItems)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	for i := range out {
		out[i].ProductIDs = orEmpty(items[out[i].ID])
	}
	return out, nil
}

func (r *SQLiteRepository) GetOrder(ctx context.Context, id string) (core.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, queryGetOrder, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Order{}, notFound("order", id)
	}
	if err != nil {
		return core.Order{}, err
	}
	ids, err := r.idList(ctx, queryOrderItems, id)
	if err != nil {
		return core.Order{}, fmt.Errorf("get order items: %w", err)
	}
	o.ProductIDs = ids
	return o, nil
}

func (r *SQLiteRepository) CreateOrder(ctx context.Context, o core.Order) (core.Order, error) {
	if err := o.Validate(); err != nil {
		return core.Order{}, err
	}
	o.ID = r.newID()
	o.ProductIDs = orEmpty(o.ProductIDs)
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, queryInsertOrder, o.ID, formatTime(o.Date), core.ToCents(o.Total)); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		return insertItems(ctx, tx, o.ID, o.ProductIDs)
	})
	if err != nil {
		return core.Order{}, err
	}
	slog.DebugContext(ctx, "Order saved to SQLite", "id", o.ID, "products", len(o.ProductIDs), "total", o.Total)
	return o, nil
}

func (r *SQLiteRepository) UpdateOrder(ctx context.Context, o core.Order) (core.Order, error) {
	if err := o.Validate(); err != nil {
		return core.Order{}, err
	}
	o.ProductIDs = orEmpty(o.ProductIDs)
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, queryUpdateOrder, formatTime(o.Date), core.ToCents(o.Total), o.ID)
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		if err := requireRow(res, "order", o.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, queryClearOrderItems, o.ID); err != nil {
			return fmt.Errorf("clear order items: %w", err)
		}
		return insertItems(ctx, tx, o.ID, o.ProductIDs)
	})
	if err != nil {
		return core.Order{}, err
	}
	return o, nil
}

func (r *SQLiteRepository) DeleteOrder(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, queryDeleteOrder, id)
		if err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		if err := requireRow(res, "order", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, queryClearOrderItems, id); err != nil {
			return fmt.Errorf("clear order items: %w", err)
		}
		return nil
	})
}

func (r *SQLiteRepository) MarkOrderProcessed(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, queryMarkProcessed, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("mark order processed: %w", err)
	}
	return requireRow(res, "order", id)
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// idLists groups (owner, id) rows into ordered id lists per owner.
func (r *SQLiteRepository) idLists(ctx context.Context, query string) (map[string][]string, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var owner, id string
		if err := rows.Scan(&owner, &id); err != nil {
			return nil, err
		}
		out[owner] = append(out[owner], id)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) idList(ctx context.Context, query, owner string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (core.Product, error) {
	var (
		p     core.Product
		cents int64
	)
	if err := s.Scan(&p.ID, &p.Name, &p.Description, &cents, &p.ImageURL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Product{}, err
		}
		return core.Product{}, fmt.Errorf("scan product: %w", err)
	}
	p.Price = core.FromCents(cents)
	return p, nil
}

func scanOrder(s scanner) (core.Order, error) {
	var (
		o         core.Order
		date      string
		cents     int64
		processed sql.NullString
	)
	if err := s.Scan(&o.ID, &date, &cents, &processed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Order{}, err
		}
		return core.Order{}, fmt.Errorf("scan order: %w", err)
	}
	t, err := time.Parse(timeLayout, date)
	if err != nil {
		return core.Order{}, fmt.Errorf("parse order date %q: %w", date, err)
	}
	o.Date = t
	o.Total = core.FromCents(cents)
	if processed.Valid && processed.String != "" {
		at, err := time.Parse(timeLayout, processed.String)
		if err != nil {
			return core.Order{}, fmt.Errorf("parse processed_at %q: %w", processed.String, err)
		}
		o.ProcessedAt = &at
	}
	return o, nil
}

func insertLinks(ctx context.Context, tx *sql.Tx, query, owner string, ids []string) error {
	for i, id := range ids {
		if _, err := tx.ExecContext(ctx, query, owner, id, i); err != nil {
			return fmt.Errorf("link %s -> %s: %w", owner, id, err)
		}
	}
	return nil
}

func insertItems(ctx context.Context, tx *sql.Tx, orderID string, productIDs []string) error {
	for i, id := range productIDs {
		if _, err := tx.ExecContext(ctx, queryInsertOrderItem, orderID, i, id); err != nil {
			return fmt.Errorf("add product %s to order %s: %w", id, orderID, err)
		}
	}
	return nil
}

func requireRow(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", entity, err)
	}
	if n == 0 {
		return notFound(entity, id)
	}
	return nil
}

func notFound(entity, id string) error {
	return fmt.Errorf("%s %q: %w", entity, id, catalog.ErrNotFound)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func orEmpty(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

var _ catalog.Repository = (*SQLiteRepository)(nil)

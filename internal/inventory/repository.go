package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNotFound = errors.New("not found")

// ProductRepository is the persistence port for products. Implementations hand
// out copies: mutating a returned Product has no effect until it is saved.
type ProductRepository interface {
	// FindByCode returns ErrNotFound when no product has the code.
	FindByCode(ctx context.Context, code string) (Product, error)
	// Save inserts the product or overwrites the one with the same code.
	Save(ctx context.Context, p Product) error
	ListAll(ctx context.Context) ([]Product, error)
}

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) FindByCode(ctx context.Context, code string) (Product, error) {
	var p Product
	row := r.pool.QueryRow(ctx, `SELECT code, name, price, stock, location FROM products WHERE code=$1`, code)
	if err := row.Scan(&p.Code, &p.Name, &p.Price, &p.Stock, &p.Location); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("select product: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Save(ctx context.Context, p Product) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO products(code, name, price, stock, location)
		VALUES($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO UPDATE SET
			name=EXCLUDED.name,
			price=EXCLUDED.price,
			stock=EXCLUDED.stock,
			location=EXCLUDED.location,
			updated_at=now()
	`, p.Code, p.Name, p.Price, p.Stock, p.Location)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT code, name, price, stock, location FROM products ORDER BY created_at, code`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.Code, &p.Name, &p.Price, &p.Stock, &p.Location); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

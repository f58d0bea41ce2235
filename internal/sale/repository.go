package sale

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrCommitOutcomeUnknown wraps a failed commit. The server may still have
// applied the transaction.
var ErrCommitOutcomeUnknown = errors.New("sale commit outcome unknown")

// Repository records completed sales.
type Repository interface {
	SaveSale(ctx context.Context, rec Record) error
}

// Lister is implemented by repositories that can return what they recorded.
type Lister interface {
	ListSales(ctx context.Context) ([]Record, error)
}

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// SaveSale writes the sale header and its lines in one transaction.
func (r *PostgresRepository) SaveSale(ctx context.Context, rec Record) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `
		INSERT INTO sales(id, grand_total, created_at)
		VALUES($1, $2, $3)
	`, rec.ID, rec.GrandTotal, rec.CreatedAt); err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}

	for i, it := range rec.Items {
		if _, err = tx.Exec(ctx, `
			INSERT INTO sale_items(id, sale_id, line_no, product_code, name, quantity, unit_price, total)
			VALUES($1, $2, $3, $4, $5, $6, $7, $8)
		`, uuid.New(), rec.ID, i+1, it.ProductCode, it.Name, it.Quantity, it.UnitPrice, it.Total); err != nil {
			return fmt.Errorf("insert sale_item: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit sale: %w: %w", ErrCommitOutcomeUnknown, err)
	}
	return nil
}

// ListSales returns every recorded sale, oldest first, with lines in receipt order.
func (r *PostgresRepository) ListSales(ctx context.Context) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.grand_total, s.created_at,
		       i.product_code, i.name, i.quantity, i.unit_price, i.total
		FROM sales s
		JOIN sale_items i ON i.sale_id = s.id
		ORDER BY s.created_at, s.id, i.line_no
	`)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec Record
			it  RecordItem
		)
		if err := rows.Scan(&rec.ID, &rec.GrandTotal, &rec.CreatedAt,
			&it.ProductCode, &it.Name, &it.Quantity, &it.UnitPrice, &it.Total); err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		if n := len(out); n > 0 && out[n-1].ID == rec.ID {
			out[n-1].Items = append(out[n-1].Items, it)
			continue
		}
		rec.Items = []RecordItem{it}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	return out, nil
}

// internal/repository/postgres/sales_repository.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/stockpredictor/internal/domain"
	"github.com/andresuchdata/stockpredictor/internal/repository"
	"github.com/jmoiron/sqlx"
)

type salesRepository struct {
	db *sqlx.DB
}

func NewSalesRepository(db *sqlx.DB) repository.SalesReader {
	return &salesRepository{db: db}
}

func (r *salesRepository) DailyAggregates(ctx context.Context, productID int64, from, to time.Time) ([]domain.DailySalesAggregate, error) {
	query := `
		SELECT id, product_id, date, total_quantity
		FROM daily_sales_aggregates
		WHERE product_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date
	`

	var aggregates []domain.DailySalesAggregate
	if err := r.db.SelectContext(ctx, &aggregates, query, productID, from, to); err != nil {
		return nil, fmt.Errorf("error getting daily aggregates: %w", err)
	}

	return aggregates, nil
}

// BurnRateWindow computes the burn rate inputs in one aggregate query rather
// than loading and iterating rows.
func (r *salesRepository) BurnRateWindow(ctx context.Context, productID int64, from, to time.Time) (int, int, error) {
	query := `
		SELECT COALESCE(SUM(total_quantity), 0) AS total_quantity,
		       COUNT(*) AS days_with_sales
		FROM daily_sales_aggregates
		WHERE product_id = $1 AND date >= $2 AND date <= $3
	`

	var row struct {
		TotalQuantity int `db:"total_quantity"`
		DaysWithSales int `db:"days_with_sales"`
	}
	if err := r.db.GetContext(ctx, &row, query, productID, from, to); err != nil {
		return 0, 0, fmt.Errorf("error computing burn rate window: %w", err)
	}

	return row.TotalQuantity, row.DaysWithSales, nil
}

type inventoryRepository struct {
	db *sqlx.DB
}

func NewInventoryRepository(db *sqlx.DB) repository.InventoryReader {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) LatestSnapshot(ctx context.Context, productID int64, asOf time.Time) (*domain.InventorySnapshot, error) {
	query := `
		SELECT id, product_id, snapshot_date, quantity_available
		FROM inventory_snapshots
		WHERE product_id = $1 AND snapshot_date <= $2
		ORDER BY snapshot_date DESC
		LIMIT 1
	`

	var snapshot domain.InventorySnapshot
	if err := r.db.GetContext(ctx, &snapshot, query, productID, asOf); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting inventory snapshot: %w", err)
	}

	return &snapshot, nil
}

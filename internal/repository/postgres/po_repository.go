// internal/repository/postgres/po_repository.go
package postgres

import (
	"context"
	"fmt"

	"github.com/andresuchdata/stockpredictor/internal/domain"
	"github.com/andresuchdata/stockpredictor/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type poRepository struct {
	db *sqlx.DB
}

func NewPurchaseOrderRepository(db *sqlx.DB) repository.PurchaseOrderReader {
	return &poRepository{db: db}
}

// InTransitQuantity sums undelivered quantities on in-flight orders in a single
// aggregate query.
func (r *poRepository) InTransitQuantity(ctx context.Context, productID int64) (int, error) {
	query := `
		SELECT COALESCE(SUM(poi.quantity_ordered - poi.quantity_received), 0)
		FROM purchase_order_items poi
		JOIN purchase_orders po ON po.id = poi.purchase_order_id
		WHERE poi.product_id = $1 AND po.status = ANY($2)
	`

	statuses := make([]string, len(domain.InTransitStatuses))
	for i, s := range domain.InTransitStatuses {
		statuses[i] = string(s)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, query, productID, pq.Array(statuses)); err != nil {
		return 0, fmt.Errorf("error getting in-transit quantity: %w", err)
	}

	return total, nil
}

// internal/repository/postgres/product_repository.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andresuchdata/stockpredictor/internal/domain"
	"github.com/andresuchdata/stockpredictor/internal/repository"
	"github.com/jmoiron/sqlx"
)

type productRepository struct {
	db *sqlx.DB
}

func NewProductRepository(db *sqlx.DB) repository.ProductReader {
	return &productRepository{db: db}
}

type companyRepository struct {
	db *sqlx.DB
}

func NewCompanyRepository(db *sqlx.DB) repository.CompanyReader {
	return &companyRepository{db: db}
}

func (r *companyRepository) GetCompany(ctx context.Context, id int64) (*domain.Company, error) {
	query := `
		SELECT id, name, is_active, created_at, updated_at
		FROM companies
		WHERE id = $1
	`

	var company domain.Company
	if err := r.db.GetContext(ctx, &company, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("company %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("error getting company: %w", err)
	}

	return &company, nil
}

func (r *productRepository) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	query := `
		SELECT id, company_id, sku, name, is_active, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	var product domain.Product
	if err := r.db.GetContext(ctx, &product, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("error getting product: %w", err)
	}

	return &product, nil
}

func (r *productRepository) ActiveProducts(ctx context.Context, companyID int64) ([]domain.Product, error) {
	query := `
		SELECT id, company_id, sku, name, is_active, created_at, updated_at
		FROM products
		WHERE company_id = $1 AND is_active = TRUE
		ORDER BY sku
	`

	var products []domain.Product
	if err := r.db.SelectContext(ctx, &products, query, companyID); err != nil {
		return nil, fmt.Errorf("error listing active products: %w", err)
	}

	return products, nil
}

func (r *productRepository) ProcurementConfig(ctx context.Context, productID int64) (*domain.ProcurementConfig, error) {
	query := `
		SELECT product_id, reorder_threshold_days, lead_time_days,
		       safety_stock_days, minimum_order_quantity
		FROM procurement_configs
		WHERE product_id = $1
	`

	var cfg domain.ProcurementConfig
	if err := r.db.GetContext(ctx, &cfg, query, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// No settings for this product; the engine applies defaults.
			return nil, nil
		}
		return nil, fmt.Errorf("error getting procurement config: %w", err)
	}

	return &cfg, nil
}

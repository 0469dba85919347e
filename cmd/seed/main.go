// cmd/seed/main.go
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func openDB(c *cli.Context) (*sql.DB, error) {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "seed",
		Usage: "Seed the database with synthetic demo data",
		Flags: []cli.Flag{
			newDBURLFlag(),
			&cli.IntFlag{
				Name:  "products",
				Usage: "Number of products to create",
				Value: 20,
			},
			&cli.IntFlag{
				Name:  "days",
				Usage: "Days of sales history to generate",
				Value: 365,
			},
			&cli.Int64Flag{
				Name:  "rand-seed",
				Usage: "Random seed for reproducible data",
				Value: 1,
			},
		},
		Action: func(c *cli.Context) error {
			db, err := openDB(c)
			if err != nil {
				return err
			}
			defer db.Close()

			return seed(c.Context, db, c.Int("products"), c.Int("days"), c.Int64("rand-seed"))
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func seed(ctx context.Context, db *sql.DB, productCount, days int, randSeed int64) error {
	rng := rand.New(rand.NewSource(randSeed))
	today := time.Now().UTC().Truncate(24 * time.Hour)

	var companyID int64
	err := db.QueryRowContext(ctx, `
		INSERT INTO companies (name, is_active) VALUES ('Demo Trading Co', TRUE)
		RETURNING id
	`).Scan(&companyID)
	if err != nil {
		return fmt.Errorf("failed to create company: %w", err)
	}

	for i := 1; i <= productCount; i++ {
		var productID int64
		err := db.QueryRowContext(ctx, `
			INSERT INTO products (company_id, sku, name, is_active)
			VALUES ($1, $2, $3, TRUE)
			RETURNING id
		`, companyID, fmt.Sprintf("SKU-%04d", i), fmt.Sprintf("Demo Product %d", i)).Scan(&productID)
		if err != nil {
			return fmt.Errorf("failed to create product %d: %w", i, err)
		}

		// Every third product gets explicit settings; the rest exercise the
		// engine defaults.
		if i%3 == 0 {
			_, err = db.ExecContext(ctx, `
				INSERT INTO procurement_configs
					(product_id, reorder_threshold_days, lead_time_days, safety_stock_days, minimum_order_quantity)
				VALUES ($1, $2, $3, $4, $5)
			`, productID, 5+rng.Intn(5), 7+rng.Intn(14), 2+rng.Intn(4), 1+rng.Intn(10))
			if err != nil {
				return fmt.Errorf("failed to create procurement config: %w", err)
			}
		}

		if err := seedSales(ctx, db, rng, productID, today, days); err != nil {
			return err
		}

		_, err = db.ExecContext(ctx, `
			INSERT INTO inventory_snapshots (product_id, snapshot_date, quantity_available)
			VALUES ($1, $2, $3)
		`, productID, today, rng.Intn(500))
		if err != nil {
			return fmt.Errorf("failed to create inventory snapshot: %w", err)
		}

		// Every fifth product has an order already on the way.
		if i%5 == 0 {
			if err := seedPurchaseOrder(ctx, db, rng, companyID, productID, today, i); err != nil {
				return err
			}
		}
	}

	log.Printf("Seeded company %d with %d products and %d days of sales", companyID, productCount, days)
	return nil
}

func seedPurchaseOrder(ctx context.Context, db *sql.DB, rng *rand.Rand, companyID, productID int64, today time.Time, seq int) error {
	statuses := []string{"SUBMITTED", "CONFIRMED", "IN_TRANSIT"}
	status := statuses[rng.Intn(len(statuses))]
	orderDate := today.AddDate(0, 0, -rng.Intn(10))
	expected := orderDate.AddDate(0, 0, 7+rng.Intn(14))

	var poID int64
	err := db.QueryRowContext(ctx, `
		INSERT INTO purchase_orders (company_id, po_number, order_date, expected_delivery, status, supplier_name)
		VALUES ($1, $2, $3, $4, $5, 'Demo Supplier')
		RETURNING id
	`, companyID, fmt.Sprintf("PO-%06d", seq), orderDate, expected, status).Scan(&poID)
	if err != nil {
		return fmt.Errorf("failed to create purchase order: %w", err)
	}

	ordered := 20 + rng.Intn(200)
	_, err = db.ExecContext(ctx, `
		INSERT INTO purchase_order_items (purchase_order_id, product_id, quantity_ordered, quantity_received)
		VALUES ($1, $2, $3, 0)
	`, poID, productID, ordered)
	if err != nil {
		return fmt.Errorf("failed to create purchase order item: %w", err)
	}
	return nil
}

// seedSales writes a daily aggregate per day with base demand 5..50, a weekend
// lift, and roughly one stockout-looking gap per month.
func seedSales(ctx context.Context, db *sql.DB, rng *rand.Rand, productID int64, today time.Time, days int) error {
	base := 5 + rng.Intn(46)

	for d := days; d >= 1; d-- {
		date := today.AddDate(0, 0, -d)

		if rng.Float64() < 0.03 {
			continue
		}

		quantity := base + rng.Intn(base/2+1) - base/4
		if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			quantity += base / 3
		}
		if quantity < 0 {
			quantity = 0
		}

		_, err := db.ExecContext(ctx, `
			INSERT INTO daily_sales_aggregates (product_id, date, total_quantity)
			VALUES ($1, $2, $3)
			ON CONFLICT (product_id, date) DO UPDATE SET total_quantity = EXCLUDED.total_quantity
		`, productID, date, quantity)
		if err != nil {
			return fmt.Errorf("failed to create sales aggregate: %w", err)
		}
	}

	return nil
}

// cmd/analyze/main.go
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/andresuchdata/stockpredictor/internal/batch"
	"github.com/andresuchdata/stockpredictor/internal/cache"
	"github.com/andresuchdata/stockpredictor/internal/config"
	"github.com/andresuchdata/stockpredictor/internal/domain"
	"github.com/andresuchdata/stockpredictor/internal/repository/postgres"
	"github.com/andresuchdata/stockpredictor/internal/service"
	"github.com/andresuchdata/stockpredictor/pkg/logger"
	"github.com/urfave/cli/v2"
)

func newCompanyFlag() *cli.Int64Flag {
	return &cli.Int64Flag{
		Name:     "company",
		Usage:    "Company ID to process",
		Required: true,
	}
}

func newDateFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "date",
		Usage: "Analysis date in YYYY-MM-DD format (defaults to today)",
		Value: time.Now().Format("2006-01-02"),
	}
}

type app struct {
	runner      *batch.Runner
	forecasting *service.ForecastService
	procurement *service.ProcurementService
}

func buildApp() (*app, error) {
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	reportCache, err := cache.NewReportCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("report cache unavailable, continuing without it")
		reportCache = cache.NewNoopReportCache()
	}

	companies := postgres.NewCompanyRepository(db.DB)
	products := postgres.NewProductRepository(db.DB)
	sales := postgres.NewSalesRepository(db.DB)
	inventory := postgres.NewInventoryRepository(db.DB)
	orders := postgres.NewPurchaseOrderRepository(db.DB)
	forecasts := postgres.NewForecastRepository(db)
	accuracy := postgres.NewAccuracyRepository(db.DB)
	recommendations := postgres.NewRecommendationRepository(db)

	forecasting := service.NewForecastService(sales, forecasts, accuracy, cfg.Engine)
	procurement := service.NewProcurementService(
		companies, products, sales, inventory, orders,
		forecasts, recommendations, reportCache, cfg.Engine,
	)
	runner := batch.NewRunner(companies, products, forecasting, procurement, cfg.Engine)

	return &app{
		runner:      runner,
		forecasting: forecasting,
		procurement: procurement,
	}, nil
}

func parseDate(c *cli.Context) (time.Time, error) {
	date, err := time.ParseInLocation("2006-01-02", c.String("date"), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", c.String("date"), err)
	}
	return date, nil
}

func main() {
	cliApp := &cli.App{
		Name:  "analyze",
		Usage: "Demand forecasting and procurement analysis",
		Commands: []*cli.Command{
			{
				Name:  "forecast",
				Usage: "Generate demand forecasts for all active products of a company",
				Flags: []cli.Flag{newCompanyFlag(), newDateFlag()},
				Action: func(c *cli.Context) error {
					a, err := buildApp()
					if err != nil {
						return err
					}
					date, err := parseDate(c)
					if err != nil {
						return err
					}

					summary, err := a.runner.RunForecasts(c.Context, c.Int64("company"), date)
					if err != nil {
						return err
					}
					fmt.Printf("Forecasted %d/%d products (%d failed) in %v\n",
						summary.Succeeded, summary.TotalProducts, summary.Failed, summary.Duration)
					return nil
				},
			},
			{
				Name:  "analyze",
				Usage: "Generate procurement recommendations for all active products of a company",
				Flags: []cli.Flag{newCompanyFlag(), newDateFlag()},
				Action: func(c *cli.Context) error {
					a, err := buildApp()
					if err != nil {
						return err
					}
					date, err := parseDate(c)
					if err != nil {
						return err
					}

					summary, err := a.runner.RunAnalysis(c.Context, c.Int64("company"), date)
					if err != nil {
						return err
					}
					fmt.Printf("Analyzed %d/%d products (%d failed) in %v\n",
						summary.Succeeded, summary.TotalProducts, summary.Failed, summary.Duration)
					for category, count := range summary.CategoryCounts {
						fmt.Printf("  %-20s %d\n", category, count)
					}
					return nil
				},
			},
			{
				Name:  "report",
				Usage: "Print the procurement report for a company and date",
				Flags: []cli.Flag{newCompanyFlag(), newDateFlag()},
				Action: func(c *cli.Context) error {
					a, err := buildApp()
					if err != nil {
						return err
					}
					date, err := parseDate(c)
					if err != nil {
						return err
					}

					report, err := a.procurement.CompanyReport(c.Context, c.Int64("company"), date)
					if err != nil {
						return err
					}
					printReport(report)
					return nil
				},
			},
			{
				Name:  "accuracy",
				Usage: "Evaluate week-old forecasts against actual sales",
				Flags: []cli.Flag{newDateFlag()},
				Action: func(c *cli.Context) error {
					a, err := buildApp()
					if err != nil {
						return err
					}
					date, err := parseDate(c)
					if err != nil {
						return err
					}

					evaluated, err := a.forecasting.EvaluateAccuracy(c.Context, date)
					if err != nil {
						return err
					}
					fmt.Printf("Evaluated %d forecasts\n", evaluated)
					return nil
				},
			},
			{
				Name:  "cleanup",
				Usage: "Delete forecasts and recommendations past their retention windows",
				Flags: []cli.Flag{newDateFlag()},
				Action: func(c *cli.Context) error {
					a, err := buildApp()
					if err != nil {
						return err
					}
					date, err := parseDate(c)
					if err != nil {
						return err
					}

					forecastsDeleted, err := a.forecasting.CleanupForecasts(c.Context, date)
					if err != nil {
						return err
					}
					recsDeleted, err := a.procurement.CleanupRecommendations(c.Context, date)
					if err != nil {
						return err
					}
					fmt.Printf("Deleted %d forecasts, %d recommendations\n", forecastsDeleted, recsDeleted)
					return nil
				},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("command failed")
	}
}

func printReport(report *domain.CompanyReport) {
	fmt.Printf("Procurement report for %s (%s)\n",
		report.CompanyName, report.AnalysisDate.Format("2006-01-02"))
	for category, count := range report.CategoryCounts {
		fmt.Printf("  %-20s %d\n", category, count)
	}

	sections := []struct {
		title string
		items []domain.Recommendation
	}{
		{"ORDER TODAY", report.OrderToday},
		{"ALREADY ORDERED", report.AlreadyOrdered},
		{"ATTENTION REQUIRED", report.AttentionRequired},
	}
	for _, section := range sections {
		if len(section.items) == 0 {
			continue
		}
		fmt.Printf("\n%s\n", section.title)
		for _, rec := range section.items {
			fmt.Printf("  %-16s %-30s runway=%3dd  order=%5d  priority=%s\n",
				rec.SKU, rec.ProductName, rec.RunwayDays, rec.RecommendedQuantity, rec.PriorityScore)
		}
	}
}

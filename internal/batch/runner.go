// internal/batch/runner.go
package batch

import (
	"context"
	"sync"
	"time"

	"github.com/andresuchdata/stockpredictor/internal/config"
	"github.com/andresuchdata/stockpredictor/internal/domain"
	"github.com/andresuchdata/stockpredictor/internal/repository"
	"github.com/andresuchdata/stockpredictor/internal/service"
	"github.com/rs/zerolog/log"
)

// RunSummary reports what one batch run did. A product that failed is counted
// and logged but never aborts the run; only a missing company does that.
type RunSummary struct {
	CompanyID      int64
	AnalysisDate   time.Time
	TotalProducts  int
	Succeeded      int
	Failed         int
	CategoryCounts map[domain.ActionCategory]int
	Duration       time.Duration
}

// Runner fans the per-product work out over a bounded worker pool.
type Runner struct {
	companies   repository.CompanyReader
	products    repository.ProductReader
	forecasting *service.ForecastService
	procurement *service.ProcurementService
	workerCount int
}

func NewRunner(
	companies repository.CompanyReader,
	products repository.ProductReader,
	forecasting *service.ForecastService,
	procurement *service.ProcurementService,
	engine config.EngineConfig,
) *Runner {
	workers := engine.WorkerCount
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		companies:   companies,
		products:    products,
		forecasting: forecasting,
		procurement: procurement,
		workerCount: workers,
	}
}

// RunForecasts generates forecasts for every active product of a company.
func (r *Runner) RunForecasts(ctx context.Context, companyID int64, asOf time.Time) (*RunSummary, error) {
	return r.run(ctx, companyID, asOf, func(ctx context.Context, productID int64) (domain.ActionCategory, error) {
		_, err := r.forecasting.GenerateProductForecast(ctx, productID, asOf)
		return "", err
	})
}

// RunAnalysis produces a recommendation for every active product of a company.
func (r *Runner) RunAnalysis(ctx context.Context, companyID int64, analysisDate time.Time) (*RunSummary, error) {
	return r.run(ctx, companyID, analysisDate, func(ctx context.Context, productID int64) (domain.ActionCategory, error) {
		rec, err := r.procurement.AnalyzeProduct(ctx, productID, analysisDate)
		if err != nil {
			return "", err
		}
		return rec.ActionCategory, nil
	})
}

type productResult struct {
	category domain.ActionCategory
	err      error
}

func (r *Runner) run(ctx context.Context, companyID int64, date time.Time, work func(context.Context, int64) (domain.ActionCategory, error)) (*RunSummary, error) {
	started := time.Now()

	// A missing or inactive company is a caller error, not a per-product failure.
	if _, err := r.companies.GetCompany(ctx, companyID); err != nil {
		return nil, err
	}

	products, err := r.products.ActiveProducts(ctx, companyID)
	if err != nil {
		return nil, err
	}

	jobChan := make(chan domain.Product, len(products))
	resultChan := make(chan productResult, len(products))
	var wg sync.WaitGroup

	for i := 0; i < r.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for product := range jobChan {
				category, err := work(ctx, product.ID)
				if err != nil {
					log.Error().Err(err).
						Int64("product_id", product.ID).
						Str("sku", product.SKU).
						Msg("product failed")
				}
				resultChan <- productResult{category: category, err: err}
			}
		}()
	}

	for _, product := range products {
		select {
		case <-ctx.Done():
			close(jobChan)
			wg.Wait()
			return nil, ctx.Err()
		case jobChan <- product:
		}
	}
	close(jobChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	summary := &RunSummary{
		CompanyID:      companyID,
		AnalysisDate:   date,
		TotalProducts:  len(products),
		CategoryCounts: make(map[domain.ActionCategory]int),
	}
	for res := range resultChan {
		if res.err != nil {
			summary.Failed++
			continue
		}
		summary.Succeeded++
		if res.category != "" {
			summary.CategoryCounts[res.category]++
		}
	}
	summary.Duration = time.Since(started)

	log.Info().
		Int64("company_id", companyID).
		Int("total", summary.TotalProducts).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Dur("duration", summary.Duration).
		Msg("batch run completed")

	return summary, nil
}

package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/andresuchdata/stockpredictor/internal/config"
	"github.com/andresuchdata/stockpredictor/internal/domain"
	"github.com/andresuchdata/stockpredictor/internal/forecast"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEngine = config.EngineConfig{
	ForecastLookbackDays:        180,
	ForecastHorizonDays:         30,
	MinHistoryDaysForML:         30,
	BurnRateWindowDays:          30,
	WorkerCount:                 2,
	ForecastRetentionDays:       90,
	RecommendationRetentionDays: 30,
}

// --- fakes ---

type fakeSales struct {
	aggregates    []domain.DailySalesAggregate
	windowTotal   int
	windowDays    int
	lastWindowArg time.Time
}

func (f *fakeSales) DailyAggregates(ctx context.Context, productID int64, from, to time.Time) ([]domain.DailySalesAggregate, error) {
	return f.aggregates, nil
}

func (f *fakeSales) BurnRateWindow(ctx context.Context, productID int64, from, to time.Time) (int, int, error) {
	f.lastWindowArg = from
	return f.windowTotal, f.windowDays, nil
}

type fakeForecastStore struct {
	upserted   []domain.Forecast
	confidence *decimal.Decimal
	deleted    int64
}

func (f *fakeForecastStore) UpsertBatch(ctx context.Context, forecasts []domain.Forecast) error {
	f.upserted = append(f.upserted, forecasts...)
	return nil
}

func (f *fakeForecastStore) ConfidenceScore(ctx context.Context, productID int64, date time.Time) (*decimal.Decimal, error) {
	return f.confidence, nil
}

func (f *fakeForecastStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return f.deleted, nil
}

type fakeAccuracy struct {
	evaluationDate time.Time
	forecastDate   time.Time
	evaluated      int64
}

func (f *fakeAccuracy) EvaluateDate(ctx context.Context, evaluationDate, forecastDate time.Time) (int64, error) {
	f.evaluationDate = evaluationDate
	f.forecastDate = forecastDate
	return f.evaluated, nil
}

type fakeCompanies struct {
	companies map[int64]*domain.Company
}

func (f *fakeCompanies) GetCompany(ctx context.Context, id int64) (*domain.Company, error) {
	c, ok := f.companies[id]
	if !ok {
		return nil, fmt.Errorf("company %d: %w", id, domain.ErrNotFound)
	}
	return c, nil
}

type fakeProducts struct {
	product *domain.Product
	cfg     *domain.ProcurementConfig
	active  []domain.Product
}

func (f *fakeProducts) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	if f.product == nil || f.product.ID != id {
		return nil, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}
	return f.product, nil
}

func (f *fakeProducts) ActiveProducts(ctx context.Context, companyID int64) ([]domain.Product, error) {
	return f.active, nil
}

func (f *fakeProducts) ProcurementConfig(ctx context.Context, productID int64) (*domain.ProcurementConfig, error) {
	return f.cfg, nil
}

type fakeInventory struct {
	snapshot *domain.InventorySnapshot
}

func (f *fakeInventory) LatestSnapshot(ctx context.Context, productID int64, asOf time.Time) (*domain.InventorySnapshot, error) {
	return f.snapshot, nil
}

type fakeOrders struct {
	inTransit int
}

func (f *fakeOrders) InTransitQuantity(ctx context.Context, productID int64) (int, error) {
	return f.inTransit, nil
}

type fakeRecommendationStore struct {
	upserted []domain.Recommendation
	counts   map[domain.ActionCategory]int
	byCat    map[domain.ActionCategory][]domain.Recommendation
	critical []domain.Recommendation
}

func (f *fakeRecommendationStore) Upsert(ctx context.Context, rec *domain.Recommendation) error {
	f.upserted = append(f.upserted, *rec)
	return nil
}

func (f *fakeRecommendationStore) CategoryCounts(ctx context.Context, companyID int64, analysisDate time.Time) (map[domain.ActionCategory]int, error) {
	return f.counts, nil
}

func (f *fakeRecommendationStore) ByCategory(ctx context.Context, companyID int64, analysisDate time.Time, category domain.ActionCategory, limit int) ([]domain.Recommendation, error) {
	items := f.byCat[category]
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (f *fakeRecommendationStore) Critical(ctx context.Context, companyID int64, analysisDate time.Time, minPriority decimal.Decimal, limit int) ([]domain.Recommendation, error) {
	return f.critical, nil
}

func (f *fakeRecommendationStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return int64(len(f.upserted)), nil
}

type fakeReportCache struct {
	reports       map[string]*domain.CompanyReport
	hits          int
	sets          int
	invalidations int
}

func newFakeReportCache() *fakeReportCache {
	return &fakeReportCache{reports: make(map[string]*domain.CompanyReport)}
}

func (f *fakeReportCache) key(companyID int64, date time.Time) string {
	return fmt.Sprintf("%d:%s", companyID, date.Format("2006-01-02"))
}

func (f *fakeReportCache) GetReport(ctx context.Context, companyID int64, analysisDate time.Time) (*domain.CompanyReport, bool, error) {
	report, ok := f.reports[f.key(companyID, analysisDate)]
	if ok {
		f.hits++
	}
	return report, ok, nil
}

func (f *fakeReportCache) SetReport(ctx context.Context, report *domain.CompanyReport) error {
	f.sets++
	f.reports[f.key(report.CompanyID, report.AnalysisDate)] = report
	return nil
}

func (f *fakeReportCache) InvalidateReport(ctx context.Context, companyID int64, analysisDate time.Time) error {
	f.invalidations++
	delete(f.reports, f.key(companyID, analysisDate))
	return nil
}

func (f *fakeReportCache) InvalidateAll(ctx context.Context) error {
	f.reports = make(map[string]*domain.CompanyReport)
	return nil
}

// --- forecast service ---

func denseAggregates(productID int64, end time.Time, days int, quantity func(int) int) []domain.DailySalesAggregate {
	out := make([]domain.DailySalesAggregate, 0, days)
	for d := days; d >= 1; d-- {
		out = append(out, domain.DailySalesAggregate{
			ProductID:     productID,
			Date:          end.AddDate(0, 0, -d),
			TotalQuantity: quantity(days - d),
		})
	}
	return out
}

func TestGenerateProductForecastFallsBackOnSparseHistory(t *testing.T) {
	asOf := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	sales := &fakeSales{aggregates: denseAggregates(1, asOf, 8, func(i int) int { return 10 })}
	store := &fakeForecastStore{}

	svc := NewForecastService(sales, store, &fakeAccuracy{}, testEngine)
	result, err := svc.GenerateProductForecast(context.Background(), 1, asOf)
	require.NoError(t, err)

	assert.Equal(t, forecast.SimpleModelVersion, result.ModelVersion)
	assert.Len(t, store.upserted, testEngine.ForecastHorizonDays)
	assert.Equal(t, asOf.AddDate(0, 0, 1), store.upserted[0].ForecastDate)
}

func TestGenerateProductForecastUsesRegressionOnRichHistory(t *testing.T) {
	asOf := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	sales := &fakeSales{aggregates: denseAggregates(1, asOf, 120, func(i int) int {
		return 15 + i%7
	})}
	store := &fakeForecastStore{}

	svc := NewForecastService(sales, store, &fakeAccuracy{}, testEngine)
	result, err := svc.GenerateProductForecast(context.Background(), 1, asOf)
	require.NoError(t, err)

	assert.Equal(t, forecast.RegressionModelVersion, result.ModelVersion)
	assert.Len(t, store.upserted, testEngine.ForecastHorizonDays)
	for _, row := range store.upserted {
		assert.GreaterOrEqual(t, row.PredictedQuantity, 0)
		assert.Equal(t, forecast.RegressionModelVersion, row.ModelVersion)
	}
}

func TestGenerateProductForecastEmptyHistory(t *testing.T) {
	asOf := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	store := &fakeForecastStore{}

	svc := NewForecastService(&fakeSales{}, store, &fakeAccuracy{}, testEngine)
	result, err := svc.GenerateProductForecast(context.Background(), 1, asOf)
	require.NoError(t, err)

	assert.Equal(t, forecast.SimpleModelVersion, result.ModelVersion)
	for _, row := range store.upserted {
		assert.Equal(t, 0, row.PredictedQuantity)
	}
}

func TestBuildHistoryFillsGapsWithZeros(t *testing.T) {
	asOf := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	aggregates := []domain.DailySalesAggregate{
		{ProductID: 1, Date: asOf.AddDate(0, 0, -5), TotalQuantity: 3},
		{ProductID: 1, Date: asOf.AddDate(0, 0, -2), TotalQuantity: 7},
	}

	history := buildHistory(aggregates, asOf)
	require.Len(t, history, 6) // first sale through asOf inclusive

	assert.Equal(t, 3.0, history[0].Quantity)
	assert.Equal(t, 0.0, history[1].Quantity)
	assert.Equal(t, 0.0, history[2].Quantity)
	assert.Equal(t, 7.0, history[3].Quantity)
	assert.Equal(t, 0.0, history[4].Quantity)
	assert.Equal(t, 0.0, history[5].Quantity)

	for i := 1; i < len(history); i++ {
		assert.Equal(t, history[i-1].Date.AddDate(0, 0, 1), history[i].Date)
	}
}

func TestEvaluateAccuracyUsesWeekOldForecasts(t *testing.T) {
	evalDate := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	accuracy := &fakeAccuracy{evaluated: 12}

	svc := NewForecastService(&fakeSales{}, &fakeForecastStore{}, accuracy, testEngine)
	n, err := svc.EvaluateAccuracy(context.Background(), evalDate)
	require.NoError(t, err)

	assert.Equal(t, int64(12), n)
	assert.Equal(t, evalDate, accuracy.evaluationDate)
	assert.Equal(t, evalDate.AddDate(0, 0, -7), accuracy.forecastDate)
}

// --- procurement service ---

func newProcurementFixture() (*ProcurementService, *fakeRecommendationStore, *fakeReportCache, *fakeSales) {
	companies := &fakeCompanies{companies: map[int64]*domain.Company{
		1: {ID: 1, Name: "Demo Trading Co", IsActive: true},
	}}
	products := &fakeProducts{
		product: &domain.Product{ID: 42, CompanyID: 1, SKU: "SKU-0042", Name: "Widget", IsActive: true},
	}
	sales := &fakeSales{windowTotal: 75, windowDays: 30}
	inventory := &fakeInventory{snapshot: &domain.InventorySnapshot{ProductID: 42, QuantityAvailable: 5}}
	orders := &fakeOrders{}
	store := &fakeRecommendationStore{}
	reportCache := newFakeReportCache()

	svc := NewProcurementService(
		companies, products, sales, inventory, orders,
		&fakeForecastStore{}, store, reportCache, testEngine,
	)
	return svc, store, reportCache, sales
}

func TestAnalyzeProductPersistsRecommendation(t *testing.T) {
	analysisDate := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	svc, store, reportCache, _ := newProcurementFixture()

	rec, err := svc.AnalyzeProduct(context.Background(), 42, analysisDate)
	require.NoError(t, err)

	assert.Equal(t, domain.ActionOrderToday, rec.ActionCategory)
	assert.Equal(t, 2, rec.RunwayDays)
	assert.Equal(t, 37, rec.RecommendedQuantity)
	assert.Equal(t, true, rec.Metadata["defaults_applied"])

	require.Len(t, store.upserted, 1)
	assert.Equal(t, rec.ProductID, store.upserted[0].ProductID)
	assert.Equal(t, 1, reportCache.invalidations)
}

func TestAnalyzeProductUnknownProduct(t *testing.T) {
	svc, _, _, _ := newProcurementFixture()

	_, err := svc.AnalyzeProduct(context.Background(), 999, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAnalyzeProductBurnRateWindowStart(t *testing.T) {
	analysisDate := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	svc, _, _, sales := newProcurementFixture()

	_, err := svc.AnalyzeProduct(context.Background(), 42, analysisDate)
	require.NoError(t, err)

	assert.Equal(t, analysisDate.AddDate(0, 0, -testEngine.BurnRateWindowDays), sales.lastWindowArg)
}

func TestCompanyReportBuildsAndCaches(t *testing.T) {
	analysisDate := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	svc, store, reportCache, _ := newProcurementFixture()

	store.counts = map[domain.ActionCategory]int{
		domain.ActionOrderToday: 3,
		domain.ActionNormal:     12,
	}
	store.byCat = map[domain.ActionCategory][]domain.Recommendation{
		domain.ActionOrderToday: {
			{ProductID: 1, SKU: "A"},
			{ProductID: 2, SKU: "B"},
			{ProductID: 3, SKU: "C"},
		},
	}

	report, err := svc.CompanyReport(context.Background(), 1, analysisDate)
	require.NoError(t, err)

	assert.Equal(t, "Demo Trading Co", report.CompanyName)
	assert.Equal(t, 3, report.CategoryCounts[domain.ActionOrderToday])
	assert.Len(t, report.OrderToday, 3)
	assert.Empty(t, report.AlreadyOrdered)
	assert.Equal(t, 1, reportCache.sets)

	// A second read is served from the cache.
	again, err := svc.CompanyReport(context.Background(), 1, analysisDate)
	require.NoError(t, err)
	assert.Equal(t, report, again)
	assert.Equal(t, 1, reportCache.hits)
	assert.Equal(t, 1, reportCache.sets)
}

func TestCompanyReportUnknownCompany(t *testing.T) {
	svc, _, _, _ := newProcurementFixture()

	_, err := svc.CompanyReport(context.Background(), 99, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCleanupRecommendationsDropsCachedReports(t *testing.T) {
	analysisDate := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	svc, _, reportCache, _ := newProcurementFixture()

	reportCache.reports[reportCache.key(1, analysisDate)] = &domain.CompanyReport{CompanyID: 1}

	_, err := svc.CleanupRecommendations(context.Background(), analysisDate)
	require.NoError(t, err)
	assert.Empty(t, reportCache.reports)
}

func TestCriticalItemsUnknownCompany(t *testing.T) {
	svc, _, _, _ := newProcurementFixture()

	_, err := svc.CriticalItems(context.Background(), 99, time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

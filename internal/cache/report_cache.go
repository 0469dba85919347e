package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/andresuchdata/stockpredictor/internal/config"
	"github.com/andresuchdata/stockpredictor/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	reportKeyPrefix     = "procurement:report"
	reportScanBatchSize = 100
)

// ReportCache caches rendered company reports. A re-run of the analysis for the
// same date invalidates the entry so planners never read a stale report.
type ReportCache interface {
	GetReport(ctx context.Context, companyID int64, analysisDate time.Time) (*domain.CompanyReport, bool, error)
	SetReport(ctx context.Context, report *domain.CompanyReport) error
	InvalidateReport(ctx context.Context, companyID int64, analysisDate time.Time) error
	InvalidateAll(ctx context.Context) error
}

type redisReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopReportCache struct{}

func NewReportCache(cfg config.CacheConfig) (ReportCache, error) {
	if !cfg.Enabled {
		return &noopReportCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisReportCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopReportCache() ReportCache {
	return &noopReportCache{}
}

func (c *redisReportCache) GetReport(ctx context.Context, companyID int64, analysisDate time.Time) (*domain.CompanyReport, bool, error) {
	key := buildReportKey(companyID, analysisDate)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var report domain.CompanyReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, false, fmt.Errorf("decode report cache: %w", err)
	}

	return &report, true, nil
}

func (c *redisReportCache) SetReport(ctx context.Context, report *domain.CompanyReport) error {
	key := buildReportKey(report.CompanyID, report.AnalysisDate)
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisReportCache) InvalidateReport(ctx context.Context, companyID int64, analysisDate time.Time) error {
	return c.client.Del(ctx, buildReportKey(companyID, analysisDate)).Err()
}

func (c *redisReportCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, reportKeyPrefix, reportScanBatchSize)
}

func (n *noopReportCache) GetReport(ctx context.Context, companyID int64, analysisDate time.Time) (*domain.CompanyReport, bool, error) {
	return nil, false, nil
}

func (n *noopReportCache) SetReport(ctx context.Context, report *domain.CompanyReport) error {
	return nil
}

func (n *noopReportCache) InvalidateReport(ctx context.Context, companyID int64, analysisDate time.Time) error {
	return nil
}

func (n *noopReportCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildReportKey(companyID int64, analysisDate time.Time) string {
	return fmt.Sprintf("%s:%d:%s", reportKeyPrefix, companyID, analysisDate.Format("2006-01-02"))
}

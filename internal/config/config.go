// internal/config/config.go
package config

import (
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Database DatabaseConfig
	Cache    CacheConfig
	Engine   EngineConfig
	LogLevel string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	ReportTTLSeconds int
}

// EngineConfig holds the tunables of the forecasting and procurement engine.
// Defaults mirror the documented behavior: 180-day training lookback, 30-day
// horizon, 30-day burn rate window, and the retention windows of the cleanup job.
type EngineConfig struct {
	ForecastLookbackDays        int
	ForecastHorizonDays         int
	MinHistoryDaysForML         int
	BurnRateWindowDays          int
	WorkerCount                 int
	TrainingBudgetSeconds       int
	ForecastRetentionDays       int
	RecommendationRetentionDays int
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "stockpredictor")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_REPORT_TTL_SECONDS", 300)
		viper.SetDefault("FORECAST_LOOKBACK_DAYS", 180)
		viper.SetDefault("FORECAST_HORIZON_DAYS", 30)
		viper.SetDefault("FORECAST_MIN_HISTORY_DAYS", 30)
		viper.SetDefault("BURN_RATE_WINDOW_DAYS", 30)
		viper.SetDefault("ENGINE_WORKER_COUNT", 4)
		viper.SetDefault("TRAINING_BUDGET_SECONDS", 60)
		viper.SetDefault("FORECAST_RETENTION_DAYS", 90)
		viper.SetDefault("RECOMMENDATION_RETENTION_DAYS", 30)
		viper.SetDefault("LOG_LEVEL", "info")

		viper.AutomaticEnv()

		instance = &Config{
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			Cache: CacheConfig{
				Enabled:          viper.GetBool("CACHE_ENABLED"),
				RedisURL:         viper.GetString("REDIS_URL"),
				RedisHost:        viper.GetString("REDIS_HOST"),
				RedisPort:        viper.GetString("REDIS_PORT"),
				RedisPassword:    viper.GetString("REDIS_PASSWORD"),
				RedisDB:          viper.GetInt("REDIS_DB"),
				ReportTTLSeconds: viper.GetInt("CACHE_REPORT_TTL_SECONDS"),
			},
			Engine: EngineConfig{
				ForecastLookbackDays:        viper.GetInt("FORECAST_LOOKBACK_DAYS"),
				ForecastHorizonDays:         viper.GetInt("FORECAST_HORIZON_DAYS"),
				MinHistoryDaysForML:         viper.GetInt("FORECAST_MIN_HISTORY_DAYS"),
				BurnRateWindowDays:          viper.GetInt("BURN_RATE_WINDOW_DAYS"),
				WorkerCount:                 viper.GetInt("ENGINE_WORKER_COUNT"),
				TrainingBudgetSeconds:       viper.GetInt("TRAINING_BUDGET_SECONDS"),
				ForecastRetentionDays:       viper.GetInt("FORECAST_RETENTION_DAYS"),
				RecommendationRetentionDays: viper.GetInt("RECOMMENDATION_RETENTION_DAYS"),
			},
			LogLevel: viper.GetString("LOG_LEVEL"),
		}
	})

	return instance
}

// Package config provides runtime configuration values for the service.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds configuration knobs for the HTTP server, caches, rate
// budgets, and the orchestration pipeline.
type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration

	GeocodeBaseURL   string
	StoresBaseURL    string
	InventoryBaseURL string
	APIKey           string
	JWTToken         string
	UpstreamRetryMax int

	CoordTTL      time.Duration
	StoreListTTL  time.Duration
	StockTTL      time.Duration
	CacheStaleFor time.Duration
	RedisAddr     string

	RadiusDefault     float64
	RadiusMaxAttempts int
	RadiusCap         float64
	StoreLimitDefault int

	StockMaxBatch      int
	StockMaxConcurrent int
	PerStoreTimeout    time.Duration
	PipelineDeadline   time.Duration

	GeocodeHourlyLimit int
	StoreHourlyLimit   int
	StockHourlyLimit   int
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func durenvms(key string, defMs int) time.Duration {
	ms := atoienv(key, defMs)
	return time.Duration(ms) * time.Millisecond
}

func durenvs(key string, defSec int) time.Duration {
	sec := atoienv(key, defSec)
	return time.Duration(sec) * time.Second
}

// Load collects configuration from environment with defaults.
func Load() Config {
	return Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		ShutdownTimeout: durenvs("SHUTDOWN_TIMEOUT", 15),

		GeocodeBaseURL:   getenv("GEOCODE_BASE_URL", "http://localhost:9001"),
		StoresBaseURL:    getenv("STORES_BASE_URL", "http://localhost:9002"),
		InventoryBaseURL: getenv("INVENTORY_BASE_URL", "http://localhost:9003"),
		APIKey:           getenv("UPSTREAM_API_KEY", ""),
		JWTToken:         getenv("UPSTREAM_JWT_TOKEN", ""),
		UpstreamRetryMax: atoienv("UPSTREAM_RETRY_MAX", 3),

		CoordTTL:      time.Duration(atoienv("COORD_TTL_HOURS", 24)) * time.Hour,
		StoreListTTL:  time.Duration(atoienv("STORE_TTL_MINUTES", 60)) * time.Minute,
		StockTTL:      durenvs("STOCK_TTL_SECONDS", 300),
		CacheStaleFor: time.Duration(atoienv("CACHE_STALE_MINUTES", 60)) * time.Minute,
		RedisAddr:     getenv("CACHE_REDIS_ADDR", ""),

		RadiusDefault:     float64(atoienv("RADIUS_DEFAULT_M", 5000)),
		RadiusMaxAttempts: atoienv("RADIUS_MAX_ATTEMPTS", 4),
		RadiusCap:         float64(atoienv("RADIUS_CAP_M", 40000)),
		StoreLimitDefault: atoienv("STORE_LIMIT_DEFAULT", 20),

		StockMaxBatch:      atoienv("STOCK_MAX_BATCH", 50),
		StockMaxConcurrent: atoienv("STOCK_MAX_CONCURRENT", 16),
		PerStoreTimeout:    durenvms("PER_STORE_TIMEOUT_MS", 2000),
		PipelineDeadline:   durenvms("PIPELINE_DEADLINE_MS", 5000),

		GeocodeHourlyLimit: atoienv("GEOCODE_HOURLY_LIMIT", 1000),
		StoreHourlyLimit:   atoienv("STORE_HOURLY_LIMIT", 500),
		StockHourlyLimit:   atoienv("STOCK_HOURLY_LIMIT", 2000),
	}
}

package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{
		"HTTP_ADDR", "SHUTDOWN_TIMEOUT", "COORD_TTL_HOURS", "STORE_TTL_MINUTES",
		"STOCK_TTL_SECONDS", "RADIUS_DEFAULT_M", "RADIUS_MAX_ATTEMPTS", "RADIUS_CAP_M",
		"PER_STORE_TIMEOUT_MS", "PIPELINE_DEADLINE_MS", "GEOCODE_HOURLY_LIMIT",
		"STOCK_MAX_BATCH", "STOCK_MAX_CONCURRENT", "CACHE_REDIS_ADDR",
	} {
		t.Setenv(k, "")
	}
	c := Load()
	if c.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr default")
	}
	if c.ShutdownTimeout != 15*time.Second {
		t.Fatalf("ShutdownTimeout default")
	}
	if c.CoordTTL != 24*time.Hour {
		t.Fatalf("CoordTTL default")
	}
	if c.StoreListTTL != time.Hour {
		t.Fatalf("StoreListTTL default")
	}
	if c.StockTTL != 5*time.Minute {
		t.Fatalf("StockTTL default")
	}
	if c.RadiusDefault != 5000 || c.RadiusMaxAttempts != 4 || c.RadiusCap != 40000 {
		t.Fatalf("radius defaults")
	}
	if c.PerStoreTimeout != 2*time.Second || c.PipelineDeadline != 5*time.Second {
		t.Fatalf("deadline defaults")
	}
	if c.GeocodeHourlyLimit != 1000 {
		t.Fatalf("geocode budget default")
	}
	if c.StockMaxBatch != 50 || c.StockMaxConcurrent != 16 {
		t.Fatalf("stock bounds default")
	}
	if c.RedisAddr != "" {
		t.Fatalf("expected memory cache by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("STOCK_TTL_SECONDS", "60")
	t.Setenv("RADIUS_MAX_ATTEMPTS", "2")
	t.Setenv("RADIUS_CAP_M", "10000")
	t.Setenv("PER_STORE_TIMEOUT_MS", "250")
	t.Setenv("GEOCODE_HOURLY_LIMIT", "10")
	t.Setenv("CACHE_REDIS_ADDR", "localhost:6379")
	c := Load()
	if c.HTTPAddr != ":9090" {
		t.Fatalf("HTTPAddr env")
	}
	if c.StockTTL != time.Minute {
		t.Fatalf("StockTTL env")
	}
	if c.RadiusMaxAttempts != 2 || c.RadiusCap != 10000 {
		t.Fatalf("radius env")
	}
	if c.PerStoreTimeout != 250*time.Millisecond {
		t.Fatalf("PerStoreTimeout env")
	}
	if c.GeocodeHourlyLimit != 10 {
		t.Fatalf("geocode budget env")
	}
	if c.RedisAddr != "localhost:6379" {
		t.Fatalf("RedisAddr env")
	}
}

func TestInvalidNumbersFallBackToDefaults(t *testing.T) {
	t.Setenv("STOCK_MAX_BATCH", "not-a-number")
	c := Load()
	if c.StockMaxBatch != 50 {
		t.Fatalf("expected default on malformed env, got %d", c.StockMaxBatch)
	}
}

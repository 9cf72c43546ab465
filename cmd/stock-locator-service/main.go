// Package main boots the Stock Locator Service HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/stock-locator-service/internal/cache"
	"github.com/fairyhunter13/stock-locator-service/internal/config"
	"github.com/fairyhunter13/stock-locator-service/internal/geocode"
	httpapi "github.com/fairyhunter13/stock-locator-service/internal/http"
	"github.com/fairyhunter13/stock-locator-service/internal/inventory"
	"github.com/fairyhunter13/stock-locator-service/internal/locator"
	"github.com/fairyhunter13/stock-locator-service/internal/model"
	"github.com/fairyhunter13/stock-locator-service/internal/obs"
	"github.com/fairyhunter13/stock-locator-service/internal/pipeline"
	"github.com/fairyhunter13/stock-locator-service/internal/ratelimit"
	"github.com/fairyhunter13/stock-locator-service/internal/snapshot"
	"github.com/fairyhunter13/stock-locator-service/internal/upstream"
)

func main() {
	cfg := config.Load()
	obs.InitLogger()
	obs.Logger.Info("service_starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var backend cache.Backend
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		backend = cache.NewRedis(rdb, cache.WithPrefix("stock-locator"))
		obs.Logger.Info("cache_backend", "kind", "redis", "addr", cfg.RedisAddr)
	} else {
		mem := cache.NewMemory()
		mem.StartJanitor(ctx, 2*time.Minute)
		backend = mem
		obs.Logger.Info("cache_backend", "kind", "memory")
	}

	limiter := ratelimit.New(map[ratelimit.Category]int{
		ratelimit.CategoryGeocode: cfg.GeocodeHourlyLimit,
		ratelimit.CategoryStore:   cfg.StoreHourlyLimit,
		ratelimit.CategoryStock:   cfg.StockHourlyLimit,
	})

	up := upstream.New(cfg)

	// No stale window for coordinates: a postcode that cannot be
	// geocoded has no usable fallback.
	coordCache := cache.New[model.Coordinates](backend, cfg.CoordTTL, 0)
	storeCache := cache.New[locator.Result](backend, cfg.StoreListTTL, 0)
	stockCache := cache.New[model.StockResult](backend, cfg.StockTTL, cfg.CacheStaleFor)

	snaps := snapshot.New()
	geocoder := geocode.New(up, coordCache, limiter)
	stores := locator.New(up, storeCache, limiter, locator.Options{
		RadiusDefault: cfg.RadiusDefault,
		RadiusCap:     cfg.RadiusCap,
		MaxAttempts:   cfg.RadiusMaxAttempts,
		LimitDefault:  cfg.StoreLimitDefault,
	})
	stock := inventory.New(up, stockCache, limiter, snaps, inventory.Options{
		MaxBatch:        cfg.StockMaxBatch,
		MaxConcurrent:   cfg.StockMaxConcurrent,
		PerStoreTimeout: cfg.PerStoreTimeout,
		GatherDeadline:  cfg.PipelineDeadline,
	})
	orch := pipeline.New(geocoder, stores, stock, snaps, cfg.PipelineDeadline)

	app := httpapi.NewApp(cfg, orch)
	mux := httpapi.NewRouter(app)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		obs.Logger.Info("http_listen", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			obs.Logger.Error("http_server_error", "error", err)
			os.Exit(1)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigc
	obs.Logger.Info("shutdown_signal", "signal", s.String())

	ctxSrv, cancelSrv := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelSrv()
	if err := srv.Shutdown(ctxSrv); err != nil {
		obs.Logger.Error("http_shutdown_error", "error", err)
	}
	obs.Logger.Info("service_stopped")
}

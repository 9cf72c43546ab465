// Package obs contains observability utilities such as logging.
package obs

import (
	"log/slog"
	"os"
	"time"
)

// Logger is the global structured logger used by the service.
//
// Logger is exported to allow other packages to use it for logging.
var Logger *slog.Logger

// InitLogger initializes the global Logger with JSON handler at info level.
//
// InitLogger is exported to allow other packages to initialize the Logger.
func InitLogger() {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	Logger = slog.New(h)
}

// StageEvent emits one structured event for a pipeline stage transition.
// Every stage of every flow logs exactly one of these.
func StageEvent(flowID, step string, took time.Duration, success bool, count int, productID string) {
	Logger.Info("pipeline_stage",
		"flow_id", flowID,
		"step", step,
		"duration_ms", float64(took.Microseconds())/1000.0,
		"success", success,
		"count", count,
		"product_id", productID,
	)
}

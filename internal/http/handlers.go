package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/fairyhunter13/stock-locator-service/internal/config"
	httpopenapi "github.com/fairyhunter13/stock-locator-service/internal/http/openapi"
	"github.com/fairyhunter13/stock-locator-service/internal/locator"
	"github.com/fairyhunter13/stock-locator-service/internal/model"
	"github.com/fairyhunter13/stock-locator-service/internal/obs"
	"github.com/fairyhunter13/stock-locator-service/internal/pipeline"
)

// Pipeline is the orchestrator entry point the API depends on.
type Pipeline interface {
	CheckAvailability(ctx context.Context, req pipeline.Request) (*model.PipelineResponse, error)
	Metrics() (requests, degraded, failed uint64)
}

// App holds the HTTP handlers and their collaborators.
type App struct {
	Cfg      config.Config
	Pipeline Pipeline
	started  time.Time
}

// dataEnvelope is the success half of the response envelope.
type dataEnvelope struct {
	Success   bool                    `json:"success"`
	Data      *model.PipelineResponse `json:"data"`
	Timestamp string                  `json:"timestamp"`
}

// NewApp constructs an App around the pipeline.
func NewApp(cfg config.Config, p Pipeline) *App {
	return &App{Cfg: cfg, Pipeline: p, started: time.Now()}
}

func (a *App) availabilityHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteJSONError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", "")
		return
	}
	q := r.URL.Query()
	postcode := q.Get("postcode")
	productID := q.Get("product_id")
	if postcode == "" || productID == "" {
		WriteJSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "postcode and product_id are required", "")
		return
	}

	req := pipeline.Request{
		Postcode:            postcode,
		ProductID:           productID,
		StoreType:           q.Get("store_type"),
		SortBy:              locator.SortKey(q.Get("sort")),
		Size:                q.Get("size"),
		Color:               q.Get("color"),
		IncludeAlternatives: q.Get("include_alternatives") == "true",
	}
	if v := q.Get("radius"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			WriteJSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "radius must be a positive number", v)
			return
		}
		req.Radius = f
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			WriteJSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a positive integer", v)
			return
		}
		req.Limit = n
	}

	resp, err := a.Pipeline.CheckAvailability(r.Context(), req)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(dataEnvelope{
		Success:   true,
		Data:      resp,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if resp.Degraded {
		obs.Logger.Info("availability_degraded",
			"request_id", RequestIDFromContext(r.Context()),
			"product_id", productID,
			"failures", len(resp.Failures),
		)
	}
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (a *App) metricsHandler(w http.ResponseWriter, r *http.Request) {
	requests, degraded, failed := a.Pipeline.Metrics()
	m := map[string]any{
		"pipeline_requests": requests,
		"pipeline_degraded": degraded,
		"pipeline_failed":   failed,
		"uptime_sec":        time.Since(a.started).Seconds(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(m)
}

func (a *App) openapiHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(httpopenapi.YAML)
}

func (a *App) docsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	html := `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui'
      });
    </script>
  </body>
</html>`
	_, _ = w.Write([]byte(html))
}

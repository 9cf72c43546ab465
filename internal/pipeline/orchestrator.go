// Package pipeline sequences the geocode, store-search, and stock-check
// stages into one availability answer and applies the degradation policy.
package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/stock-locator-service/internal/geocode"
	"github.com/fairyhunter13/stock-locator-service/internal/inventory"
	"github.com/fairyhunter13/stock-locator-service/internal/locator"
	"github.com/fairyhunter13/stock-locator-service/internal/model"
	"github.com/fairyhunter13/stock-locator-service/internal/obs"
	"github.com/fairyhunter13/stock-locator-service/internal/snapshot"
)

// Stage names a pipeline state. A request moves Validating -> Geocoding ->
// LocatingStores -> CheckingStock -> Assembled; Failed is terminal and
// reachable from any stage.
type Stage string

const (
	StageValidating     Stage = "validating"
	StageGeocoding      Stage = "geocoding"
	StageLocatingStores Stage = "locating_stores"
	StageCheckingStock  Stage = "checking_stock"
	StageAssembled      Stage = "assembled"
	StageFailed         Stage = "failed"
)

// Request is one end-to-end availability question.
type Request struct {
	Postcode            string
	ProductID           string
	Radius              float64
	Limit               int
	StoreType           string
	SortBy              locator.SortKey
	Size                string
	Color               string
	IncludeAlternatives bool
}

// Orchestrator wires the three stage clients together.
type Orchestrator struct {
	geocoder  *geocode.Client
	stores    *locator.Client
	stock     *inventory.Aggregator
	snapshots *snapshot.Store
	deadline  time.Duration

	requests atomic.Uint64
	degraded atomic.Uint64
	failed   atomic.Uint64
}

// New builds an Orchestrator enforcing the overall pipeline deadline.
func New(geocoder *geocode.Client, stores *locator.Client, stock *inventory.Aggregator, snaps *snapshot.Store, deadline time.Duration) *Orchestrator {
	return &Orchestrator{geocoder: geocoder, stores: stores, stock: stock, snapshots: snaps, deadline: deadline}
}

// Metrics returns lifetime request counters.
func (o *Orchestrator) Metrics() (requests, degraded, failed uint64) {
	return o.requests.Load(), o.degraded.Load(), o.failed.Load()
}

// CheckAvailability runs the full pipeline for req. Fatal outcomes are
// invalid postcode, geocoder unavailability, and a rejected rate budget;
// everything downstream degrades instead of failing, so the caller keeps
// the location and store data already resolved.
func (o *Orchestrator) CheckAvailability(ctx context.Context, req Request) (*model.PipelineResponse, error) {
	o.requests.Add(1)
	flowID := uuid.NewString()
	if o.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.deadline)
		defer cancel()
	}

	// Validating
	start := time.Now()
	canonical, err := geocode.Normalize(req.Postcode)
	o.emit(flowID, StageValidating, start, err == nil, 0, req.ProductID)
	if err != nil {
		return nil, o.fail(flowID, StageValidating, req.ProductID, err)
	}

	// Geocoding
	start = time.Now()
	coords, err := o.geocoder.Resolve(ctx, canonical)
	o.emit(flowID, StageGeocoding, start, err == nil, 0, req.ProductID)
	if err != nil {
		return nil, o.fail(flowID, StageGeocoding, req.ProductID, err)
	}

	resp := &model.PipelineResponse{
		Coordinates:  coords,
		Stores:       []model.Store{},
		StockResults: []model.StockResult{},
	}

	// LocatingStores
	start = time.Now()
	found, err := o.stores.Search(ctx, locator.Query{
		Center:    coords,
		Radius:    req.Radius,
		Limit:     req.Limit,
		StoreType: req.StoreType,
		SortBy:    req.SortBy,
	})
	o.emit(flowID, StageLocatingStores, start, err == nil, len(found.Stores), req.ProductID)
	if err != nil {
		return nil, o.fail(flowID, StageLocatingStores, req.ProductID, err)
	}
	resp.Stores = found.Stores
	if found.RadiusExhausted {
		// Zero stores after expansion is an answer, not an error.
		resp.RadiusExhausted = true
		resp.Warnings = append(resp.Warnings, "no stores found within the maximum search radius")
		o.emit(flowID, StageAssembled, start, true, 0, req.ProductID)
		return resp, nil
	}

	// CheckingStock
	storeIDs := make([]string, len(found.Stores))
	for i, s := range found.Stores {
		storeIDs[i] = s.StoreID
	}
	start = time.Now()
	checked, err := o.stock.BulkCheck(ctx, inventory.Request{
		ProductID:           req.ProductID,
		StoreIDs:            storeIDs,
		Size:                req.Size,
		Color:               req.Color,
		IncludeAlternatives: req.IncludeAlternatives,
	})
	o.emit(flowID, StageCheckingStock, start, err == nil, len(checked.StockResults), req.ProductID)
	switch {
	case err == nil:
	case model.IsCode(err, model.CodeRateLimited):
		return nil, o.fail(flowID, StageCheckingStock, req.ProductID, err)
	case model.IsCode(err, model.CodeAllStoresUnreachable):
		// Fall back to the last known snapshot per store, if any.
		// Failures then lists only the stores with no snapshot either.
		stale := o.staleResults(req.ProductID, storeIDs)
		checked.StockResults = stale
		checked.Failures = withoutSnapshots(storeIDs, stale)
		checked.Warnings = append(checked.Warnings, "live stock check unreachable for all stores")
		if len(stale) > 0 {
			checked.Warnings = append(checked.Warnings, "serving last known stock snapshots")
		}
		resp.Degraded = true
	default:
		return nil, o.fail(flowID, StageCheckingStock, req.ProductID, err)
	}

	resp.StockResults = checked.StockResults
	resp.Alternatives = checked.Alternatives
	resp.Failures = checked.Failures
	resp.Warnings = append(resp.Warnings, checked.Warnings...)
	if len(checked.Failures) > 0 {
		resp.Degraded = true
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("stock check failed for %d of %d stores", len(checked.Failures), len(storeIDs)))
	}
	for _, sr := range checked.StockResults {
		if sr.Stale {
			resp.Degraded = true
			break
		}
	}

	o.emit(flowID, StageAssembled, start, true, len(resp.StockResults), req.ProductID)
	if resp.Degraded {
		o.degraded.Add(1)
	}
	return resp, nil
}

// withoutSnapshots lists the store IDs that have no snapshot result.
func withoutSnapshots(storeIDs []string, stale []model.StockResult) []string {
	have := make(map[string]bool, len(stale))
	for _, sr := range stale {
		have[sr.StoreID] = true
	}
	var out []string
	for _, id := range storeIDs {
		if !have[id] {
			out = append(out, id)
		}
	}
	return out
}

// staleResults assembles snapshot fallbacks in store order.
func (o *Orchestrator) staleResults(productID string, storeIDs []string) []model.StockResult {
	out := []model.StockResult{}
	for _, id := range storeIDs {
		if res, ok := o.snapshots.Get(productID, id); ok {
			res.Stale = true
			out = append(out, res)
		}
	}
	return out
}

func (o *Orchestrator) emit(flowID string, step Stage, start time.Time, success bool, count int, productID string) {
	obs.StageEvent(flowID, string(step), time.Since(start), success, count, productID)
}

func (o *Orchestrator) fail(flowID string, at Stage, productID string, err error) error {
	o.failed.Add(1)
	obs.Logger.Warn("pipeline_failed",
		"flow_id", flowID,
		"step", string(at),
		"code", string(model.CodeOf(err)),
		"product_id", productID,
	)
	obs.StageEvent(flowID, string(StageFailed), 0, false, 0, productID)
	return err
}

// Package inventory runs the concurrent bulk stock check: independent
// per-store queries scattered against the inventory service, gathered
// under an overall deadline, with partial results assembled in input
// order.
package inventory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fairyhunter13/stock-locator-service/internal/cache"
	"github.com/fairyhunter13/stock-locator-service/internal/model"
	"github.com/fairyhunter13/stock-locator-service/internal/ratelimit"
	"github.com/fairyhunter13/stock-locator-service/internal/snapshot"
	"github.com/fairyhunter13/stock-locator-service/internal/upstream"
)

// Upstream is the slice of the inventory API the aggregator needs.
type Upstream interface {
	CheckStore(ctx context.Context, productID, storeID, size, color string) (upstream.StockRecord, error)
	Alternatives(ctx context.Context, productID string) ([]model.Alternative, error)
}

// Options bounds the fan-out.
type Options struct {
	MaxBatch        int
	MaxConcurrent   int
	PerStoreTimeout time.Duration
	GatherDeadline  time.Duration
}

// Request is one bulk stock check.
type Request struct {
	ProductID           string
	StoreIDs            []string
	Size                string
	Color               string
	IncludeAlternatives bool
}

// Result carries whatever the gather produced. Results follow the order
// of Request.StoreIDs regardless of completion order; a store appears in
// either StockResults or Failures, never both.
type Result struct {
	StockResults []model.StockResult
	Alternatives []model.Alternative
	Failures     []string
	Warnings     []string
}

// Aggregator scatters per-store stock queries and gathers partial results.
type Aggregator struct {
	upstream  Upstream
	cache     *cache.Cache[model.StockResult]
	limiter   *ratelimit.Limiter
	snapshots *snapshot.Store
	opts      Options
}

// New builds an Aggregator. The cache should carry the stock TTL class
// (<=5 min).
func New(up Upstream, c *cache.Cache[model.StockResult], limiter *ratelimit.Limiter, snaps *snapshot.Store, opts Options) *Aggregator {
	return &Aggregator{upstream: up, cache: c, limiter: limiter, snapshots: snaps, opts: opts}
}

type slot struct {
	res  model.StockResult
	err  error
	done atomic.Bool
}

// BulkCheck runs the scatter-gather for req. A store whose query errors
// or times out lands in Failures without disturbing the other in-flight
// queries; the alternatives lookup runs alongside them and its failure
// only produces a warning. When no store answers at all, BulkCheck
// returns the partial Result together with an ALL_STORES_UNREACHABLE
// error.
func (a *Aggregator) BulkCheck(ctx context.Context, req Request) (Result, error) {
	var out Result
	if len(req.StoreIDs) == 0 {
		out.StockResults = []model.StockResult{}
		return out, nil
	}
	ids := req.StoreIDs
	if a.opts.MaxBatch > 0 && len(ids) > a.opts.MaxBatch {
		ids = ids[:a.opts.MaxBatch]
		out.Warnings = append(out.Warnings, fmt.Sprintf("store batch truncated to %d", a.opts.MaxBatch))
	}

	tokens := len(ids)
	if req.IncludeAlternatives {
		tokens++
	}
	if err := a.limiter.AllowN(ratelimit.CategoryStock, tokens); err != nil {
		return out, err
	}

	gctx := ctx
	if a.opts.GatherDeadline > 0 {
		var cancel context.CancelFunc
		gctx, cancel = context.WithTimeout(ctx, a.opts.GatherDeadline)
		defer cancel()
	}

	slots := make([]slot, len(ids))
	sem := make(chan struct{}, a.concurrency())
	var wg sync.WaitGroup
	for i, storeID := range ids {
		wg.Add(1)
		go func(i int, storeID string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				slots[i].err = gctx.Err()
				slots[i].done.Store(true)
				return
			}
			res, err := a.checkOne(gctx, req, storeID)
			slots[i].res, slots[i].err = res, err
			slots[i].done.Store(true)
		}(i, storeID)
	}

	var alts []model.Alternative
	var altErr error
	altDone := make(chan struct{})
	if req.IncludeAlternatives {
		go func() {
			defer close(altDone)
			alts, altErr = a.upstream.Alternatives(gctx, req.ProductID)
		}()
	} else {
		close(altDone)
	}

	// Gather until everything finished or the deadline fires; tasks
	// still in flight at the deadline are abandoned, not awaited.
	finished := make(chan struct{})
	go func() {
		wg.Wait()
		<-altDone
		close(finished)
	}()
	select {
	case <-finished:
	case <-gctx.Done():
	}

	out.StockResults = make([]model.StockResult, 0, len(ids))
	for i, storeID := range ids {
		if !slots[i].done.Load() || slots[i].err != nil {
			out.Failures = append(out.Failures, storeID)
			continue
		}
		out.StockResults = append(out.StockResults, slots[i].res)
	}

	if req.IncludeAlternatives {
		select {
		case <-altDone:
			if altErr != nil {
				out.Warnings = append(out.Warnings, "alternatives lookup failed")
			} else {
				out.Alternatives = alts
			}
		default:
			out.Warnings = append(out.Warnings, "alternatives lookup abandoned at deadline")
		}
	}

	if len(out.StockResults) == 0 {
		return out, model.NewError(model.CodeAllStoresUnreachable, "no store answered the stock check", req.ProductID, nil)
	}
	return out, nil
}

func (a *Aggregator) concurrency() int {
	if a.opts.MaxConcurrent > 0 {
		return a.opts.MaxConcurrent
	}
	return 16
}

// checkOne resolves stock for a single store through the cache; each live
// query gets its own timeout so one slow store cannot starve the rest.
func (a *Aggregator) checkOne(ctx context.Context, req Request, storeID string) (model.StockResult, error) {
	key := fmt.Sprintf("stock:%s:%s:%s:%s", req.ProductID, storeID, req.Size, req.Color)
	res, stale, err := a.cache.GetOrFetch(ctx, key, func(ctx context.Context) (model.StockResult, error) {
		qctx := ctx
		if a.opts.PerStoreTimeout > 0 {
			var cancel context.CancelFunc
			qctx, cancel = context.WithTimeout(ctx, a.opts.PerStoreTimeout)
			defer cancel()
		}
		rec, err := a.upstream.CheckStore(qctx, req.ProductID, storeID, req.Size, req.Color)
		if err != nil {
			return model.StockResult{}, err
		}
		return fromRecord(rec, storeID), nil
	})
	if err != nil {
		return model.StockResult{}, err
	}
	res.Stale = stale
	if !stale {
		a.snapshots.Record(req.ProductID, res)
	}
	return res, nil
}

// fromRecord applies the uniform availability classification to a raw
// upstream record.
func fromRecord(rec upstream.StockRecord, storeID string) model.StockResult {
	id := rec.StoreID
	if id == "" {
		id = storeID
	}
	return model.StockResult{
		StoreID:            id,
		Availability:       model.ClassifyAvailability(rec.Quantity, rec.Discontinued),
		Quantity:           rec.Quantity,
		Variants:           rec.Variants,
		LastUpdated:        rec.LastUpdated,
		ReservationExpires: rec.ReservationExpires,
		EstimatedRestock:   rec.EstimatedRestock,
	}
}

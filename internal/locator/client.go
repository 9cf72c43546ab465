// Package locator searches for stores near a resolved location, with
// radius-expansion retry and deterministic ordering.
package locator

import (
	"context"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/singleflight"

	"github.com/fairyhunter13/stock-locator-service/internal/cache"
	"github.com/fairyhunter13/stock-locator-service/internal/model"
	"github.com/fairyhunter13/stock-locator-service/internal/ratelimit"
	"github.com/fairyhunter13/stock-locator-service/internal/upstream"
)

// SortKey orders the result set.
type SortKey string

const (
	SortByDistance  SortKey = "distance"
	SortByName      SortKey = "name"
	SortByStoreType SortKey = "store_type"
)

// Query is one nearby-store search. Zero values for Radius, Limit, and
// SortBy take the configured defaults.
type Query struct {
	Center    model.Coordinates
	Radius    float64
	Limit     int
	StoreType string
	SortBy    SortKey
}

// Result is a completed search. RadiusExhausted marks an empty result
// reached only after every expansion attempt came back empty.
type Result struct {
	Stores          []model.Store `json:"stores"`
	RadiusUsed      float64       `json:"radius_used"`
	RadiusExhausted bool          `json:"radius_exhausted"`
}

// Upstream is the store search call the client needs.
type Upstream interface {
	Nearby(ctx context.Context, q upstream.NearbyQuery) ([]model.Store, error)
}

// Options carries the locator's configured defaults and retry bounds.
type Options struct {
	RadiusDefault float64
	RadiusCap     float64
	MaxAttempts   int
	LimitDefault  int
}

// Client performs cached nearby-store searches.
type Client struct {
	upstream Upstream
	cache    *cache.Cache[Result]
	limiter  *ratelimit.Limiter
	opts     Options
	flights  singleflight.Group
}

// New builds a locator Client. The cache should carry the store-list TTL
// class (1h).
func New(up Upstream, c *cache.Cache[Result], limiter *ratelimit.Limiter, opts Options) *Client {
	return &Client{upstream: up, cache: c, limiter: limiter, opts: opts}
}

// cacheKey quantizes the center to ~11m so nearby lookups share entries.
// The limit is part of the key because entries are truncated before
// caching.
func cacheKey(q Query) string {
	return fmt.Sprintf("stores:%.4f:%.4f:%.0f:%d:%s:%s", q.Center.Latitude, q.Center.Longitude, q.Radius, q.Limit, q.StoreType, q.SortBy)
}

// Search finds stores near q.Center. An empty result triggers the
// radius-expansion retry: the radius doubles per attempt up to the
// configured attempt count and hard cap, and the first non-empty set is
// cached under the radius that produced it. A set that stays empty is
// returned with RadiusExhausted set rather than as an error.
func (c *Client) Search(ctx context.Context, q Query) (Result, error) {
	if q.Radius <= 0 {
		q.Radius = c.opts.RadiusDefault
	}
	if q.Limit <= 0 {
		q.Limit = c.opts.LimitDefault
	}
	if q.SortBy == "" {
		q.SortBy = SortByDistance
	}

	// One flight per base key: concurrent identical searches share the
	// whole expansion walk, not just a single radius fetch.
	baseKey := cacheKey(q)
	res, err, _ := c.flights.Do(baseKey, func() (any, error) {
		return c.search(ctx, q)
	})
	if err != nil {
		return Result{}, err
	}
	return res.(Result), nil
}

func (c *Client) search(ctx context.Context, q Query) (Result, error) {
	attempts := c.opts.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	radius := q.Radius
	for attempt := 0; attempt < attempts && radius <= c.opts.RadiusCap; attempt++ {
		rq := q
		rq.Radius = radius
		key := cacheKey(rq)

		if hit, ok := c.cache.Get(ctx, key); ok {
			return hit, nil
		}

		if err := c.limiter.Allow(ratelimit.CategoryStore); err != nil {
			return Result{}, err
		}
		stores, err := c.upstream.Nearby(ctx, upstream.NearbyQuery{
			Lat:       q.Center.Latitude,
			Lng:       q.Center.Longitude,
			Radius:    radius,
			Limit:     q.Limit,
			StoreType: q.StoreType,
		})
		if err != nil {
			return Result{}, err
		}

		stores = prepare(stores, q)
		if len(stores) > 0 {
			res := Result{Stores: stores, RadiusUsed: radius}
			_ = c.cache.Set(ctx, key, res)
			return res, nil
		}
		radius *= 2
	}

	return Result{Stores: []model.Store{}, RadiusUsed: q.Radius, RadiusExhausted: true}, nil
}

// prepare filters, measures, sorts, and truncates a raw upstream answer.
func prepare(stores []model.Store, q Query) []model.Store {
	out := make([]model.Store, 0, len(stores))
	for _, s := range stores {
		if q.StoreType != "" && s.StoreType != q.StoreType {
			continue
		}
		s.DistanceMeters = haversineMeters(q.Center.Latitude, q.Center.Longitude, s.Coordinates.Latitude, s.Coordinates.Longitude)
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch q.SortBy {
		case SortByName:
			if a.Name != b.Name {
				return a.Name < b.Name
			}
		case SortByStoreType:
			if a.StoreType != b.StoreType {
				return a.StoreType < b.StoreType
			}
		default:
			if a.DistanceMeters != b.DistanceMeters {
				return a.DistanceMeters < b.DistanceMeters
			}
		}
		return a.StoreID < b.StoreID
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

const earthRadiusMeters = 6371000.0

// haversineMeters is a great-circle approximation, good to well under a
// percent at store-search scales.
func haversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	const deg = math.Pi / 180.0
	dLat := (lat2 - lat1) * deg
	dLng := (lng2 - lng1) * deg
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*deg)*math.Cos(lat2*deg)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

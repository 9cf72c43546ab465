// Package geocode validates and resolves UK postcodes to coordinates.
package geocode

import (
	"context"
	"regexp"
	"strings"

	"github.com/fairyhunter13/stock-locator-service/internal/cache"
	"github.com/fairyhunter13/stock-locator-service/internal/model"
	"github.com/fairyhunter13/stock-locator-service/internal/ratelimit"
)

// postcodeRe matches the UK postcode grammar on uppercased, despaced
// input: outward code 1-2 letters + 1-2 digits + optional letter, inward
// code 1 digit + 2 letters.
var postcodeRe = regexp.MustCompile(`^([A-Z]{1,2}[0-9]{1,2}[A-Z]?)([0-9][A-Z]{2})$`)

// Upstream is the geocoder call the client needs.
type Upstream interface {
	Lookup(ctx context.Context, postcode string) (model.Coordinates, error)
}

// Client resolves postcodes through the cache and the rate limiter.
type Client struct {
	upstream Upstream
	cache    *cache.Cache[model.Coordinates]
	limiter  *ratelimit.Limiter
}

// New builds a geocode Client. The cache should carry the coordinates TTL
// class (24h).
func New(upstream Upstream, c *cache.Cache[model.Coordinates], limiter *ratelimit.Limiter) *Client {
	return &Client{upstream: upstream, cache: c, limiter: limiter}
}

// Normalize canonicalizes a postcode to "<OUTWARD> <INWARD>" uppercase.
// It accepts spaced and unspaced input case-insensitively and returns an
// INVALID_POSTCODE error for anything outside the grammar.
func Normalize(raw string) (string, error) {
	compact := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), " ", ""))
	m := postcodeRe.FindStringSubmatch(compact)
	if m == nil {
		return "", model.NewError(model.CodeInvalidPostcode, "malformed postcode", raw, nil)
	}
	return m[1] + " " + m[2], nil
}

// Resolve validates, canonicalizes, and resolves a postcode. Malformed
// input fails before any upstream call. A cache hit within TTL never
// consumes rate budget; on miss the single-flight fetch goes through the
// geocode budget and, on upstream failure, surfaces GEOCODE_UNAVAILABLE.
func (c *Client) Resolve(ctx context.Context, raw string) (model.Coordinates, error) {
	canonical, err := Normalize(raw)
	if err != nil {
		return model.Coordinates{}, err
	}

	coords, _, err := c.cache.GetOrFetch(ctx, "geocode:"+canonical, func(ctx context.Context) (model.Coordinates, error) {
		if err := c.limiter.Allow(ratelimit.CategoryGeocode); err != nil {
			return model.Coordinates{}, err
		}
		res, err := c.upstream.Lookup(ctx, canonical)
		if err != nil {
			if model.IsCode(err, model.CodeRateLimited) {
				return model.Coordinates{}, err
			}
			return model.Coordinates{}, model.NewError(model.CodeGeocodeUnavailable, "geocoder unavailable", canonical, err)
		}
		res.Postcode = canonical
		return res, nil
	})
	if err != nil {
		return model.Coordinates{}, err
	}
	return coords, nil
}

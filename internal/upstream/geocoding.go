package upstream

import (
	"context"
	"net/url"

	"github.com/fairyhunter13/stock-locator-service/internal/model"
)

// Lookup resolves a canonical postcode to coordinates via
// GET /api/geocoding/postcode/{postcode}.
func (c *Client) Lookup(ctx context.Context, postcode string) (model.Coordinates, error) {
	var coords model.Coordinates
	u := c.geocodeBase + "/api/geocoding/postcode/" + url.PathEscape(postcode)
	if err := c.doJSON(ctx, "GET", u, nil, &coords); err != nil {
		return model.Coordinates{}, err
	}
	return coords, nil
}

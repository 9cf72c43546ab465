package upstream

import (
	"context"
	"net/url"
	"strconv"

	"github.com/fairyhunter13/stock-locator-service/internal/model"
)

// NearbyQuery is a raw upstream nearby-store search.
type NearbyQuery struct {
	Lat       float64
	Lng       float64
	Radius    float64
	Limit     int
	StoreType string
}

type nearbyData struct {
	TotalFound   int         `json:"total_found"`
	SearchRadius float64     `json:"search_radius"`
	CenterPoint  wirePoint   `json:"center_point"`
	Stores       []wireStore `json:"stores"`
}

type wirePoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type wireStore struct {
	StoreID      string            `json:"store_id"`
	Name         string            `json:"name"`
	Address      string            `json:"address"`
	Latitude     float64           `json:"latitude"`
	Longitude    float64           `json:"longitude"`
	StoreType    string            `json:"store_type"`
	OpeningHours map[string]string `json:"opening_hours"`
	Contact      string            `json:"contact"`
}

// Nearby searches stores around a center via GET /api/stores/nearby.
// Distance to the query center is not part of the upstream answer; the
// locator computes it per search.
func (c *Client) Nearby(ctx context.Context, q NearbyQuery) ([]model.Store, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(q.Lat, 'f', 6, 64))
	params.Set("lng", strconv.FormatFloat(q.Lng, 'f', 6, 64))
	params.Set("radius", strconv.FormatFloat(q.Radius, 'f', 0, 64))
	params.Set("limit", strconv.Itoa(q.Limit))
	if q.StoreType != "" {
		params.Set("store_type", q.StoreType)
	}

	var data nearbyData
	u := c.storesBase + "/api/stores/nearby?" + params.Encode()
	if err := c.doJSON(ctx, "GET", u, nil, &data); err != nil {
		return nil, err
	}

	stores := make([]model.Store, 0, len(data.Stores))
	for _, ws := range data.Stores {
		stores = append(stores, model.Store{
			StoreID: ws.StoreID,
			Name:    ws.Name,
			Address: ws.Address,
			Coordinates: model.Coordinates{
				Latitude:  ws.Latitude,
				Longitude: ws.Longitude,
			},
			StoreType:    ws.StoreType,
			OpeningHours: ws.OpeningHours,
			Contact:      ws.Contact,
		})
	}
	return stores, nil
}

package upstream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fairyhunter13/stock-locator-service/internal/model"
)

// StockRecord is the raw per-store answer from the inventory service.
// Availability classification is applied by the aggregator, never taken
// from upstream, so quantity and availability cannot disagree.
type StockRecord struct {
	StoreID            string          `json:"store_id"`
	Quantity           int             `json:"quantity"`
	Discontinued       bool            `json:"discontinued"`
	Variants           []model.Variant `json:"variants"`
	LastUpdated        time.Time       `json:"last_updated"`
	ReservationExpires *time.Time      `json:"reservation_expires"`
	EstimatedRestock   *time.Time      `json:"estimated_restock"`
}

type bulkCheckRequest struct {
	ProductID           string   `json:"product_id"`
	StoreIDs            []string `json:"store_ids"`
	IncludeAlternatives bool     `json:"include_alternatives,omitempty"`
	Size                string   `json:"size,omitempty"`
	Color               string   `json:"color,omitempty"`
}

type bulkCheckData struct {
	Product      json.RawMessage     `json:"product"`
	StockResults []StockRecord       `json:"stock_results"`
	Alternatives []model.Alternative `json:"alternatives"`
}

// CheckStore queries stock for one product at one store via
// POST /api/inventory/bulk-check with a single-element batch. The
// aggregator scatters these per store so each query carries its own
// timeout and failure domain.
func (c *Client) CheckStore(ctx context.Context, productID, storeID, size, color string) (StockRecord, error) {
	body := bulkCheckRequest{
		ProductID: productID,
		StoreIDs:  []string{storeID},
		Size:      size,
		Color:     color,
	}
	var data bulkCheckData
	u := c.inventoryBase + "/api/inventory/bulk-check"
	if err := c.doJSON(ctx, "POST", u, body, &data); err != nil {
		return StockRecord{}, err
	}
	if len(data.StockResults) == 0 {
		return StockRecord{}, model.NewError(model.CodeUpstreamError, "empty stock answer", storeID, nil)
	}
	return data.StockResults[0], nil
}

// Alternatives fetches similarity-ranked substitute products via the same
// endpoint with no store batch.
func (c *Client) Alternatives(ctx context.Context, productID string) ([]model.Alternative, error) {
	body := bulkCheckRequest{
		ProductID:           productID,
		StoreIDs:            []string{},
		IncludeAlternatives: true,
	}
	var data bulkCheckData
	u := c.inventoryBase + "/api/inventory/bulk-check"
	if err := c.doJSON(ctx, "POST", u, body, &data); err != nil {
		return nil, err
	}
	return data.Alternatives, nil
}

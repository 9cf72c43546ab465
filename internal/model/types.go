// Package model defines domain types used by the service.
package model

import "time"

// Accuracy describes how precise a geocoded resolution is.
type Accuracy string

const (
	AccuracyHigh   Accuracy = "high"
	AccuracyMedium Accuracy = "medium"
	AccuracyLow    Accuracy = "low"
)

// Coordinates is the resolved location of a postcode. Immutable once
// resolved and safe to share across requests.
type Coordinates struct {
	Postcode  string   `json:"postcode"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  Accuracy `json:"accuracy"`
	Region    string   `json:"region"`
	Country   string   `json:"country"`
}

// Store is a physical store returned by a nearby search. DistanceMeters is
// relative to the query center and recomputed per search; a Store is never
// mutated after it is produced.
type Store struct {
	StoreID        string            `json:"store_id"`
	Name           string            `json:"name"`
	Address        string            `json:"address"`
	Coordinates    Coordinates       `json:"coordinates"`
	DistanceMeters float64           `json:"distance_meters"`
	StoreType      string            `json:"store_type"`
	OpeningHours   map[string]string `json:"opening_hours,omitempty"`
	Contact        string            `json:"contact,omitempty"`
}

// Availability classifies the stock level at a store.
type Availability string

const (
	InStock      Availability = "in_stock"
	LowStock     Availability = "low_stock"
	OutOfStock   Availability = "out_of_stock"
	Discontinued Availability = "discontinued"
)

// ClassifyAvailability derives availability from quantity. A discontinued
// flag from upstream overrides the quantity-based classification.
func ClassifyAvailability(quantity int, discontinued bool) Availability {
	switch {
	case discontinued:
		return Discontinued
	case quantity == 0:
		return OutOfStock
	case quantity <= 5:
		return LowStock
	default:
		return InStock
	}
}

// Variant is a size/color breakdown of available stock.
type Variant struct {
	Size     string `json:"size,omitempty"`
	Color    string `json:"color,omitempty"`
	Quantity int    `json:"quantity"`
}

// StockResult is the stock answer for one store. Quantity and Availability
// must never disagree; both are set through ClassifyAvailability.
type StockResult struct {
	StoreID            string       `json:"store_id"`
	Availability       Availability `json:"availability"`
	Quantity           int          `json:"quantity"`
	Variants           []Variant    `json:"variants,omitempty"`
	LastUpdated        time.Time    `json:"last_updated"`
	ReservationExpires *time.Time   `json:"reservation_expires,omitempty"`
	EstimatedRestock   *time.Time   `json:"estimated_restock,omitempty"`
	Stale              bool         `json:"stale,omitempty"`
}

// Alternative is a similar product and the stores carrying it.
type Alternative struct {
	ProductID       string   `json:"product_id"`
	SimilarityScore float64  `json:"similarity_score"`
	AvailableStores []string `json:"available_stores"`
}

// PipelineResponse is the assembled answer for one availability request.
type PipelineResponse struct {
	Coordinates     Coordinates   `json:"coordinates"`
	Stores          []Store       `json:"stores"`
	StockResults    []StockResult `json:"stock_results"`
	Alternatives    []Alternative `json:"alternatives,omitempty"`
	Degraded        bool          `json:"degraded"`
	Failures        []string      `json:"failures,omitempty"`
	Warnings        []string      `json:"warnings,omitempty"`
	RadiusExhausted bool          `json:"radius_exhausted,omitempty"`
}

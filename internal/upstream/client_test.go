package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fairyhunter13/stock-locator-service/internal/config"
	"github.com/fairyhunter13/stock-locator-service/internal/model"
)

func testConfig(base string) config.Config {
	return config.Config{
		GeocodeBaseURL:   base,
		StoresBaseURL:    base,
		InventoryBaseURL: base,
		APIKey:           "test-key",
		JWTToken:         "test-jwt",
		UpstreamRetryMax: 2,
	}
}

func writeSuccess(w http.ResponseWriter, data any) {
	raw, _ := json.Marshal(data)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":   true,
		"data":      json.RawMessage(raw),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func writeFailure(w http.ResponseWriter, status int, code, message string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   map[string]string{"code": code, "message": message},
	})
}

func TestLookupForwardsAuthHeaders(t *testing.T) {
	var gotAuth, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("X-API-Key")
		writeSuccess(w, model.Coordinates{Postcode: "SW1A 1AA", Latitude: 51.5})
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	coords, err := c.Lookup(context.Background(), "SW1A 1AA")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if coords.Latitude != 51.5 {
		t.Fatalf("expected decoded coordinates, got %+v", coords)
	}
	if gotAuth != "Bearer test-jwt" {
		t.Fatalf("expected bearer token forwarded, got %q", gotAuth)
	}
	if gotKey != "test-key" {
		t.Fatalf("expected api key forwarded, got %q", gotKey)
	}
}

func TestRetryOn5xxThenSuccess(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeSuccess(w, model.Coordinates{Postcode: "SW1A 1AA"})
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	if _, err := c.Lookup(context.Background(), "SW1A 1AA"); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if hits.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", hits.Load())
	}
}

func TestEnvelopeErrorIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeFailure(w, http.StatusNotFound, "GEOCODE_UNAVAILABLE", "postcode not known")
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	_, err := c.Lookup(context.Background(), "ZZ99 9ZZ")
	if !model.IsCode(err, model.CodeGeocodeUnavailable) {
		t.Fatalf("expected GEOCODE_UNAVAILABLE passthrough, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected no retry on envelope error, got %d attempts", hits.Load())
	}
}

func TestUnknownEnvelopeCodeMapsToUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusBadRequest, "SOMETHING_ODD", "?")
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	_, err := c.Lookup(context.Background(), "SW1A 1AA")
	if !model.IsCode(err, model.CodeUpstreamError) {
		t.Fatalf("expected UPSTREAM_ERROR, got %v", err)
	}
}

func TestNearbyEncodesQueryAndDecodesStores(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("lat") != "51.501364" || q.Get("lng") != "-0.141890" {
			t.Errorf("unexpected center: %v", q)
		}
		if q.Get("radius") != "5000" || q.Get("limit") != "20" || q.Get("store_type") != "retail" {
			t.Errorf("unexpected query params: %v", q)
		}
		writeSuccess(w, map[string]any{
			"total_found":   1,
			"search_radius": 5000,
			"center_point":  map[string]float64{"latitude": 51.501364, "longitude": -0.141890},
			"stores": []map[string]any{{
				"store_id":   "ST001",
				"name":       "Flagship",
				"address":    "1 High St",
				"latitude":   51.51,
				"longitude":  -0.14,
				"store_type": "retail",
			}},
		})
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	stores, err := c.Nearby(context.Background(), NearbyQuery{
		Lat: 51.501364, Lng: -0.141890, Radius: 5000, Limit: 20, StoreType: "retail",
	})
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(stores) != 1 || stores[0].StoreID != "ST001" {
		t.Fatalf("expected decoded store, got %+v", stores)
	}
	if stores[0].Coordinates.Latitude != 51.51 {
		t.Fatalf("expected store coordinates mapped, got %+v", stores[0].Coordinates)
	}
}

func TestCheckStoreSendsSingleStoreBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var body struct {
			ProductID string   `json:"product_id"`
			StoreIDs  []string `json:"store_ids"`
			Size      string   `json:"size"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.ProductID != "PRD123456" || len(body.StoreIDs) != 1 || body.StoreIDs[0] != "ST001" {
			t.Errorf("unexpected body: %+v", body)
		}
		writeSuccess(w, map[string]any{
			"stock_results": []map[string]any{{
				"store_id": "ST001",
				"quantity": 7,
			}},
		})
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	rec, err := c.CheckStore(context.Background(), "PRD123456", "ST001", "M", "")
	if err != nil {
		t.Fatalf("check store: %v", err)
	}
	if rec.Quantity != 7 {
		t.Fatalf("expected quantity decoded, got %+v", rec)
	}
}

func TestAlternativesRequestsNoStores(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			StoreIDs            []string `json:"store_ids"`
			IncludeAlternatives bool     `json:"include_alternatives"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.StoreIDs) != 0 || !body.IncludeAlternatives {
			t.Errorf("unexpected body: %+v", body)
		}
		writeSuccess(w, map[string]any{
			"alternatives": []map[string]any{{
				"product_id":       "PRD999",
				"similarity_score": 0.9,
				"available_stores": []string{"ST001"},
			}},
		})
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	alts, err := c.Alternatives(context.Background(), "PRD123456")
	if err != nil {
		t.Fatalf("alternatives: %v", err)
	}
	if len(alts) != 1 || alts[0].ProductID != "PRD999" {
		t.Fatalf("expected decoded alternatives, got %+v", alts)
	}
}

func TestContextCancellationMapsToTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Lookup(ctx, "SW1A 1AA")
	if !model.IsCode(err, model.CodeTimeout) {
		t.Fatalf("expected TIMEOUT, got %v", err)
	}
}

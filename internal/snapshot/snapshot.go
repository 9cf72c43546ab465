// Package snapshot keeps the last successful stock answer per product and
// store. The orchestrator reads it when every live stock query fails, so
// callers still get a (stale) picture instead of nothing.
package snapshot

import (
	"sync"

	"github.com/fairyhunter13/stock-locator-service/internal/model"
)

type key struct {
	productID string
	storeID   string
}

// Store is a process-wide snapshot table. Empty at process start.
type Store struct {
	mu sync.RWMutex
	m  map[key]model.StockResult
}

// New creates an empty snapshot Store.
func New() *Store {
	return &Store{m: make(map[key]model.StockResult)}
}

// Get returns the last recorded result for the product at the store.
func (s *Store) Get(productID, storeID string) (model.StockResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.m[key{productID, storeID}]
	return res, ok
}

// Record stores a successful live result. Stale results are never
// recorded, so a snapshot cannot be refreshed from another snapshot.
func (s *Store) Record(productID string, res model.StockResult) {
	if productID == "" || res.StoreID == "" || res.Stale {
		return
	}
	s.mu.Lock()
	s.m[key{productID, res.StoreID}] = res
	s.mu.Unlock()
}

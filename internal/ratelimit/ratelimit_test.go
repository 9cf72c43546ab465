package ratelimit

import (
	"testing"

	"github.com/fairyhunter13/stock-locator-service/internal/model"
)

func TestBudgetExhaustion(t *testing.T) {
	l := New(map[Category]int{CategoryGeocode: 5})
	for i := 0; i < 5; i++ {
		if err := l.Allow(CategoryGeocode); err != nil {
			t.Fatalf("expected call %d within budget, got %v", i+1, err)
		}
	}
	err := l.Allow(CategoryGeocode)
	if err == nil {
		t.Fatalf("expected request over budget rejected")
	}
	if !model.IsCode(err, model.CodeRateLimited) {
		t.Fatalf("expected RATE_LIMITED, got %v", err)
	}
}

func TestCategoriesAreIndependent(t *testing.T) {
	l := New(map[Category]int{CategoryGeocode: 1, CategoryStore: 1})
	if err := l.Allow(CategoryGeocode); err != nil {
		t.Fatalf("geocode budget: %v", err)
	}
	if err := l.Allow(CategoryStore); err != nil {
		t.Fatalf("expected store budget untouched by geocode spend, got %v", err)
	}
}

func TestUnconfiguredCategoryUnlimited(t *testing.T) {
	l := New(map[Category]int{})
	for i := 0; i < 100; i++ {
		if err := l.Allow(CategoryStock); err != nil {
			t.Fatalf("expected unlimited category, got %v", err)
		}
	}
}

func TestAllowNAllOrNothing(t *testing.T) {
	l := New(map[Category]int{CategoryStock: 10})
	if err := l.AllowN(CategoryStock, 8); err != nil {
		t.Fatalf("expected batch of 8 within budget, got %v", err)
	}
	if err := l.AllowN(CategoryStock, 5); err == nil {
		t.Fatalf("expected batch of 5 over remaining budget rejected")
	}
	// The failed batch must not have consumed the remaining tokens.
	if err := l.AllowN(CategoryStock, 2); err != nil {
		t.Fatalf("expected remaining 2 tokens intact, got %v", err)
	}
}

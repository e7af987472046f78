package service

import (
	"math"
	"slices"
	"testing"
	"time"

	"rentchat/internal/filter"
	"rentchat/internal/model"
)

var rankNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestRanker() *Ranker {
	r := NewRanker(0.5, 0.3, 0.2)
	r.now = func() time.Time { return rankNow }
	return r
}

func TestRanker_PriceScore(t *testing.T) {
	r := newTestRanker()

	tests := []struct {
		name   string
		rent   *float64
		filter *filter.Filter
		want   float64
	}{
		{"Unknown rent", nil, &filter.Filter{MaxPrice: float64Ptr(10000)}, 0.5},
		{"No price filter", float64Ptr(8000), &filter.Filter{Location: strPtr("Cebu")}, 1.0},
		{"Midpoint of range", float64Ptr(15000), &filter.Filter{MinPrice: float64Ptr(10000), MaxPrice: float64Ptr(20000)}, 1.0},
		{"Edge of range", float64Ptr(10000), &filter.Filter{MinPrice: float64Ptr(10000), MaxPrice: float64Ptr(20000)}, 0.0},
		{"Outside range", float64Ptr(25000), &filter.Filter{MinPrice: float64Ptr(10000), MaxPrice: float64Ptr(20000)}, 0.0},
		{"Above minimum", float64Ptr(12000), &filter.Filter{MinPrice: float64Ptr(10000)}, 1.0},
		{"Below minimum", float64Ptr(9000), &filter.Filter{MinPrice: float64Ptr(10000)}, 0.0},
		{"Under maximum", float64Ptr(7500), &filter.Filter{MaxPrice: float64Ptr(15000)}, 0.5},
		{"Zero maximum", float64Ptr(0), &filter.Filter{MaxPrice: float64Ptr(0)}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.calculatePriceScore(tt.rent, tt.filter); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("calculatePriceScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRanker_RankResults(t *testing.T) {
	r := newTestRanker()
	fresh := rankNow.Add(-48 * time.Hour)
	old := rankNow.Add(-200 * 24 * time.Hour)

	properties := []model.Property{
		{ID: 1, Title: "Old and pricey", MonthlyRent: float64Ptr(30000), ListedAt: &old},
		{
			ID:           2,
			Title:        "Fresh condo",
			Location:     strPtr("Cebu City"),
			PropertyType: strPtr("Condominium"),
			MonthlyRent:  float64Ptr(14000),
			ListedAt:     &fresh,
			Amenities:    model.JSONArray{"Swimming pool", "Gym"},
			Relevance:    0.6,
		},
	}

	f := &filter.Filter{
		Location:     strPtr("cebu"),
		PropertyType: strPtr("condo"),
		MaxPrice:     float64Ptr(15000),
		Amenities:    []string{"pool", "parking"},
	}

	results := r.RankResults(properties, f)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != 2 {
		t.Fatalf("expected the matching condo first, got %d", results[0].ID)
	}

	wantReasons := []string{
		ReasonLocationMatch,
		ReasonTypeMatch,
		ReasonPriceMatch,
		"Has Swimming pool",
		ReasonContentRelevant,
		ReasonNewlyListed,
	}
	if !slices.Equal(results[0].MatchedReasons, wantReasons) {
		t.Errorf("reasons = %v, want %v", results[0].MatchedReasons, wantReasons)
	}
	if !slices.Equal(results[1].MatchedReasons, []string{ReasonGeneralMatch}) {
		t.Errorf("reasons = %v, want general match", results[1].MatchedReasons)
	}
}

func TestRanker_StableForTies(t *testing.T) {
	r := newTestRanker()
	properties := []model.Property{{ID: 3}, {ID: 1}, {ID: 2}}

	results := r.RankResults(properties, nil)
	for i, want := range []int64{3, 1, 2} {
		if results[i].ID != want {
			t.Errorf("position %d = %d, want %d", i, results[i].ID, want)
		}
	}
}

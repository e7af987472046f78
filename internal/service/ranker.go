package service

import (
	"math"
	"sort"
	"strings"
	"time"

	"rentchat/internal/filter"
	"rentchat/internal/model"
	"rentchat/internal/utils"
)

// Match reason constants
const (
	ReasonLocationMatch   = "Location match"
	ReasonTypeMatch       = "Property type match"
	ReasonPriceMatch      = "Rent within budget"
	ReasonContentRelevant = "Content relevant"
	ReasonNewlyListed     = "Newly listed"
	ReasonGeneralMatch    = "General match"
)

// Ranker handles ranking and scoring of search results
type Ranker struct {
	weightText    float64
	weightPrice   float64
	weightRecency float64
	now           func() time.Time
}

// NewRanker creates a new ranker with specified weights
func NewRanker(weightText, weightPrice, weightRecency float64) *Ranker {
	return &Ranker{
		weightText:    weightText,
		weightPrice:   weightPrice,
		weightRecency: weightRecency,
		now:           time.Now,
	}
}

// RankResults scores properties against the filter and sorts them by
// score, keeping the database order for ties.
func (r *Ranker) RankResults(properties []model.Property, f *filter.Filter) []model.PropertySearchResult {
	results := make([]model.PropertySearchResult, 0, len(properties))

	for _, p := range properties {
		textScore := normalizeRelevance(p.Relevance)
		priceScore := r.calculatePriceScore(p.MonthlyRent, f)
		recencyScore := r.calculateRecencyScore(p.ListedAt)

		results = append(results, model.PropertySearchResult{
			Property: p,
			Score: (r.weightText * textScore) +
				(r.weightPrice * priceScore) +
				(r.weightRecency * recencyScore),
			MatchedReasons: r.generateMatchedReasons(p, f, textScore, priceScore),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results
}

// normalizeRelevance clamps ts_rank or cosine similarity to 0-1
func normalizeRelevance(rank float64) float64 {
	return math.Max(0, math.Min(rank, 1))
}

// calculatePriceScore calculates how well the rent fits the budget
func (r *Ranker) calculatePriceScore(rent *float64, f *filter.Filter) float64 {
	if rent == nil {
		return 0.5
	}
	if f == nil || (f.MinPrice == nil && f.MaxPrice == nil) {
		return 1.0
	}

	actual := *rent

	if f.MinPrice != nil && f.MaxPrice != nil {
		minPrice, maxPrice := *f.MinPrice, *f.MaxPrice
		if actual < minPrice || actual > maxPrice {
			return 0.0
		}

		priceRange := maxPrice - minPrice
		if priceRange == 0 {
			return 1.0
		}

		// Closest to the middle of the range scores highest
		midpoint := (minPrice + maxPrice) / 2
		return math.Max(0, 1.0-math.Abs(actual-midpoint)/(priceRange/2))
	}

	if f.MinPrice != nil {
		if actual < *f.MinPrice {
			return 0.0
		}
		return 1.0
	}

	if actual > *f.MaxPrice {
		return 0.0
	}
	if *f.MaxPrice == 0 {
		return 1.0
	}
	return math.Min(actual / *f.MaxPrice, 1.0)
}

// calculateRecencyScore decays with listing age: ~0.74 after 30 days,
// ~0.41 after 90.
func (r *Ranker) calculateRecencyScore(listedAt *time.Time) float64 {
	if listedAt == nil {
		return 0.5
	}

	days := r.now().Sub(*listedAt).Hours() / 24
	return math.Max(0, math.Min(math.Exp(-0.01*days), 1.0))
}

// generateMatchedReasons explains why a property matched
func (r *Ranker) generateMatchedReasons(p model.Property, f *filter.Filter, textScore, priceScore float64) []string {
	reasons := []string{}

	if f != nil {
		if f.Location != nil && p.Location != nil && containsFold(*p.Location, *f.Location) {
			reasons = append(reasons, ReasonLocationMatch)
		}
		if f.PropertyType != nil && p.PropertyType != nil && containsFold(*p.PropertyType, *f.PropertyType) {
			reasons = append(reasons, ReasonTypeMatch)
		}
		if (f.MinPrice != nil || f.MaxPrice != nil) && priceScore > 0.8 {
			reasons = append(reasons, ReasonPriceMatch)
		}
		for _, wanted := range f.Amenities {
			for _, have := range p.Amenities {
				if utils.FuzzyMatchAmenity(wanted, have) {
					reasons = append(reasons, "Has "+utils.NormalizeAmenity(wanted))
					break
				}
			}
		}
	}

	if textScore > 0.1 {
		reasons = append(reasons, ReasonContentRelevant)
	}

	if p.ListedAt != nil && r.now().Sub(*p.ListedAt) < 7*24*time.Hour {
		reasons = append(reasons, ReasonNewlyListed)
	}

	if len(reasons) == 0 {
		reasons = append(reasons, ReasonGeneralMatch)
	}

	return reasons
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

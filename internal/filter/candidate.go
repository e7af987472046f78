package filter

import "github.com/tidwall/gjson"

// Candidate is a filter as decoded from model output. Each field keeps the
// decoded JSON value as-is (string, float64, bool, []any, map[string]any);
// nil means the key was absent or null. Only Sanitize interprets the values.
type Candidate struct {
	Search       any
	Location     any
	Amenities    any
	PropertyType any
	MinPrice     any
	MaxPrice     any
}

// Recognized keys per field, in lookup order. The first non-null key wins;
// keys outside this vocabulary are ignored.
var (
	searchKeys       = []string{"search", "query"}
	locationKeys     = []string{"location", "city", "area"}
	amenityKeys      = []string{"amenities"}
	propertyTypeKeys = []string{"propertyType", "property_type", "unit_type", "type"}
	minPriceKeys     = []string{"minPrice", "min_price", "price_min"}
	maxPriceKeys     = []string{"maxPrice", "max_price", "price_max"}
)

// candidateFromObject maps a decoded JSON object onto a Candidate.
func candidateFromObject(obj gjson.Result) *Candidate {
	return &Candidate{
		Search:       lookup(obj, searchKeys),
		Location:     lookup(obj, locationKeys),
		Amenities:    lookup(obj, amenityKeys),
		PropertyType: lookup(obj, propertyTypeKeys),
		MinPrice:     lookup(obj, minPriceKeys),
		MaxPrice:     lookup(obj, maxPriceKeys),
	}
}

func lookup(obj gjson.Result, keys []string) any {
	for _, key := range keys {
		if v := obj.Get(gjson.Escape(key)); v.Exists() && v.Type != gjson.Null {
			return v.Value()
		}
	}
	return nil
}

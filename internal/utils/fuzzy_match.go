package utils

import (
	"fmt"
	"strings"
	"unicode"
)

// amenityPatterns maps a search stem to the spellings listings use for it.
var amenityPatterns = []struct {
	key      string
	patterns []string
}{
	{"pool", []string{"Swimming pool", "Pool"}},
	{"gym", []string{"Gym", "Gymnasium", "Fitness"}},
	{"aircon", []string{"Air conditioner", "Air conditioning", "Aircon", "A/C"}},
	{"air con", []string{"Air conditioner", "Air conditioning", "Aircon", "A/C"}},
	{"wifi", []string{"WiFi", "Wi-Fi", "Internet"}},
	{"wi-fi", []string{"WiFi", "Wi-Fi", "Internet"}},
	{"internet", []string{"Internet", "WiFi", "Wi-Fi"}},
	{"parking", []string{"Parking", "Car park", "Garage"}},
	{"garage", []string{"Garage", "Parking"}},
	{"furnish", []string{"Furnished", "Fully furnished", "Semi-furnished"}},
	{"pet", []string{"Pet friendly", "Pets allowed", "Pet-friendly"}},
	{"laundry", []string{"Laundry", "Washing machine", "Washer"}},
	{"washer", []string{"Washer", "Washing machine", "Laundry"}},
	{"balcony", []string{"Balcony", "Terrace"}},
	{"security", []string{"Security", "24-hour security", "CCTV"}},
	{"kitchen", []string{"Kitchen", "Kitchenette"}},
	{"water heater", []string{"Water heater", "Heater"}},
	{"generator", []string{"Generator", "Backup power"}},
}

// amenityNormalizations maps common spellings to the canonical listing term
var amenityNormalizations = map[string]string{
	"pool":             "Swimming pool",
	"swimming pool":    "Swimming pool",
	"gym":              "Gym",
	"gymnasium":        "Gym",
	"fitness center":   "Gym",
	"aircon":           "Air conditioner",
	"air con":          "Air conditioner",
	"air conditioning": "Air conditioner",
	"a/c":              "Air conditioner",
	"ac":               "Air conditioner",
	"wifi":             "WiFi",
	"wi-fi":            "WiFi",
	"internet":         "WiFi",
	"parking":          "Parking",
	"car park":         "Parking",
	"garage":           "Parking",
	"furnished":        "Furnished",
	"fully furnished":  "Furnished",
	"pet friendly":     "Pet friendly",
	"pet-friendly":     "Pet friendly",
	"pets allowed":     "Pet friendly",
	"laundry":          "Laundry",
	"washing machine":  "Laundry",
	"washer":           "Laundry",
	"balcony":          "Balcony",
	"terrace":          "Balcony",
	"security":         "24-hour security",
	"cctv":             "24-hour security",
	"water heater":     "Water heater",
}

// FuzzyMatchAmenity reports whether a requested amenity matches a listing's
// amenity, honoring common aliases.
func FuzzyMatchAmenity(searchTerm, amenity string) bool {
	searchLower := strings.ToLower(strings.TrimSpace(searchTerm))
	amenityLower := strings.ToLower(strings.TrimSpace(amenity))

	if searchLower == "" || amenityLower == "" {
		return false
	}
	if searchLower == amenityLower || strings.Contains(amenityLower, searchLower) {
		return true
	}

	for _, p := range amenityPatterns {
		if !strings.Contains(searchLower, p.key) {
			continue
		}
		for _, alias := range p.patterns {
			if strings.Contains(amenityLower, strings.ToLower(alias)) {
				return true
			}
		}
	}

	return false
}

// NormalizeAmenity normalizes amenity names to standard form
func NormalizeAmenity(amenity string) string {
	amenityLower := strings.ToLower(strings.TrimSpace(amenity))

	if normalized, ok := amenityNormalizations[amenityLower]; ok {
		return normalized
	}

	return capitalizeWords(amenityLower)
}

// capitalizeWords upper-cases the first letter of each space-separated word
func capitalizeWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// BuildFuzzyAmenityQuery builds JSONB conditions for fuzzy amenity matching.
// Each requested amenity becomes one EXISTS condition; paramIndex is the next
// free positional placeholder and the updated index is returned.
func BuildFuzzyAmenityQuery(searchTerms []string, paramIndex int) ([]string, []interface{}, int) {
	if len(searchTerms) == 0 {
		return nil, nil, paramIndex
	}

	var conditions []string
	var params []interface{}

	for _, term := range searchTerms {
		termLower := strings.ToLower(strings.TrimSpace(term))
		if termLower == "" {
			continue
		}

		var patterns []string
		for _, p := range amenityPatterns {
			if strings.Contains(termLower, p.key) {
				patterns = p.patterns
				break
			}
		}
		if patterns == nil {
			patterns = []string{strings.TrimSpace(term)}
		}

		orConditions := make([]string, 0, len(patterns))
		for _, pattern := range patterns {
			orConditions = append(orConditions, fmt.Sprintf("elem ILIKE $%d", paramIndex))
			params = append(params, "%"+EscapeLike(pattern)+"%")
			paramIndex++
		}

		condition := "EXISTS (SELECT 1 FROM jsonb_array_elements_text(amenities) elem WHERE " +
			strings.Join(orConditions, " OR ") + ")"
		conditions = append(conditions, condition)
	}

	return conditions, params, paramIndex
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE wildcards so user text is matched literally
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

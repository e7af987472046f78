// Package filter turns untrusted language-model output into a bounded
// property search filter.
//
// Parse locates and decodes the structured block inside a model reply and
// returns the remaining prose. Sanitize validates the decoded candidate
// field by field. Neither ever fails: malformed input degrades to "no
// filter" or to a filter with fewer fields.
package filter

// Filter is a sanitized set of optional search constraints. A nil field
// means "unconstrained", never zero or empty-match.
//
// Invariants: text fields are trimmed, non-empty and length-capped; prices
// are finite and non-negative with MinPrice <= MaxPrice when both are set;
// Amenities holds no blanks and no case-insensitive duplicates.
type Filter struct {
	Search       *string  `json:"search,omitempty"`
	Location     *string  `json:"location,omitempty"`
	Amenities    []string `json:"amenities,omitempty"`
	PropertyType *string  `json:"propertyType,omitempty"`
	MinPrice     *float64 `json:"minPrice,omitempty"`
	MaxPrice     *float64 `json:"maxPrice,omitempty"`
}

// IsEmpty reports whether no constraint is set.
func (f *Filter) IsEmpty() bool {
	if f == nil {
		return true
	}
	return f.Search == nil &&
		f.Location == nil &&
		len(f.Amenities) == 0 &&
		f.PropertyType == nil &&
		f.MinPrice == nil &&
		f.MaxPrice == nil
}

// Candidate converts the filter back into an untrusted candidate, e.g. when
// a filter arrives from a client and has to be re-sanitized.
func (f *Filter) Candidate() *Candidate {
	if f == nil {
		return nil
	}

	c := &Candidate{}
	if f.Search != nil {
		c.Search = *f.Search
	}
	if f.Location != nil {
		c.Location = *f.Location
	}
	if f.Amenities != nil {
		list := make([]any, len(f.Amenities))
		for i, a := range f.Amenities {
			list[i] = a
		}
		c.Amenities = list
	}
	if f.PropertyType != nil {
		c.PropertyType = *f.PropertyType
	}
	if f.MinPrice != nil {
		c.MinPrice = *f.MinPrice
	}
	if f.MaxPrice != nil {
		c.MaxPrice = *f.MaxPrice
	}
	return c
}

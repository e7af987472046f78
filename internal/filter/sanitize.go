package filter

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Limits bounds the size of a sanitized filter.
type Limits struct {
	MaxTextLen   int // runes per text field and per amenity
	MaxAmenities int
}

// DefaultLimits are used by Sanitize.
var DefaultLimits = Limits{
	MaxTextLen:   200,
	MaxAmenities: 20,
}

// FieldRejection records a field or list entry Sanitize dropped.
type FieldRejection struct {
	Field  string
	Reason string
}

// Plain decimal price text, e.g. "15000" or "15,000.50" once commas are gone.
var priceTextRe = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// Sanitize validates c with DefaultLimits.
func Sanitize(c *Candidate) *Filter {
	f, _ := DefaultLimits.Sanitize(c)
	return f
}

// Sanitize converts a candidate into a Filter field by field. Invalid
// fields are dropped and reported; they never invalidate the others. The
// result is nil when nothing survives. When MinPrice exceeds MaxPrice the
// upper bound is dropped.
func (l Limits) Sanitize(c *Candidate) (*Filter, []FieldRejection) {
	if c == nil {
		return nil, nil
	}
	if l.MaxTextLen <= 0 {
		l.MaxTextLen = DefaultLimits.MaxTextLen
	}
	if l.MaxAmenities <= 0 {
		l.MaxAmenities = DefaultLimits.MaxAmenities
	}

	var rejected []FieldRejection
	reject := func(field, reason string) {
		rejected = append(rejected, FieldRejection{Field: field, Reason: reason})
	}

	f := &Filter{}
	f.Search = l.text("search", c.Search, reject)
	f.Location = l.text("location", c.Location, reject)
	f.PropertyType = l.text("propertyType", c.PropertyType, reject)
	f.Amenities = l.amenities(c.Amenities, reject)
	f.MinPrice = price("minPrice", c.MinPrice, reject)
	f.MaxPrice = price("maxPrice", c.MaxPrice, reject)

	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		reject("maxPrice", "below minPrice")
		f.MaxPrice = nil
	}

	if f.IsEmpty() {
		return nil, rejected
	}
	return f, rejected
}

func (l Limits) text(field string, v any, reject func(field, reason string)) *string {
	if v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		reject(field, "not text")
		return nil
	}
	s, reason := l.cleanText(s)
	if reason != "" {
		reject(field, reason)
		return nil
	}
	return &s
}

// cleanText trims s and enforces the length cap. A non-empty reason means
// the value must be dropped.
func (l Limits) cleanText(s string) (string, string) {
	s = strings.TrimSpace(strings.ToValidUTF8(s, ""))
	if s == "" {
		return "", "empty"
	}
	if utf8.RuneCountInString(s) > l.MaxTextLen {
		return "", "too long"
	}
	return s, ""
}

func (l Limits) amenities(v any, reject func(field, reason string)) []string {
	if v == nil {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		reject("amenities", "not a list")
		return nil
	}

	seen := make(map[string]bool, len(list))
	var out []string
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			reject("amenities", "entry not text")
			continue
		}
		s, reason := l.cleanText(s)
		if reason != "" {
			reject("amenities", "entry "+reason)
			continue
		}
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		if len(out) >= l.MaxAmenities {
			reject("amenities", "too many entries")
			break
		}
		seen[key] = true
		out = append(out, s)
	}

	if len(out) == 0 {
		reject("amenities", "empty")
		return nil
	}
	return out
}

func price(field string, v any, reject func(field, reason string)) *float64 {
	if v == nil {
		return nil
	}

	var n float64
	switch val := v.(type) {
	case float64:
		n = val
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(val), ",", "")
		if !priceTextRe.MatchString(s) {
			reject(field, "not a number")
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			reject(field, "not a number")
			return nil
		}
		n = parsed
	default:
		reject(field, "not a number")
		return nil
	}

	if math.IsNaN(n) || math.IsInf(n, 0) {
		reject(field, "not finite")
		return nil
	}
	if n < 0 {
		reject(field, "negative")
		return nil
	}
	if n == 0 {
		n = 0 // normalize -0
	}
	return &n
}

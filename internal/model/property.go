package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"rentchat/internal/filter"
)

// Property represents a rental listing as read by the search component
type Property struct {
	ID           int64      `json:"id" db:"id"`
	Title        string     `json:"title" db:"title"`
	Description  *string    `json:"description,omitempty" db:"description"`
	PropertyType *string    `json:"property_type,omitempty" db:"property_type"`
	Location     *string    `json:"location,omitempty" db:"location"`
	Address      *string    `json:"address,omitempty" db:"address"`
	MonthlyRent  *float64   `json:"monthly_rent,omitempty" db:"monthly_rent"`
	Bedrooms     *int       `json:"bedrooms,omitempty" db:"bedrooms"`
	Bathrooms    *int       `json:"bathrooms,omitempty" db:"bathrooms"`
	FloorAreaSqm *float64   `json:"floor_area_sqm,omitempty" db:"floor_area_sqm"`
	Amenities    JSONArray  `json:"amenities,omitempty" db:"amenities"`
	Details      JSONMap    `json:"details,omitempty" db:"details"`
	Status       string     `json:"status" db:"status"`
	ListedAt     *time.Time `json:"listed_at,omitempty" db:"listed_at"`
	Relevance    float64    `json:"relevance" db:"relevance"` // ts_rank or cosine similarity
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// PropertySearchResult represents a search result with ranking metadata
type PropertySearchResult struct {
	Property
	Score          float64  `json:"score"`
	MatchedReasons []string `json:"matched_reasons"`
}

// JSONArray represents a JSON array field
type JSONArray []string

// Value implements driver.Valuer interface
func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONArray) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("cannot scan %T into JSONArray", value)
	}
}

// JSONMap represents a JSON object field
type JSONMap map[string]interface{}

// Value implements driver.Valuer interface
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", value)
	}
}

// EmbeddingItem is a computed vector for one property
type EmbeddingItem struct {
	PropertyID int64     `json:"property_id"`
	Embedding  []float32 `json:"embedding"`
}

// EmbeddingRefreshResponse reports an embedding backfill run
type EmbeddingRefreshResponse struct {
	Scanned int      `json:"scanned"`
	Updated int      `json:"updated"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// SearchLogEntry is one executed search, recorded for analytics
type SearchLogEntry struct {
	Source         string // "chat" or "search"
	Filter         *filter.Filter
	ResultCount    int
	PropertyIDs    []int64
	ResponseTimeMs int64
}

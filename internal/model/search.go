package model

import "rentchat/internal/filter"

// SearchRequest is a direct structured search. The filter is re-sanitized
// before use, so clients may send anything a chat turn could have produced.
type SearchRequest struct {
	Filter  *filter.Filter `json:"filter"`
	Options *SearchOptions `json:"options,omitempty"`
}

// SearchOptions represents paging options
type SearchOptions struct {
	TopK   int `json:"top_k"`
	Offset int `json:"offset"`
}

// SearchResponse represents a search result response
type SearchResponse struct {
	Results    []PropertySearchResult `json:"results"`
	Total      int                    `json:"total"`
	Page       int                    `json:"page"`
	PageSize   int                    `json:"page_size"`
	TotalPages int                    `json:"total_pages"`
	HasMore    bool                   `json:"has_more"`
	Filter     *filter.Filter         `json:"filter,omitempty"`
	Took       int64                  `json:"took_ms"`
}

package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"rentchat/internal/filter"
	"rentchat/internal/model"
	"rentchat/internal/service"

	"github.com/gin-gonic/gin"
)

// SearchHandler handles search-related HTTP requests
type SearchHandler struct {
	searchService *service.SearchService
	limits        filter.Limits
	defaultLimit  int
	maxLimit      int
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searchService *service.SearchService, limits filter.Limits, defaultLimit, maxLimit int) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		limits:        limits,
		defaultLimit:  defaultLimit,
		maxLimit:      maxLimit,
	}
}

// Search handles POST /api/v1/search
func (h *SearchHandler) Search(c *gin.Context) {
	var req model.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	// Client filters get the same treatment as model output
	f, _ := h.limits.Sanitize(req.Filter.Candidate())

	response, err := h.searchService.Search(c.Request.Context(), "search", f, normalizeOptions(req.Options, h.defaultLimit, h.maxLimit))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetProperty handles GET /api/v1/properties/:id
func (h *SearchHandler) GetProperty(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid property ID"})
		return
	}

	property, err := h.searchService.GetProperty(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get property: " + err.Error()})
		return
	}

	if property == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
		return
	}

	c.JSON(http.StatusOK, property)
}

// normalizeOptions applies the default page size and caps it
func normalizeOptions(opts *model.SearchOptions, defaultLimit, maxLimit int) model.SearchOptions {
	out := model.SearchOptions{TopK: defaultLimit}
	if opts == nil {
		return out
	}

	if opts.TopK > 0 {
		out.TopK = min(opts.TopK, maxLimit)
	}
	out.Offset = max(opts.Offset, 0)
	return out
}

// sendSSE sends a Server-Sent Event and flushes it
func sendSSE(c *gin.Context, event string, data any) {
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			fmt.Fprintf(c.Writer, "event: error\ndata: {\"error\": \"JSON marshal failed\"}\n\n")
			c.Writer.Flush()
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, string(jsonData))
	} else {
		fmt.Fprintf(c.Writer, "event: %s\ndata: {}\n\n", event)
	}
	c.Writer.Flush()
}

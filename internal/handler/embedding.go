package handler

import (
	"net/http"
	"strconv"

	"rentchat/internal/service"

	"github.com/gin-gonic/gin"
)

const maxRefreshBatch = 500

// EmbeddingHandler handles embedding maintenance requests
type EmbeddingHandler struct {
	searchService *service.SearchService
}

// NewEmbeddingHandler creates a new embedding handler
func NewEmbeddingHandler(searchService *service.SearchService) *EmbeddingHandler {
	return &EmbeddingHandler{
		searchService: searchService,
	}
}

// Refresh handles POST /api/v1/embeddings/refresh?limit=N. It embeds
// available properties that have no vector yet.
func (h *EmbeddingHandler) Refresh(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxRefreshBatch {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and " + strconv.Itoa(maxRefreshBatch)})
			return
		}
		limit = n
	}

	response, err := h.searchService.RefreshEmbeddings(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Embedding refresh failed: " + err.Error()})
		return
	}

	if response.Failed > 0 {
		c.JSON(http.StatusPartialContent, response)
	} else {
		c.JSON(http.StatusOK, response)
	}
}

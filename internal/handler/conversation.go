package handler

import (
	"errors"
	"net/http"

	"rentchat/internal/store"

	"github.com/gin-gonic/gin"
)

// ConversationHandler exposes the transcript store
type ConversationHandler struct {
	conversations store.ConversationStore
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(conversations store.ConversationStore) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

// Create handles POST /api/v1/conversations
func (h *ConversationHandler) Create(c *gin.Context) {
	conv, err := h.conversations.Create()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create conversation: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, conv)
}

// Get handles GET /api/v1/conversations/:id
func (h *ConversationHandler) Get(c *gin.Context) {
	conv, err := h.conversations.Get(c.Param("id"))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// Delete handles DELETE /api/v1/conversations/:id
func (h *ConversationHandler) Delete(c *gin.Context) {
	if err := h.conversations.Delete(c.Param("id")); err != nil {
		writeStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func writeStoreError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

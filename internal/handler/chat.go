package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"rentchat/internal/model"
	"rentchat/internal/service"
	"rentchat/internal/store"

	"github.com/gin-gonic/gin"
)

// ChatHandler handles conversational turns
type ChatHandler struct {
	assistant     *service.Assistant
	searchService *service.SearchService // nil when the property store is disabled
	conversations store.ConversationStore
	defaultLimit  int
	maxLimit      int
	logger        *slog.Logger
}

// NewChatHandler creates a chat handler. searchService and conversations
// may be nil.
func NewChatHandler(
	assistant *service.Assistant,
	searchService *service.SearchService,
	conversations store.ConversationStore,
	defaultLimit, maxLimit int,
	logger *slog.Logger,
) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHandler{
		assistant:     assistant,
		searchService: searchService,
		conversations: conversations,
		defaultLimit:  defaultLimit,
		maxLimit:      maxLimit,
		logger:        logger.With("component", "chat_handler"),
	}
}

// loadHistory returns the transcript for a turn: the stored conversation
// when one is named, the inline history otherwise. It writes the error
// response itself and returns false on failure.
func (h *ChatHandler) loadHistory(c *gin.Context, req *model.ChatRequest) ([]model.Message, bool) {
	if req.ConversationID == "" {
		return req.ConversationHistory, true
	}

	if h.conversations == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Conversations are not enabled"})
		return nil, false
	}

	conv, err := h.conversations.Get(req.ConversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load conversation: " + err.Error()})
		}
		return nil, false
	}
	return conv.Messages, true
}

// record appends a successful turn to the stored conversation. Fallback
// turns are not stored so a retry sees the same history.
func (h *ChatHandler) record(req *model.ChatRequest, result model.TurnResult) {
	if req.ConversationID == "" || h.conversations == nil || result.IsError {
		return
	}

	_, err := h.conversations.Append(req.ConversationID,
		model.Message{Role: model.RoleUser, Content: req.Message},
		model.Message{Role: model.RoleAssistant, Content: result.ReplyText},
	)
	if err != nil {
		h.logger.Warn("failed to store turn", "conversation_id", req.ConversationID, "error", err)
	}
}

// search runs the downstream property search for a turn's filter. A search
// failure does not fail the turn.
func (h *ChatHandler) search(c *gin.Context, req *model.ChatRequest, result model.TurnResult) *model.SearchResponse {
	if h.searchService == nil || result.Filter == nil {
		return nil
	}

	resp, err := h.searchService.Search(c.Request.Context(), "chat", result.Filter, normalizeOptions(req.Options, h.defaultLimit, h.maxLimit))
	if err != nil {
		h.logger.Warn("search for chat filter failed", "error", err)
		return nil
	}
	return resp
}

// Chat handles POST /api/v1/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	startTime := time.Now()

	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	history, ok := h.loadHistory(c, &req)
	if !ok {
		return
	}

	result, err := h.assistant.Respond(c.Request.Context(), req.Message, history)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Chat failed: " + err.Error()})
		return
	}
	h.record(&req, result)

	response := model.ChatResponse{
		TurnResult:     result,
		ConversationID: req.ConversationID,
	}
	if sr := h.search(c, &req, result); sr != nil {
		response.Results = sr.Results
		response.Total = &sr.Total
	}
	response.Took = time.Since(startTime).Milliseconds()

	c.JSON(http.StatusOK, response)
}

// ChatStream handles POST /api/v1/chat/stream - SSE streaming turn
func (h *ChatHandler) ChatStream(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	history, ok := h.loadHistory(c, &req)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	sendSSE(c, "start", gin.H{"conversationId": req.ConversationID})

	result, err := h.assistant.RespondStream(c.Request.Context(), req.Message, history, func(delta string) error {
		sendSSE(c, "thinking", gin.H{"content": delta})
		return c.Request.Context().Err()
	})
	if err != nil {
		sendSSE(c, "error", gin.H{"error": err.Error()})
		return
	}
	h.record(&req, result)

	sendSSE(c, "reply", result)

	if sr := h.search(c, &req, result); sr != nil {
		sendSSE(c, "results", sr)
	}

	sendSSE(c, "done", nil)
}

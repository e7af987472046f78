package model

import (
	"time"

	"rentchat/internal/filter"
)

// Conversation roles accepted from callers
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a caller-owned conversation transcript
type Message struct {
	Role      string    `json:"role" binding:"required,oneof=user assistant"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// ChatRequest is one conversational turn.
// ConversationID, when set, loads and extends a stored transcript instead
// of (or in addition to) the inline history.
type ChatRequest struct {
	Message             string         `json:"message" binding:"required"`
	ConversationHistory []Message      `json:"conversationHistory" binding:"omitempty,dive"`
	ConversationID      string         `json:"conversationId,omitempty"`
	Options             *SearchOptions `json:"options,omitempty"`
}

// TurnResult is the engine's answer for one turn. IsError marks the fixed
// fallback reply produced when the model could not be reached.
type TurnResult struct {
	ReplyText string         `json:"replyText"`
	Filter    *filter.Filter `json:"filter"`
	IsError   bool           `json:"isError"`
}

// ChatResponse is the HTTP shape of a turn, optionally carrying search
// results for the returned filter.
type ChatResponse struct {
	TurnResult
	ConversationID string                 `json:"conversationId,omitempty"`
	Results        []PropertySearchResult `json:"results,omitempty"`
	Total          *int                   `json:"total,omitempty"`
	Took           int64                  `json:"took_ms"`
}

// Conversation is a stored transcript
type Conversation struct {
	ID        string    `json:"id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

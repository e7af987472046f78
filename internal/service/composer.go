package service

import (
	"strings"

	"rentchat/internal/filter"
	"rentchat/internal/model"
)

// DefaultReply is used when the model's reply had no prose at all.
const DefaultReply = "Hi! Tell me where you'd like to live, your budget, or any must-have amenities and I'll find matching rentals."

// FallbackReply is returned when the model could not be reached.
const FallbackReply = "Sorry, I couldn't reach the assistant just now. Please try again in a moment."

// ComposeReply builds the result of a turn that reached the model.
func ComposeReply(parsed filter.Parsed, f *filter.Filter) model.TurnResult {
	text := strings.TrimSpace(parsed.Prose)
	if text == "" {
		text = DefaultReply
	}
	return model.TurnResult{ReplyText: text, Filter: f}
}

// ComposeFallback builds the result of a turn whose completion failed.
func ComposeFallback() model.TurnResult {
	return model.TurnResult{ReplyText: FallbackReply, Filter: nil, IsError: true}
}

package service

import "rentchat/internal/model"

// BuildWindow prepares the message sequence for one turn: the last size
// entries of history in their original order, followed by message as a
// user message. The new message is always included. Entries with a role
// other than user or assistant are skipped before the window is taken,
// and timestamps are not sent.
func BuildWindow(history []model.Message, message string, size int) []ChatMessage {
	kept := make([]model.Message, 0, len(history))
	for _, m := range history {
		if m.Role == model.RoleUser || m.Role == model.RoleAssistant {
			kept = append(kept, m)
		}
	}

	start := max(len(kept)-max(size, 0), 0)

	window := make([]ChatMessage, 0, len(kept)-start+1)
	for _, m := range kept[start:] {
		window = append(window, ChatMessage{Role: m.Role, Content: m.Content})
	}
	return append(window, ChatMessage{Role: model.RoleUser, Content: message})
}

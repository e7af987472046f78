package service

import (
	"context"
)

// Completer sends a prepared message sequence to a language model and
// returns its raw reply. Failures match ErrCompletionUnavailable.
type Completer interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

// StreamingCompleter is a Completer that can also stream the reply.
// onThinking receives reasoning deltas for providers that emit them; the
// accumulated reply content is returned once the stream ends.
type StreamingCompleter interface {
	Completer
	CompleteStream(ctx context.Context, messages []ChatMessage, onThinking func(delta string) error) (string, error)
}

// Embedder turns search text into vectors for semantic ordering.
type Embedder interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	EmbeddingsEnabled() bool
}

// StreamChunk represents a generic streaming response chunk
type StreamChunk struct {
	// Regular content (always present in streaming)
	Content string

	// Thinking/reasoning content (provider-specific, e.g., DeepSeek)
	ThinkingContent string

	// Role (assistant, user, system)
	Role string

	// Whether this is the final chunk
	Done bool
}

// Ensure OpenAIClient implements the client interfaces
var (
	_ StreamingCompleter = (*OpenAIClient)(nil)
	_ Embedder           = (*OpenAIClient)(nil)
)

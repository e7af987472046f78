package service

import (
	"fmt"
	"strings"

	"rentchat/internal/utils"

	"github.com/tidwall/gjson"
)

// StreamChunkParser is the interface for provider-specific chunk parsing
type StreamChunkParser interface {
	ParseChunk(data []byte) (*StreamChunk, error)
}

// OpenAIStreamChunkParser parses standard OpenAI-format streaming chunks
type OpenAIStreamChunkParser struct{}

// ParseChunk reads the first choice's delta of a chat.completion.chunk
func (p *OpenAIStreamChunkParser) ParseChunk(data []byte) (*StreamChunk, error) {
	choice, err := firstChoice(data)
	if err != nil {
		return nil, err
	}

	return &StreamChunk{
		Role:    choice.Get("delta.role").String(),
		Content: choice.Get("delta.content").String(),
		Done:    choice.Get("finish_reason").String() != "",
	}, nil
}

func firstChoice(data []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fmt.Errorf("invalid stream chunk: %s", utils.TruncateString(string(data), 80))
	}
	return gjson.GetBytes(data, "choices.0"), nil
}

// IsOpenAIProvider checks if the base URL is official OpenAI API
func IsOpenAIProvider(baseURL string) bool {
	return strings.Contains(baseURL, "api.openai.com")
}

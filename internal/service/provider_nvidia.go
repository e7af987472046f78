package service

import "strings"

// NVIDIAStreamChunkParser parses NVIDIA/DeepSeek chunks, which carry the
// model's reasoning in delta.reasoning_content next to the reply content.
type NVIDIAStreamChunkParser struct{}

// ParseChunk converts a reasoning-capable chunk to a StreamChunk
func (p *NVIDIAStreamChunkParser) ParseChunk(data []byte) (*StreamChunk, error) {
	choice, err := firstChoice(data)
	if err != nil {
		return nil, err
	}

	thinking := choice.Get("delta.reasoning_content")
	if !thinking.Exists() {
		thinking = choice.Get("delta.reasoning")
	}

	return &StreamChunk{
		Role:            choice.Get("delta.role").String(),
		Content:         choice.Get("delta.content").String(),
		ThinkingContent: thinking.String(),
		Done:            choice.Get("finish_reason").String() != "",
	}, nil
}

// IsNVIDIAProvider checks if the base URL is NVIDIA API
func IsNVIDIAProvider(baseURL string) bool {
	return strings.TrimSuffix(baseURL, "/") == "https://integrate.api.nvidia.com/v1"
}

// chunkParserFor picks the stream parser for a provider base URL.
// Unknown providers get the standard OpenAI format.
func chunkParserFor(baseURL string) (StreamChunkParser, string) {
	switch {
	case IsNVIDIAProvider(baseURL):
		return &NVIDIAStreamChunkParser{}, "nvidia"
	case IsOpenAIProvider(baseURL):
		return &OpenAIStreamChunkParser{}, "openai"
	default:
		return &OpenAIStreamChunkParser{}, "openai-compatible"
	}
}

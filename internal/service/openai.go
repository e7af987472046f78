package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"rentchat/internal/config"
	"rentchat/internal/utils"
)

const (
	defaultTimeout          = 30 * time.Second
	defaultMaxResponseBytes = 1 << 20
	embeddingBatchPause     = 100 * time.Millisecond
)

// OpenAIClient handles OpenAI-compatible API interactions
type OpenAIClient struct {
	config      *config.OpenAIConfig
	httpClient  *http.Client
	chunkParser StreamChunkParser
	chatExtra   map[string]any
	embedExtra  map[string]any
	logger      *slog.Logger
}

// NewOpenAIClient creates a client for cfg.APIBase. The stream format is
// detected from the base URL.
func NewOpenAIClient(cfg *config.OpenAIConfig, logger *slog.Logger) *OpenAIClient {
	if logger == nil {
		logger = slog.Default()
	}

	parser, provider := chunkParserFor(cfg.APIBase)
	logger = logger.With("component", "openai", "provider", provider)

	c := &OpenAIClient{
		config:      cfg,
		chunkParser: parser,
		logger:      logger,
	}
	c.httpClient = &http.Client{Timeout: c.timeout()}
	c.chatExtra = parseExtraBody(logger, "OPENAI_CHAT_EXTRA_BODY", cfg.ChatExtraBody)
	c.embedExtra = parseExtraBody(logger, "OPENAI_EMBEDDING_EXTRA_BODY", cfg.EmbeddingExtraBody)

	return c
}

func parseExtraBody(logger *slog.Logger, key, raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var extra map[string]any
	if err := json.Unmarshal([]byte(raw), &extra); err != nil {
		logger.Warn("ignoring invalid extra body", "key", key, "error", err)
		return nil
	}
	return extra
}

// EmbeddingsEnabled reports whether search text should be embedded
func (c *OpenAIClient) EmbeddingsEnabled() bool {
	return c.config.Enabled && c.config.EmbeddingEnabled
}

func (c *OpenAIClient) timeout() time.Duration {
	if c.config.Timeout <= 0 {
		return defaultTimeout
	}
	return time.Duration(c.config.Timeout) * time.Second
}

func (c *OpenAIClient) maxResponseBytes() int64 {
	if c.config.MaxResponseBytes <= 0 {
		return defaultMaxResponseBytes
	}
	return c.config.MaxResponseBytes
}

// ChatCompletionRequest represents a chat completion request
type ChatCompletionRequest struct {
	Model       string         `json:"model"`
	Messages    []ChatMessage  `json:"messages"`
	Temperature float64        `json:"temperature,omitempty"`
	TopP        float64        `json:"top_p,omitempty"`
	MaxTokens   int            `json:"max_tokens,omitempty"`
	Stream      bool           `json:"stream,omitempty"`
	ExtraBody   map[string]any `json:"extra_body,omitempty"` // e.g. {"chat_template_kwargs":{"thinking":true}}
}

// ChatMessage is a single message as sent to the model
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionResponse represents the API response
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// EmbeddingRequest represents an embedding request
type EmbeddingRequest struct {
	Model          string         `json:"model"`
	Input          []string       `json:"input"`
	Dimensions     int            `json:"dimensions,omitempty"`
	EncodingFormat string         `json:"encoding_format,omitempty"` // "float" for NVIDIA
	ExtraBody      map[string]any `json:"extra_body,omitempty"`
}

// EmbeddingResponse represents the embedding API response
type EmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

func (c *OpenAIClient) newChatRequest(messages []ChatMessage, stream bool) ChatCompletionRequest {
	return ChatCompletionRequest{
		Model:       c.config.ChatModel,
		Messages:    messages,
		Temperature: c.config.ChatTemperature,
		TopP:        c.config.ChatTopP,
		MaxTokens:   c.config.ChatMaxTokens,
		Stream:      stream,
		ExtraBody:   c.chatExtra,
	}
}

// post sends payload and returns the response when the status is 200.
// The caller closes the body.
func (c *OpenAIClient) post(ctx context.Context, op, path string, payload any, accept string) (*http.Response, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, unavailable(op, 0, fmt.Errorf("failed to marshal request: %w", err))
	}

	url := strings.TrimSuffix(c.config.APIBase, "/") + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, unavailable(op, 0, fmt.Errorf("failed to create request: %w", err))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, unavailable(op, 0, fmt.Errorf("failed to send request: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, unavailable(op, resp.StatusCode, fmt.Errorf("API request failed: %s", utils.TruncateString(string(body), 200)))
	}

	return resp, nil
}

// Complete sends one chat completion request and returns the first
// choice's content. There are no retries: one call per turn.
func (c *OpenAIClient) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	if !c.config.Enabled {
		return "", unavailable("chat", 0, errors.New("client is not enabled (missing API key)"))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	start := time.Now()
	resp, err := c.post(ctx, "chat", "/chat/completions", c.newChatRequest(messages, false), "application/json")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	limit := c.maxResponseBytes()
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return "", unavailable("chat", resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}
	if int64(len(body)) > limit {
		return "", unavailable("chat", resp.StatusCode, fmt.Errorf("response exceeds %d bytes", limit))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", unavailable("chat", resp.StatusCode, fmt.Errorf("failed to unmarshal response: %w", err))
	}
	if len(result.Choices) == 0 {
		return "", unavailable("chat", resp.StatusCode, errors.New("response has no choices"))
	}

	c.logger.Debug("chat completion finished",
		"model", result.Model,
		"messages", len(messages),
		"total_tokens", result.Usage.TotalTokens,
		"took", time.Since(start),
	)

	return result.Choices[0].Message.Content, nil
}

// CompleteStream performs a streaming chat completion. Reasoning deltas
// are passed to onThinking as they arrive; reply content is accumulated
// and returned. The same timeout and size bound as Complete apply.
func (c *OpenAIClient) CompleteStream(ctx context.Context, messages []ChatMessage, onThinking func(delta string) error) (string, error) {
	if !c.config.Enabled {
		return "", unavailable("chat stream", 0, errors.New("client is not enabled (missing API key)"))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	resp, err := c.post(ctx, "chat stream", "/chat/completions", c.newChatRequest(messages, true), "text/event-stream")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	limit := c.maxResponseBytes()
	var content strings.Builder
	var received int64
	chunks := 0
	finished := false

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", unavailable("chat stream", resp.StatusCode, fmt.Errorf("failed to read stream: %w", err))
		}

		line = bytes.TrimSpace(line)
		if data, ok := bytes.CutPrefix(line, []byte("data:")); ok {
			data = bytes.TrimSpace(data)
			if bytes.Equal(data, []byte("[DONE]")) {
				finished = true
				break
			}

			chunk, perr := c.chunkParser.ParseChunk(data)
			if perr != nil {
				c.logger.Warn("skipping unparsable stream chunk", "error", perr)
			} else {
				chunks++
				received += int64(len(chunk.Content) + len(chunk.ThinkingContent))
				if received > limit {
					return "", unavailable("chat stream", resp.StatusCode, fmt.Errorf("response exceeds %d bytes", limit))
				}

				if chunk.ThinkingContent != "" && onThinking != nil {
					if cerr := onThinking(chunk.ThinkingContent); cerr != nil {
						return "", fmt.Errorf("thinking callback: %w", cerr)
					}
				}
				content.WriteString(chunk.Content)
				if chunk.Done {
					finished = true
				}
			}
		}

		if errors.Is(err, io.EOF) {
			break
		}
	}

	if chunks == 0 {
		return "", unavailable("chat stream", resp.StatusCode, errors.New("stream carried no chunks"))
	}
	// A stream cut off before finish_reason or [DONE] holds partial content
	if !finished {
		return "", unavailable("chat stream", resp.StatusCode, fmt.Errorf("stream ended early: %w", io.ErrUnexpectedEOF))
	}

	c.logger.Debug("chat stream finished", "chunks", chunks, "content_bytes", content.Len())
	return content.String(), nil
}

// CreateEmbeddings creates embeddings for the given texts in batches of
// OPENAI_BATCH_SIZE.
func (c *OpenAIClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if !c.config.Enabled {
		return nil, unavailable("embeddings", 0, errors.New("client is not enabled (missing API key)"))
	}

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	batchSize := c.config.BatchSize
	if batchSize <= 0 {
		batchSize = len(texts)
	}

	allEmbeddings := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += batchSize {
		end := min(i+batchSize, len(texts))

		embeddings, err := c.createEmbeddingBatch(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d: %w", i/batchSize, err)
		}
		allEmbeddings = append(allEmbeddings, embeddings...)

		if end < len(texts) {
			select {
			case <-ctx.Done():
				return nil, unavailable("embeddings", 0, ctx.Err())
			case <-time.After(embeddingBatchPause):
			}
		}
	}

	return allEmbeddings, nil
}

func (c *OpenAIClient) createEmbeddingBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	req := EmbeddingRequest{
		Model:          c.config.EmbeddingModel,
		Input:          texts,
		Dimensions:     c.config.EmbeddingDimensions,
		EncodingFormat: "float",
		ExtraBody:      c.embedExtra,
	}

	resp, err := c.post(ctx, "embeddings", "/embeddings", req, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Vectors are large; allow a multiple of the chat bound.
	limit := c.maxResponseBytes() * int64(len(texts)+1)
	var result EmbeddingResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, limit)).Decode(&result); err != nil {
		return nil, unavailable("embeddings", resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}

	embeddings := make([][]float32, len(texts))
	for _, item := range result.Data {
		if item.Index >= 0 && item.Index < len(embeddings) {
			embeddings[item.Index] = item.Embedding
		}
	}
	for i, e := range embeddings {
		if e == nil {
			return nil, unavailable("embeddings", resp.StatusCode, fmt.Errorf("missing embedding for input %d", i))
		}
	}

	c.logger.Debug("created embeddings", "count", len(embeddings), "model", result.Model, "tokens", result.Usage.TotalTokens)
	return embeddings, nil
}

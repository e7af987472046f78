package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"rentchat/internal/config"
	"rentchat/internal/filter"
	"rentchat/internal/model"
	"rentchat/internal/utils"
)

// ClarifyReply answers a blank message without calling the model.
const ClarifyReply = "What kind of place are you looking for? You can mention a city, a budget or amenities."

// Assistant runs one conversational turn: window, completion, parse,
// sanitize, compose. It keeps no per-conversation state and is safe for
// concurrent use.
type Assistant struct {
	completer    Completer
	windowSize   int
	limits       filter.Limits
	systemPrompt string
	logger       *slog.Logger
}

// NewAssistant creates an assistant. A nil completer makes every turn
// return the fallback reply.
func NewAssistant(completer Completer, cfg config.ChatConfig, logger *slog.Logger) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}

	prompt := strings.TrimSpace(cfg.SystemPrompt)
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}

	return &Assistant{
		completer:  completer,
		windowSize: max(cfg.WindowSize, 0),
		limits: filter.Limits{
			MaxTextLen:   cfg.FieldMaxLen,
			MaxAmenities: cfg.MaxAmenities,
		},
		systemPrompt: prompt,
		logger:       logger.With("component", "assistant"),
	}
}

// Respond answers message given the caller's transcript. A completion
// failure is not an error: it yields the fallback reply with IsError set.
// The returned error is non-nil only for failures outside the completion
// contract.
func (a *Assistant) Respond(ctx context.Context, message string, history []model.Message) (model.TurnResult, error) {
	return a.respond(ctx, message, history, nil)
}

// RespondStream is Respond with reasoning deltas forwarded to onThinking
// when the completer can stream. An error from onThinking aborts the turn
// and is returned.
func (a *Assistant) RespondStream(ctx context.Context, message string, history []model.Message, onThinking func(delta string) error) (model.TurnResult, error) {
	return a.respond(ctx, message, history, onThinking)
}

func (a *Assistant) respond(ctx context.Context, message string, history []model.Message, onThinking func(string) error) (model.TurnResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return model.TurnResult{ReplyText: ClarifyReply}, nil
	}

	messages := make([]ChatMessage, 0, a.windowSize+2)
	messages = append(messages, ChatMessage{Role: "system", Content: a.systemPrompt})
	messages = append(messages, BuildWindow(history, message, a.windowSize)...)

	raw, err := a.complete(ctx, messages, onThinking)
	if err != nil {
		if errors.Is(err, ErrCompletionUnavailable) {
			a.logger.Warn("completion unavailable, using fallback reply", "error", err)
			return ComposeFallback(), nil
		}
		return model.TurnResult{}, err
	}

	return a.interpret(raw), nil
}

func (a *Assistant) complete(ctx context.Context, messages []ChatMessage, onThinking func(string) error) (string, error) {
	if a.completer == nil {
		return "", unavailable("chat", 0, errors.New("no completion client configured"))
	}
	if sc, ok := a.completer.(StreamingCompleter); ok && onThinking != nil {
		return sc.CompleteStream(ctx, messages, onThinking)
	}
	return a.completer.Complete(ctx, messages)
}

// interpret turns a raw model reply into a turn result. It never fails.
func (a *Assistant) interpret(raw string) model.TurnResult {
	a.logger.Log(context.Background(), config.LevelTrace, "raw completion", "raw", raw)

	parsed := filter.Parse(raw)
	if parsed.Degraded != "" {
		a.logger.Debug("reply has no usable filter",
			"reason", parsed.Degraded,
			"raw", utils.TruncateString(raw, 200),
		)
	}

	f, rejected := a.limits.Sanitize(parsed.Candidate)
	for _, r := range rejected {
		a.logger.Debug("filter field rejected", "field", r.Field, "reason", r.Reason)
	}

	return ComposeReply(parsed, f)
}

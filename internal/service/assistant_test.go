package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"rentchat/internal/config"
	"rentchat/internal/filter"
	"rentchat/internal/model"
)

// fakeCompleter returns a canned reply and records what it was sent.
type fakeCompleter struct {
	mu       sync.Mutex
	reply    string
	err      error
	calls    int
	lastSent []ChatMessage
}

func (f *fakeCompleter) Complete(_ context.Context, messages []ChatMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastSent = messages
	return f.reply, f.err
}

// fakeStreamer also streams reasoning before the reply.
type fakeStreamer struct {
	fakeCompleter
	thinking []string
}

func (f *fakeStreamer) CompleteStream(ctx context.Context, messages []ChatMessage, onThinking func(string) error) (string, error) {
	for _, delta := range f.thinking {
		if err := onThinking(delta); err != nil {
			return "", err
		}
	}
	return f.Complete(ctx, messages)
}

var testChatConfig = config.ChatConfig{WindowSize: 10, FieldMaxLen: 200, MaxAmenities: 20}

func strPtr(s string) *string { return &s }

func float64Ptr(v float64) *float64 { return &v }

func TestAssistant_Respond(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		err       error
		wantText  string
		wantNil   bool
		wantError bool
		check     func(t *testing.T, f *filter.Filter)
	}{
		{
			name:     "Cebu apartment example",
			reply:    `Sure! {"propertyType":"apartment","location":"Cebu City","maxPrice":15000}`,
			wantText: "Sure!",
			check: func(t *testing.T, f *filter.Filter) {
				if *f.PropertyType != "apartment" || *f.Location != "Cebu City" || *f.MaxPrice != 15000 {
					t.Errorf("unexpected filter %+v", f)
				}
				if f.MinPrice != nil || f.Search != nil || f.Amenities != nil {
					t.Errorf("unexpected extra fields %+v", f)
				}
			},
		},
		{
			name:     "Inverted range keeps minPrice",
			reply:    `{"minPrice": 20000, "maxPrice": 5000}`,
			wantText: filter.NeutralAcknowledgment,
			check: func(t *testing.T, f *filter.Filter) {
				if f.MinPrice == nil || *f.MinPrice != 20000 || f.MaxPrice != nil {
					t.Errorf("unexpected filter %+v", f)
				}
			},
		},
		{
			name:     "Prose only",
			reply:    "  Which city are you interested in?  ",
			wantText: "Which city are you interested in?",
			wantNil:  true,
		},
		{
			name:     "Malformed block",
			reply:    `Here you go {"location": }`,
			wantText: `Here you go {"location": }`,
			wantNil:  true,
		},
		{
			name:     "Block with nothing valid",
			reply:    `Okay. {"maxPrice": "lots", "location": ""}`,
			wantText: "Okay.",
			wantNil:  true,
		},
		{
			name:     "Empty reply",
			reply:    "",
			wantText: DefaultReply,
			wantNil:  true,
		},
		{
			name:      "Timeout gives fallback",
			err:       unavailable("chat", 0, context.DeadlineExceeded),
			wantText:  FallbackReply,
			wantNil:   true,
			wantError: true,
		},
		{
			name:      "Non-success status gives fallback",
			reply:     `ignored {"location":"Cebu"}`,
			err:       unavailable("chat", 503, errors.New("overloaded")),
			wantText:  FallbackReply,
			wantNil:   true,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeCompleter{reply: tt.reply, err: tt.err}
			a := NewAssistant(fc, testChatConfig, nil)

			got, err := a.Respond(context.Background(), "Find apartments in Cebu City under ₱15,000", nil)
			if err != nil {
				t.Fatalf("Respond() error = %v", err)
			}
			if got.ReplyText != tt.wantText {
				t.Errorf("ReplyText = %q, want %q", got.ReplyText, tt.wantText)
			}
			if got.IsError != tt.wantError {
				t.Errorf("IsError = %v, want %v", got.IsError, tt.wantError)
			}
			if tt.wantNil != (got.Filter == nil) {
				t.Fatalf("Filter = %+v, want nil: %v", got.Filter, tt.wantNil)
			}
			if tt.check != nil {
				tt.check(t, got.Filter)
			}
			if fc.calls != 1 {
				t.Errorf("completer called %d times, want exactly 1", fc.calls)
			}
		})
	}
}

func TestAssistant_SendsSystemPromptAndWindow(t *testing.T) {
	fc := &fakeCompleter{reply: "ok"}
	cfg := testChatConfig
	cfg.WindowSize = 2
	a := NewAssistant(fc, cfg, nil)

	_, err := a.Respond(context.Background(), "with a pool", history(6))
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}

	if len(fc.lastSent) != 4 {
		t.Fatalf("sent %d messages, want system + 2 history + new", len(fc.lastSent))
	}
	if fc.lastSent[0].Role != "system" || fc.lastSent[0].Content != DefaultSystemPrompt {
		t.Errorf("first message should be the default system prompt, got %+v", fc.lastSent[0])
	}
	if fc.lastSent[1].Content != "m4" || fc.lastSent[3].Content != "with a pool" {
		t.Errorf("unexpected window %+v", fc.lastSent[1:])
	}
}

func TestAssistant_NegativeWindowSize(t *testing.T) {
	fc := &fakeCompleter{reply: "ok"}
	cfg := testChatConfig
	cfg.WindowSize = -5
	a := NewAssistant(fc, cfg, nil)

	if _, err := a.Respond(context.Background(), "hi", history(4)); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if len(fc.lastSent) != 2 || fc.lastSent[1].Content != "hi" {
		t.Errorf("want system prompt + new message only, got %+v", fc.lastSent)
	}
}

func TestAssistant_LogsRawCompletionAtTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		Level:       config.LevelTrace,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
	a := NewAssistant(&fakeCompleter{reply: `Sure {"location":"Cebu"}`}, testChatConfig, logger)

	if _, err := a.Respond(context.Background(), "Cebu", nil); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"level":"TRACE"`) || !strings.Contains(out, `"msg":"raw completion"`) {
		t.Errorf("raw completion not logged at trace level:\n%s", out)
	}
}

func TestAssistant_CustomSystemPrompt(t *testing.T) {
	fc := &fakeCompleter{reply: "ok"}
	cfg := testChatConfig
	cfg.SystemPrompt = "  Only answer about Davao.  "
	a := NewAssistant(fc, cfg, nil)

	if _, err := a.Respond(context.Background(), "hello", nil); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if fc.lastSent[0].Content != "Only answer about Davao." {
		t.Errorf("system prompt = %q", fc.lastSent[0].Content)
	}
}

func TestAssistant_BlankMessageSkipsModel(t *testing.T) {
	fc := &fakeCompleter{reply: `{"location":"Cebu"}`}
	a := NewAssistant(fc, testChatConfig, nil)

	got, err := a.Respond(context.Background(), "   ", history(2))
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if got.ReplyText != ClarifyReply || got.Filter != nil || got.IsError {
		t.Errorf("unexpected result %+v", got)
	}
	if fc.calls != 0 {
		t.Errorf("completer called %d times for a blank message", fc.calls)
	}
}

func TestAssistant_NilCompleterFallsBack(t *testing.T) {
	a := NewAssistant(nil, testChatConfig, nil)

	got, err := a.Respond(context.Background(), "condo", nil)
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if !got.IsError || got.ReplyText != FallbackReply || got.Filter != nil {
		t.Errorf("expected fallback, got %+v", got)
	}
}

func TestAssistant_OtherErrorsPropagate(t *testing.T) {
	boom := errors.New("boom")
	a := NewAssistant(&fakeCompleter{err: boom}, testChatConfig, nil)

	_, err := a.Respond(context.Background(), "condo", nil)
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestAssistant_RespondStream(t *testing.T) {
	fs := &fakeStreamer{
		fakeCompleter: fakeCompleter{reply: `Done! {"amenities":["Pool","pool","Gym"]}`},
		thinking:      []string{"The user wants ", "a pool."},
	}
	a := NewAssistant(fs, testChatConfig, nil)

	var thoughts strings.Builder
	got, err := a.RespondStream(context.Background(), "pool and gym", nil, func(delta string) error {
		thoughts.WriteString(delta)
		return nil
	})
	if err != nil {
		t.Fatalf("RespondStream() error = %v", err)
	}
	if thoughts.String() != "The user wants a pool." {
		t.Errorf("thinking = %q", thoughts.String())
	}
	if got.ReplyText != "Done!" || got.Filter == nil || len(got.Filter.Amenities) != 2 {
		t.Errorf("unexpected result %+v", got)
	}
}

func TestAssistant_RespondStreamCallbackError(t *testing.T) {
	fs := &fakeStreamer{fakeCompleter: fakeCompleter{reply: "ok"}, thinking: []string{"x"}}
	a := NewAssistant(fs, testChatConfig, nil)

	gone := errors.New("client gone")
	_, err := a.RespondStream(context.Background(), "hi", nil, func(string) error { return gone })
	if !errors.Is(err, gone) {
		t.Errorf("expected callback error, got %v", err)
	}
}

func TestAssistant_AppliesLimits(t *testing.T) {
	cfg := testChatConfig
	cfg.FieldMaxLen = 5
	cfg.MaxAmenities = 1
	fc := &fakeCompleter{reply: `{"location":"Quezon City","search":"quiet","amenities":["Pool","Gym"]}`}
	a := NewAssistant(fc, cfg, nil)

	got, err := a.Respond(context.Background(), "x", nil)
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	want := &filter.Filter{Search: strPtr("quiet"), Amenities: []string{"Pool"}}
	if got.Filter == nil || *got.Filter.Search != *want.Search || got.Filter.Location != nil ||
		len(got.Filter.Amenities) != 1 || got.Filter.Amenities[0] != "Pool" {
		t.Errorf("Filter = %+v, want %+v", got.Filter, want)
	}
}

func TestAssistant_ConcurrentTurns(t *testing.T) {
	fc := &fakeCompleter{reply: `Sure {"maxPrice": 9000}`}
	a := NewAssistant(fc, testChatConfig, nil)

	var wg sync.WaitGroup
	results := make([]model.TurnResult, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = a.Respond(context.Background(), "cheap", history(i))
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		if r.Filter == nil || *r.Filter.MaxPrice != 9000 {
			t.Errorf("turn %d: unexpected result %+v", i, r)
		}
	}
}

func TestComposeFallback(t *testing.T) {
	got := ComposeFallback()
	if got.ReplyText != FallbackReply || got.Filter != nil || !got.IsError {
		t.Errorf("ComposeFallback() = %+v", got)
	}
}

func TestComposeReply(t *testing.T) {
	f := &filter.Filter{MinPrice: float64Ptr(1000)}
	got := ComposeReply(filter.Parsed{Prose: "  Here you go "}, f)
	if got.ReplyText != "Here you go" || got.Filter != f || got.IsError {
		t.Errorf("ComposeReply() = %+v", got)
	}

	if got := ComposeReply(filter.Parsed{}, nil); got.ReplyText != DefaultReply {
		t.Errorf("empty prose should use DefaultReply, got %q", got.ReplyText)
	}
}

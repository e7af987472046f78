package utils

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestLocateJSONBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantOK   bool
		wantBody string
		wantSpan string
	}{
		{
			name:     "Inline object after prose",
			input:    `Sure! {"location":"Cebu City"}`,
			wantOK:   true,
			wantBody: `{"location":"Cebu City"}`,
			wantSpan: `{"location":"Cebu City"}`,
		},
		{
			name:     "Fenced object",
			input:    "Here you go:\n```json\n{\"maxPrice\": 15000}\n```\nAnything else?",
			wantOK:   true,
			wantBody: `{"maxPrice": 15000}`,
			wantSpan: "```json\n{\"maxPrice\": 15000}\n```",
		},
		{
			name:     "Bare fence",
			input:    "```\n{\"a\": 1}\n```",
			wantOK:   true,
			wantBody: `{"a": 1}`,
			wantSpan: "```\n{\"a\": 1}\n```",
		},
		{
			name:     "First of two objects",
			input:    `{"a": 1} and then {"b": 2}`,
			wantOK:   true,
			wantBody: `{"a": 1}`,
			wantSpan: `{"a": 1}`,
		},
		{
			name:     "Nested object stays whole",
			input:    `x {"a": {"b": 2}} y`,
			wantOK:   true,
			wantBody: `{"a": {"b": 2}}`,
			wantSpan: `{"a": {"b": 2}}`,
		},
		{
			name:     "Braces inside strings",
			input:    `{"text": "Hello {world}"}`,
			wantOK:   true,
			wantBody: `{"text": "Hello {world}"}`,
			wantSpan: `{"text": "Hello {world}"}`,
		},
		{
			name:     "Apostrophes in prose",
			input:    `It's done: {"location": "Makati"}`,
			wantOK:   true,
			wantBody: `{"location": "Makati"}`,
			wantSpan: `{"location": "Makati"}`,
		},
		{
			name:     "Unclosed outer brace falls back to inner span",
			input:    `{ "a": {"b": 1}`,
			wantOK:   true,
			wantBody: `{"b": 1}`,
			wantSpan: `{"b": 1}`,
		},
		{
			name:     "Quote after stray brace in prose",
			input:    `Use { for "groups. Sure! {"location":"Cebu"}`,
			wantOK:   true,
			wantBody: `{"location":"Cebu"}`,
			wantSpan: `{"location":"Cebu"}`,
		},
		{
			name:     "Earlier prose braces win over a later fence",
			input:    "I'll check {your} list.\n```json\n{\"location\":\"Cebu\"}\n```",
			wantOK:   true,
			wantBody: `{your}`,
			wantSpan: `{your}`,
		},
		{
			name:   "Fence without object",
			input:  "```go\nfmt.Println()\n```",
			wantOK: false,
		},
		{
			name:   "No block",
			input:  "Which city are you looking in?",
			wantOK: false,
		},
		{
			name:   "Empty",
			input:  "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := LocateJSONBlock(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("LocateJSONBlock() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.Body != tt.wantBody {
				t.Errorf("Body = %q, want %q", got.Body, tt.wantBody)
			}
			if span := tt.input[got.Start:got.End]; span != tt.wantSpan {
				t.Errorf("span = %q, want %q", span, tt.wantSpan)
			}
		})
	}
}

func TestLocateJSONBlock_LargeUnbalancedInput(t *testing.T) {
	input := strings.Repeat("{", 200000) + `{"a":1}`
	got, ok := LocateJSONBlock(input)
	if !ok {
		t.Fatal("expected the trailing object to be found")
	}
	if got.Body != `{"a":1}` {
		t.Errorf("Body = %q", got.Body)
	}
}

func TestDecodeJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		key     string
		want    string
		wantErr bool
	}{
		{
			name:  "Pure JSON",
			input: `{"location": "Cebu City", "maxPrice": 15000}`,
			key:   "location",
			want:  "Cebu City",
		},
		{
			name:  "Trailing comma",
			input: `{"location": "Davao",}`,
			key:   "location",
			want:  "Davao",
		},
		{
			name:  "Comments",
			input: "{\n  // city the user asked for\n  \"location\": \"Iloilo\"\n}",
			key:   "location",
			want:  "Iloilo",
		},
		{
			name:  "Unquoted keys",
			input: `{location: "Baguio", maxPrice: 9000}`,
			key:   "maxPrice",
			want:  "9000",
		},
		{
			name:  "Single quotes",
			input: `{'propertyType': 'condo'}`,
			key:   "propertyType",
			want:  "condo",
		},
		{
			name:  "Apostrophe inside double-quoted value",
			input: `{'search': "owner's unit"}`,
			key:   "search",
			want:  "owner's unit",
		},
		{
			name:    "Array is not an object",
			input:   `[1, 2, 3]`,
			wantErr: true,
		},
		{
			name:    "Garbage",
			input:   `{this is not json at all`,
			wantErr: true,
		},
		{
			name:    "Empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeJSONObject(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeJSONObject() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if v := got.Get(tt.key).String(); v != tt.want {
				t.Errorf("Get(%q) = %q, want %q", tt.key, v, tt.want)
			}
		})
	}
}

func TestFixSingleQuotes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "Simple pair",
			input: `{'a': 'b'}`,
			want:  `{"a": "b"}`,
		},
		{
			name:  "Embedded double quote is escaped",
			input: `{'a': 'say "hi"'}`,
			want:  `{"a": "say \"hi\""}`,
		},
		{
			name:  "Double-quoted apostrophe untouched",
			input: `{"a": "it's"}`,
			want:  `{"a": "it's"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fixSingleQuotes(tt.input); got != tt.want {
				t.Errorf("fixSingleQuotes() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncateString(t *testing.T) {
	if got := TruncateString("abcdef", 3); got != "abc..." {
		t.Errorf("TruncateString() = %q", got)
	}
	if got := TruncateString("abc", 10); got != "abc" {
		t.Errorf("TruncateString() = %q", got)
	}
	// ₱ is three bytes; cutting inside it backs off to the rune start
	if got := TruncateString("ab₱15,000", 3); got != "ab..." {
		t.Errorf("TruncateString() = %q", got)
	}
	if got := TruncateString("₱15,000", 2); !utf8.ValidString(got) {
		t.Errorf("TruncateString() produced invalid UTF-8 %q", got)
	}
}

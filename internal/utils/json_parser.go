package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"
)

var (
	// ```json ... ``` or bare ``` ... ```; the body is captured lazily so the
	// first closing fence ends the block.
	fenceRe = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*[ \t]*\r?\n?(.*?)```")

	unquotedKeyRe  = regexp.MustCompile(`([{,]\s*)([A-Za-z_]\w*)(\s*:)`)
	controlCharsRe = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
)

// JSONBlock is a structured span found inside free text.
// Start and End are byte offsets of the whole span in the source (fence
// markers included); Body is the object text to decode.
type JSONBlock struct {
	Start int
	End   int
	Body  string
}

// LocateJSONBlock finds the first structured block in AI output. A fenced
// code block whose body starts with '{' and the first balanced {...} span
// are both candidates; whichever starts earlier wins.
func LocateJSONBlock(input string) (JSONBlock, bool) {
	fence, fenceOK := locateFence(input)
	brace, braceOK := locateBalancedObject(input)

	switch {
	case fenceOK && braceOK:
		if fence.Start <= brace.Start {
			return fence, true
		}
		return brace, true
	case fenceOK:
		return fence, true
	case braceOK:
		return brace, true
	default:
		return JSONBlock{}, false
	}
}

// locateFence returns the first markdown fence that carries an object.
func locateFence(input string) (JSONBlock, bool) {
	m := fenceRe.FindStringSubmatchIndex(input)
	if m == nil {
		return JSONBlock{}, false
	}

	body := input[m[2]:m[3]]
	trimmed := strings.TrimSpace(body)
	if !strings.HasPrefix(trimmed, "{") {
		return JSONBlock{}, false
	}

	// Prefer the balanced object inside the fence; an unbalanced body is
	// still handed over so the decoder can reject it.
	if obj, ok := locateBalancedObject(trimmed); ok && obj.Start == 0 {
		trimmed = obj.Body
	}

	return JSONBlock{Start: m[0], End: m[1], Body: trimmed}, true
}

// maxBraceRescans bounds how many stray opening braces are skipped before
// giving up on an input.
const maxBraceRescans = 32

// locateBalancedObject returns the earliest '{' that has a matching '}'.
// Quotes only toggle string state while inside braces, so apostrophes in
// surrounding prose do not confuse the scan. A stray '{' followed by a
// quote in prose can leave the scan inside a string until the end; in that
// case scanning restarts after the oldest unmatched brace.
func locateBalancedObject(input string) (JSONBlock, bool) {
	from := 0
	for i := 0; i < maxBraceRescans+1; i++ {
		block, ok, unmatched := scanBalancedObject(input, from)
		if ok {
			return block, true
		}
		if unmatched < 0 {
			break
		}
		from = unmatched + 1
	}
	return JSONBlock{}, false
}

// scanBalancedObject is one pass of locateBalancedObject starting at from.
// When nothing closes it reports the oldest brace still open, or -1.
func scanBalancedObject(input string, from int) (JSONBlock, bool, int) {
	var stack []int
	inString := false
	escape := false
	best := JSONBlock{Start: -1}

	for i := from; i < len(input); i++ {
		ch := input[i]

		if len(stack) > 0 {
			if escape {
				escape = false
				continue
			}
			if inString {
				switch ch {
				case '\\':
					escape = true
				case '"':
					inString = false
				}
				continue
			}
			if ch == '"' {
				inString = true
				continue
			}
		}

		switch ch {
		case '{':
			stack = append(stack, i)
		case '}':
			if len(stack) == 0 {
				continue
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if best.Start < 0 || open < best.Start {
				best = JSONBlock{Start: open, End: i + 1}
			}
		}
	}

	if best.Start < 0 {
		if len(stack) > 0 {
			return JSONBlock{}, false, stack[0]
		}
		return JSONBlock{}, false, -1
	}
	best.Body = input[best.Start:best.End]
	return best, true, -1
}

// DecodeJSONObject decodes an object block tolerantly. It tries the body
// as-is, then with comments and trailing commas stripped, then with the
// common AI mistakes (unquoted keys, single quotes, control characters)
// repaired. Anything that is still not a JSON object is an error.
func DecodeJSONObject(body string) (gjson.Result, error) {
	body = strings.TrimPrefix(strings.TrimSpace(body), "\ufeff")
	if body == "" {
		return gjson.Result{}, fmt.Errorf("empty input")
	}

	attempts := []string{
		body,
		string(jsonc.ToJSON([]byte(body))),
		cleanAndFixJSON(body),
	}

	for _, candidate := range attempts {
		if !gjson.Valid(candidate) {
			continue
		}
		result := gjson.Parse(candidate)
		if !result.IsObject() {
			return gjson.Result{}, fmt.Errorf("expected JSON object, got %s", result.Type)
		}
		return result, nil
	}

	return gjson.Result{}, fmt.Errorf("failed to parse JSON from input: %s", TruncateString(body, 100))
}

// cleanAndFixJSON attempts to fix common JSON formatting issues
func cleanAndFixJSON(input string) string {
	s := removeControlCharacters(input)
	s = fixSingleQuotes(s)
	s = unquotedKeyRe.ReplaceAllString(s, `$1"$2"$3`)
	return string(jsonc.ToJSON([]byte(s)))
}

// fixSingleQuotes converts single-quoted strings to double-quoted ones,
// leaving apostrophes inside double-quoted strings alone.
func fixSingleQuotes(input string) string {
	var result strings.Builder
	result.Grow(len(input))

	inDouble := false
	inSingle := false
	escape := false

	for i := 0; i < len(input); i++ {
		ch := input[i]

		if escape {
			result.WriteByte(ch)
			escape = false
			continue
		}

		switch {
		case ch == '\\':
			result.WriteByte(ch)
			escape = true
		case ch == '"' && !inSingle:
			inDouble = !inDouble
			result.WriteByte(ch)
		case ch == '"' && inSingle:
			result.WriteString(`\"`)
		case ch == '\'' && !inDouble:
			if inSingle {
				inSingle = false
				result.WriteByte('"')
				continue
			}
			if opensSingleQuote(input, i) {
				inSingle = true
				result.WriteByte('"')
				continue
			}
			result.WriteByte(ch)
		default:
			result.WriteByte(ch)
		}
	}

	return result.String()
}

// opensSingleQuote reports whether the quote at i follows a JSON
// structural character, i.e. is not an apostrophe inside a word.
func opensSingleQuote(input string, i int) bool {
	for j := i - 1; j >= 0; j-- {
		switch input[j] {
		case ' ', '\t', '\n', '\r':
			continue
		case ':', ',', '[', '{':
			return true
		default:
			return false
		}
	}
	return true
}

// removeControlCharacters removes non-printable control characters
func removeControlCharacters(input string) string {
	return controlCharsRe.ReplaceAllString(input, "")
}

// TruncateString truncates a string to at most maxLen bytes for log
// output without splitting a UTF-8 sequence.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

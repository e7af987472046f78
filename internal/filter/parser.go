package filter

import (
	"strings"

	"rentchat/internal/utils"
)

// NeutralAcknowledgment replaces the prose when a reply consisted of
// nothing but the structured block.
const NeutralAcknowledgment = "Got it! Here are listings that match what you asked for."

// Parsed is the result of splitting a model reply into prose and filter.
type Parsed struct {
	// Prose is the human-readable part of the reply.
	Prose string

	// Candidate is nil when no usable block was found.
	Candidate *Candidate

	// Degraded explains why Candidate is nil. Empty when a block decoded.
	Degraded string
}

// Parse locates the first structured block in raw, decodes it, and returns
// the reply prose with the block removed. It never fails: a missing or
// malformed block yields the trimmed raw text and a nil candidate.
func Parse(raw string) Parsed {
	block, ok := utils.LocateJSONBlock(raw)
	if !ok {
		return Parsed{
			Prose:    strings.TrimSpace(raw),
			Degraded: "no structured block",
		}
	}

	obj, err := utils.DecodeJSONObject(block.Body)
	if err != nil {
		return Parsed{
			Prose:    strings.TrimSpace(raw),
			Degraded: "malformed structured block: " + err.Error(),
		}
	}

	prose := collapseWhitespace(raw[:block.Start] + " " + raw[block.End:])
	if prose == "" {
		prose = NeutralAcknowledgment
	}

	return Parsed{
		Prose:     prose,
		Candidate: candidateFromObject(obj),
	}
}

// collapseWhitespace squeezes runs of spaces within each line and drops
// blank lines, keeping paragraph breaks as single newlines.
func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if collapsed := strings.Join(strings.Fields(line), " "); collapsed != "" {
			kept = append(kept, collapsed)
		}
	}
	return strings.Join(kept, "\n")
}

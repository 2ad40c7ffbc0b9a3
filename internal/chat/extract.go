package chat

import (
	"encoding/json"
	"regexp"
	"strings"
)

// DefaultFence is the markdown code fence marker models usually wrap JSON in.
const DefaultFence = "```"

// Extractor pulls a JSON payload out of free-form model output that may be
// wrapped in prose or fenced code blocks. It checks syntactic JSON validity
// only; shape validation belongs to the schema package.
type Extractor struct {
	fenceRe *regexp.Regexp
}

// NewExtractor creates an extractor for the given fence marker.
func NewExtractor(fence string) Extractor {
	if fence == "" {
		fence = DefaultFence
	}
	quoted := regexp.QuoteMeta(fence)
	// A fenced region, with or without a language tag, non-greedy so that
	// several regions in one reply are scanned separately.
	re := regexp.MustCompile(`(?s)` + quoted + `[a-zA-Z0-9_-]*\s*(.*?)` + quoted)
	return Extractor{fenceRe: re}
}

// Extract returns the first candidate JSON text found in raw, in order:
//
//  1. each fenced region in document order, first one that parses wins
//  2. the span from the first '{' to the last '}' if it parses
//  3. the raw text unchanged, so the caller fails cleanly on parse
func (e Extractor) Extract(raw string) string {
	for _, m := range e.fenceRe.FindAllStringSubmatch(raw, -1) {
		candidate := strings.TrimSpace(m[1])
		if candidate != "" && json.Valid([]byte(candidate)) {
			return candidate
		}
	}

	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			candidate := raw[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate
			}
		}
	}

	return raw
}

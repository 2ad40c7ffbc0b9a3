// Package chat implements the conversation-to-structured-data pipeline:
// session memory, finalize trigger detection, prompt composition, JSON
// extraction and the per-message orchestration state machine.
package chat

import "strings"

// Mode selects the finalize trigger convention.
type Mode string

const (
	// ModeConfirmation finalizes on affirmative words anywhere in the message.
	ModeConfirmation Mode = "confirmation"
	// ModeCommand finalizes on explicit hashtag command tokens.
	ModeCommand Mode = "command"
)

// ConfirmationWords is the default affirmative word set.
var ConfirmationWords = []string{"oke", "ok", "yes", "good"}

// CommandWords is the default hashtag command set, including synonyms.
var CommandWords = []string{"#submit", "#generate", "#selesai", "#kirim", "#done"}

// Trigger decides whether a user message should finalize the conversation
// into a structured record. Matching is case-insensitive and exact against a
// closed word set; there is no fuzzy matching.
type Trigger struct {
	mode  Mode
	words []string
}

// NewTrigger creates a trigger for the given convention. A nil or empty word
// set selects the convention's default words.
func NewTrigger(mode Mode, words []string) Trigger {
	if len(words) == 0 {
		if mode == ModeCommand {
			words = CommandWords
		} else {
			words = ConfirmationWords
		}
	}
	lowered := make([]string, len(words))
	for i, w := range words {
		lowered[i] = strings.ToLower(w)
	}
	return Trigger{mode: mode, words: lowered}
}

// Detect reports whether the latest user text fires the trigger.
// It never fails; unmatchable input is simply false.
func (t Trigger) Detect(text string) bool {
	lowered := strings.ToLower(text)

	switch t.mode {
	case ModeCommand:
		for _, token := range strings.Fields(lowered) {
			for _, w := range t.words {
				if token == w {
					return true
				}
			}
		}
		return false
	default:
		for _, w := range t.words {
			if strings.Contains(lowered, w) {
				return true
			}
		}
		return false
	}
}

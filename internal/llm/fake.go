package llm

import (
	"context"
	"fmt"
)

// FakeCompleter returns scripted responses in order for offline/testing use.
// Once the script is exhausted it keeps returning the last response.
type FakeCompleter struct {
	Responses []string
	Err       error
	Calls     int
	Prompts   []string
}

// NewFakeCompleter creates a fake that replays the given responses.
func NewFakeCompleter(responses ...string) *FakeCompleter {
	return &FakeCompleter{Responses: responses}
}

// Complete returns the next scripted response, or the configured error.
func (f *FakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.Calls++
	f.Prompts = append(f.Prompts, prompt)
	if f.Err != nil {
		return "", f.Err
	}
	if len(f.Responses) == 0 {
		return "", fmt.Errorf("llm: fake has no scripted responses")
	}
	idx := f.Calls - 1
	if idx >= len(f.Responses) {
		idx = len(f.Responses) - 1
	}
	return f.Responses[idx], nil
}

// Ensure FakeCompleter implements Completer
var _ Completer = (*FakeCompleter)(nil)

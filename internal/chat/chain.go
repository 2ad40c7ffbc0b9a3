package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gigdesk/intake/internal/llm"
	"github.com/gigdesk/intake/internal/schema"
	"github.com/gigdesk/intake/internal/store"
)

// ErrGeneration marks a backend completion failure. It is the only error
// class that surfaces to the caller; data-shape failures degrade to a
// conversational reply instead.
var ErrGeneration = errors.New("chat: generation failed")

// Fixed localized user-facing replies. Raw model or parse errors are logged,
// never shown to the end user.
const (
	finalReply    = "Baik, saya telah menyimpan detail project Anda. Apakah ada yang bisa saya bantu lagi?"
	apologyPrefix = "Maaf, saya masih membutuhkan beberapa informasi penting untuk melengkapi detail project. "
)

// Result is the outcome of processing one incoming message.
type Result struct {
	Response string
	Record   map[string]any // non-nil only when Final
	Final    bool
}

// Chain orchestrates one conversation turn: memory, prompt composition,
// generation, trigger evaluation and extraction with a single bounded
// escalation round. The chain itself is stateless between messages; all
// durable state lives in Memory and the message store.
type Chain struct {
	completer llm.Completer
	messages  store.Store
	schema    *schema.Definition
	memory    *Memory
	trigger   Trigger
	prompter  Prompter
	extractor Extractor
	log       zerolog.Logger
}

// NewChain assembles the pipeline.
func NewChain(completer llm.Completer, messages store.Store, def *schema.Definition, trigger Trigger, logger zerolog.Logger) *Chain {
	return &Chain{
		completer: completer,
		messages:  messages,
		schema:    def,
		memory:    NewMemory(),
		trigger:   trigger,
		extractor: NewExtractor(DefaultFence),
		log:       logger,
	}
}

// ResetSession clears in-process memory for a brand-new session.
func (c *Chain) ResetSession(sessionID string) {
	c.memory.Reset(sessionID)
}

// ProcessMessage runs the per-message state transition. The session is locked
// for the whole transition, including the escalation round, so concurrent
// messages for one session are serialized while other sessions proceed in
// parallel.
//
// A backend failure returns an error wrapping ErrGeneration and leaves no
// turns behind. Extraction or validation failures never surface: after one
// escalation round they degrade to a non-final apologetic reply.
func (c *Chain) ProcessMessage(ctx context.Context, sessionID, text string) (Result, error) {
	sess := c.memory.Session(sessionID)
	sess.Lock()
	defer sess.Unlock()

	c.hydrate(ctx, sessionID, sess)
	history := sess.Snapshot()

	prompt, err := c.prompter.Conversation(history, text)
	if err != nil {
		return Result{}, err
	}

	raw, err := c.completer.Complete(ctx, prompt)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	result := Result{Response: raw}

	// The trigger is evaluated on the user's original text, never on the
	// generated reply.
	if c.trigger.Detect(text) {
		record, err := c.finalize(ctx, raw, history, text)
		switch {
		case err == nil:
			result = Result{Response: finalReply, Record: record, Final: true}
		case errors.Is(err, ErrGeneration):
			return Result{}, err
		default:
			c.log.Warn().Err(err).Str("session_id", sessionID).
				Msg("finalize failed after escalation, degrading to conversational reply")
			result = Result{Response: apologyPrefix + raw}
		}
	}

	sess.Append(RoleUser, text)
	sess.Append(RoleAssistant, result.Response)

	return result, nil
}

// finalize extracts and normalizes a record from the primary reply and, when
// that fails, runs exactly one escalation round with the schema-reiterating
// prompt. A second failure is terminal for the message.
func (c *Chain) finalize(ctx context.Context, raw string, history []Turn, input string) (map[string]any, error) {
	record, err := c.parse(raw)
	if err == nil {
		return record, nil
	}
	c.log.Debug().Err(err).Msg("primary extraction failed, starting escalation round")

	// The repair prompt sees the conversation including the turn in flight.
	full := append(append([]Turn{}, history...),
		Turn{Role: RoleUser, Text: input},
		Turn{Role: RoleAssistant, Text: raw},
	)

	prompt, err := c.prompter.Repair(string(c.schema.JSON()), full)
	if err != nil {
		return nil, err
	}

	retry, err := c.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	return c.parse(retry)
}

// parse runs extraction and schema normalization over one reply.
func (c *Chain) parse(raw string) (map[string]any, error) {
	candidate := c.extractor.Extract(raw)

	var record map[string]any
	if err := json.Unmarshal([]byte(candidate), &record); err != nil {
		return nil, fmt.Errorf("chat: no JSON object in reply: %w", err)
	}

	normalized, err := c.schema.Normalize(record)
	if err != nil {
		return nil, err
	}

	if issues := c.schema.Check(normalized); len(issues) > 0 {
		c.log.Debug().Strs("issues", issues).Msg("normalized record deviates from schema document")
	}

	return normalized, nil
}

// hydrate replays persisted history into empty session memory, at most once
// per process lifetime per session. A store failure is logged and the
// conversation continues from an empty context.
func (c *Chain) hydrate(ctx context.Context, sessionID string, sess *SessionMemory) {
	if sess.Hydrated() || sess.Len() > 0 {
		return
	}

	msgs, err := c.messages.ListMessages(ctx, sessionID)
	if err != nil {
		c.log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to rehydrate session history")
		sess.Rehydrate(nil)
		return
	}

	turns := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		turns = append(turns, Turn{Role: Role(m.Role), Text: m.Content})
	}
	sess.Rehydrate(turns)
}

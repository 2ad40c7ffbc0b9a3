package chat

import "sync"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one immutable (role, text) entry of a conversation.
type Turn struct {
	Role Role
	Text string
}

// Memory keys conversation logs by session identifier. Sessions are isolated
// from each other; concurrent sessions proceed independently.
type Memory struct {
	mu       sync.Mutex
	sessions map[string]*SessionMemory
}

// NewMemory creates an empty memory store.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]*SessionMemory)}
}

// Session returns the conversation log for the given session, creating an
// empty one on first use.
func (m *Memory) Session(sessionID string) *SessionMemory {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		sess = &SessionMemory{}
		m.sessions[sessionID] = sess
	}
	return sess
}

// Reset discards the conversation log for a session. Called when a brand-new
// session begins.
func (m *Memory) Reset(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

// SessionMemory is the ordered, append-only turn log of one session.
//
// Turn access is not self-locking: callers hold Lock for the whole message
// transition so two messages arriving for the same session cannot interleave
// their memory writes.
type SessionMemory struct {
	mu       sync.Mutex
	hydrated bool
	turns    []Turn
}

// Lock serializes a full message transition for this session.
func (s *SessionMemory) Lock() { s.mu.Lock() }

// Unlock releases the session.
func (s *SessionMemory) Unlock() { s.mu.Unlock() }

// Hydrated reports whether persisted history replay has already happened.
func (s *SessionMemory) Hydrated() bool { return s.hydrated }

// Rehydrate replays persisted turns into an empty log. It is a no-op when the
// log already holds turns or was hydrated before: hydration happens at most
// once per process lifetime per session. Reports whether the turns were applied.
func (s *SessionMemory) Rehydrate(turns []Turn) bool {
	if s.hydrated || len(s.turns) > 0 {
		s.hydrated = true
		return false
	}
	s.turns = append(s.turns, turns...)
	s.hydrated = true
	return true
}

// Append records a turn at the end of the log.
func (s *SessionMemory) Append(role Role, text string) {
	s.turns = append(s.turns, Turn{Role: role, Text: text})
}

// Snapshot returns a copy of the current log in chronological order.
func (s *SessionMemory) Snapshot() []Turn {
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of recorded turns.
func (s *SessionMemory) Len() int { return len(s.turns) }

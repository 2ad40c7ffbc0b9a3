// Package store persists chat sessions, their ordered message logs and the
// final extracted project records.
package store

import (
	"context"
	"time"
)

// Message is one persisted conversation entry.
type Message struct {
	Role      string
	Content   string
	CreatedAt time.Time
}

// Store defines the contract for the message-store collaborator.
type Store interface {
	// CreateSession registers a new chat session and returns its identifier.
	CreateSession(ctx context.Context, userID string) (string, error)

	// AppendMessage records one turn at the end of a session's log.
	AppendMessage(ctx context.Context, sessionID, role, content string) error

	// ListMessages returns a session's log in creation order.
	ListMessages(ctx context.Context, sessionID string) ([]Message, error)

	// SaveProjectRecord stores a finalized project record for a session.
	SaveProjectRecord(ctx context.Context, sessionID string, record map[string]any) error

	// LatestProjectRecord returns the most recent finalized record for a
	// session, or nil when none exists.
	LatestProjectRecord(ctx context.Context, sessionID string) (map[string]any, error)

	// Close releases any resources held by the store.
	Close() error
}

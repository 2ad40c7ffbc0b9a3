package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite. Message order is
// preserved by a monotonically increasing seq column rather than timestamps,
// which only have second resolution in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore connected to the given database path.
// The path should be a file path (e.g., "./chat.db") or ":memory:" for an
// in-memory database. It opens the connection and verifies it with a ping.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	// Enable WAL mode and foreign keys for better performance and data integrity
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// InitSchema creates the necessary tables if they don't exist.
// This should be called after creating a new SQLiteStore.
func (s *SQLiteStore) InitSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS chat_sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS chat_messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			session_id TEXT NOT NULL REFERENCES chat_sessions(id),
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_messages_session ON chat_messages(session_id, seq);

		CREATE TABLE IF NOT EXISTS project_data (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES chat_sessions(id),
			project_data TEXT NOT NULL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_project_session ON project_data(session_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// CreateSession registers a new chat session and returns its identifier.
func (s *SQLiteStore) CreateSession(ctx context.Context, userID string) (string, error) {
	id := uuid.NewString()

	query := `INSERT INTO chat_sessions (id, user_id) VALUES (?, ?)`
	if _, err := s.db.ExecContext(ctx, query, id, userID); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	return id, nil
}

// AppendMessage records one turn at the end of a session's log.
func (s *SQLiteStore) AppendMessage(ctx context.Context, sessionID, role, content string) error {
	query := `INSERT INTO chat_messages (id, session_id, role, content) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, uuid.NewString(), sessionID, role, content); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// ListMessages returns a session's log in creation order.
func (s *SQLiteStore) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	query := `
		SELECT role, content, created_at
		FROM chat_messages
		WHERE session_id = ?
		ORDER BY seq
	`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		var createdAt string
		if err := rows.Scan(&msg.Role, &msg.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.CreatedAt, _ = parseTimestamp(createdAt)
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

// SaveProjectRecord stores a finalized project record for a session.
func (s *SQLiteStore) SaveProjectRecord(ctx context.Context, sessionID string, record map[string]any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode project record: %w", err)
	}

	query := `INSERT INTO project_data (id, session_id, project_data) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, uuid.NewString(), sessionID, string(data)); err != nil {
		return fmt.Errorf("failed to save project record: %w", err)
	}
	return nil
}

// LatestProjectRecord returns the most recent finalized record for a session,
// or nil when none exists.
func (s *SQLiteStore) LatestProjectRecord(ctx context.Context, sessionID string) (map[string]any, error) {
	query := `
		SELECT project_data
		FROM project_data
		WHERE session_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var data string
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query project record: %w", err)
	}

	var record map[string]any
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("failed to decode project record: %w", err)
	}
	return record, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// parseTimestamp parses a SQLite timestamp string to time.Time.
// SQLite stores timestamps as TEXT in ISO8601/RFC3339 format.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		"2006-01-02T15:04:05.000",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse timestamp: %s", s)
}

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)

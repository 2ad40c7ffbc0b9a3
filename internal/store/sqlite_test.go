package store

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	ctx := context.Background()

	store, err := NewSQLiteStore(ctx, ":memory:")
	if err != nil {
		t.Fatalf("failed to create SQLite store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.InitSchema(ctx); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}
	return store
}

// TestSQLiteStore_MessageOrder tests that messages come back in append order.
func TestSQLiteStore_MessageOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	sessionID, err := store.CreateSession(ctx, "user-1")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	const n = 10
	for i := 0; i < n; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		if err := store.AppendMessage(ctx, sessionID, role, fmt.Sprintf("message %d", i)); err != nil {
			t.Fatalf("failed to append message %d: %v", i, err)
		}
	}

	messages, err := store.ListMessages(ctx, sessionID)
	if err != nil {
		t.Fatalf("failed to list messages: %v", err)
	}
	if len(messages) != n {
		t.Fatalf("expected %d messages, got %d", n, len(messages))
	}
	for i, msg := range messages {
		if want := fmt.Sprintf("message %d", i); msg.Content != want {
			t.Errorf("message %d content = %q, want %q", i, msg.Content, want)
		}
	}
}

// TestSQLiteStore_SessionIsolation tests that logs do not leak across sessions.
func TestSQLiteStore_SessionIsolation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	a, _ := store.CreateSession(ctx, "user-a")
	b, _ := store.CreateSession(ctx, "user-b")

	if err := store.AppendMessage(ctx, a, "user", "only in a"); err != nil {
		t.Fatalf("failed to append: %v", err)
	}

	messages, err := store.ListMessages(ctx, b)
	if err != nil {
		t.Fatalf("failed to list messages: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("expected empty log for session b, got %d messages", len(messages))
	}
}

// TestSQLiteStore_ProjectRecordRoundTrip tests record storage and retrieval.
func TestSQLiteStore_ProjectRecordRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	sessionID, err := store.CreateSession(ctx, "user-1")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	// No record yet
	record, err := store.LatestProjectRecord(ctx, sessionID)
	if err != nil {
		t.Fatalf("failed to query record: %v", err)
	}
	if record != nil {
		t.Errorf("expected no record, got %v", record)
	}

	first := map[string]any{
		"project": map[string]any{"title": "Proyek A", "viewed": float64(0)},
		"talents": []any{map[string]any{"name": "Dev"}},
	}
	second := map[string]any{
		"project": map[string]any{"title": "Proyek B", "viewed": float64(3)},
		"talents": []any{map[string]any{"name": "Desainer"}},
	}

	if err := store.SaveProjectRecord(ctx, sessionID, first); err != nil {
		t.Fatalf("failed to save first record: %v", err)
	}
	if err := store.SaveProjectRecord(ctx, sessionID, second); err != nil {
		t.Fatalf("failed to save second record: %v", err)
	}

	latest, err := store.LatestProjectRecord(ctx, sessionID)
	if err != nil {
		t.Fatalf("failed to query record: %v", err)
	}
	if !reflect.DeepEqual(latest, second) {
		t.Errorf("latest record = %v, want %v", latest, second)
	}
}

// TestSQLiteStore_FileDatabase tests persistence across close and reopen.
func TestSQLiteStore_FileDatabase(t *testing.T) {
	ctx := context.Background()

	tmpFile, err := os.CreateTemp("", "test_*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	store, err := NewSQLiteStore(ctx, tmpPath)
	if err != nil {
		t.Fatalf("failed to create SQLite store: %v", err)
	}
	if err := store.InitSchema(ctx); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}

	sessionID, err := store.CreateSession(ctx, "user-1")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if err := store.AppendMessage(ctx, sessionID, "user", "halo"); err != nil {
		t.Fatalf("failed to append message: %v", err)
	}

	store.Close()

	store2, err := NewSQLiteStore(ctx, tmpPath)
	if err != nil {
		t.Fatalf("failed to reopen SQLite store: %v", err)
	}
	defer store2.Close()

	messages, err := store2.ListMessages(ctx, sessionID)
	if err != nil {
		t.Fatalf("failed to list messages: %v", err)
	}
	if len(messages) != 1 || messages[0].Content != "halo" {
		t.Errorf("expected persisted message 'halo', got %v", messages)
	}
}

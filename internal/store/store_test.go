package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "messages.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestOpenEnablesWAL(t *testing.T) {
	s := openStore(t)

	var mode string
	if err := s.sqlDB.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if !strings.EqualFold(mode, "wal") {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestMessageIDRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if _, ok, err := s.MessageID(ctx, "eu-1", "header"); err != nil || ok {
		t.Fatalf("MessageID on empty store: ok=%v err=%v", ok, err)
	}

	if err := s.SetMessageID(ctx, "eu-1", "header", "111"); err != nil {
		t.Fatalf("SetMessageID: %v", err)
	}
	if err := s.SetMessageID(ctx, "eu-1", "gamestate", "222"); err != nil {
		t.Fatalf("SetMessageID: %v", err)
	}
	if err := s.SetMessageID(ctx, "us-1", "header", "333"); err != nil {
		t.Fatalf("SetMessageID: %v", err)
	}

	id, ok, err := s.MessageID(ctx, "eu-1", "header")
	if err != nil || !ok || id != "111" {
		t.Errorf("MessageID(eu-1, header) = %q, %v, %v", id, ok, err)
	}
	id, ok, err = s.MessageID(ctx, "us-1", "header")
	if err != nil || !ok || id != "333" {
		t.Errorf("MessageID(us-1, header) = %q, %v, %v", id, ok, err)
	}
}

func TestSetMessageIDReplaces(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if err := s.SetMessageID(ctx, "eu-1", "header", "111"); err != nil {
		t.Fatalf("SetMessageID: %v", err)
	}
	if err := s.SetMessageID(ctx, "eu-1", "header", "999"); err != nil {
		t.Fatalf("SetMessageID replace: %v", err)
	}

	id, ok, err := s.MessageID(ctx, "eu-1", "header")
	if err != nil || !ok || id != "999" {
		t.Errorf("MessageID after replace = %q, %v, %v", id, ok, err)
	}
}

func TestDeleteMessageID(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if err := s.SetMessageID(ctx, "eu-1", "header", "111"); err != nil {
		t.Fatalf("SetMessageID: %v", err)
	}
	if err := s.DeleteMessageID(ctx, "eu-1", "header"); err != nil {
		t.Fatalf("DeleteMessageID: %v", err)
	}
	if _, ok, err := s.MessageID(ctx, "eu-1", "header"); err != nil || ok {
		t.Errorf("MessageID after delete: ok=%v err=%v", ok, err)
	}

	// Deleting a missing row is not an error.
	if err := s.DeleteMessageID(ctx, "eu-1", "header"); err != nil {
		t.Errorf("DeleteMessageID on missing row: %v", err)
	}
}

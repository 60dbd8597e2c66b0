package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func openSQLiteTest(t *testing.T, path string) *SQLite {
	t.Helper()
	s, err := OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteContract(t *testing.T) {
	runStoreContract(t, openSQLiteTest(t, filepath.Join(t.TempDir(), "session.db")))
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	ctx := context.Background()

	first, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.Apply(ctx, Set("access_token", "a"), Set("user", "u")); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second := openSQLiteTest(t, path)
	if got, ok, err := second.Get(ctx, "access_token"); err != nil || !ok || got != "a" {
		t.Fatalf("reopen get = %q ok=%v err=%v", got, ok, err)
	}
}

func TestSQLiteCanceledContextWritesNothing(t *testing.T) {
	s := openSQLiteTest(t, filepath.Join(t.TempDir(), "session.db"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Apply(ctx, Set("k", "v")); err == nil {
		t.Fatal("expected canceled context to fail")
	}
	if _, ok, _ := s.Get(context.Background(), "k"); ok {
		t.Fatal("canceled apply must not write")
	}
}

package goSession

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/MrEthical07/goSession/storage"
)

var errInjected = errors.New("injected storage failure")

// flakyStore wraps a Memory store and fails reads or writes on demand.
type flakyStore struct {
	*storage.Memory
	failApply atomic.Bool
	failGet   atomic.Bool
	applies   atomic.Int64
}

func newFlakyStore() *flakyStore {
	return &flakyStore{Memory: storage.NewMemory()}
}

func (s *flakyStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s.failGet.Load() {
		return "", false, errInjected
	}
	return s.Memory.Get(ctx, key)
}

func (s *flakyStore) Apply(ctx context.Context, ops ...storage.Op) error {
	s.applies.Add(1)
	if s.failApply.Load() {
		return errInjected
	}
	return s.Memory.Apply(ctx, ops...)
}

func testUser() User {
	return User{
		ID:            "u-1",
		Email:         "ada@example.com",
		FirstName:     "Ada",
		LastName:      "Lovelace",
		Role:          RoleStudent,
		EmailVerified: true,
	}
}

func testCreds() Credentials {
	return Credentials{Access: "access-1", Refresh: "refresh-1"}
}

func newTestManager(t *testing.T, store storage.Store) *Manager {
	t.Helper()
	m, err := New().WithStore(store).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func newSettledManager(t *testing.T, store storage.Store) *Manager {
	t.Helper()
	m := newTestManager(t, store)
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return m
}

func seedSession(t *testing.T, store storage.Store, creds Credentials, userJSON string) {
	t.Helper()
	cfg := DefaultConfig()
	err := store.Apply(context.Background(),
		storage.Set(cfg.Storage.AccessKey, creds.Access),
		storage.Set(cfg.Storage.RefreshKey, creds.Refresh),
		storage.Set(cfg.Storage.UserKey, userJSON),
	)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func mustEncode(t *testing.T, u User) string {
	t.Helper()
	raw, err := encodeUser(u)
	if err != nil {
		t.Fatalf("encode user: %v", err)
	}
	return raw
}

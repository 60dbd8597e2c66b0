package goSession

import (
	"context"
	"errors"
	"maps"
	"sync"
	"testing"

	"github.com/MrEthical07/goSession/storage"
)

func TestManagerStartsInitializing(t *testing.T) {
	m := newTestManager(t, storage.NewMemory())
	v := m.View()
	if !v.IsLoading() || v.IsAuthenticated() || v.User != nil {
		t.Fatalf("unexpected initial view: %+v", v)
	}
}

func TestInitializeEmptyStoreSettlesLoggedOut(t *testing.T) {
	m := newSettledManager(t, storage.NewMemory())
	v := m.View()
	if v.IsLoading() || v.IsAuthenticated() {
		t.Fatalf("expected settled logged-out view, got %+v", v)
	}
	if m.Metrics().Value(MetricHydrateEmpty) != 1 {
		t.Fatal("expected hydrate-empty metric")
	}
}

func TestInitializeHydratesValidRecord(t *testing.T) {
	store := storage.NewMemory()
	seedSession(t, store, testCreds(), mustEncode(t, testUser()))

	m := newSettledManager(t, store)
	u, ok := m.User()
	if !ok || u != testUser() {
		t.Fatalf("expected hydrated user, got %+v ok=%v", u, ok)
	}
	if !m.IsAuthenticated() {
		t.Fatal("expected authenticated")
	}
	if tok, _ := m.AccessToken(context.Background()); tok != "access-1" {
		t.Fatalf("expected access token, got %q", tok)
	}
}

func TestInitializeHydratesWithoutRefreshKey(t *testing.T) {
	store := storage.NewMemory()
	cfg := DefaultConfig()
	if err := store.Apply(context.Background(),
		storage.Set(cfg.Storage.AccessKey, "a"),
		storage.Set(cfg.Storage.UserKey, mustEncode(t, testUser())),
	); err != nil {
		t.Fatalf("seed: %v", err)
	}

	m := newSettledManager(t, store)
	if !m.IsAuthenticated() {
		t.Fatal("access token and user are enough to hydrate")
	}
}

func TestInitializeMalformedRecordClearsStore(t *testing.T) {
	cases := map[string]string{
		"not json":     "{broken",
		"unknown role": `{"id":"u-1","email":"a@example.com","role":"SUPERUSER"}`,
		"missing id":   `{"email":"a@example.com","role":"STUDENT"}`,
		"bad email":    `{"id":"u-1","email":"nope","role":"STUDENT"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			store := storage.NewMemory()
			seedSession(t, store, testCreds(), raw)

			m := newTestManager(t, store)
			if err := m.Initialize(context.Background()); err != nil {
				t.Fatalf("malformed record must not surface an error: %v", err)
			}
			if m.IsAuthenticated() || m.IsLoading() {
				t.Fatalf("expected settled logged out, got %+v", m.View())
			}
			if snap := store.Snapshot(); len(snap) != 0 {
				t.Fatalf("expected every key removed, got %v", snap)
			}
			if m.Metrics().Value(MetricHydrateCorrupt) != 1 {
				t.Fatal("expected corrupt metric")
			}
		})
	}
}

func TestInitializePartialLeftoversAreCleared(t *testing.T) {
	store := storage.NewMemory()
	if err := store.Apply(context.Background(), storage.Set("refresh_token", "r")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	m := newSettledManager(t, store)
	if m.IsAuthenticated() {
		t.Fatal("partial record must not authenticate")
	}
	if len(store.Snapshot()) != 0 {
		t.Fatalf("expected leftovers removed, got %v", store.Snapshot())
	}
}

func TestInitializeStoreFailureSettlesAndReports(t *testing.T) {
	store := newFlakyStore()
	store.failGet.Store(true)

	m := newTestManager(t, store)
	err := m.Initialize(context.Background())
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if m.IsLoading() || m.IsAuthenticated() {
		t.Fatalf("expected settled logged out, got %+v", m.View())
	}
}

func TestInitializeRunsOnce(t *testing.T) {
	store := storage.NewMemory()
	m := newSettledManager(t, store)

	seedSession(t, store, testCreds(), mustEncode(t, testUser()))
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("second initialize: %v", err)
	}
	if m.IsAuthenticated() {
		t.Fatal("second Initialize must not re-hydrate")
	}
}

func TestInitializeConcurrentCallersSettleOnce(t *testing.T) {
	m := newTestManager(t, storage.NewMemory())
	var settles int
	var mu sync.Mutex
	m.OnChange(func(View) {
		mu.Lock()
		settles++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Initialize(context.Background())
		}()
	}
	wg.Wait()

	if settles != 1 {
		t.Fatalf("expected exactly one settle notification, got %d", settles)
	}
}

func TestMutationsBeforeSettleAreRejected(t *testing.T) {
	store := newFlakyStore()
	m := newTestManager(t, store)
	ctx := context.Background()

	if err := m.Login(ctx, testCreds(), testUser()); !errors.Is(err, ErrNotSettled) {
		t.Fatalf("login: expected ErrNotSettled, got %v", err)
	}
	if err := m.Logout(ctx); !errors.Is(err, ErrNotSettled) {
		t.Fatalf("logout: expected ErrNotSettled, got %v", err)
	}
	if err := m.UpdateUser(ctx, UserPatch{}); !errors.Is(err, ErrNotSettled) {
		t.Fatalf("update: expected ErrNotSettled, got %v", err)
	}
	if store.applies.Load() != 0 {
		t.Fatal("rejected mutations must not touch storage")
	}
}

func TestLoginPersistsAllThreeKeys(t *testing.T) {
	store := storage.NewMemory()
	m := newSettledManager(t, store)

	if err := m.Login(context.Background(), testCreds(), testUser()); err != nil {
		t.Fatalf("login: %v", err)
	}

	snap := store.Snapshot()
	if snap["access_token"] != "access-1" || snap["refresh_token"] != "refresh-1" {
		t.Fatalf("unexpected credentials in store: %v", snap)
	}
	if snap["user"] != mustEncode(t, testUser()) {
		t.Fatalf("unexpected user record %q", snap["user"])
	}
	if !m.IsAuthenticated() {
		t.Fatal("expected authenticated after login")
	}
}

func TestLoginRejectsEmptyCredentials(t *testing.T) {
	m := newSettledManager(t, storage.NewMemory())
	for _, creds := range []Credentials{{}, {Access: "a"}, {Refresh: "r"}} {
		if err := m.Login(context.Background(), creds, testUser()); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("creds %+v: expected ErrInvalidCredentials, got %v", creds, err)
		}
	}
	if m.IsAuthenticated() {
		t.Fatal("rejected login must not authenticate")
	}
}

func TestLoginRejectsInvalidUser(t *testing.T) {
	m := newSettledManager(t, storage.NewMemory())
	bad := testUser()
	bad.Role = Role(9)
	if err := m.Login(context.Background(), testCreds(), bad); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser, got %v", err)
	}
	bad = testUser()
	bad.Email = ""
	if err := m.Login(context.Background(), testCreds(), bad); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser, got %v", err)
	}
}

func TestLoginPersistFailureLeavesStateUnchanged(t *testing.T) {
	store := newFlakyStore()
	m := newSettledManager(t, store)
	store.failApply.Store(true)

	err := m.Login(context.Background(), testCreds(), testUser())
	if !errors.Is(err, ErrPersistFailed) || !errors.Is(err, errInjected) {
		t.Fatalf("expected wrapped persist failure, got %v", err)
	}
	if m.IsAuthenticated() {
		t.Fatal("memory must not change when storage fails")
	}
	if m.Metrics().Value(MetricPersistFailure) != 1 {
		t.Fatal("expected persist failure metric")
	}
}

func TestLoginThenLogoutClearsStore(t *testing.T) {
	store := storage.NewMemory()
	m := newSettledManager(t, store)
	ctx := context.Background()

	if err := m.Login(ctx, testCreds(), testUser()); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := m.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if m.IsAuthenticated() {
		t.Fatal("expected logged out")
	}
	if snap := store.Snapshot(); len(snap) != 0 {
		t.Fatalf("expected empty store, got %v", snap)
	}
	if tok, _ := m.AccessToken(ctx); tok != "" {
		t.Fatalf("expected token cleared, got %q", tok)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	store := storage.NewMemory()
	m := newSettledManager(t, store)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := m.Logout(ctx); err != nil {
			t.Fatalf("logout %d: %v", i, err)
		}
		if m.IsAuthenticated() || len(store.Snapshot()) != 0 {
			t.Fatalf("logout %d left state behind", i)
		}
	}
}

func TestLogoutPersistFailureKeepsUser(t *testing.T) {
	store := newFlakyStore()
	m := newSettledManager(t, store)
	ctx := context.Background()
	if err := m.Login(ctx, testCreds(), testUser()); err != nil {
		t.Fatalf("login: %v", err)
	}

	store.failApply.Store(true)
	if err := m.Logout(ctx); !errors.Is(err, ErrPersistFailed) {
		t.Fatalf("expected ErrPersistFailed, got %v", err)
	}
	if !m.IsAuthenticated() {
		t.Fatal("failed logout must keep the user")
	}
}

func TestUpdateUserMergesPresentFieldsOnly(t *testing.T) {
	store := storage.NewMemory()
	m := newSettledManager(t, store)
	ctx := context.Background()
	if err := m.Login(ctx, testCreds(), testUser()); err != nil {
		t.Fatalf("login: %v", err)
	}

	first := "Augusta"
	bio := "Analyst"
	if err := m.UpdateUser(ctx, UserPatch{FirstName: &first, Bio: &bio}); err != nil {
		t.Fatalf("update: %v", err)
	}

	want := testUser()
	want.FirstName = first
	want.Bio = bio
	got, _ := m.User()
	if got != want {
		t.Fatalf("merge mismatch:\n got %+v\nwant %+v", got, want)
	}
	if store.Snapshot()["user"] != mustEncode(t, want) {
		t.Fatal("stored record does not match merged user")
	}
	if tok, _ := m.AccessToken(ctx); tok != "access-1" {
		t.Fatal("update must not touch credentials")
	}
}

func TestUpdateUserWithoutUserIsNoOp(t *testing.T) {
	store := newFlakyStore()
	m := newSettledManager(t, store)
	before := maps.Clone(store.Snapshot())
	applies := store.applies.Load()

	name := "Nobody"
	if err := m.UpdateUser(context.Background(), UserPatch{FirstName: &name}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if m.IsAuthenticated() {
		t.Fatal("update without user must not create one")
	}
	if store.applies.Load() != applies || !maps.Equal(before, store.Snapshot()) {
		t.Fatal("update without user must not touch storage")
	}
	if m.Metrics().Value(MetricUpdateSkipped) != 1 {
		t.Fatal("expected update-skipped metric")
	}
}

func TestUpdateUserRejectsInvalidMerge(t *testing.T) {
	m := newSettledManager(t, storage.NewMemory())
	ctx := context.Background()
	if err := m.Login(ctx, testCreds(), testUser()); err != nil {
		t.Fatalf("login: %v", err)
	}
	empty := ""
	if err := m.UpdateUser(ctx, UserPatch{Email: &empty}); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser, got %v", err)
	}
	if got, _ := m.User(); got != testUser() {
		t.Fatal("rejected merge must leave the user unchanged")
	}
}

func TestUpdateUserPersistFailureLeavesUser(t *testing.T) {
	store := newFlakyStore()
	m := newSettledManager(t, store)
	ctx := context.Background()
	if err := m.Login(ctx, testCreds(), testUser()); err != nil {
		t.Fatalf("login: %v", err)
	}

	store.failApply.Store(true)
	name := "Changed"
	if err := m.UpdateUser(ctx, UserPatch{FirstName: &name}); !errors.Is(err, ErrPersistFailed) {
		t.Fatalf("expected ErrPersistFailed, got %v", err)
	}
	if got, _ := m.User(); got.FirstName != "Ada" {
		t.Fatalf("memory changed despite failure: %+v", got)
	}
}

func TestViewReturnsPrivateCopy(t *testing.T) {
	m := newSettledManager(t, storage.NewMemory())
	if err := m.Login(context.Background(), testCreds(), testUser()); err != nil {
		t.Fatalf("login: %v", err)
	}
	v := m.View()
	v.User.Role = RoleAdmin
	if got, _ := m.User(); got.Role != RoleStudent {
		t.Fatal("mutating a view must not affect the manager")
	}
}

func TestOnChangeSeesEveryTransition(t *testing.T) {
	m := newTestManager(t, storage.NewMemory())
	var seen []bool
	cancel := m.OnChange(func(v View) {
		seen = append(seen, v.IsAuthenticated())
	})
	ctx := context.Background()

	if err := m.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := m.Login(ctx, testCreds(), testUser()); err != nil {
		t.Fatalf("login: %v", err)
	}
	name := "X"
	if err := m.UpdateUser(ctx, UserPatch{FirstName: &name}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := m.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}

	want := []bool{false, true, true, false}
	if len(seen) != len(want) {
		t.Fatalf("expected %d notifications, got %v", len(want), seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("notification %d: got %v want %v", i, seen[i], want[i])
		}
	}

	cancel()
	_ = m.Logout(ctx)
	if len(seen) != len(want) {
		t.Fatal("cancelled listener must not be called")
	}
}

func TestOnChangeListenerMayReadManager(t *testing.T) {
	m := newTestManager(t, storage.NewMemory())
	var authenticated bool
	m.OnChange(func(View) {
		authenticated = m.IsAuthenticated()
	})
	ctx := context.Background()
	if err := m.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := m.Login(ctx, testCreds(), testUser()); err != nil {
		t.Fatalf("login: %v", err)
	}
	if !authenticated {
		t.Fatal("listener should observe the committed state")
	}
}

func TestConcurrentReadsDuringMutations(t *testing.T) {
	m := newSettledManager(t, storage.NewMemory())
	ctx := context.Background()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				v := m.View()
				if v.IsAuthenticated() != (v.User != nil) {
					t.Errorf("inconsistent view %+v", v)
					return
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		if err := m.Login(ctx, testCreds(), testUser()); err != nil {
			t.Fatalf("login: %v", err)
		}
		if err := m.Logout(ctx); err != nil {
			t.Fatalf("logout: %v", err)
		}
	}
	close(stop)
	wg.Wait()
}

func TestBuildRequiresStore(t *testing.T) {
	if _, err := New().Build(); !errors.Is(err, ErrStoreRequired) {
		t.Fatalf("expected ErrStoreRequired, got %v", err)
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	b := New().WithStore(storage.NewMemory())
	m, err := b.Build()
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	defer m.Close()
	if _, err := b.Build(); !errors.Is(err, ErrBuilderUsed) {
		t.Fatalf("expected ErrBuilderUsed, got %v", err)
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.UserKey = cfg.Storage.AccessKey
	if _, err := New().WithConfig(cfg).WithStore(storage.NewMemory()).Build(); err == nil {
		t.Fatal("expected duplicate keys to be rejected")
	}
}

func TestCustomStorageKeys(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage = StorageConfig{AccessKey: "a", RefreshKey: "r", UserKey: "u"}
	store := storage.NewMemory()
	m, err := New().WithConfig(cfg).WithStore(store).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer m.Close()
	ctx := context.Background()
	if err := m.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := m.Login(ctx, testCreds(), testUser()); err != nil {
		t.Fatalf("login: %v", err)
	}
	snap := store.Snapshot()
	if _, ok := snap["u"]; !ok || snap["a"] != "access-1" || snap["r"] != "refresh-1" {
		t.Fatalf("custom keys not honored: %v", snap)
	}
}

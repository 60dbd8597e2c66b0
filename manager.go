package goSession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goSession/storage"
	"github.com/go-playground/validator/v10"
)

// Manager owns the authentication state of one client process. It is safe
// for concurrent use: reads take a shared lock, mutations are serialized and
// write the durable store before memory changes.
type Manager struct {
	config   Config
	store    storage.Store
	logger   *slog.Logger
	validate *validator.Validate
	metrics  *Metrics
	audit    *auditDispatcher

	started atomic.Bool

	mu     sync.RWMutex
	status Status
	user   *User
	creds  Credentials

	listenerMu sync.Mutex
	listeners  map[uint64]func(View)
	nextID     uint64
}

var _ Session = (*Manager)(nil)

/*
====================================
LIFECYCLE
====================================
*/

// Initialize hydrates the session from the durable store and settles it.
// Only the first call does anything; later calls return nil.
//
// A malformed or partial record is removed from the store and the session
// settles logged out without an error. A store read failure also settles
// logged out, and the wrapped [ErrStoreUnavailable] is returned.
func (m *Manager) Initialize(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return nil
	}

	user, creds, err := m.hydrate(ctx)

	m.mu.Lock()
	m.status = StatusSettled
	if err == nil && user != nil {
		m.user = user
		m.creds = creds
	}
	view := m.viewLocked()
	m.mu.Unlock()

	m.notify(view)

	if err != nil {
		m.logger.ErrorContext(ctx, "session hydrate failed", "error", err)
		m.emitAudit(ctx, AuditSessionHydrated, false, nil, err, nil)
		return err
	}
	return nil
}

func (m *Manager) hydrate(ctx context.Context) (*User, Credentials, error) {
	keys := m.config.Storage

	rawUser, hasUser, err := m.store.Get(ctx, keys.UserKey)
	if err != nil && !errors.Is(err, storage.ErrCorrupt) {
		return nil, Credentials{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if errors.Is(err, storage.ErrCorrupt) {
		m.discard(ctx, "unreadable", err)
		return nil, Credentials{}, nil
	}
	access, hasAccess, err := m.store.Get(ctx, keys.AccessKey)
	if err != nil {
		return nil, Credentials{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	refresh, hasRefresh, err := m.store.Get(ctx, keys.RefreshKey)
	if err != nil {
		return nil, Credentials{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	switch {
	case hasUser && hasAccess:
		u, err := decodeUser(m.validate, rawUser)
		if err != nil {
			m.discard(ctx, "malformed", err)
			return nil, Credentials{}, nil
		}
		m.metrics.Inc(MetricHydrated)
		m.logger.InfoContext(ctx, "session hydrated", "user_id", u.ID, "role", u.Role.String())
		m.emitAudit(ctx, AuditSessionHydrated, true, &u, nil, nil)
		return &u, Credentials{Access: access, Refresh: refresh}, nil
	case hasUser || hasAccess || hasRefresh:
		m.discard(ctx, "partial", errCorruptRecord)
		return nil, Credentials{}, nil
	default:
		m.metrics.Inc(MetricHydrateEmpty)
		m.logger.DebugContext(ctx, "no persisted session")
		return nil, Credentials{}, nil
	}
}

// discard removes every session key after a bad record was found. Failure
// to delete is logged and counted but never surfaced.
func (m *Manager) discard(ctx context.Context, reason string, cause error) {
	m.metrics.Inc(MetricHydrateCorrupt)
	m.logger.WarnContext(ctx, "discarding persisted session", "reason", reason, "error", cause)
	m.emitAudit(ctx, AuditSessionHydrateCorrupt, false, nil, errCorruptRecord, func() map[string]string {
		return map[string]string{"reason": reason}
	})

	if err := m.persist(ctx, m.deleteOps()...); err != nil {
		m.logger.WarnContext(ctx, "could not clear persisted session", "error", err)
	}
}

// Close stops the audit dispatcher after flushing queued events.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	m.audit.Close()
}

/*
====================================
MUTATIONS
====================================
*/

// Login records a fresh authentication. Both tokens must be non-empty and
// the user must validate. The three keys are written in one batch; if the
// write fails the session keeps its previous state.
func (m *Manager) Login(ctx context.Context, creds Credentials, user User) error {
	if creds.Access == "" || creds.Refresh == "" {
		m.metrics.Inc(MetricLoginFailure)
		m.emitAudit(ctx, AuditLogin, false, &user, ErrInvalidCredentials, nil)
		return ErrInvalidCredentials
	}
	if err := validateUser(m.validate, user); err != nil {
		m.metrics.Inc(MetricLoginFailure)
		m.emitAudit(ctx, AuditLogin, false, &user, ErrInvalidUser, nil)
		return fmt.Errorf("%w: %w", ErrInvalidUser, err)
	}
	raw, err := encodeUser(user)
	if err != nil {
		m.metrics.Inc(MetricLoginFailure)
		return fmt.Errorf("%w: %w", ErrInvalidUser, err)
	}

	keys := m.config.Storage

	m.mu.Lock()
	if m.status != StatusSettled {
		m.mu.Unlock()
		return ErrNotSettled
	}
	err = m.persist(ctx,
		storage.Set(keys.AccessKey, creds.Access),
		storage.Set(keys.RefreshKey, creds.Refresh),
		storage.Set(keys.UserKey, raw),
	)
	if err != nil {
		m.mu.Unlock()
		m.metrics.Inc(MetricLoginFailure)
		return err
	}
	u := user
	m.user = &u
	m.creds = creds
	view := m.viewLocked()
	m.mu.Unlock()

	m.metrics.Inc(MetricLoginSuccess)
	m.logger.InfoContext(ctx, "login committed", "user_id", user.ID, "role", user.Role.String())
	m.emitAudit(ctx, AuditLogin, true, &user, nil, nil)
	m.notify(view)
	return nil
}

// Logout clears the credentials and the user. It is idempotent.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	if m.status != StatusSettled {
		m.mu.Unlock()
		return ErrNotSettled
	}
	if err := m.persist(ctx, m.deleteOps()...); err != nil {
		m.mu.Unlock()
		return err
	}
	prev := m.user
	m.user = nil
	m.creds = Credentials{}
	view := m.viewLocked()
	m.mu.Unlock()

	m.metrics.Inc(MetricLogout)
	m.logger.InfoContext(ctx, "logout committed", "had_user", prev != nil)
	m.emitAudit(ctx, AuditLogout, true, prev, nil, nil)
	m.notify(view)
	return nil
}

// UpdateUser merges patch into the current user and persists the result.
// Without a user it does nothing and touches no storage. Credentials are
// never changed.
func (m *Manager) UpdateUser(ctx context.Context, patch UserPatch) error {
	m.mu.Lock()
	if m.status != StatusSettled {
		m.mu.Unlock()
		return ErrNotSettled
	}
	if m.user == nil {
		m.mu.Unlock()
		m.metrics.Inc(MetricUpdateSkipped)
		m.logger.DebugContext(ctx, "update skipped, no user")
		return nil
	}

	merged := patch.Apply(*m.user)
	if err := validateUser(m.validate, merged); err != nil {
		m.mu.Unlock()
		m.emitAudit(ctx, AuditUpdateUser, false, &merged, ErrInvalidUser, nil)
		return fmt.Errorf("%w: %w", ErrInvalidUser, err)
	}
	raw, err := encodeUser(merged)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrInvalidUser, err)
	}
	if err := m.persist(ctx, storage.Set(m.config.Storage.UserKey, raw)); err != nil {
		m.mu.Unlock()
		return err
	}
	m.user = &merged
	view := m.viewLocked()
	m.mu.Unlock()

	m.metrics.Inc(MetricUpdateUser)
	m.logger.DebugContext(ctx, "user updated", "user_id", merged.ID)
	m.emitAudit(ctx, AuditUpdateUser, true, &merged, nil, nil)
	m.notify(view)
	return nil
}

func (m *Manager) deleteOps() []storage.Op {
	keys := m.config.Storage.keys()
	ops := make([]storage.Op, len(keys))
	for i, k := range keys {
		ops[i] = storage.Delete(k)
	}
	return ops
}

func (m *Manager) persist(ctx context.Context, ops ...storage.Op) error {
	start := time.Now()
	err := m.store.Apply(ctx, ops...)
	m.metrics.Observe(MetricPersistLatency, time.Since(start))
	if err == nil {
		return nil
	}

	m.metrics.Inc(MetricPersistFailure)
	m.logger.ErrorContext(ctx, "session persist failed", "ops", len(ops), "error", err)
	m.emitAudit(ctx, AuditPersistFailure, false, nil, ErrPersistFailed, nil)
	return fmt.Errorf("%w: %w", ErrPersistFailed, err)
}

/*
====================================
READS
====================================
*/

// View returns a snapshot. The user pointer refers to a private copy.
func (m *Manager) View() View {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.viewLocked()
}

func (m *Manager) viewLocked() View {
	v := View{Status: m.status}
	if m.user != nil {
		u := *m.user
		v.User = &u
	}
	return v
}

// User returns a copy of the current user.
func (m *Manager) User() (User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return User{}, false
	}
	return *m.user, true
}

func (m *Manager) IsAuthenticated() bool {
	return m.View().IsAuthenticated()
}

func (m *Manager) IsLoading() bool {
	return m.View().IsLoading()
}

// AccessToken returns the stored access credential, or "" when logged out.
// The value is opaque; it is never parsed here.
func (m *Manager) AccessToken(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds.Access, nil
}

// Metrics exposes the live counters for exporters.
func (m *Manager) Metrics() *Metrics {
	return m.metrics
}

func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	return m.metrics.Snapshot()
}

// AuditDropped reports how many audit events were dropped on a full buffer.
func (m *Manager) AuditDropped() uint64 {
	return m.audit.Dropped()
}

/*
====================================
CHANGE NOTIFICATION
====================================
*/

// OnChange registers fn to run after every state transition: settle, login,
// logout and update. fn runs on the mutating goroutine after the state lock
// is released, so it may read the Manager but must not block for long.
func (m *Manager) OnChange(fn func(View)) (cancel func()) {
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()

	if m.listeners == nil {
		m.listeners = make(map[uint64]func(View))
	}
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn

	return func() {
		m.listenerMu.Lock()
		delete(m.listeners, id)
		m.listenerMu.Unlock()
	}
}

func (m *Manager) notify(v View) {
	m.listenerMu.Lock()
	fns := make([]func(View), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.listenerMu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

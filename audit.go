package goSession

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Audit event types emitted by the Manager.
const (
	AuditSessionHydrated       = "session_hydrated"
	AuditSessionHydrateCorrupt = "session_hydrate_corrupt"
	AuditLogin                 = "login"
	AuditLogout                = "logout"
	AuditUpdateUser            = "update_user"
	AuditPersistFailure        = "persist_failure"
)

// AuditEvent describes one session transition. Tokens never appear in it.
type AuditEvent struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	Role      string            `json:"role,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives events from the dispatcher worker, one at a time.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// AuditSinkFunc adapts a function to [AuditSink].
type AuditSinkFunc func(ctx context.Context, event AuditEvent)

func (f AuditSinkFunc) Emit(ctx context.Context, event AuditEvent) { f(ctx, event) }

// NoOpSink discards everything.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink hands events to a consumer reading [ChannelSink.Events].
type ChannelSink struct {
	out chan AuditEvent
}

// NewChannelSink buffers up to size events; Emit blocks beyond that.
func NewChannelSink(size int) *ChannelSink {
	return &ChannelSink{out: make(chan AuditEvent, max(size, 1))}
}

func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case <-ctx.Done():
	case s.out <- event:
	}
}

func (s *ChannelSink) Events() <-chan AuditEvent { return s.out }

// JSONWriterSink encodes each event as a JSON line on w.
type JSONWriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	if w == nil {
		w = io.Discard
	}
	return &JSONWriterSink{enc: json.NewEncoder(w)}
}

func (s *JSONWriterSink) Emit(_ context.Context, event AuditEvent) {
	s.mu.Lock()
	_ = s.enc.Encode(event)
	s.mu.Unlock()
}

package goSession

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher moves events off the mutation path onto one worker.
//
// Emit holds mu for reading while it hands an event over; Close takes it for
// writing before closing queue, so no event is ever sent to a closed queue
// and every event is either delivered or counted in dropped.
type auditDispatcher struct {
	sink       AuditSink
	dropIfFull bool

	mu      sync.RWMutex
	queue   chan AuditEvent
	stopped bool

	dropped atomic.Uint64
	worker  sync.WaitGroup
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	d := &auditDispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan AuditEvent, max(cfg.BufferSize, 1)),
	}
	d.worker.Add(1)
	go d.forward()
	return d
}

// forward delivers until the queue is closed and empty.
func (d *auditDispatcher) forward() {
	defer d.worker.Done()
	for event := range d.queue {
		d.sink.Emit(context.Background(), event)
	}
}

// Emit queues event. With dropIfFull a full queue drops the event; otherwise
// Emit waits for room or for ctx. Events emitted after Close are dropped.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.dropped.Add(1)
		return
	}
	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	}
}

// Close waits for in-flight Emit calls, then flushes the queue and stops the
// worker. Safe to call more than once.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.worker.Wait()
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

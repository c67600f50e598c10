package formlogin

import (
	"context"
	"math/bits"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// auditDispatcher moves audit events off the request path onto one worker goroutine,
// so a slow sink never delays a login or logout response.
type auditDispatcher struct {
	sink       AuditSink
	queue      chan AuditEvent
	dropIfFull bool
	logger     zerolog.Logger

	// senders is held shared by every Emit for the duration of its send; Close takes it
	// exclusively so no send can land in the queue after the final drain.
	senders  sync.RWMutex
	stop     chan struct{}
	flush    chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
	closing  atomic.Bool
	dropped  atomic.Uint64
}

// newAuditDispatcher returns nil when auditing is disabled; every method accepts a nil
// receiver.
func newAuditDispatcher(cfg AuditConfig, sink AuditSink, logger zerolog.Logger) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		sink:       sink,
		queue:      make(chan AuditEvent, size),
		dropIfFull: cfg.DropIfFull,
		logger:     logger,
		stop:       make(chan struct{}),
		flush:      make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *auditDispatcher) loop() {
	defer close(d.stopped)

	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		case <-d.flush:
			d.drain()
			return
		}
	}
}

func (d *auditDispatcher) drain() {
	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		default:
			return
		}
	}
}

func (d *auditDispatcher) deliver(event AuditEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().
				Interface("panic", r).
				Str("event_type", event.EventType).
				Msg("audit sink panicked")
		}
	}()
	d.sink.Emit(context.Background(), event)
}

// Emit queues event and reports whether it was accepted. With DropIfFull a full queue
// drops the event and counts it; otherwise Emit waits for room until ctx ends or the
// dispatcher closes. Every accepted event reaches the sink, even when Close runs
// concurrently.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) bool {
	if d == nil || d.closing.Load() {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.senders.RLock()
	defer d.senders.RUnlock()
	if d.closing.Load() {
		return false
	}

	if !d.dropIfFull {
		select {
		case d.queue <- event:
			return true
		case <-ctx.Done():
		case <-d.stop:
		}
		return false
	}

	select {
	case d.queue <- event:
		return true
	default:
		// Warn on the 1st, 2nd, 4th, 8th... drop so a stuck sink is visible without flooding.
		if n := d.dropped.Add(1); bits.OnesCount64(n) == 1 {
			d.logger.Warn().
				Uint64("dropped", n).
				Str("event_type", event.EventType).
				Msg("audit queue full, dropping event")
		}
		return false
	}
}

// Close delivers every accepted event and stops the worker. It is idempotent.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		d.closing.Store(true)
		// Wake blocked senders, then wait for in-flight sends before the final drain.
		close(d.stop)
		d.senders.Lock()
		close(d.flush)
		<-d.stopped
		d.senders.Unlock()
	})
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull discards events instead of blocking the login path when the
	// buffer is full.
	DropIfFull bool
}

// Dispatcher hands events to a sink on its own goroutine so a slow sink
// never sits on the login path.
type Dispatcher struct {
	sink       Sink
	logger     *slog.Logger
	dropIfFull bool

	// mu orders sends against close(queue).
	mu     sync.RWMutex
	closed bool
	queue  chan Event

	stopped chan struct{}
	dropped atomic.Uint64
}

// NewDispatcher starts the delivery goroutine. It returns nil when auditing
// is disabled; a nil Dispatcher accepts and discards events.
func NewDispatcher(cfg Config, sink Sink, logger *slog.Logger) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		sink:       sink,
		logger:     logger,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan Event, max(cfg.BufferSize, 1)),
		stopped:    make(chan struct{}),
	}
	go d.deliver()
	return d
}

func (d *Dispatcher) deliver() {
	defer close(d.stopped)
	for ev := range d.queue {
		d.emitOne(ev)
	}
}

func (d *Dispatcher) emitOne(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("audit sink panicked", "event", ev.EventType, "panic", r)
		}
	}()
	d.sink.Emit(context.Background(), ev)
}

// Emit queues ev. Without DropIfFull it waits for room or for ctx.
func (d *Dispatcher) Emit(ctx context.Context, ev Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if !d.dropIfFull {
		select {
		case d.queue <- ev:
		case <-ctx.Done():
		}
		return
	}

	select {
	case d.queue <- ev:
	default:
		// Warn at powers of two so a burst does not flood the log.
		if n := d.dropped.Add(1); n&(n-1) == 0 {
			d.logger.WarnContext(ctx, "audit buffer full, dropping events", "dropped", n)
		}
	}
}

// Close stops accepting events, delivers what is buffered, and waits for
// the delivery goroutine. It is safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}

	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	<-d.stopped
}

// Dropped reports events discarded under DropIfFull.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

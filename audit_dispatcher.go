package twostep

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher decouples audit emission from the request path. Events
// are queued on a buffered channel and drained by a single worker
// goroutine so sink latency never extends login or verify calls.
type auditDispatcher struct {
	sink    AuditSink
	events  chan AuditEvent
	drop    bool
	dropped atomic.Uint64

	closeOnce sync.Once
	done      chan struct{}
}

func newAuditDispatcher(sink AuditSink, buffer int, dropIfFull bool) *auditDispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	d := &auditDispatcher{
		sink:   sink,
		events: make(chan AuditEvent, buffer),
		drop:   dropIfFull,
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *auditDispatcher) run() {
	defer close(d.done)
	for event := range d.events {
		d.sink.Emit(context.Background(), event)
	}
}

// dispatch enqueues an event. With drop enabled a full buffer loses the
// event and bumps the dropped counter instead of blocking the caller.
func (d *auditDispatcher) dispatch(event AuditEvent) {
	if d.drop {
		select {
		case d.events <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}
	d.events <- event
}

// droppedCount reports how many events were discarded due to a full buffer.
func (d *auditDispatcher) droppedCount() uint64 {
	return d.dropped.Load()
}

// close drains remaining events and stops the worker. Safe to call more
// than once.
func (d *auditDispatcher) close() {
	d.closeOnce.Do(func() {
		close(d.events)
		<-d.done
	})
}

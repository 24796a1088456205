package debounce

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/deepankarm/streamjson/pkg/internal/errors"
)

var (
	// ErrNonStringPayload is returned by Send in strict mode when a
	// coalescible event carries something other than a string.
	ErrNonStringPayload = errors.New(errors.ErrorTypeNonStringPayload, "coalescible payload is not a string")

	// ErrSink matches any error returned by the sink.
	ErrSink = errors.New(errors.ErrorTypeSink, "sink delivery failed")
)

// Debouncer coalesces events on their way to a Sink.
//
// All methods are safe for concurrent use; timers fire on their own
// goroutines, so the debouncer serializes everything, including the sink
// call, under one mutex. The sink must therefore not call back into the
// debouncer that feeds it.
type Debouncer struct {
	sink       Sink
	classifier *Classifier
	cfg        Config

	mu sync.Mutex
	// pending holds accumulated content per type; order lists the types in
	// the order they first received content since the last flush.
	pending map[string]*strings.Builder
	order   []string
	// since is when pending last became non-empty. MaxWait counts from here.
	since     time.Time
	lastFlush time.Time
	timer     Timer
	// gen invalidates timer callbacks that were already running when their
	// timer was stopped or replaced.
	gen uint64
}

// New creates a debouncer delivering to sink. A nil classifier treats every
// event as pass-through.
func New(sink Sink, classifier *Classifier, cfg Config) *Debouncer {
	cfg.defaults()
	return &Debouncer{
		sink:       sink,
		classifier: classifier,
		cfg:        cfg,
		pending:    make(map[string]*strings.Builder),
	}
}

// Send routes ev according to its kind.
//
// Immediate events flush pending content first and are then delivered;
// if the flush fails the event is not delivered. Coalescible events are
// buffered. Other events are delivered directly without flushing.
func (d *Debouncer) Send(ev Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.classifier.Kind(ev.Type) {
	case KindImmediate:
		if err := d.flushLocked(); err != nil {
			return err
		}
		return d.deliver(ev)
	case KindCoalescible:
		return d.coalesce(ev)
	default:
		return d.deliver(ev)
	}
}

func (d *Debouncer) coalesce(ev Event) error {
	text, ok := ev.Data.(string)
	if !ok {
		if d.cfg.Strict {
			return ErrNonStringPayload.At(ev.Type)
		}
		d.cfg.Logger.Debug("debounce: ignoring non-string payload",
			"type", ev.Type,
			"payload_type", fmt.Sprintf("%T", ev.Data),
		)
	}

	now := d.cfg.Clock.Now()
	if text != "" {
		b, ok := d.pending[ev.Type]
		if !ok {
			b = &strings.Builder{}
			d.pending[ev.Type] = b
			d.order = append(d.order, ev.Type)
		}
		if d.since.IsZero() {
			d.since = now
		}
		b.WriteString(text)
	}
	if len(d.order) == 0 {
		return nil
	}

	deadline := d.since.Add(d.cfg.MaxWait)
	if !now.Before(deadline) {
		return d.flushLocked()
	}
	d.schedule(min(d.cfg.Interval, deadline.Sub(now)))
	return nil
}

// ForceFlush delivers all pending content now. Call it when the producer
// finishes so nothing is left behind.
func (d *Debouncer) ForceFlush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flushLocked()
}

// Dispose flushes pending content and stops the timer.
func (d *Debouncer) Dispose() error {
	return d.ForceFlush()
}

// Clear drops pending content without delivering it.
func (d *Debouncer) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopTimer()
	clear(d.pending)
	d.order = d.order[:0]
	d.since = time.Time{}
}

// Pending returns the number of event types holding undelivered content.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.order)
}

// LastFlush returns when pending content was last flushed, or the zero time.
func (d *Debouncer) LastFlush() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastFlush
}

// flushLocked delivers pending content in first-buffered order. If the sink
// fails, types delivered before the failure are removed and the failing
// type and those after it stay pending.
func (d *Debouncer) flushLocked() error {
	d.stopTimer()
	d.lastFlush = d.cfg.Clock.Now()

	for len(d.order) > 0 {
		tag := d.order[0]
		if err := d.deliver(Event{Type: tag, Data: d.pending[tag].String()}); err != nil {
			return err
		}
		delete(d.pending, tag)
		d.order = d.order[1:]
	}
	d.order = nil
	d.since = time.Time{}
	return nil
}

func (d *Debouncer) deliver(ev Event) error {
	if err := d.sink(ev); err != nil {
		return errors.Wrap(errors.ErrorTypeSink, err, "deliver", ev.Type)
	}
	return nil
}

func (d *Debouncer) schedule(delay time.Duration) {
	d.stopTimer()
	gen := d.gen
	d.timer = d.cfg.Clock.AfterFunc(delay, func() { d.fire(gen) })
}

func (d *Debouncer) stopTimer() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	err := d.flushLocked()
	d.mu.Unlock()

	if err != nil {
		d.cfg.OnError(err)
	}
}

// Package recorder moves session records off the tick goroutine into a
// backing store.
package recorder

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/handwarp/internal/monitoring"
	"github.com/banshee-data/handwarp/internal/session"
	"github.com/banshee-data/handwarp/internal/timeutil"
)

// Writer persists records for a run. *db.DB implements it.
type Writer interface {
	InsertTicks(runID string, recs []session.TickRecord) error
	InsertPin(runID string, rec session.PinRecord) error
	InsertCondition(runID string, rec session.ConditionRecord) error
}

// Options tunes an Async recorder. Zero values take the defaults.
type Options struct {
	QueueSize     int           // default 4096
	BatchSize     int           // ticks per InsertTicks, default 256
	FlushInterval time.Duration // default 1s
	Clock         timeutil.Clock
}

const (
	defaultQueueSize     = 4096
	defaultBatchSize     = 256
	defaultFlushInterval = time.Second
)

type entry struct {
	tick *session.TickRecord
	pin  *session.PinRecord
	cond *session.ConditionRecord
}

// Async is a session.Sink that never blocks the caller. Records are queued
// on a bounded channel and written by a single worker; when the queue is
// full the record is dropped and counted.
type Async struct {
	w     Writer
	runID string
	opts  Options

	mu     sync.RWMutex
	closed bool
	queue  chan entry
	done   chan struct{}

	dropped     atomic.Uint64
	written     atomic.Uint64
	writeErrors atomic.Uint64
}

// New starts the worker for runID.
func New(w Writer, runID string, opts Options) *Async {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = defaultFlushInterval
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	a := &Async{
		w:     w,
		runID: runID,
		opts:  opts,
		queue: make(chan entry, opts.QueueSize),
		done:  make(chan struct{}),
	}
	ticker := opts.Clock.NewTicker(opts.FlushInterval)
	go a.run(ticker)
	return a
}

func (a *Async) RecordTick(rec session.TickRecord) {
	a.enqueue(entry{tick: &rec})
}

func (a *Async) RecordPin(rec session.PinRecord) {
	rec.Pin = append([]int(nil), rec.Pin...)
	rec.Input = append([]int(nil), rec.Input...)
	a.enqueue(entry{pin: &rec})
}

func (a *Async) RecordCondition(rec session.ConditionRecord) {
	a.enqueue(entry{cond: &rec})
}

func (a *Async) enqueue(e entry) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.dropped.Add(1)
		return
	}
	select {
	case a.queue <- e:
	default:
		a.dropped.Add(1)
	}
}

// Close stops accepting records, drains the queue and waits for the worker.
// It is safe to call more than once.
func (a *Async) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	<-a.done
}

// Dropped is the number of records lost to a full queue or a closed
// recorder.
func (a *Async) Dropped() uint64 { return a.dropped.Load() }

// Written is the number of records stored.
func (a *Async) Written() uint64 { return a.written.Load() }

// WriteErrors is the number of failed store calls.
func (a *Async) WriteErrors() uint64 { return a.writeErrors.Load() }

func (a *Async) run(ticker timeutil.Ticker) {
	defer close(a.done)
	defer ticker.Stop()

	batch := make([]session.TickRecord, 0, a.opts.BatchSize)
	var reportedDrops uint64

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := a.w.InsertTicks(a.runID, batch); err != nil {
			a.writeErrors.Add(1)
			monitoring.Warnf("recorder: dropped %d tick records: %v", len(batch), err)
		} else {
			a.written.Add(uint64(len(batch)))
		}
		batch = batch[:0]
	}

	for {
		select {
		case e, ok := <-a.queue:
			if !ok {
				flush()
				return
			}
			switch {
			case e.tick != nil:
				batch = append(batch, *e.tick)
				if len(batch) >= a.opts.BatchSize {
					flush()
				}
			case e.pin != nil:
				// Ticks queued before the attempt closed are stored first.
				flush()
				a.store(a.w.InsertPin(a.runID, *e.pin), "pin attempt")
			case e.cond != nil:
				flush()
				a.store(a.w.InsertCondition(a.runID, *e.cond), "condition change")
			}
		case <-ticker.C():
			flush()
			if d := a.dropped.Load(); d > reportedDrops {
				monitoring.Warnf("recorder: queue full, %d records dropped so far", d)
				reportedDrops = d
			}
		}
	}
}

func (a *Async) store(err error, what string) {
	if err != nil {
		a.writeErrors.Add(1)
		monitoring.Warnf("recorder: dropped %s: %v", what, err)
		return
	}
	a.written.Add(1)
}

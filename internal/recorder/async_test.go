package recorder

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/banshee-data/handwarp/internal/monitoring"
	"github.com/banshee-data/handwarp/internal/session"
	"github.com/banshee-data/handwarp/internal/timeutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu      sync.Mutex
	calls   []string
	ticks   []session.TickRecord
	pins    []session.PinRecord
	conds   []session.ConditionRecord
	failPin bool

	// When gate is set InsertTicks signals entered and waits on gate.
	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeWriter) InsertTicks(runID string, recs []session.TickRecord) error {
	if f.gate != nil {
		f.entered <- struct{}{}
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "ticks")
	f.ticks = append(f.ticks, recs...)
	return nil
}

func (f *fakeWriter) InsertPin(runID string, rec session.PinRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPin {
		return errors.New("disk full")
	}
	f.calls = append(f.calls, "pin")
	f.pins = append(f.pins, rec)
	return nil
}

func (f *fakeWriter) InsertCondition(runID string, rec session.ConditionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "condition")
	f.conds = append(f.conds, rec)
	return nil
}

func (f *fakeWriter) tickCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ticks)
}

func TestAsyncBatchesAndOrders(t *testing.T) {
	w := &fakeWriter{}
	a := New(w, "run", Options{BatchSize: 2, Clock: timeutil.NewManualClock(time.Unix(0, 0))})

	a.RecordCondition(session.ConditionRecord{ConditionIndex: 15})
	for i := 1; i <= 5; i++ {
		a.RecordTick(session.TickRecord{Frame: uint64(i)})
	}
	a.RecordPin(session.PinRecord{AttemptID: uuid.New(), Pin: []int{1, 2}, Input: []int{1, 2}, Success: true})
	a.RecordTick(session.TickRecord{Frame: 6})
	a.Close()

	assert.Equal(t, []string{"condition", "ticks", "ticks", "ticks", "pin", "ticks"}, w.calls)
	require.Len(t, w.ticks, 6)
	for i, tick := range w.ticks {
		assert.Equal(t, uint64(i+1), tick.Frame)
	}
	assert.Equal(t, uint64(8), a.Written())
	assert.Zero(t, a.Dropped())
}

func TestAsyncCopiesPinSlices(t *testing.T) {
	w := &fakeWriter{}
	a := New(w, "run", Options{})
	p := []int{3, 1}
	a.RecordPin(session.PinRecord{Pin: p, Input: p})
	p[0] = 9
	a.Close()

	require.Len(t, w.pins, 1)
	assert.Equal(t, []int{3, 1}, w.pins[0].Pin)
}

func TestAsyncDropsWhenFull(t *testing.T) {
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(nil) })

	w := &fakeWriter{gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	a := New(w, "run", Options{QueueSize: 2, BatchSize: 1})

	a.RecordTick(session.TickRecord{Frame: 1})
	<-w.entered // worker is blocked writing frame 1

	for i := 2; i <= 6; i++ {
		a.RecordTick(session.TickRecord{Frame: uint64(i)})
	}
	assert.Equal(t, uint64(3), a.Dropped())

	go func() {
		for range w.entered {
		}
	}()
	close(w.gate)
	a.Close()
	close(w.entered)

	assert.Equal(t, 3, w.tickCount())
	assert.Equal(t, uint64(3), a.Written())
}

func TestAsyncFlushesOnInterval(t *testing.T) {
	clock := timeutil.NewManualClock(time.Unix(0, 0))
	w := &fakeWriter{}
	a := New(w, "run", Options{BatchSize: 100, FlushInterval: time.Second, Clock: clock})
	defer a.Close()

	a.RecordTick(session.TickRecord{Frame: 1})
	require.Eventually(t, func() bool {
		clock.Advance(time.Second)
		return w.tickCount() == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestAsyncCountsWriteErrors(t *testing.T) {
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(nil) })

	w := &fakeWriter{failPin: true}
	a := New(w, "run", Options{})
	a.RecordPin(session.PinRecord{})
	a.RecordCondition(session.ConditionRecord{})
	a.Close()

	assert.Equal(t, uint64(1), a.WriteErrors())
	assert.Equal(t, uint64(1), a.Written())
}

func TestAsyncCloseTwiceAndRecordAfterClose(t *testing.T) {
	a := New(&fakeWriter{}, "run", Options{})
	a.Close()
	a.Close()
	a.RecordTick(session.TickRecord{})
	assert.Equal(t, uint64(1), a.Dropped())
}

var _ session.Sink = (*Async)(nil)

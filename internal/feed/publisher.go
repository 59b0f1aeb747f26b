// Package feed streams session records to live viewers over gRPC.
//
// The service has no generated stubs. Requests and events are
// google.protobuf.Struct messages carried by the default proto codec:
//
//	service TickFeed {
//	  rpc Watch(google.protobuf.Struct) returns (stream google.protobuf.Struct);
//	}
//
// A Watch request may set "every" to receive only every Nth tick. PIN and
// condition events are always sent. Every event has a "kind" of "tick",
// "pin" or "condition".
package feed

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/handwarp/internal/geom"
	"github.com/banshee-data/handwarp/internal/monitoring"
	"github.com/banshee-data/handwarp/internal/session"
	"google.golang.org/protobuf/types/known/structpb"
)

// Event kinds.
const (
	KindTick      = "tick"
	KindPin       = "pin"
	KindCondition = "condition"
)

// DefaultBuffer is the per-watcher event queue length.
const DefaultBuffer = 256

// Publisher fans session records out to watchers. It is a session.Sink and
// never blocks the tick: a watcher whose queue is full loses the event.
type Publisher struct {
	buffer int

	mu       sync.RWMutex
	watchers map[uint64]*watcher
	nextID   uint64

	sent    atomic.Uint64
	dropped atomic.Uint64
}

type watcher struct {
	every uint64
	ch    chan *structpb.Struct
}

// NewPublisher returns a publisher queueing up to buffer events per
// watcher. A non-positive buffer uses DefaultBuffer.
func NewPublisher(buffer int) *Publisher {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Publisher{buffer: buffer, watchers: make(map[uint64]*watcher)}
}

func (p *Publisher) subscribe(every uint64) (uint64, <-chan *structpb.Struct) {
	if every == 0 {
		every = 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	p.watchers[p.nextID] = &watcher{every: every, ch: make(chan *structpb.Struct, p.buffer)}
	return p.nextID, p.watchers[p.nextID].ch
}

func (p *Publisher) unsubscribe(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.watchers, id)
}

// Watchers is the number of connected watchers.
func (p *Publisher) Watchers() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.watchers)
}

func (p *Publisher) Sent() uint64    { return p.sent.Load() }
func (p *Publisher) Dropped() uint64 { return p.dropped.Load() }

func (p *Publisher) RecordTick(rec session.TickRecord) {
	p.publish(true, rec.Frame, func() (*structpb.Struct, error) { return tickEvent(rec) })
}

func (p *Publisher) RecordPin(rec session.PinRecord) {
	p.publish(false, 0, func() (*structpb.Struct, error) { return pinEvent(rec) })
}

func (p *Publisher) RecordCondition(rec session.ConditionRecord) {
	p.publish(false, 0, func() (*structpb.Struct, error) { return conditionEvent(rec) })
}

// publish encodes the event once, on the first watcher that wants it.
func (p *Publisher) publish(tick bool, frame uint64, build func() (*structpb.Struct, error)) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var ev *structpb.Struct
	for id, w := range p.watchers {
		if tick && frame%w.every != 0 {
			continue
		}
		if ev == nil {
			var err error
			if ev, err = build(); err != nil {
				monitoring.Warnf("feed: encoding event: %v", err)
				return
			}
		}
		select {
		case w.ch <- ev:
			p.sent.Add(1)
		default:
			if n := p.dropped.Add(1); n%100 == 1 {
				monitoring.Warnf("feed: watcher %d is behind, %d events dropped in total", id, n)
			}
		}
	}
}

func vec(v geom.Vec) []any { return []any{v.X, v.Y, v.Z} }

func ints(v []int) []any {
	out := make([]any, len(v))
	for i, d := range v {
		out[i] = d
	}
	return out
}

func tickEvent(rec session.TickRecord) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"kind":            KindTick,
		"frame":           rec.Frame,
		"time":            rec.Time.Format(time.RFC3339Nano),
		"real":            vec(rec.RealHand.Position),
		"virtual":         vec(rec.VirtualHand.Position),
		"depth":           rec.Depth,
		"target_id":       rec.TargetID,
		"technique":       rec.Technique,
		"offset_mm":       rec.OffsetMagnitude * 1000,
		"target_digit":    rec.TargetDigit,
		"last_input":      rec.LastInput,
		"condition_index": rec.ConditionIndex,
		"redirecting":     rec.Redirecting,
	})
}

func pinEvent(rec session.PinRecord) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"kind":            KindPin,
		"attempt_id":      rec.AttemptID.String(),
		"start":           rec.Start.Format(time.RFC3339Nano),
		"end":             rec.End.Format(time.RFC3339Nano),
		"duration_ms":     float64(rec.Duration()) / float64(time.Millisecond),
		"pin":             ints(rec.Pin),
		"input":           ints(rec.Input),
		"success":         rec.Success,
		"condition_index": rec.ConditionIndex,
		"participant":     rec.Participant,
	})
}

func conditionEvent(rec session.ConditionRecord) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"kind":            KindCondition,
		"time":            rec.Time.Format(time.RFC3339Nano),
		"participant":     rec.Participant,
		"step":            rec.Step,
		"condition_index": rec.ConditionIndex,
		"keypad_size":     rec.KeypadSize,
		"curve":           rec.Curve,
		"max_angle_deg":   rec.MaxAngleDeg,
		"keypad_scale":    rec.KeypadScale,
		"keypad_span":     rec.KeypadSpan,
	})
}

package session

import (
	"time"

	"github.com/banshee-data/handwarp/internal/geom"
	"github.com/google/uuid"
)

// TickRecord is the per-tick log entry.
type TickRecord struct {
	Frame           uint64
	Time            time.Time
	RealHand        geom.Pose
	VirtualHand     geom.Pose
	Head            geom.Pose
	Body            geom.Pose
	Depth           float64
	TargetID        int // -1 when no target is selected
	Technique       string
	Offset          geom.Vec
	OffsetMagnitude float64
	TargetDigit     int // next PIN digit, -1 when the input is complete
	LastInput       int // -1 when nothing has been entered
	ConditionIndex  int // -1 outside study mode
	Participant     int
	Redirecting     bool
}

// PinRecord describes one completed PIN attempt.
type PinRecord struct {
	AttemptID      uuid.UUID
	Start          time.Time
	End            time.Time
	Pin            []int
	Input          []int
	Success        bool
	ConditionIndex int
	Participant    int
}

// Duration is the time from PIN generation to completion.
func (r PinRecord) Duration() time.Duration { return r.End.Sub(r.Start) }

// ConditionRecord is emitted whenever a study condition is applied.
type ConditionRecord struct {
	Time           time.Time
	Participant    int
	Step           int
	ConditionIndex int
	KeypadSize     string
	Curve          string
	MaxAngleDeg    float64
	KeypadScale    float64
	KeypadSpan     float64 // largest button distance after scaling, metres
}

// Sink receives records. Implementations must not block the tick and must
// not retain slices beyond the call unless they own them; records handed to
// a Sink are already copies.
type Sink interface {
	RecordTick(TickRecord)
	RecordPin(PinRecord)
	RecordCondition(ConditionRecord)
}

// NopSink discards all records.
type NopSink struct{}

func (NopSink) RecordTick(TickRecord)           {}
func (NopSink) RecordPin(PinRecord)             {}
func (NopSink) RecordCondition(ConditionRecord) {}

// Tee returns a Sink handing every record to each of sinks in order. The
// sinks share the record's slices and must not modify them.
func Tee(sinks ...Sink) Sink { return teeSink(sinks) }

type teeSink []Sink

func (t teeSink) RecordTick(rec TickRecord) {
	for _, s := range t {
		s.RecordTick(rec)
	}
}

func (t teeSink) RecordPin(rec PinRecord) {
	for _, s := range t {
		s.RecordPin(rec)
	}
}

func (t teeSink) RecordCondition(rec ConditionRecord) {
	for _, s := range t {
		s.RecordCondition(rec)
	}
}

// Stats counts recoverable events and progress over the session.
type Stats struct {
	Frames          uint64
	TargetsSelected int
	PinsCompleted   int
	PinsCorrect     int
	DegenerateTicks int
	InputOverflows  int
	Breaks          int
	KeypadShifts    int
}

package study

import (
	"errors"
	"fmt"

	"github.com/banshee-data/handwarp/internal/redirect"
)

// Participants and Steps are the dimensions of the counterbalancing table.
const (
	Participants = 30
	Steps        = 16
)

// TrainingCondition is the index of the trailing training condition. Every
// participant starts with it.
const TrainingCondition = 15

var (
	ErrParticipantRange = errors.New("participant out of range")
	ErrStepRange        = errors.New("step out of range")
	ErrScheduleFinished = errors.New("condition schedule finished")
)

// balancedLatinSquare maps participant (row) and step (column) to a
// condition index.
var balancedLatinSquare = [Participants][Steps]int{
	{15, 0, 1, 6, 10, 12, 5, 4, 13, 7, 9, 14, 3, 11, 8, 2},
	{15, 11, 2, 14, 8, 7, 3, 4, 9, 12, 13, 6, 5, 0, 10, 1},
	{15, 10, 5, 1, 13, 0, 9, 6, 3, 12, 8, 4, 2, 7, 11, 14},
	{15, 7, 14, 4, 11, 12, 2, 6, 8, 0, 3, 1, 9, 10, 13, 5},
	{15, 13, 9, 5, 3, 10, 8, 1, 2, 0, 11, 6, 14, 12, 7, 4},
	{15, 12, 4, 6, 7, 0, 14, 1, 11, 10, 2, 5, 8, 13, 3, 9},
	{15, 3, 8, 9, 2, 13, 11, 5, 14, 10, 7, 1, 4, 0, 12, 6},
	{15, 0, 6, 1, 12, 10, 4, 5, 7, 13, 14, 9, 11, 3, 2, 8},
	{15, 2, 11, 8, 14, 3, 7, 9, 4, 13, 12, 5, 6, 10, 0, 1},
	{15, 10, 1, 5, 0, 13, 6, 9, 12, 3, 4, 8, 7, 2, 14, 11},
	{15, 14, 7, 11, 4, 2, 12, 8, 6, 3, 0, 9, 1, 13, 10, 5},
	{15, 13, 5, 9, 10, 3, 1, 8, 0, 2, 6, 11, 12, 14, 4, 7},
	{15, 4, 12, 7, 6, 14, 0, 11, 1, 2, 10, 8, 5, 3, 13, 9},
	{15, 3, 9, 8, 13, 2, 5, 11, 10, 14, 1, 7, 0, 4, 6, 12},
	{15, 6, 0, 12, 1, 4, 10, 7, 5, 14, 13, 11, 9, 2, 3, 8},
	{15, 2, 8, 11, 3, 14, 9, 7, 13, 4, 5, 12, 10, 6, 1, 0},
	{15, 1, 10, 0, 5, 6, 13, 12, 9, 4, 3, 7, 8, 14, 2, 11},
	{15, 14, 11, 7, 2, 4, 8, 12, 3, 6, 9, 0, 13, 1, 5, 10},
	{15, 5, 13, 10, 9, 1, 3, 0, 8, 6, 2, 12, 11, 4, 14, 7},
	{15, 4, 7, 12, 14, 6, 11, 0, 2, 1, 8, 10, 3, 5, 9, 13},
	{15, 9, 3, 13, 8, 5, 2, 10, 11, 1, 14, 0, 7, 6, 4, 12},
	{15, 6, 12, 0, 4, 1, 7, 10, 14, 5, 11, 13, 2, 9, 8, 3},
	{15, 8, 2, 3, 11, 9, 14, 13, 7, 5, 4, 10, 12, 1, 6, 0},
	{15, 1, 0, 10, 6, 5, 12, 13, 4, 9, 7, 3, 14, 8, 11, 2},
	{15, 11, 14, 2, 7, 8, 4, 3, 12, 9, 6, 13, 0, 5, 1, 10},
	{15, 5, 10, 13, 1, 9, 0, 3, 6, 8, 12, 2, 4, 11, 7, 14},
	{15, 7, 4, 14, 12, 11, 6, 2, 0, 8, 1, 3, 10, 9, 5, 13},
	{15, 9, 13, 3, 5, 8, 10, 2, 1, 11, 0, 14, 6, 7, 12, 4},
	{15, 12, 6, 4, 0, 7, 1, 14, 10, 11, 5, 2, 13, 8, 9, 3},
	{15, 8, 3, 2, 9, 11, 13, 14, 5, 7, 10, 4, 1, 12, 0, 6},
}

// LatinSquare returns a copy of the counterbalancing table.
func LatinSquare() [Participants][Steps]int {
	return balancedLatinSquare
}

// ConditionNumber looks up the condition index for a participant and step.
func ConditionNumber(participant, step int) (int, error) {
	if participant < 0 || participant >= Participants {
		return 0, fmt.Errorf("%w: %d not in [0, %d)", ErrParticipantRange, participant, Participants)
	}
	if step < 0 || step >= Steps {
		return 0, fmt.Errorf("%w: %d not in [0, %d)", ErrStepRange, step, Steps)
	}
	return balancedLatinSquare[participant][step], nil
}

// Setup is the parameter set a condition applies to a session.
type Setup struct {
	Participant    int
	Step           int
	ConditionIndex int
	Condition      Condition

	// MaxAngleDeg bounds the random vector offset and the keypad scale.
	MaxAngleDeg float64
	Selection   redirect.Selection
	// ShiftKeypad moves the keypad instead of redirecting the hand.
	ShiftKeypad bool
}

// Schedule steps one participant through their row of the table. The step
// only moves forward.
type Schedule struct {
	participant int
	step        int
	conditions  []Condition
}

// NewSchedule starts participant at startStep.
func NewSchedule(participant, startStep int) (*Schedule, error) {
	if participant < 0 || participant >= Participants {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrParticipantRange, participant, Participants)
	}
	if startStep < 0 || startStep > Steps {
		return nil, fmt.Errorf("%w: start step %d not in [0, %d]", ErrStepRange, startStep, Steps)
	}
	return &Schedule{participant: participant, step: startStep, conditions: Conditions()}, nil
}

func (s *Schedule) Participant() int { return s.participant }
func (s *Schedule) Step() int        { return s.step }

// Finished reports whether every step has been run.
func (s *Schedule) Finished() bool { return s.step >= Steps }

// SetupCondition returns the setup for the current step.
func (s *Schedule) SetupCondition() (Setup, error) {
	if s.Finished() {
		return Setup{}, ErrScheduleFinished
	}
	idx, err := ConditionNumber(s.participant, s.step)
	if err != nil {
		return Setup{}, err
	}
	c := s.conditions[idx]
	return Setup{
		Participant:    s.participant,
		Step:           s.step,
		ConditionIndex: idx,
		Condition:      c,
		MaxAngleDeg:    c.Size.AngleDeg(),
		Selection:      c.Selection(),
		ShiftKeypad:    c.Curve == redirect.CurveShift,
	}, nil
}

// NextCondition advances one step and returns the new setup. It returns
// ErrScheduleFinished once the row is exhausted.
func (s *Schedule) NextCondition() (Setup, error) {
	if s.step < Steps {
		s.step++
	}
	return s.SetupCondition()
}

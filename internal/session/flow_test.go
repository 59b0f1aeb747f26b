package session

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/banshee-data/handwarp/internal/geom"
	"github.com/banshee-data/handwarp/internal/redirect"
	"github.com/banshee-data/handwarp/internal/study"
	"github.com/banshee-data/handwarp/internal/timeutil"
	"github.com/banshee-data/handwarp/internal/tracking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// completePin enters the current PIN and retracts so the attempt closes.
func (h *harness) completePin(t *testing.T) []int {
	t.Helper()
	p := h.s.Pin()
	h.enterPin(t, p)
	h.tick(t, 0, 0.3)
	return p
}

func TestStudyStartsWithTraining(t *testing.T) {
	h := newHarness(t, studyConfig())

	setup, ok := h.s.Setup()
	require.True(t, ok)
	assert.Equal(t, study.TrainingCondition, setup.ConditionIndex)
	assert.True(t, setup.Condition.Training)
	assert.Equal(t, redirect.RandomVector, setup.Selection)

	require.Len(t, h.sink.conditions, 1)
	rec := h.sink.conditions[0]
	assert.Equal(t, 0, rec.Step)
	assert.Equal(t, "medium", rec.KeypadSize)
	assert.Equal(t, "none", rec.Curve)
	assert.Equal(t, 8.0, rec.MaxAngleDeg)
	require.Len(t, h.notify.conditions, 1)
}

func TestStudyAdvancesAfterPinThreshold(t *testing.T) {
	h := newHarness(t, studyConfig())
	h.completePin(t)

	require.Len(t, h.sink.pins, 1)
	assert.Equal(t, study.TrainingCondition, h.sink.pins[0].ConditionIndex)

	require.Len(t, h.sink.conditions, 2)
	rec := h.sink.conditions[1]
	assert.Equal(t, 1, rec.Step)
	assert.Equal(t, 0, rec.ConditionIndex)
	assert.Equal(t, "small", rec.KeypadSize)
	assert.Equal(t, "none", rec.Curve)
	assert.Equal(t, 4.0, rec.MaxAngleDeg)

	// The target picked on the closing retraction was re-armed for the new
	// condition, whose curve applies no offset.
	require.NotNil(t, h.s.ActiveTarget())
	h.tick(t, 0, 0.1)
	require.True(t, h.s.IsRedirecting())
	out := h.tick(t, 0, 0.05)
	assertVecNear(t, geom.Vec{Z: 0.45}, out.Position)
}

func TestStudyPinThresholdSpansAttempts(t *testing.T) {
	cfg := studyConfig()
	cfg.PinThreshold = 3
	h := newHarness(t, cfg)

	h.completePin(t)
	h.completePin(t)
	assert.Len(t, h.sink.conditions, 1)
	h.completePin(t)
	require.Len(t, h.sink.conditions, 2)
	assert.Equal(t, 0, h.sink.conditions[1].ConditionIndex)
}

func TestStudyBreak(t *testing.T) {
	cfg := studyConfig()
	cfg.PinAttemptsBeforeBreak = 2
	h := newHarness(t, cfg)

	h.completePin(t)
	assert.Zero(t, h.notify.breaksStarted)
	h.completePin(t)
	assert.Equal(t, 1, h.notify.breaksStarted)
	assert.True(t, h.s.InBreak())
	assert.Nil(t, h.s.ActiveTarget())
	assert.Equal(t, 1, h.s.Stats().Breaks)

	// The condition still advanced on the closing attempt.
	setup, _ := h.s.Setup()
	assert.Equal(t, 2, setup.Step)

	// Ticks during the break pass the real hand through and record nothing.
	ticks := len(h.sink.ticks)
	out := h.tick(t, 0.01, 0.3)
	assertVecNear(t, geom.Vec{X: 0.01, Z: 0.2}, out.Position)
	h.tick(t, 0, 0.1)
	h.press(t, 0)
	assert.Len(t, h.sink.ticks, ticks)
	assert.Nil(t, h.s.ActiveTarget())
	assert.Zero(t, h.s.CurrentPinDigitCount())
	assert.Greater(t, h.s.BreakRemaining(), 9*time.Second)

	h.clock.Advance(10 * time.Second)
	h.tick(t, 0, 0.3)
	assert.Equal(t, 1, h.notify.breaksEnded)
	assert.False(t, h.s.InBreak())
	assert.Zero(t, h.s.BreakRemaining())
	assert.NotNil(t, h.s.ActiveTarget())
	assert.Len(t, h.sink.ticks, ticks+1)

	// The next attempt is timed from the end of the break.
	h.completePin(t)
	require.Len(t, h.sink.pins, 3)
	assert.Less(t, h.sink.pins[2].Duration(), time.Second)
}

func TestShiftConditionMovesKeypad(t *testing.T) {
	cfg := studyConfig()
	cfg.StartStep = 7
	h := newHarness(t, cfg)

	setup, _ := h.s.Setup()
	require.Equal(t, 4, setup.ConditionIndex)
	require.True(t, setup.ShiftKeypad)
	assert.Equal(t, redirect.CurveShift, setup.Condition.Curve)

	h.tick(t, 0, 0.3)
	moved := r3.Sub(h.s.Keypad(), keypad)
	assert.InDelta(t, math.Tan(geom.DegToRad(4))*0.2, r3.Norm(moved), 1e-9)
	assert.Zero(t, moved.Z)
	require.Len(t, h.notify.keypadMoves, 1)
	assert.Nil(t, h.s.ActiveTarget())

	// No hand redirection under a shift condition.
	h.tick(t, 0, 0.1)
	assert.False(t, h.s.IsRedirecting())
	out := h.tick(t, 0, 0.05)
	assertVecNear(t, geom.Vec{Z: 0.45}, out.Position)
	h.press(t, 0)

	// The keypad moves once per condition.
	shifted := h.s.Keypad()
	h.tick(t, 0, 0.3)
	assert.Equal(t, shifted, h.s.Keypad())
	assert.Equal(t, 1, h.s.Stats().KeypadShifts)

	// Closing the PIN moves on to a redirecting condition and puts the
	// keypad back.
	h.tick(t, 0, 0.1)
	h.press(t, 0)
	h.tick(t, 0, 0.3)
	setup, _ = h.s.Setup()
	assert.Equal(t, 13, setup.ConditionIndex)
	assert.False(t, setup.ShiftKeypad)
	assert.Equal(t, keypad, h.s.Keypad())
	require.Len(t, h.notify.keypadMoves, 2)
	assert.NotNil(t, h.s.ActiveTarget())
}

func TestPlainShiftCurve(t *testing.T) {
	cfg := plainConfig()
	cfg.Curve = redirect.CurveShift
	h := newHarness(t, cfg)

	h.tick(t, 0, 0.3)
	assert.NotEqual(t, keypad, h.s.Keypad())
	assert.Equal(t, 1, h.s.Stats().KeypadShifts)
	assert.Zero(t, h.s.Stats().TargetsSelected)
}

func TestQuestionnaireBetweenConditions(t *testing.T) {
	cfg := studyConfig()
	cfg.ShowQuestionnaire = true
	h := newHarness(t, cfg)

	h.completePin(t)
	assert.True(t, h.s.QuestionnaireActive())
	assert.Equal(t, []int{study.TrainingCondition}, h.notify.questionnaires)
	assert.Equal(t, tracking.Left, h.s.Hand())
	assert.Nil(t, h.s.ActiveTarget())
	assert.Len(t, h.sink.conditions, 1, "next condition waits for the questionnaire")

	ticks := len(h.sink.ticks)
	h.tick(t, 0, 0.3)
	assert.Len(t, h.sink.ticks, ticks)
	assert.Nil(t, h.s.ActiveTarget())

	h.s.QuestionnaireDone()
	assert.False(t, h.s.QuestionnaireActive())
	assert.Equal(t, tracking.Right, h.s.Hand())
	require.Len(t, h.sink.conditions, 2)
	assert.Equal(t, 0, h.sink.conditions[1].ConditionIndex)

	// Calling it again is a no-op.
	h.s.QuestionnaireDone()
	assert.Len(t, h.sink.conditions, 2)
}

func TestStudyFinishes(t *testing.T) {
	cfg := studyConfig()
	cfg.StartStep = study.Steps - 1
	h := newHarness(t, cfg)

	h.completePin(t)
	assert.True(t, h.s.Finished())
	assert.Equal(t, 1, h.notify.finished)
	assert.Nil(t, h.s.ActiveTarget())

	ticks := len(h.sink.ticks)
	out := h.tick(t, 0, 0.1)
	assertVecNear(t, geom.Vec{Z: 0.4}, out.Position)
	assert.Len(t, h.sink.ticks, ticks)
}

func TestStudyFinishesAfterLastQuestionnaire(t *testing.T) {
	cfg := studyConfig()
	cfg.StartStep = study.Steps - 1
	cfg.ShowQuestionnaire = true
	h := newHarness(t, cfg)

	h.completePin(t)
	assert.False(t, h.s.Finished())
	assert.True(t, h.s.QuestionnaireActive())

	h.s.QuestionnaireDone()
	assert.True(t, h.s.Finished())
	assert.Equal(t, 1, h.notify.finished)
}

func TestStudyStartedPastLastStep(t *testing.T) {
	cfg := studyConfig()
	cfg.StartStep = study.Steps
	h := newHarness(t, cfg)

	assert.True(t, h.s.Finished())
	_, ok := h.s.Setup()
	assert.False(t, ok)
}

func TestKeypadScaleFollowsCondition(t *testing.T) {
	var buttons []geom.Vec
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			buttons = append(buttons, geom.Vec{X: float64(col) * 0.03, Y: float64(row) * 0.03, Z: keypadZ})
		}
	}
	diag := study.DiagonalDistance(buttons)
	require.InDelta(t, 0.0424, diag, 1e-9)

	pool := rowPool(t)
	sink := &recordingSink{}
	s, err := New(studyConfig(), Options{
		Pool:    pool,
		Keypad:  keypad,
		Buttons: buttons,
		Rand:    rand.New(rand.NewSource(3)),
		Clock:   timeutil.NewManualClock(t0),
		Sink:    sink,
	})
	require.NoError(t, err)
	scale := math.Tan(geom.DegToRad(8)) * 0.2 / diag
	assert.InDelta(t, scale, s.KeypadScale(), 1e-12)

	// The targets are mounted on the keypad and move with it.
	left := pool.Get(0).Primary()
	assertVecNear(t, geom.Vec{X: -0.03 * scale, Z: keypadZ}, left.Real.Position)
	assertVecNear(t, geom.Vec{X: -0.01 * scale, Z: keypadZ}, left.Virtual.Position)
	assertVecNear(t, left.Real.Position, pool.Get(0).InitialPosition())

	scaled := s.Buttons()
	require.Len(t, scaled, 9)
	assertVecNear(t, geom.Vec{X: 0.06 * scale, Y: 0.06 * scale, Z: keypadZ}, scaled[8])

	require.Len(t, sink.conditions, 1)
	assert.InDelta(t, study.MaxDistance(buttons)*scale, sink.conditions[0].KeypadSpan, 1e-12)
}

func TestSwitchHands(t *testing.T) {
	h := newHarness(t, plainConfig())
	h.s.SwitchToWeakHand()
	assert.Equal(t, tracking.Left, h.s.Hand())
	h.s.SwitchToDominantHand()
	assert.Equal(t, tracking.Right, h.s.Hand())
}

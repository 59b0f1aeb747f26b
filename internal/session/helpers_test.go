package session

import (
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
)

const keypadZ = 0.5

var (
	t0     = time.Date(2026, 4, 1, 14, 0, 0, 0, time.UTC)
	body   = geom.At(0, 0, 0)
	head   = geom.At(0, 0.35, 0)
	keypad = geom.Vec{Z: keypadZ}
)

type recordingSink struct {
	ticks      []TickRecord
	pins       []PinRecord
	conditions []ConditionRecord
}

func (r *recordingSink) RecordTick(rec TickRecord)           { r.ticks = append(r.ticks, rec) }
func (r *recordingSink) RecordPin(rec PinRecord)             { r.pins = append(r.pins, rec) }
func (r *recordingSink) RecordCondition(rec ConditionRecord) { r.conditions = append(r.conditions, rec) }

type recordingNotifier struct {
	prompts        []bool
	conditions     []study.Setup
	keypadMoves    []geom.Vec
	pins           [][]int
	breaksStarted  int
	breaksEnded    int
	questionnaires []int
	finished       int
}

func (n *recordingNotifier) Prompt(r bool)                  { n.prompts = append(n.prompts, r) }
func (n *recordingNotifier) ConditionChanged(s study.Setup) { n.conditions = append(n.conditions, s) }
func (n *recordingNotifier) KeypadMoved(p geom.Vec)         { n.keypadMoves = append(n.keypadMoves, p) }
func (n *recordingNotifier) PinGenerated(p []int)           { n.pins = append(n.pins, p) }
func (n *recordingNotifier) BreakStarted(time.Duration)     { n.breaksStarted++ }
func (n *recordingNotifier) BreakEnded()                    { n.breaksEnded++ }
func (n *recordingNotifier) QuestionnaireRequested(c int)   { n.questionnaires = append(n.questionnaires, c) }
func (n *recordingNotifier) StudyFinished()                 { n.finished++ }

// rowPool is three buttons along X on the keypad plane, each shown 2 cm to
// the right of its physical position.
func rowPool(t *testing.T) *redirect.Pool {
	t.Helper()
	var targets []*redirect.Target
	for i := 0; i < 3; i++ {
		x := float64(i-1) * 0.03
		tgt, err := redirect.NewTarget("button", redirect.Correspondence{
			Real:    geom.At(x, 0, keypadZ),
			Virtual: geom.At(x+0.02, 0, keypadZ),
		})
		require.NoError(t, err)
		targets = append(targets, tgt)
	}
	pool, err := redirect.NewPool(targets...)
	require.NoError(t, err)
	return pool
}

func plainConfig() Config {
	return Config{
		Technique:              redirect.NameCurveBodyWarp,
		Curve:                  redirect.CurveLinear,
		Selection:              redirect.Sequential,
		Threshold:              0.2,
		PressNear:              0.02,
		PressFar:               0.1,
		MaxRedirectionAngleDeg: 10,
		PinLength:              2,
		PinThreshold:           1,
		PinAttemptsBeforeBreak: 20,
		BreakDuration:          10 * time.Second,
		DominantHand:           tracking.Right,
	}
}

func studyConfig() Config {
	cfg := plainConfig()
	cfg.StudyMode = true
	return cfg
}

type harness struct {
	s      *Session
	sink   *recordingSink
	notify *recordingNotifier
	clock  *timeutil.ManualClock
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		sink:   &recordingSink{},
		notify: &recordingNotifier{},
		clock:  timeutil.NewManualClock(t0),
	}
	s, err := New(cfg, Options{
		Pool:     rowPool(t),
		Keypad:   keypad,
		Rand:     rand.New(rand.NewSource(7)),
		Clock:    h.clock,
		Sink:     h.sink,
		Notifier: h.notify,
	})
	require.NoError(t, err)
	h.s = s
	return h
}

// tick moves the real hand to depth in front of the keypad at x.
func (h *harness) tick(t *testing.T, x, depth float64) geom.Pose {
	t.Helper()
	h.clock.Advance(11 * time.Millisecond)
	out, err := h.s.Tick(geom.At(x, 0, keypadZ-depth), head, body, depth, NoPress)
	require.NoError(t, err)
	return out
}

func (h *harness) press(t *testing.T, digit int) {
	t.Helper()
	h.clock.Advance(11 * time.Millisecond)
	_, err := h.s.Tick(geom.At(0, 0, keypadZ+0.05), head, body, -0.05, PressSignal{Pressed: true, Digit: digit})
	require.NoError(t, err)
}

// enterPin runs one reach per digit: retract, reach in, press.
func (h *harness) enterPin(t *testing.T, digits []int) {
	t.Helper()
	for _, d := range digits {
		h.tick(t, 0, 0.3)
		h.tick(t, 0, 0.1)
		h.press(t, d)
	}
}

func assertVecNear(t *testing.T, want, got geom.Vec) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-9, "x")
	assert.InDelta(t, want.Y, got.Y, 1e-9, "y")
	assert.InDelta(t, want.Z, got.Z, 1e-9, "z")
}

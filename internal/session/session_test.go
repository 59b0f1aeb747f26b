package session

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/banshee-data/handwarp/internal/geom"
	"github.com/banshee-data/handwarp/internal/monitoring"
	"github.com/banshee-data/handwarp/internal/redirect"
	"github.com/banshee-data/handwarp/internal/timeutil"
	"github.com/banshee-data/handwarp/internal/tracking"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestTickLifecycle(t *testing.T) {
	h := newHarness(t, plainConfig())
	s := h.s

	// Hand near the keypad at start: nothing selected.
	out := h.tick(t, 0, 0.1)
	assertVecNear(t, geom.Vec{Z: 0.4}, out.Position)
	assert.Nil(t, s.ActiveTarget())

	// Retract past the threshold: first target selected, not yet redirecting.
	h.tick(t, 0, 0.3)
	require.NotNil(t, s.ActiveTarget())
	assert.Equal(t, 0, s.ActiveTarget().ID)
	assert.False(t, s.IsRedirecting())
	_, anchored := s.WarpOrigin()
	assert.False(t, anchored)

	// Reach back in: warp origin anchored at the hand, redirection on.
	h.tick(t, -0.03, 0.1)
	origin, anchored := s.WarpOrigin()
	assert.True(t, anchored)
	assertVecNear(t, geom.Vec{X: -0.03, Z: 0.4}, origin.Position)
	assert.True(t, s.IsRedirecting())

	// Halfway to the real target the linear curve applies half the offset.
	out = h.tick(t, -0.03, 0.05)
	assert.InDelta(t, -0.03+0.01, out.Position.X, 1e-9)
	assert.InDelta(t, 0.45, out.Position.Z, 1e-9)

	// Press: target deactivated, one digit recorded.
	h.press(t, 0)
	assert.False(t, s.IsRedirecting())
	assert.Nil(t, s.ActiveTarget())
	assert.Equal(t, 1, s.CurrentPinDigitCount())
	assert.Equal(t, []bool{false, true, false}, h.notify.prompts)

	// A second press without retracting is ignored.
	h.press(t, 1)
	assert.Equal(t, 1, s.CurrentPinDigitCount())
}

func TestWarpOriginAnchorsOnce(t *testing.T) {
	h := newHarness(t, plainConfig())
	h.tick(t, 0, 0.3)
	h.tick(t, 0.01, 0.15)
	h.tick(t, 0.02, 0.1)

	origin, _ := h.s.WarpOrigin()
	assertVecNear(t, geom.Vec{X: 0.01, Z: 0.35}, origin.Position)
}

func TestSequentialTargetsAcrossReaches(t *testing.T) {
	cfg := plainConfig()
	cfg.PinLength = 8
	h := newHarness(t, cfg)

	var got []int
	for i := 0; i < 4; i++ {
		h.tick(t, 0, 0.3)
		got = append(got, h.s.ActiveTarget().ID)
		h.tick(t, 0, 0.1)
		h.press(t, 0)
	}
	if diff := cmp.Diff([]int{0, 1, 2, 0}, got); diff != "" {
		t.Errorf("target order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 4, h.s.Stats().TargetsSelected)
}

func TestRedirectingImpliesTargetSelected(t *testing.T) {
	h := newHarness(t, plainConfig())
	depths := []float64{0.1, 0.3, 0.25, 0.15, 0.05, 0.0, 0.3, 0.1}
	for _, d := range depths {
		h.tick(t, 0, d)
		if h.s.IsRedirecting() {
			assert.NotNil(t, h.s.ActiveTarget(), "depth %v", d)
		}
	}
}

func TestEndRedirectionIdempotent(t *testing.T) {
	h := newHarness(t, plainConfig())
	h.s.EndRedirection()
	h.s.DeactivateTarget()

	h.tick(t, 0, 0.3)
	h.tick(t, 0, 0.1)
	require.True(t, h.s.IsRedirecting())
	h.s.EndRedirection()
	h.s.EndRedirection()
	assert.False(t, h.s.IsRedirecting())

	out := h.tick(t, 0, 0.05)
	assertVecNear(t, geom.Vec{Z: 0.45}, out.Position)
}

func TestPinCompletionEmitsRecord(t *testing.T) {
	h := newHarness(t, plainConfig())
	pin := h.s.Pin()
	require.Len(t, pin, 2)

	h.enterPin(t, pin)
	assert.Equal(t, 2, h.s.CurrentPinDigitCount())
	assert.Empty(t, h.sink.pins, "closed on the next retraction")

	h.tick(t, 0, 0.3)
	require.Len(t, h.sink.pins, 1)
	rec := h.sink.pins[0]
	assert.True(t, rec.Success)
	assert.Equal(t, pin, rec.Pin)
	assert.Equal(t, pin, rec.Input)
	assert.Equal(t, -1, rec.ConditionIndex)
	assert.Positive(t, rec.Duration())
	assert.Zero(t, h.s.CurrentPinDigitCount())
	assert.Len(t, h.notify.pins, 2)

	wrong := h.s.Pin()
	wrong[1] = (wrong[1] + 1) % 3
	h.tick(t, 0, 0.1)
	h.press(t, wrong[0])
	h.enterPin(t, wrong[1:])
	h.tick(t, 0, 0.3)
	require.Len(t, h.sink.pins, 2)
	assert.False(t, h.sink.pins[1].Success)
	assert.NotEqual(t, h.sink.pins[0].AttemptID, h.sink.pins[1].AttemptID)

	st := h.s.Stats()
	assert.Equal(t, 2, st.PinsCompleted)
	assert.Equal(t, 1, st.PinsCorrect)
}

func TestTickRecords(t *testing.T) {
	h := newHarness(t, plainConfig())
	h.tick(t, 0, 0.3)
	h.tick(t, 0, 0.1)
	h.tick(t, 0, 0.05)

	require.Len(t, h.sink.ticks, 3)
	last := h.sink.ticks[2]
	assert.Equal(t, uint64(3), last.Frame)
	assert.Equal(t, 0, last.TargetID)
	assert.Equal(t, redirect.NameCurveBodyWarp, last.Technique)
	assert.True(t, last.Redirecting)
	assert.InDelta(t, r3.Norm(last.Offset), last.OffsetMagnitude, 1e-12)
	assert.InDelta(t, 0.01, last.OffsetMagnitude, 1e-9)
	assert.Equal(t, h.s.Pin()[0], last.TargetDigit)
	assert.Equal(t, -1, last.LastInput)
	assert.Equal(t, t0.Add(33*time.Millisecond), last.Time)
}

func TestDegenerateWarpPathFallsBack(t *testing.T) {
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(nil) })

	h := newHarness(t, plainConfig())
	h.tick(t, 0, 0.3)
	// Anchored on the keypad plane: zero-length warp path.
	out := h.tick(t, 0, 0)
	assert.Equal(t, geom.Vec{Z: keypadZ}, out.Position)
	out = h.tick(t, 0, 0)
	assert.Equal(t, geom.Vec{Z: keypadZ}, out.Position)
	assert.Equal(t, 2, h.s.Stats().DegenerateTicks)
}

func TestStudyConditionsReachEveryCurveTechnique(t *testing.T) {
	var warnings []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		warnings = append(warnings, fmt.Sprintf(format, v...))
	})
	t.Cleanup(func() { monitoring.SetLogger(nil) })

	own := &redirect.CurveBodyWarp{Curve: redirect.CurveEaseIn}
	pool := rowPool(t)
	pool.Get(1).Technique = own

	_, err := New(studyConfig(), Options{Pool: pool, Keypad: keypad, Clock: timeutil.NewManualClock(t0)})
	require.NoError(t, err)
	// Participant 0 starts with the training condition, which has no curve.
	assert.Equal(t, redirect.CurveNone, own.Curve)
	assert.Empty(t, warnings)

	cfg := studyConfig()
	cfg.Technique = redirect.NameBodyWarpZeroZone
	_, err = New(cfg, Options{Pool: rowPool(t), Keypad: keypad, Clock: timeutil.NewManualClock(t0)})
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "body_warp_zero_zone has no retargeting curve")
}

func TestNewConfigurationErrors(t *testing.T) {
	pool := rowPool(t)

	t.Run("empty pool", func(t *testing.T) {
		empty, err := redirect.NewPool()
		require.NoError(t, err)
		_, err = New(plainConfig(), Options{Pool: empty})
		assert.ErrorIs(t, err, redirect.ErrEmptyPool)
		assert.True(t, redirect.IsConfigurationError(err))
	})

	t.Run("zero warp path", func(t *testing.T) {
		cfg := plainConfig()
		cfg.Threshold = 0
		_, err := New(cfg, Options{Pool: pool})
		assert.ErrorIs(t, err, redirect.ErrZeroWarpPath)
		assert.True(t, redirect.IsConfigurationError(err))
	})

	t.Run("zero zone technique allows zero threshold", func(t *testing.T) {
		cfg := plainConfig()
		cfg.Technique = redirect.NameBodyWarpZeroZone
		cfg.Threshold = 0
		_, err := New(cfg, Options{Pool: pool})
		assert.NoError(t, err)
	})

	t.Run("unknown technique", func(t *testing.T) {
		cfg := plainConfig()
		cfg.Technique = "world_warp"
		_, err := New(cfg, Options{Pool: pool})
		assert.True(t, redirect.IsConfigurationError(err))
	})

	t.Run("pin length", func(t *testing.T) {
		cfg := plainConfig()
		cfg.PinLength = 0
		_, err := New(cfg, Options{Pool: pool})
		assert.True(t, redirect.IsConfigurationError(err))
	})

	t.Run("participant", func(t *testing.T) {
		cfg := studyConfig()
		cfg.Participant = 31
		_, err := New(cfg, Options{Pool: pool})
		assert.True(t, redirect.IsConfigurationError(err))
	})

	t.Run("pin threshold", func(t *testing.T) {
		cfg := plainConfig()
		cfg.PinThreshold = 0
		_, err := New(cfg, Options{Pool: pool})
		assert.True(t, redirect.IsConfigurationError(err))
		assert.False(t, errors.Is(err, redirect.ErrEmptyPool))
	})
}

func TestBodyWarpZeroZoneSession(t *testing.T) {
	cfg := plainConfig()
	cfg.Technique = redirect.NameBodyWarpZeroZone
	cfg.ZeroWarpDistance = 0.1
	h := newHarness(t, cfg)

	h.tick(t, 0, 0.3)
	h.tick(t, 0, 0.1)
	require.True(t, h.s.IsRedirecting())

	// Hand 5 cm from the body is inside the zero-warp zone.
	h.clock.Advance(11 * time.Millisecond)
	out, err := h.s.Tick(geom.At(0, 0, 0.05), head, body, keypadZ-0.05, NoPress)
	require.NoError(t, err)
	assert.Equal(t, geom.Vec{Z: 0.05}, out.Position)
}

func TestTickSamplePress(t *testing.T) {
	h := newHarness(t, plainConfig())
	sample := func(x, z float64) tracking.Sample {
		return tracking.Sample{
			RealHand:      geom.At(x, 0, z),
			Head:          head,
			Body:          body,
			RightIndexTip: geom.Vec{X: x, Z: z},
			LeftIndexTip:  geom.Vec{X: 0.5, Z: 0},
		}
	}

	_, err := h.s.TickSample(sample(0.03, 0.2))
	require.NoError(t, err)
	require.NotNil(t, h.s.ActiveTarget())

	_, err = h.s.TickSample(sample(0.03, 0.4))
	require.NoError(t, err)
	require.True(t, h.s.IsRedirecting())

	// The fingertip is 4 cm beyond the keypad, over the rightmost real
	// button. Digits resolve by virtual position, so the middle one wins.
	_, err = h.s.TickSample(sample(0.03, 0.54))
	require.NoError(t, err)
	assert.Equal(t, 1, h.s.CurrentPinDigitCount())
	last := h.sink.ticks[len(h.sink.ticks)-1]
	assert.Equal(t, 1, last.LastInput)

	// Beyond the press window nothing is pressed.
	h2 := newHarness(t, plainConfig())
	_, err = h2.s.TickSample(sample(0, 0.2))
	require.NoError(t, err)
	_, err = h2.s.TickSample(sample(0, 0.65))
	require.NoError(t, err)
	assert.Zero(t, h2.s.CurrentPinDigitCount())
}

func TestTeeFansOutRecords(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	sink := Tee(a, b, NopSink{})

	sink.RecordTick(TickRecord{Frame: 7})
	sink.RecordPin(PinRecord{Pin: []int{1, 2}, Success: true})
	sink.RecordCondition(ConditionRecord{ConditionIndex: 3})

	for _, r := range []*recordingSink{a, b} {
		require.Len(t, r.ticks, 1)
		assert.Equal(t, uint64(7), r.ticks[0].Frame)
		require.Len(t, r.pins, 1)
		assert.Equal(t, []int{1, 2}, r.pins[0].Pin)
		require.Len(t, r.conditions, 1)
		assert.Equal(t, 3, r.conditions[0].ConditionIndex)
	}
}

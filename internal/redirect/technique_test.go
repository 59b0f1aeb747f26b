package redirect

import (
	"testing"

	"github.com/banshee-data/handwarp/internal/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func mustTarget(t *testing.T, real, virtual geom.Vec) *Target {
	t.Helper()
	tgt, err := NewTarget("t", Correspondence{
		Real:    geom.NewPose(real, geom.Identity()),
		Virtual: geom.NewPose(virtual, geom.Identity()),
	})
	require.NoError(t, err)
	return tgt
}

func assertVecInDelta(t *testing.T, want, got geom.Vec, msgAndArgs ...interface{}) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-9, msgAndArgs...)
	assert.InDelta(t, want.Y, got.Y, 1e-9, msgAndArgs...)
	assert.InDelta(t, want.Z, got.Z, 1e-9, msgAndArgs...)
}

func TestShiftRatio(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		ds, dp     float64
		want       float64
		degenerate bool
	}{
		{"at origin", 0, 0.4, 0, false},
		{"halfway", 0.2, 0.2, 0.5, false},
		{"at target", 0.4, 0, 1, false},
		{"both zero", 0, 0, 0, true},
		{"negative inputs clamp", -1, 0.3, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a, deg := ShiftRatio(tt.ds, tt.dp)
			assert.InDelta(t, tt.want, a, 1e-12)
			assert.Equal(t, tt.degenerate, deg)
		})
	}
}

func TestShiftRatioStaysInUnitInterval(t *testing.T) {
	t.Parallel()

	for ds := 0.0; ds < 2; ds += 0.13 {
		for dp := 0.0; dp < 2; dp += 0.17 {
			a, _ := ShiftRatio(ds, dp)
			assert.GreaterOrEqual(t, a, 0.0)
			assert.LessOrEqual(t, a, 1.0)
		}
	}
}

func TestBodyWarpZeroZone(t *testing.T) {
	t.Parallel()

	body := geom.At(0, 0, 0)

	t.Run("no warp inside zero zone", func(t *testing.T) {
		t.Parallel()
		target := mustTarget(t, r3.Vec{Z: 0.4}, r3.Vec{X: 0.05, Z: 0.4})
		b := NewBodyWarpZeroZone(0.1)
		origin := geom.At(0, 0, 0.2)
		b.Init(target, body, origin, origin)

		hand := geom.At(0, 0, 0.05)
		got := b.ApplyRedirection(hand, &origin, target, body)
		assertVecInDelta(t, hand.Position, got.Position)
		assert.True(t, b.InZeroZone())
	})

	t.Run("leaving the zone re-anchors the warp origin", func(t *testing.T) {
		t.Parallel()
		target := mustTarget(t, r3.Vec{Z: 0.4}, r3.Vec{X: 0.05, Z: 0.4})
		b := NewBodyWarpZeroZone(0.1)
		origin := geom.At(0, 0, 0)
		b.Init(target, body, origin, origin)

		b.ApplyRedirection(geom.At(0, 0, 0.05), &origin, target, body)
		hand := geom.At(0, 0, 0.15)
		got := b.ApplyRedirection(hand, &origin, target, body)

		assertVecInDelta(t, hand.Position, origin.Position)
		assertVecInDelta(t, hand.Position, got.Position)
		assert.False(t, b.InZeroZone())
	})

	t.Run("interpolates towards the virtual target", func(t *testing.T) {
		t.Parallel()
		target := mustTarget(t, r3.Vec{Z: 0.4}, r3.Vec{X: 0.08, Z: 0.4})
		b := NewBodyWarpZeroZone(0)
		origin := geom.At(0, 0, 0)
		b.Init(target, body, origin, origin)

		got := b.ApplyRedirection(geom.At(0, 0, 0.2), &origin, target, body)
		assertVecInDelta(t, r3.Vec{X: 0.04, Z: 0.2}, got.Position)
		assert.InDelta(t, 0.5, b.Ratio(), 1e-12)

		got = b.ApplyRedirection(geom.At(0, 0, 0.4), &origin, target, body)
		assertVecInDelta(t, target.VirtualTargetPos(), got.Position, "hand on real target shows at virtual target")
		assert.False(t, b.Degenerate())
	})

	t.Run("degenerate when origin and target coincide", func(t *testing.T) {
		t.Parallel()
		target := mustTarget(t, r3.Vec{Z: 0.4}, r3.Vec{X: 0.08, Z: 0.4})
		b := NewBodyWarpZeroZone(0)
		origin := geom.At(0, 0, 0.4)
		b.Init(target, body, origin, origin)

		hand := geom.At(0, 0, 0.4)
		got := b.ApplyRedirection(hand, &origin, target, body)
		assertVecInDelta(t, hand.Position, got.Position)
		assert.True(t, b.Degenerate())
	})

	t.Run("does not mutate the target", func(t *testing.T) {
		t.Parallel()
		target := mustTarget(t, r3.Vec{Z: 0.4}, r3.Vec{X: 0.08, Z: 0.4})
		before := target.Effective()
		b := NewBodyWarpZeroZone(0)
		origin := geom.At(0, 0, 0)
		b.Init(target, body, origin, origin)
		b.ApplyRedirection(geom.At(0, 0, 0.3), &origin, target, body)
		assert.Equal(t, before, target.Effective())
	})
}

func TestCurveProgress(t *testing.T) {
	t.Parallel()

	p, deg := CurveProgress(0.5, 0.25, 0)
	assert.InDelta(t, 0.5, p, 1e-12)
	assert.False(t, deg)

	p, deg = CurveProgress(0.5, 0.5, 0)
	assert.InDelta(t, 1, p, 1e-12)
	assert.False(t, deg)

	p, deg = CurveProgress(0.3, 0.1, 0.3)
	assert.Zero(t, p)
	assert.True(t, deg)
}

func TestClampRetained(t *testing.T) {
	t.Parallel()

	retained := r3.Vec{X: 0.06, Y: 0.08}
	t.Run("longer candidate replaces", func(t *testing.T) {
		t.Parallel()
		cand := r3.Vec{X: 0.2}
		assert.Equal(t, cand, ClampRetained(retained, cand))
	})
	t.Run("shorter candidate rescales retained", func(t *testing.T) {
		t.Parallel()
		got := ClampRetained(retained, r3.Vec{Y: -0.05})
		assertVecInDelta(t, r3.Vec{X: 0.03, Y: 0.04}, got)
	})
	t.Run("from zero", func(t *testing.T) {
		t.Parallel()
		cand := r3.Vec{X: 0.01}
		assert.Equal(t, cand, ClampRetained(geom.Zero, cand))
	})
}

func TestCurveBodyWarp(t *testing.T) {
	t.Parallel()

	body := geom.At(0, 0, 0)
	target := mustTarget(t, r3.Vec{Z: 0.5}, r3.Vec{X: 0.1, Z: 0.5})
	origin := geom.At(0, 0, 0)

	c := NewCurveBodyWarp(CurveLinear)
	c.Init(target, body, origin, origin)

	got := c.ApplyRedirection(geom.At(0, 0, 0.25), &origin, target, body)
	assertVecInDelta(t, r3.Vec{X: 0.05, Z: 0.25}, got.Position)
	assert.InDelta(t, 0.5, c.Progress(), 1e-12)

	// Pulling back shrinks the offset without changing its direction.
	got = c.ApplyRedirection(geom.At(0, 0, 0.1), &origin, target, body)
	assertVecInDelta(t, r3.Vec{X: 0.02, Z: 0.1}, got.Position)

	got = c.ApplyRedirection(geom.At(0, 0, 0.5), &origin, target, body)
	assertVecInDelta(t, target.VirtualTargetPos(), got.Position)

	c.EndRedirection()
	assert.Equal(t, geom.Zero, c.Retained())
	c.EndRedirection()
	assert.Equal(t, geom.Zero, c.Retained())
}

func TestCurveBodyWarpRetainedNeverExceedsCandidate(t *testing.T) {
	t.Parallel()

	body := geom.At(0, 0, 0)
	target := mustTarget(t, r3.Vec{Z: 0.4}, r3.Vec{X: -0.07, Y: 0.02, Z: 0.4})
	origin := geom.At(0, 0, 0)

	c := NewCurveBodyWarp(CurveEaseOut)
	c.Init(target, body, origin, origin)

	for _, z := range []float64{0.05, 0.2, 0.35, 0.1, 0.3, 0.0, 0.4, 0.15} {
		c.ApplyRedirection(geom.At(0, 0, z), &origin, target, body)
		progress, _ := CurveProgress(0.4, z, 0)
		full := r3.Norm(r3.Sub(target.VirtualTargetPos(), target.RealTargetPos()))
		candidate := full * geom.Clamp01(CurveEaseOut.Evaluate(progress))
		assert.InDelta(t, candidate, r3.Norm(c.Retained()), 1e-9, "z=%v", z)
	}
}

func TestCurveBodyWarpNoneCurveIsIdentity(t *testing.T) {
	t.Parallel()

	body := geom.At(0, 0, 0)
	target := mustTarget(t, r3.Vec{Z: 0.4}, r3.Vec{X: 0.1, Z: 0.4})
	origin := geom.At(0, 0, 0)
	c := NewCurveBodyWarp(CurveNone)
	c.Init(target, body, origin, origin)

	hand := geom.At(0.01, 0.02, 0.3)
	got := c.ApplyRedirection(hand, &origin, target, body)
	assert.Equal(t, hand.Position, got.Position)
}

func TestNewTechnique(t *testing.T) {
	t.Parallel()

	tech, err := NewTechnique(NameBodyWarpZeroZone, 0.1, CurveNone)
	require.NoError(t, err)
	assert.Equal(t, NameBodyWarpZeroZone, tech.Name())
	assert.InDelta(t, 0.1, tech.(*BodyWarpZeroZone).ZeroWarpDistance, 1e-12)

	tech, err = NewTechnique(NameCurveBodyWarp, 0, CurveEaseIn)
	require.NoError(t, err)
	assert.Equal(t, CurveEaseIn, tech.(*CurveBodyWarp).Curve)

	_, err = NewTechnique("hybrid", 0, CurveNone)
	assert.Error(t, err)
}

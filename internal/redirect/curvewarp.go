package redirect

import (
	"math"

	"github.com/banshee-data/handwarp/internal/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// CurveBodyWarp shapes the retargeting offset with a response curve over the
// hand's depth progress from the warp origin to the real target. The
// retained offset may shrink in magnitude but keeps its direction when it
// does, so a dip in the curve never snaps the virtual hand sideways.
type CurveBodyWarp struct {
	Curve Curve

	realTarget    geom.Vec
	virtualTarget geom.Vec
	retained      geom.Vec

	lastProgress float64
	degenerate   bool
}

// NewCurveBodyWarp returns a technique using curve.
func NewCurveBodyWarp(curve Curve) *CurveBodyWarp {
	return &CurveBodyWarp{Curve: curve}
}

func (c *CurveBodyWarp) Name() string { return NameCurveBodyWarp }

// Init captures the effective real and virtual targets and clears the
// retained offset.
func (c *CurveBodyWarp) Init(target *Target, body, warpOrigin, realHand geom.Pose) {
	c.realTarget = target.RealTargetPos()
	c.virtualTarget = target.VirtualTargetPos()
	c.retained = geom.Zero
	c.lastProgress = 0
	c.degenerate = false
}

// ApplyRedirection returns realHand plus the retained retargeting vector.
func (c *CurveBodyWarp) ApplyRedirection(realHand geom.Pose, warpOrigin *geom.Pose, target *Target, body geom.Pose) geom.Pose {
	originZ := realHand.Position.Z
	if warpOrigin != nil {
		originZ = warpOrigin.Position.Z
	}

	progress, degenerate := CurveProgress(c.realTarget.Z, realHand.Position.Z, originZ)
	c.lastProgress = progress
	c.degenerate = degenerate

	full := r3.Sub(c.virtualTarget, c.realTarget)
	candidate := geom.Lerp(geom.Zero, full, c.Curve.Evaluate(progress))
	c.retained = ClampRetained(c.retained, candidate)

	return realHand.Translate(c.retained)
}

// EndRedirection drops the retained offset.
func (c *CurveBodyWarp) EndRedirection() {
	c.retained = geom.Zero
}

// Retained returns the current retargeting vector.
func (c *CurveBodyWarp) Retained() geom.Vec { return c.retained }

// Progress returns the depth progress of the last ApplyRedirection.
func (c *CurveBodyWarp) Progress() float64 { return c.lastProgress }

func (c *CurveBodyWarp) Degenerate() bool { return c.degenerate }

// CurveProgress is 1 - (target - hand)/(target - origin) along the depth
// axis. A zero-length warp path yields progress 0 and degenerate true.
func CurveProgress(realTargetZ, handZ, originZ float64) (progress float64, degenerate bool) {
	den := realTargetZ - originZ
	if math.Abs(den) < degenerateEpsilon {
		return 0, true
	}
	p := 1 - (realTargetZ-handZ)/den
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, true
	}
	return p, false
}

// ClampRetained applies the monotonic-magnitude rule: a candidate at least as
// long as the retained vector replaces it; a shorter one rescales the
// retained vector to the candidate's length.
func ClampRetained(retained, candidate geom.Vec) geom.Vec {
	cm := r3.Norm(candidate)
	rm := r3.Norm(retained)
	if cm >= rm {
		return candidate
	}
	return r3.Scale(cm/rm, retained)
}

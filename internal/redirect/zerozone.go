package redirect

import (
	"github.com/banshee-data/handwarp/internal/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// BodyWarpZeroZone blends the real-to-virtual target displacement T into the
// hand as it travels from the warp origin to the real target, following
// Cheng et al. (Sparse Haptic Proxy, CHI '17). Inside ZeroWarpDistance of
// the body no offset is applied; when the hand leaves that zone the warp
// origin is re-anchored at the hand so the offset grows from zero again.
type BodyWarpZeroZone struct {
	// ZeroWarpDistance is the hand-to-body distance (metres) below which
	// no warp is applied.
	ZeroWarpDistance float64

	t          geom.Vec // virtual minus real target
	t0         geom.Vec // always zero
	realTarget geom.Vec

	inZeroZone bool
	lastRatio  float64
	degenerate bool
}

// NewBodyWarpZeroZone returns a technique with the given zero-warp distance.
func NewBodyWarpZeroZone(zeroWarpDistance float64) *BodyWarpZeroZone {
	return &BodyWarpZeroZone{ZeroWarpDistance: zeroWarpDistance}
}

func (b *BodyWarpZeroZone) Name() string { return NameBodyWarpZeroZone }

// Init captures the displacement for the target's effective correspondence.
func (b *BodyWarpZeroZone) Init(target *Target, body, warpOrigin, realHand geom.Pose) {
	b.realTarget = target.RealTargetPos()
	b.t = r3.Sub(target.VirtualTargetPos(), b.realTarget)
	b.t0 = geom.Zero
	b.inZeroZone = false
	b.lastRatio = 0
	b.degenerate = false
}

// ApplyRedirection returns realHand + a·T where a = ds/(ds+dp).
func (b *BodyWarpZeroZone) ApplyRedirection(realHand geom.Pose, warpOrigin *geom.Pose, target *Target, body geom.Pose) geom.Pose {
	origin := warpOrigin
	if origin == nil {
		origin = &geom.Pose{Position: realHand.Position, Orientation: realHand.Orientation}
	}

	var ds float64
	if geom.Distance(realHand.Position, body.Position) < b.ZeroWarpDistance {
		ds = 0
		b.inZeroZone = true
	} else {
		if b.inZeroZone {
			*origin = realHand
		}
		ds = geom.Distance(realHand.Position, origin.Position)
		b.inZeroZone = false
	}

	dp := geom.Distance(realHand.Position, b.realTarget)
	a, degenerate := ShiftRatio(ds, dp)
	b.lastRatio = a
	b.degenerate = degenerate

	w := r3.Add(r3.Scale(a, b.t), r3.Scale(1-a, b.t0))
	return realHand.Translate(w)
}

// EndRedirection clears the zero-zone state.
func (b *BodyWarpZeroZone) EndRedirection() {
	b.inZeroZone = false
}

// Ratio returns the shift ratio of the last ApplyRedirection.
func (b *BodyWarpZeroZone) Ratio() float64 { return b.lastRatio }

// InZeroZone reports whether the hand was inside the zero-warp zone on the
// last ApplyRedirection.
func (b *BodyWarpZeroZone) InZeroZone() bool { return b.inZeroZone }

func (b *BodyWarpZeroZone) Degenerate() bool { return b.degenerate }

// ShiftRatio is ds/(ds+dp), in [0, 1] for non-negative inputs. When both
// distances vanish the ratio is 0 and degenerate is true.
func ShiftRatio(ds, dp float64) (a float64, degenerate bool) {
	if ds < 0 {
		ds = 0
	}
	if dp < 0 {
		dp = 0
	}
	sum := ds + dp
	if sum < degenerateEpsilon {
		return 0, true
	}
	return geom.Clamp01(ds / sum), false
}

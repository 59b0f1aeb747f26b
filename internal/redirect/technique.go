package redirect

import (
	"fmt"

	"github.com/banshee-data/handwarp/internal/geom"
)

// Technique computes the virtual hand for one activation of a target.
//
// Init is called once when a target becomes active. ApplyRedirection is
// called once per redirecting tick and returns the virtual hand pose; it
// may re-anchor *warpOrigin but must not mutate anything else it is given.
// EndRedirection is idempotent.
type Technique interface {
	Name() string
	Init(target *Target, body, warpOrigin, realHand geom.Pose)
	ApplyRedirection(realHand geom.Pose, warpOrigin *geom.Pose, target *Target, body geom.Pose) geom.Pose
	EndRedirection()
}

// DegenerateReporter is implemented by techniques that substitute a fallback
// value when a ratio denominator vanishes.
type DegenerateReporter interface {
	// Degenerate reports whether the last ApplyRedirection used a fallback.
	Degenerate() bool
}

// Technique names as used in config files and logs.
const (
	NameBodyWarpZeroZone = "body_warp_zero_zone"
	NameCurveBodyWarp    = "curve_body_warp"
)

// degenerateEpsilon is the magnitude below which a denominator is treated
// as zero.
const degenerateEpsilon = 1e-9

// NewTechnique builds a technique by name.
func NewTechnique(name string, zeroWarpDistance float64, curve Curve) (Technique, error) {
	switch name {
	case NameBodyWarpZeroZone:
		return NewBodyWarpZeroZone(zeroWarpDistance), nil
	case NameCurveBodyWarp:
		return NewCurveBodyWarp(curve), nil
	default:
		return nil, fmt.Errorf("unknown redirection technique %q", name)
	}
}

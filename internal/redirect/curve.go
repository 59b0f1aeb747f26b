package redirect

import (
	"fmt"
	"strings"

	"github.com/banshee-data/handwarp/internal/geom"
)

// Curve selects the response function a CurveBodyWarp maps warp progress
// through. The set is closed; Shift is not a response function but switches
// the session to moving the keypad instead of warping the hand, and
// evaluates to zero.
type Curve int

const (
	CurveNone Curve = iota
	CurveLinear
	CurveEaseIn
	CurveEaseOut
	CurveShift
)

var curveNames = [...]string{"none", "linear", "ease_in", "ease_out", "shift"}

// curveTable holds the closed-form evaluator for each curve, indexed by Curve.
var curveTable = [...]func(float64) float64{
	CurveNone:    constantZero,
	CurveLinear:  linear,
	CurveEaseIn:  easeInOut(0, 0, 2, 2),
	CurveEaseOut: easeInOut(-1, -1, 1, 1),
	CurveShift:   constantZero,
}

// AllCurves lists the curves in declaration order.
func AllCurves() []Curve {
	return []Curve{CurveNone, CurveLinear, CurveEaseIn, CurveEaseOut, CurveShift}
}

// Evaluate maps progress to a response value. Unknown curves evaluate to 0.
func (c Curve) Evaluate(progress float64) float64 {
	if c < 0 || int(c) >= len(curveTable) {
		return 0
	}
	return curveTable[c](progress)
}

func (c Curve) String() string {
	if c < 0 || int(c) >= len(curveNames) {
		return fmt.Sprintf("curve(%d)", int(c))
	}
	return curveNames[c]
}

// ParseCurve resolves a curve by name (case-insensitive).
func ParseCurve(s string) (Curve, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range curveNames {
		if n == name {
			return Curve(i), nil
		}
	}
	return CurveNone, fmt.Errorf("unknown curve %q", s)
}

func constantZero(float64) float64 { return 0 }

func linear(t float64) float64 { return geom.Clamp01(t) }

// easeInOut is a cubic Hermite segment with flat tangents between the keys
// (t0, v0) and (t1, v1). Outside the key range it holds the end values.
func easeInOut(t0, v0, t1, v1 float64) func(float64) float64 {
	return func(t float64) float64 {
		u := geom.Clamp01((t - t0) / (t1 - t0))
		s := u * u * (3 - 2*u)
		return v0 + (v1-v0)*s
	}
}

package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Vec is a position or displacement in metres, world frame.
type Vec = r3.Vec

// Zero is the null vector.
var Zero = Vec{}

// normEpsilon is the quaternion norm below which an orientation is treated
// as missing and replaced with the identity.
const normEpsilon = 1e-12

// Identity returns the identity rotation.
func Identity() quat.Number {
	return quat.Number{Real: 1}
}

// Pose is a tracked position plus a unit quaternion orientation.
type Pose struct {
	Position    Vec
	Orientation quat.Number
}

// NewPose builds a pose and normalises its orientation.
func NewPose(pos Vec, q quat.Number) Pose {
	return Pose{Position: pos, Orientation: NormalizeQuat(q)}
}

// At returns a pose at pos with identity orientation.
func At(x, y, z float64) Pose {
	return Pose{Position: Vec{X: x, Y: y, Z: z}, Orientation: Identity()}
}

// NormalizeQuat scales q to unit length. A zero (or non-finite) quaternion
// becomes the identity.
func NormalizeQuat(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n < normEpsilon || math.IsNaN(n) || math.IsInf(n, 0) {
		return Identity()
	}
	return quat.Scale(1/n, q)
}

// Normalized returns p with a unit orientation.
func (p Pose) Normalized() Pose {
	p.Orientation = NormalizeQuat(p.Orientation)
	return p
}

// Translate returns p moved by offset. Orientation is unchanged.
func (p Pose) Translate(offset Vec) Pose {
	p.Position = r3.Add(p.Position, offset)
	return p
}

// WithPosition returns p with its position replaced.
func (p Pose) WithPosition(pos Vec) Pose {
	p.Position = pos
	return p
}

func (p Pose) String() string {
	return fmt.Sprintf("(%.4f, %.4f, %.4f)", p.Position.X, p.Position.Y, p.Position.Z)
}

// Distance is the Euclidean distance between a and b.
func Distance(a, b Vec) float64 {
	return r3.Norm(r3.Sub(a, b))
}

// Magnitude is the Euclidean length of v.
func Magnitude(v Vec) float64 {
	return r3.Norm(v)
}

// Lerp interpolates from a to b with t clamped to [0, 1].
func Lerp(a, b Vec, t float64) Vec {
	return LerpUnclamped(a, b, Clamp01(t))
}

// LerpUnclamped interpolates from a to b without clamping t.
func LerpUnclamped(a, b Vec, t float64) Vec {
	return r3.Add(a, r3.Scale(t, r3.Sub(b, a)))
}

// ScaleAbout moves p away from centre by factor.
func ScaleAbout(p, centre Vec, factor float64) Vec {
	return r3.Add(centre, r3.Scale(factor, r3.Sub(p, centre)))
}

// Clamp01 restricts v to [0, 1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// PlanarDirection returns the unit vector in the XY plane at angle theta
// (radians) from +X.
func PlanarDirection(theta float64) Vec {
	return Vec{X: math.Cos(theta), Y: math.Sin(theta)}
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

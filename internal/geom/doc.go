// Package geom holds the value types shared by every redirection component:
// 3D vectors, unit quaternions and poses.
//
// Vectors are gonum r3.Vec values and orientations are gonum quat.Number
// values, so callers can use the r3 and quat helpers directly. Poses are
// passed by value; no function in this package mutates its arguments.
package geom

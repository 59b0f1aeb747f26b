package study

import (
	"math"
	"sort"

	"github.com/banshee-data/handwarp/internal/geom"
)

// DiagonalDistance is the third smallest distinct pairwise distance between
// buttons (rounded to 0.1 mm). On a square grid that is the diagonal of one
// cell, after zero and the pitch.
func DiagonalDistance(buttons []geom.Vec) float64 {
	seen := make(map[float64]struct{})
	var dists []float64
	for _, a := range buttons {
		for _, b := range buttons {
			d := math.Round(geom.Distance(a, b)*1e4) / 1e4
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			dists = append(dists, d)
		}
	}
	sort.Float64s(dists)
	if len(dists) < 3 {
		return 0
	}
	return dists[2]
}

// MaxDistance is the largest pairwise distance between buttons.
func MaxDistance(buttons []geom.Vec) float64 {
	var max float64
	for i, a := range buttons {
		for _, b := range buttons[i+1:] {
			if d := geom.Distance(a, b); d > max {
				max = d
			}
		}
	}
	return max
}

// KeypadScaleFactor is the factor that makes one keypad cell diagonal span
// the random vector radius tan(angle)·threshold. It is 0 for a non-positive
// angle or diagonal.
func KeypadScaleFactor(angleDeg, threshold, diagonal float64) float64 {
	if angleDeg <= 0 || diagonal <= 0 {
		return 0
	}
	return math.Tan(geom.DegToRad(angleDeg)) * threshold / diagonal
}

// ScaleButtons scales button positions about centre.
func ScaleButtons(buttons []geom.Vec, centre geom.Vec, factor float64) []geom.Vec {
	out := make([]geom.Vec, len(buttons))
	for i, b := range buttons {
		out[i] = geom.ScaleAbout(b, centre, factor)
	}
	return out
}

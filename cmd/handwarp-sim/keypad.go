package main

import (
	"fmt"

	"github.com/banshee-data/handwarp/internal/geom"
	"github.com/banshee-data/handwarp/internal/redirect"
)

// keypadLayout is the digit order of a phone-style 3x4 keypad, top row
// first. Target IDs equal the digit, so pool order is 0..9 followed by the
// two function keys.
var keypadLayout = [4][3]string{
	{"1", "2", "3"},
	{"4", "5", "6"},
	{"7", "8", "9"},
	{"*", "0", "#"},
}

// keypadPool builds one target per key around centre on the plane
// z = centre.Z. Each key is shown shifted by virtualShift, and a second
// correspondence mirrors the shift for random point selection.
func keypadPool(centre geom.Vec, spacing float64, virtualShift geom.Vec) (*redirect.Pool, []geom.Vec, error) {
	byName := make(map[string]geom.Vec)
	var buttons []geom.Vec
	for row, keys := range keypadLayout {
		for col, key := range keys {
			pos := geom.Vec{
				X: centre.X + float64(col-1)*spacing,
				Y: centre.Y + (1.5-float64(row))*spacing,
				Z: centre.Z,
			}
			byName[key] = pos
			buttons = append(buttons, pos)
		}
	}

	names := []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9", "*", "#"}
	targets := make([]*redirect.Target, 0, len(names))
	for _, name := range names {
		pos := byName[name]
		rp := geom.NewPose(pos, geom.Identity())
		t, err := redirect.NewTarget("key "+name,
			redirect.Correspondence{Real: rp, Virtual: rp.Translate(virtualShift)},
			redirect.Correspondence{Real: rp, Virtual: rp.Translate(geom.Vec{X: -virtualShift.X, Y: -virtualShift.Y, Z: virtualShift.Z})},
		)
		if err != nil {
			return nil, nil, fmt.Errorf("key %s: %w", name, err)
		}
		targets = append(targets, t)
	}
	pool, err := redirect.NewPool(targets...)
	if err != nil {
		return nil, nil, err
	}
	return pool, buttons, nil
}

package study

import (
	"fmt"

	"github.com/banshee-data/handwarp/internal/redirect"
)

// KeypadSize is the keypad scale of a condition, expressed as the maximum
// redirection angle the keypad spans.
type KeypadSize int

const (
	Small KeypadSize = iota
	Medium
	Large
)

var keypadSizeNames = [...]string{"small", "medium", "large"}

// keypadAngles are the maximum redirection angles in degrees.
var keypadAngles = [...]float64{4, 8, 16}

func (k KeypadSize) String() string {
	if k < 0 || int(k) >= len(keypadSizeNames) {
		return fmt.Sprintf("keypad(%d)", int(k))
	}
	return keypadSizeNames[k]
}

// AngleDeg returns the maximum redirection angle for the size, or 0.
func (k KeypadSize) AngleDeg() float64 {
	if k < 0 || int(k) >= len(keypadAngles) {
		return 0
	}
	return keypadAngles[k]
}

// Condition is one cell of the study design.
type Condition struct {
	Index    int
	Size     KeypadSize
	Curve    redirect.Curve
	Training bool
}

func (c Condition) String() string {
	s := fmt.Sprintf("%d:%s/%s", c.Index, c.Size, c.Curve)
	if c.Training {
		s += " (training)"
	}
	return s
}

// Selection returns the target selection used under the condition. Shift
// conditions do not select targets; they report Sequential.
func (c Condition) Selection() redirect.Selection {
	if c.Curve == redirect.CurveShift {
		return redirect.Sequential
	}
	return redirect.RandomVector
}

// Conditions enumerates every keypad size against every curve, followed by
// the training condition. It always returns Steps entries.
func Conditions() []Condition {
	sizes := []KeypadSize{Small, Medium, Large}
	curves := redirect.AllCurves()
	out := make([]Condition, 0, Steps)
	for _, size := range sizes {
		for _, curve := range curves {
			out = append(out, Condition{Index: len(out), Size: size, Curve: curve})
		}
	}
	out = append(out, Condition{Index: len(out), Size: Medium, Curve: redirect.CurveNone, Training: true})
	return out
}

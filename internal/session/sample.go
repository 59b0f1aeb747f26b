package session

import (
	"github.com/banshee-data/handwarp/internal/geom"
	"github.com/banshee-data/handwarp/internal/tracking"
	"gonum.org/v1/gonum/spatial/r3"
)

// TickSample derives the depth and press signals from a tracking sample and
// calls Tick. Depth is the keypad plane Z minus the real hand Z. A press is
// the virtual index fingertip of the active hand lying strictly inside the
// press window beyond the keypad plane; the pressed digit is the target
// nearest that fingertip.
func (s *Session) TickSample(smp tracking.Sample) (geom.Pose, error) {
	depth := s.keypad.Z - smp.RealHand.Position.Z

	offset := r3.Sub(s.lastVirtual.Position, s.lastReal.Position)
	tip := r3.Add(smp.IndexTip(s.hand), offset)

	press := NoPress
	if tip.Z > s.keypad.Z+s.cfg.PressNear && tip.Z < s.keypad.Z+s.cfg.PressFar {
		press = PressSignal{Pressed: true, Digit: s.pool.Nearest(tip)}
	}
	return s.Tick(smp.RealHand, smp.Head, smp.Body, depth, press)
}

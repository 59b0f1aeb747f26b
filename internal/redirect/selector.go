package redirect

import (
	"fmt"
	"math"
	"strings"

	"github.com/banshee-data/handwarp/internal/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// Selection is the policy used to pick the next target and its effective
// real position.
type Selection int

const (
	Sequential Selection = iota
	RandomPoint
	RandomVector
)

var selectionNames = [...]string{"sequential", "random_point", "random_vector"}

func (s Selection) String() string {
	if s < 0 || int(s) >= len(selectionNames) {
		return fmt.Sprintf("selection(%d)", int(s))
	}
	return selectionNames[s]
}

// ParseSelection resolves a selection policy by name (case-insensitive).
func ParseSelection(s string) (Selection, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range selectionNames {
		if n == name {
			return Selection(i), nil
		}
	}
	return Sequential, fmt.Errorf("unknown target selection %q", s)
}

// RandomSource is the subset of *math/rand.Rand the selector draws from.
type RandomSource interface {
	Intn(n int) int
	Float64() float64
}

// Selector picks targets from a pool.
type Selector struct {
	Mode Selection
	// MaxAngleDeg and Threshold bound the random vector offset:
	// |offset| = tan(MaxAngleDeg)·Threshold.
	MaxAngleDeg float64
	Threshold   float64
	// UseResetPosition interleaves each target's reset position in
	// sequential mode.
	UseResetPosition bool

	rng        RandomSource
	resumeFrom int
	inReset    bool
}

// NewSelector returns a selector drawing randomness from rng.
func NewSelector(mode Selection, rng RandomSource) *Selector {
	return &Selector{Mode: mode, rng: rng, resumeFrom: NoTarget}
}

// Select returns the next target after lastID and sets its effective
// correspondence for this activation.
func (s *Selector) Select(pool *Pool, lastID int) (*Target, error) {
	if pool.Len() == 0 {
		return nil, ErrEmptyPool
	}
	switch s.Mode {
	case RandomPoint:
		t := pool.Get(s.rng.Intn(pool.Len()))
		cs := t.correspondences
		i := s.rng.Intn(len(cs))
		t.activate(cs[i], i, r3.Sub(cs[i].Real.Position, t.initialPosition))
		return t, nil

	case RandomVector:
		t := pool.Get(s.rng.Intn(pool.Len()))
		offset := RandomVectorOffset(s.rng, s.MaxAngleDeg, s.Threshold)
		primary := t.Primary()
		c := Correspondence{
			Real:    primary.Real.WithPosition(r3.Add(t.initialPosition, offset)),
			Virtual: primary.Virtual,
		}
		t.activate(c, -1, offset)
		return t, nil

	default:
		return s.sequential(pool, lastID)
	}
}

func (s *Selector) sequential(pool *Pool, lastID int) (*Target, error) {
	if s.UseResetPosition && !s.inReset {
		if reset := pool.ResetFor(lastID); reset != nil {
			s.inReset = true
			s.resumeFrom = lastID
			reset.activate(reset.Primary(), 0, geom.Zero)
			return reset, nil
		}
	}

	from := lastID
	if s.inReset {
		from = s.resumeFrom
		s.inReset = false
	}

	t, err := pool.Next(from)
	if err != nil {
		return nil, err
	}
	if s.UseResetPosition {
		// Reset positions are never visited as regular targets.
		for i := 0; i < pool.Len() && t.IsResetPosition; i++ {
			t, _ = pool.Next(t.ID)
		}
	}
	t.activate(t.Primary(), 0, geom.Zero)
	return t, nil
}

// MaxOffset is the radius of the random vector offset for a redirection
// angle at a given reach depth.
func MaxOffset(maxAngleDeg, threshold float64) float64 {
	return math.Tan(geom.DegToRad(maxAngleDeg)) * threshold
}

// RandomVectorOffset returns a planar offset of length MaxOffset in a
// uniformly random direction.
func RandomVectorOffset(rng RandomSource, maxAngleDeg, threshold float64) geom.Vec {
	theta := rng.Float64() * 2 * math.Pi
	return r3.Scale(MaxOffset(maxAngleDeg, threshold), geom.PlanarDirection(theta))
}

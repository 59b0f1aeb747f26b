package redirect

import (
	"fmt"

	"github.com/banshee-data/handwarp/internal/geom"
)

// NoTarget is the ID used where no target is selected or referenced.
const NoTarget = -1

// Correspondence pairs a physical location with the virtual location it is
// presented as.
type Correspondence struct {
	Real    geom.Pose
	Virtual geom.Pose
}

// Target is a redirection target. The first correspondence is primary.
//
// The correspondences are configuration: they only move when the pool is
// rescaled with the keypad. The effective correspondence, marker offset and
// last offset are derived state, rewritten by the selector on every
// activation and read by the technique while the target is active.
type Target struct {
	ID   int
	Name string

	// Technique overrides the session default when non-nil.
	Technique Technique

	// ResetID is the pool ID of the target to visit before returning from
	// this one when reset positions are enabled, or NoTarget.
	ResetID int
	// IsResetPosition marks targets that are only visited as resets.
	IsResetPosition bool

	layout          []Correspondence // as constructed
	correspondences []Correspondence // layout at the current keypad scale
	initialPosition geom.Vec

	effective      Correspondence
	effectiveIndex int
	markerOffset   geom.Vec
	lastOffset     geom.Vec
}

// NewTarget builds a target from at least one correspondence. Orientations
// are normalised.
func NewTarget(name string, correspondences ...Correspondence) (*Target, error) {
	if len(correspondences) == 0 {
		return nil, fmt.Errorf("target %q: %w", name, ErrNoCorrespondences)
	}
	cs := make([]Correspondence, len(correspondences))
	for i, c := range correspondences {
		cs[i] = Correspondence{Real: c.Real.Normalized(), Virtual: c.Virtual.Normalized()}
	}
	return &Target{
		ID:              NoTarget,
		Name:            name,
		ResetID:         NoTarget,
		layout:          cs,
		correspondences: append([]Correspondence(nil), cs...),
		initialPosition: cs[0].Real.Position,
		effective:       cs[0],
	}, nil
}

// Correspondences returns a copy of the target's correspondences.
func (t *Target) Correspondences() []Correspondence {
	out := make([]Correspondence, len(t.correspondences))
	copy(out, t.correspondences)
	return out
}

// Primary returns the first correspondence.
func (t *Target) Primary() Correspondence { return t.correspondences[0] }

// Effective returns the correspondence used by the current activation.
func (t *Target) Effective() Correspondence { return t.effective }

// EffectiveIndex is the index of the chosen correspondence, or -1 when the
// effective real position was synthesised by a random vector.
func (t *Target) EffectiveIndex() int { return t.effectiveIndex }

func (t *Target) RealTargetPos() geom.Vec    { return t.effective.Real.Position }
func (t *Target) VirtualTargetPos() geom.Vec { return t.effective.Virtual.Position }

// InitialPosition is the primary real position at the current keypad
// scale.
func (t *Target) InitialPosition() geom.Vec { return t.initialPosition }

// MarkerOffset is the displacement of the effective real position from the
// initial position, as shown by a real-target marker.
func (t *Target) MarkerOffset() geom.Vec { return t.markerOffset }

// LastOffset is the most recent virtual-minus-real hand offset applied
// while this target was active.
func (t *Target) LastOffset() geom.Vec { return t.lastOffset }

// SetLastOffset records the offset applied on the latest tick.
func (t *Target) SetLastOffset(v geom.Vec) { t.lastOffset = v }

// TechniqueOr returns the target's own technique or def.
func (t *Target) TechniqueOr(def Technique) Technique {
	if t.Technique != nil {
		return t.Technique
	}
	return def
}

func (t *Target) activate(c Correspondence, index int, marker geom.Vec) {
	t.effective = c
	t.effectiveIndex = index
	t.markerOffset = marker
	t.lastOffset = geom.Zero
}

// place puts the correspondences at their constructed layout scaled about
// centre. Orientations are kept.
func (t *Target) place(centre geom.Vec, factor float64) {
	for i, c := range t.layout {
		c.Real.Position = geom.ScaleAbout(c.Real.Position, centre, factor)
		c.Virtual.Position = geom.ScaleAbout(c.Virtual.Position, centre, factor)
		t.correspondences[i] = c
	}
	t.initialPosition = t.correspondences[0].Real.Position
}

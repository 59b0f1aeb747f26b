package redirect

import (
	"fmt"
	"math"

	"github.com/banshee-data/handwarp/internal/geom"
)

// Pool is the ordered set of selectable targets. IDs are pool indices.
type Pool struct {
	targets []*Target
}

// NewPool assigns IDs in argument order and checks reset references.
func NewPool(targets ...*Target) (*Pool, error) {
	p := &Pool{targets: make([]*Target, 0, len(targets))}
	for i, t := range targets {
		if t == nil {
			return nil, fmt.Errorf("%w: target %d is nil", ErrConfiguration, i)
		}
		t.ID = i
		p.targets = append(p.targets, t)
	}
	for _, t := range p.targets {
		if t.ResetID != NoTarget && (t.ResetID < 0 || t.ResetID >= len(p.targets)) {
			return nil, fmt.Errorf("%w: target %q references reset position %d outside pool of %d",
				ErrConfiguration, t.Name, t.ResetID, len(p.targets))
		}
	}
	return p, nil
}

func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.targets)
}

// Get returns the target with id, or nil.
func (p *Pool) Get(id int) *Target {
	if id < 0 || id >= p.Len() {
		return nil
	}
	return p.targets[id]
}

// Targets returns the pool's targets in ID order.
func (p *Pool) Targets() []*Target {
	out := make([]*Target, p.Len())
	copy(out, p.targets)
	return out
}

// Next returns the target after lastID in pool order, wrapping around.
// With no previous target (NoTarget or an unknown ID) it returns the first.
func (p *Pool) Next(lastID int) (*Target, error) {
	n := p.Len()
	if n == 0 {
		return nil, ErrEmptyPool
	}
	if lastID < 0 || lastID >= n {
		return p.targets[0], nil
	}
	return p.targets[(lastID+1)%n], nil
}

// ResetFor returns the reset target registered for id, or nil.
func (p *Pool) ResetFor(id int) *Target {
	t := p.Get(id)
	if t == nil || t.ResetID == NoTarget {
		return nil
	}
	return p.Get(t.ResetID)
}

// Scale resizes the keypad the targets are mounted on: every real and
// virtual position is its constructed position scaled about centre by
// factor. The factor is absolute, so repeated calls do not compound. An
// active target keeps its effective correspondence until it is selected
// again.
func (p *Pool) Scale(centre geom.Vec, factor float64) {
	for _, t := range p.targets {
		t.place(centre, factor)
	}
}

// Nearest returns the ID of the target whose primary virtual position is
// closest to pos, or NoTarget for an empty pool.
func (p *Pool) Nearest(pos geom.Vec) int {
	best, bestDist := NoTarget, math.Inf(1)
	for _, t := range p.targets {
		if d := geom.Distance(pos, t.Primary().Virtual.Position); d < bestDist {
			best, bestDist = t.ID, d
		}
	}
	return best
}

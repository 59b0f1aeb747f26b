package tracking

import (
	"context"
	"io"
	"math/rand"
	"time"

	"github.com/banshee-data/handwarp/internal/geom"
)

// reachPhase is the stage of one synthetic reach cycle.
type reachPhase int

const (
	phaseRest reachPhase = iota
	phaseReach
	phaseHold
	phaseRetract
)

// SyntheticGenerator moves a hand between a rest pose and keypad buttons.
// Each cycle rests, reaches to the aim point pushed through the keypad
// plane by PressDepth, holds, and retracts. Output is a function of the
// seed and the aim callback only.
type SyntheticGenerator struct {
	// Configuration
	Rest        geom.Vec   // hand rest position
	Buttons     []geom.Vec // fallback aim points, chosen at random
	KeypadZ     float64    // keypad plane
	PressDepth  float64    // metres beyond the keypad plane at full reach
	FrameRate   float64    // frames per second
	RestTime    time.Duration
	ReachTime   time.Duration
	HoldTime    time.Duration
	JitterStd   float64 // metres, gaussian noise on the hand position
	MaxFrames   int     // 0 runs forever
	DominantTip Hand    // fingertip that follows the hand

	// Aim, when set, picks the aim point at the start of each reach.
	// Returning false falls back to a random button.
	Aim func() (geom.Vec, bool)

	Head  geom.Pose
	Body  geom.Pose
	Start time.Time // timestamp of frame 0

	frame   int
	phase   reachPhase
	phaseT  time.Duration
	from    geom.Vec
	to      geom.Vec
	current geom.Vec
	rng     *rand.Rand
}

// NewSyntheticGenerator returns a generator with a 1.5 s reach cycle at
// 90 Hz.
func NewSyntheticGenerator(seed int64, rest geom.Vec, buttons []geom.Vec, keypadZ float64) *SyntheticGenerator {
	return &SyntheticGenerator{
		Rest:       rest,
		Buttons:    buttons,
		KeypadZ:    keypadZ,
		PressDepth: 0.05,
		FrameRate:  90,
		RestTime:   400 * time.Millisecond,
		ReachTime:  600 * time.Millisecond,
		HoldTime:   150 * time.Millisecond,
		Head:       geom.NewPose(geom.Vec{Y: 0.35}, geom.Identity()),
		Body:       geom.NewPose(geom.Zero, geom.Identity()),
		Start:      time.Unix(0, 0).UTC(),
		current:    rest,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// Next returns the next sample, or io.EOF after MaxFrames.
func (g *SyntheticGenerator) Next(ctx context.Context) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	if g.MaxFrames > 0 && g.frame >= g.MaxFrames {
		return Sample{}, io.EOF
	}
	return g.NextSample(), nil
}

// NextSample advances one frame.
func (g *SyntheticGenerator) NextSample() Sample {
	dt := time.Duration(float64(time.Second) / g.FrameRate)
	ts := g.Start.Add(time.Duration(g.frame) * dt)
	g.frame++

	g.step(dt)

	pos := g.current
	if g.JitterStd > 0 {
		pos.X += g.rng.NormFloat64() * g.JitterStd
		pos.Y += g.rng.NormFloat64() * g.JitterStd
		pos.Z += g.rng.NormFloat64() * g.JitterStd
	}

	smp := Sample{
		Time:     ts,
		RealHand: geom.NewPose(pos, geom.Identity()),
		Head:     g.Head,
		Body:     g.Body,
	}
	if g.DominantTip == Left {
		smp.LeftIndexTip = pos
		smp.RightIndexTip = g.Rest
	} else {
		smp.RightIndexTip = pos
		smp.LeftIndexTip = g.Rest
	}
	return smp
}

func (g *SyntheticGenerator) step(dt time.Duration) {
	g.phaseT += dt
	switch g.phase {
	case phaseRest:
		g.current = g.Rest
		if g.phaseT >= g.RestTime {
			g.from = g.Rest
			g.to = g.aim()
			g.enter(phaseReach)
		}
	case phaseReach:
		g.current = geom.Lerp(g.from, g.to, smoothstep(g.phaseT, g.ReachTime))
		if g.phaseT >= g.ReachTime {
			g.enter(phaseHold)
		}
	case phaseHold:
		g.current = g.to
		if g.phaseT >= g.HoldTime {
			g.enter(phaseRetract)
		}
	case phaseRetract:
		g.current = geom.Lerp(g.to, g.Rest, smoothstep(g.phaseT, g.ReachTime))
		if g.phaseT >= g.ReachTime {
			g.enter(phaseRest)
		}
	}
}

func (g *SyntheticGenerator) enter(p reachPhase) {
	g.phase = p
	g.phaseT = 0
}

func (g *SyntheticGenerator) aim() geom.Vec {
	var target geom.Vec
	ok := false
	if g.Aim != nil {
		target, ok = g.Aim()
	}
	if !ok && len(g.Buttons) > 0 {
		target, ok = g.Buttons[g.rng.Intn(len(g.Buttons))], true
	}
	if !ok {
		target = g.Rest
	}
	target.Z = g.KeypadZ + g.PressDepth
	return target
}

func smoothstep(t, total time.Duration) float64 {
	if total <= 0 {
		return 1
	}
	u := geom.Clamp01(float64(t) / float64(total))
	return u * u * (3 - 2*u)
}

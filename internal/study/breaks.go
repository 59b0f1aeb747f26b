package study

import (
	"fmt"
	"time"

	"github.com/banshee-data/handwarp/internal/timeutil"
)

// BreakTimer measures a rest period on an injected clock.
type BreakTimer struct {
	clock    timeutil.Clock
	duration time.Duration
	started  time.Time
	active   bool
}

// NewBreakTimer returns an idle timer for breaks of length d.
func NewBreakTimer(clock timeutil.Clock, d time.Duration) *BreakTimer {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &BreakTimer{clock: clock, duration: d}
}

// Start begins a break. Starting an active break restarts it.
func (b *BreakTimer) Start() {
	b.started = b.clock.Now()
	b.active = true
}

func (b *BreakTimer) Stop()                   { b.active = false }
func (b *BreakTimer) Active() bool            { return b.active }
func (b *BreakTimer) Duration() time.Duration { return b.duration }

// Remaining is the time left in the active break, never negative.
func (b *BreakTimer) Remaining() time.Duration {
	if !b.active {
		return 0
	}
	left := b.duration - b.clock.Since(b.started)
	if left < 0 {
		return 0
	}
	return left
}

// Expired reports whether an active break has run its full length.
func (b *BreakTimer) Expired() bool {
	return b.active && b.clock.Since(b.started) >= b.duration
}

// FormatRemaining renders the countdown shown to the participant.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("Break\n%02d:%02d", secs/60, secs%60)
}

package main

import (
	"context"
	"log"
	"time"

	"github.com/banshee-data/handwarp/internal/geom"
	"github.com/banshee-data/handwarp/internal/redirect"
	"github.com/banshee-data/handwarp/internal/session"
	"github.com/banshee-data/handwarp/internal/timeutil"
	"github.com/banshee-data/handwarp/internal/tracking"
)

// runLoop feeds samples from src into s until the source ends, the study
// finishes or ctx is cancelled. clock follows the sample timestamps, and
// moves by step for samples without one. A positive interval paces the
// ticks. Questionnaires are answered immediately since the simulator has no
// participant. onTick, when set, runs after every tick.
func runLoop(ctx context.Context, s *session.Session, src tracking.Source, clock *timeutil.ManualClock, interval, step time.Duration, onTick func(*session.Session)) (int, error) {
	var pace <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		pace = ticker.C
	}

	frames := 0
	for {
		if pace != nil {
			select {
			case <-ctx.Done():
				return frames, ctx.Err()
			case <-pace:
			}
		}

		smp, err := src.Next(ctx)
		if tracking.IsEnd(err) {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}

		clock.Observe(smp.Time, step)
		if _, err := s.TickSample(smp); err != nil {
			return frames, err
		}
		frames++

		if s.QuestionnaireActive() {
			log.Printf("frame %d: questionnaire skipped", frames)
			s.QuestionnaireDone()
		}
		if onTick != nil {
			onTick(s)
		}
		if s.Finished() {
			return frames, nil
		}
	}
}

// aimAtNextDigit points synthetic reaches at the physical key of the next
// PIN digit.
func aimAtNextDigit(s *session.Session, pool *redirect.Pool) func() (geom.Vec, bool) {
	return func() (geom.Vec, bool) {
		pin := s.Pin()
		n := s.CurrentPinDigitCount()
		if n >= len(pin) {
			return geom.Vec{}, false
		}
		t := pool.Get(pin[n])
		if t == nil {
			return geom.Vec{}, false
		}
		return t.Primary().Real.Position, true
	}
}

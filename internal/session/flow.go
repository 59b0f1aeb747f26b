package session

import (
	"errors"
	"time"

	"github.com/banshee-data/handwarp/internal/monitoring"
	"github.com/banshee-data/handwarp/internal/redirect"
	"github.com/banshee-data/handwarp/internal/study"
	"github.com/google/uuid"
)

func (s *Session) generatePin(now time.Time) error {
	p, err := s.pins.GenerateNew(s.pool.Len(), s.cfg.PinLength, s.rng)
	if err != nil {
		return err
	}
	s.attemptID = uuid.New()
	s.attemptStart = now
	s.notify.PinGenerated(p)
	return nil
}

// checkPin closes a complete PIN: it validates the input, emits the attempt
// and draws the next PIN. In study mode it then runs the break and condition
// flow.
func (s *Session) checkPin(now time.Time) {
	if !s.pins.IsComplete() {
		return
	}
	ok, err := s.pins.Validate()
	if err != nil {
		monitoring.Warnf("session: validating pin: %v", err)
		return
	}

	rec := PinRecord{
		AttemptID:      s.attemptID,
		Start:          s.attemptStart,
		End:            now,
		Pin:            s.pins.Pin(),
		Input:          s.pins.Input(),
		Success:        ok,
		ConditionIndex: -1,
		Participant:    s.cfg.Participant,
	}
	if s.hasSetup {
		rec.ConditionIndex = s.setup.ConditionIndex
	}
	s.sink.RecordPin(rec)

	s.stats.PinsCompleted++
	if ok {
		s.stats.PinsCorrect++
	}

	if err := s.generatePin(now); err != nil {
		// The pool and length were validated in New.
		monitoring.Warnf("session: generating pin: %v", err)
	}

	if s.schedule != nil {
		s.studyFlow(now)
	}
}

func (s *Session) studyFlow(now time.Time) {
	n := s.stats.PinsCompleted
	if n%s.cfg.PinAttemptsBeforeBreak == 0 {
		s.startBreak()
	}
	if n%s.cfg.PinThreshold != 0 {
		return
	}

	if s.cfg.ShowQuestionnaire {
		completed := s.setup.ConditionIndex
		s.questionnaire = true
		s.DeactivateTarget()
		s.hand = s.cfg.DominantHand.Other()
		if setup, ok := s.advance(); ok {
			s.pendingSetup = &setup
		}
		s.notify.QuestionnaireRequested(completed)
		return
	}

	if setup, ok := s.advance(); ok {
		s.applySetup(setup, now)
	}
}

// advance steps the schedule. It finishes the study when the schedule is
// exhausted, unless a questionnaire is still open.
func (s *Session) advance() (study.Setup, bool) {
	setup, err := s.schedule.NextCondition()
	if errors.Is(err, study.ErrScheduleFinished) {
		if !s.questionnaire {
			s.finish()
		}
		return study.Setup{}, false
	}
	if err != nil {
		monitoring.Warnf("session: advancing schedule: %v", err)
		return study.Setup{}, false
	}
	return setup, true
}

func (s *Session) applySetup(setup study.Setup, now time.Time) {
	s.setup = setup
	s.hasSetup = true

	s.cfg.MaxRedirectionAngleDeg = setup.MaxAngleDeg
	s.selector.Mode = setup.Selection
	s.selector.MaxAngleDeg = setup.MaxAngleDeg
	s.shiftMode = setup.ShiftKeypad
	s.shiftPending = setup.ShiftKeypad
	if !setup.ShiftKeypad {
		s.setCurve(setup.Condition.Curve)
	}
	if s.shiftMode && s.target != nil {
		s.DeactivateTarget()
		s.lastTarget = s.target
		s.target = nil
	}

	s.keypadScale = study.KeypadScaleFactor(setup.MaxAngleDeg, s.cfg.Threshold, s.diagonal)
	s.scaleKeypad()
	s.resetKeypad()

	// A target picked on this retraction still carries the previous
	// condition's geometry; re-arm it before the hand reaches in.
	if s.targetSelected && !s.warpOriginSet {
		if s.shiftMode {
			s.shiftKeypad()
		} else if _, err := s.SelectNewTarget(); err != nil {
			monitoring.Warnf("session: reselecting target for new condition: %v", err)
		}
	}

	s.sink.RecordCondition(ConditionRecord{
		Time:           now,
		Participant:    setup.Participant,
		Step:           setup.Step,
		ConditionIndex: setup.ConditionIndex,
		KeypadSize:     setup.Condition.Size.String(),
		Curve:          setup.Condition.Curve.String(),
		MaxAngleDeg:    setup.MaxAngleDeg,
		KeypadScale:    s.keypadScale,
		KeypadSpan:     study.MaxDistance(s.buttons),
	})
	s.notify.ConditionChanged(setup)
	monitoring.Logf("session: participant %d step %d condition %s", setup.Participant, setup.Step, setup.Condition)
}

// setCurve applies a condition's retargeting curve to the default technique
// and to every target carrying its own curve technique.
func (s *Session) setCurve(c redirect.Curve) {
	if cw, ok := s.technique.(*redirect.CurveBodyWarp); ok {
		cw.Curve = c
	}
	for _, t := range s.pool.Targets() {
		if cw, ok := t.Technique.(*redirect.CurveBodyWarp); ok {
			cw.Curve = c
		}
	}
}

// scaleKeypad resizes the keypad about its initial centre so one cell
// diagonal spans the condition's random vector radius. The targets are
// mounted on the keypad and move with it.
func (s *Session) scaleKeypad() {
	if s.keypadScale <= 0 {
		return
	}
	s.pool.Scale(s.keypadInitial, s.keypadScale)
	s.buttons = study.ScaleButtons(s.buttonLayout, s.keypadInitial, s.keypadScale)
}

func (s *Session) startBreak() {
	s.DeactivateTarget()
	s.breakTimer.Start()
	s.stats.Breaks++
	s.notify.BreakStarted(s.breakTimer.Duration())
	monitoring.Logf("session: break started (%s)", s.breakTimer.Duration())
}

// inBreak reports whether a break is running, ending it once it expired.
func (s *Session) inBreak(now time.Time) bool {
	if s.breakTimer == nil || !s.breakTimer.Active() {
		return false
	}
	if !s.breakTimer.Expired() {
		return true
	}
	s.breakTimer.Stop()
	s.resetKeypad()
	s.notify.BreakEnded()
	s.attemptStart = now
	monitoring.Logf("session: break ended")
	return false
}

// BreakRemaining is the time left in the current break, or 0.
func (s *Session) BreakRemaining() time.Duration {
	if s.breakTimer == nil {
		return 0
	}
	return s.breakTimer.Remaining()
}

// InBreak reports whether a break is running.
func (s *Session) InBreak() bool {
	return s.breakTimer != nil && s.breakTimer.Active() && !s.breakTimer.Expired()
}

// QuestionnaireDone resumes the study after a questionnaire: it switches
// back to the dominant hand and applies the next condition, or finishes the
// study when none is left.
func (s *Session) QuestionnaireDone() {
	if !s.questionnaire {
		return
	}
	s.questionnaire = false
	s.hand = s.cfg.DominantHand

	now := s.clock.Now()
	s.attemptStart = now
	if s.pendingSetup != nil {
		setup := *s.pendingSetup
		s.pendingSetup = nil
		s.applySetup(setup, now)
		return
	}
	s.resetKeypad()
	if s.schedule != nil && s.schedule.Finished() {
		s.finish()
	}
}

func (s *Session) finish() {
	if s.finished {
		return
	}
	s.finished = true
	s.DeactivateTarget()
	s.notify.StudyFinished()
	monitoring.Logf("session: study finished after %d pins", s.stats.PinsCompleted)
}

// SwitchToWeakHand makes the non-dominant hand drive press detection.
func (s *Session) SwitchToWeakHand() { s.hand = s.cfg.DominantHand.Other() }

// SwitchToDominantHand makes the dominant hand drive press detection.
func (s *Session) SwitchToDominantHand() { s.hand = s.cfg.DominantHand }

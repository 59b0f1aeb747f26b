package main

import (
	"log"
	"strings"
	"time"

	"github.com/banshee-data/handwarp/internal/geom"
	"github.com/banshee-data/handwarp/internal/session"
	"github.com/banshee-data/handwarp/internal/study"
)

// logNotifier prints participant-facing events to the log.
type logNotifier struct {
	verbose bool
}

func (n logNotifier) Prompt(retracted bool) {
	if n.verbose {
		log.Printf("prompt: %s", session.PromptText(retracted))
	}
}

func (n logNotifier) ConditionChanged(s study.Setup) {
	log.Printf("condition: participant=%d step=%d %s max_angle=%g", s.Participant, s.Step, s.Condition, s.MaxAngleDeg)
}

func (n logNotifier) KeypadMoved(p geom.Vec) {
	log.Printf("keypad moved to (%.3f, %.3f, %.3f)", p.X, p.Y, p.Z)
}

func (n logNotifier) PinGenerated(pin []int) {
	if n.verbose {
		log.Printf("new pin %v", pin)
	}
}

func (n logNotifier) BreakStarted(d time.Duration) {
	log.Printf("%s", strings.ReplaceAll(study.FormatRemaining(d), "\n", " "))
}

func (n logNotifier) BreakEnded() { log.Printf("break ended") }

func (n logNotifier) QuestionnaireRequested(condition int) {
	log.Printf("questionnaire requested for condition %d", condition)
}

func (n logNotifier) StudyFinished() { log.Printf("study finished") }

package session

import (
	"time"

	"github.com/banshee-data/handwarp/internal/geom"
	"github.com/banshee-data/handwarp/internal/study"
)

// Prompt texts shown on the keypad.
const (
	PromptEnterPasscode = "Enter Passcode"
	PromptRetractHand   = "Retract Hand fully"
)

// PromptText returns the keypad prompt for the retraction state.
func PromptText(retracted bool) string {
	if retracted {
		return PromptEnterPasscode
	}
	return PromptRetractHand
}

// Notifier is the write-only UI layer. Calls are made on the tick goroutine
// and must not block.
type Notifier interface {
	Prompt(retracted bool)
	ConditionChanged(setup study.Setup)
	KeypadMoved(position geom.Vec)
	PinGenerated(pin []int)
	BreakStarted(d time.Duration)
	BreakEnded()
	QuestionnaireRequested(conditionIndex int)
	StudyFinished()
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) Prompt(bool)                  {}
func (NopNotifier) ConditionChanged(study.Setup) {}
func (NopNotifier) KeypadMoved(geom.Vec)         {}
func (NopNotifier) PinGenerated([]int)           {}
func (NopNotifier) BreakStarted(time.Duration)   {}
func (NopNotifier) BreakEnded()                  {}
func (NopNotifier) QuestionnaireRequested(int)   {}
func (NopNotifier) StudyFinished()               {}

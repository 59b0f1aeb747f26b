package session

import (
	"time"

	"github.com/banshee-data/handwarp/internal/config"
	"github.com/banshee-data/handwarp/internal/redirect"
	"github.com/banshee-data/handwarp/internal/tracking"
)

// Config holds the session parameters.
type Config struct {
	// Technique params
	Technique        string             // default technique name
	Curve            redirect.Curve     // curve of a curve_body_warp default technique
	ZeroWarpDistance float64            // zero-warp zone radius around the body (metres)
	Selection        redirect.Selection // target selection outside study mode

	// Reach geometry, metres from the keypad plane
	Threshold              float64 // retract plane distance
	PressNear              float64 // press window start beyond the keypad plane
	PressFar               float64 // press window end beyond the keypad plane
	MaxRedirectionAngleDeg float64
	UseResetPosition       bool

	// PIN task
	PinLength              int
	PinThreshold           int // completed PINs per condition
	PinAttemptsBeforeBreak int
	BreakDuration          time.Duration

	// Study
	StudyMode         bool
	Participant       int
	StartStep         int
	ShowQuestionnaire bool
	DominantHand      tracking.Hand
}

// DefaultConfig returns the session configuration built from the canonical
// defaults file. Panics if the file cannot be found, intended for tests.
func DefaultConfig() Config {
	cfg, err := ConfigFromRedirection(config.MustLoadDefaultConfig())
	if err != nil {
		panic(err)
	}
	return cfg
}

// ConfigFromRedirection builds a Config from a loaded RedirectionConfig.
func ConfigFromRedirection(cfg *config.RedirectionConfig) (Config, error) {
	curve, err := redirect.ParseCurve(cfg.GetCurve())
	if err != nil {
		return Config{}, wrapConfigError("curve", err)
	}
	sel, err := redirect.ParseSelection(cfg.GetSelection())
	if err != nil {
		return Config{}, wrapConfigError("selection", err)
	}
	hand, err := tracking.ParseHand(cfg.GetDominantHand())
	if err != nil {
		return Config{}, wrapConfigError("dominant hand", err)
	}
	return Config{
		Technique:              cfg.GetTechnique(),
		Curve:                  curve,
		ZeroWarpDistance:       cfg.GetZeroWarpDistance(),
		Selection:              sel,
		Threshold:              cfg.GetThreshold(),
		PressNear:              cfg.GetPressNear(),
		PressFar:               cfg.GetPressFar(),
		MaxRedirectionAngleDeg: cfg.GetMaxRedirectionAngleDeg(),
		UseResetPosition:       cfg.GetUseResetPosition(),
		PinLength:              cfg.GetPinLength(),
		PinThreshold:           cfg.GetPinThreshold(),
		PinAttemptsBeforeBreak: cfg.GetPinAttemptsBeforeBreak(),
		BreakDuration:          cfg.GetBreakDuration(),
		StudyMode:              cfg.GetStudyMode(),
		Participant:            cfg.GetParticipant(),
		StartStep:              cfg.GetStartStep(),
		ShowQuestionnaire:      cfg.GetShowQuestionnaire(),
		DominantHand:           hand,
	}, nil
}

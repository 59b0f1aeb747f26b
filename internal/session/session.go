package session

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/banshee-data/handwarp/internal/geom"
	"github.com/banshee-data/handwarp/internal/monitoring"
	"github.com/banshee-data/handwarp/internal/pin"
	"github.com/banshee-data/handwarp/internal/redirect"
	"github.com/banshee-data/handwarp/internal/study"
	"github.com/banshee-data/handwarp/internal/timeutil"
	"github.com/banshee-data/handwarp/internal/tracking"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
)

// PressSignal reports a keypad press on this tick. Digit is the pressed
// target index; a negative Digit resolves to the target nearest the virtual
// hand.
type PressSignal struct {
	Pressed bool
	Digit   int
}

// NoPress is the press signal of a tick without a press.
var NoPress = PressSignal{Digit: -1}

// Options wires a Session to its collaborators.
type Options struct {
	// Pool holds the keypad targets; one target per digit.
	Pool *redirect.Pool
	// Keypad is the initial keypad centre. Its Z is the keypad plane.
	Keypad geom.Vec
	// Buttons are the button positions used to scale the keypad per
	// condition. Optional.
	Buttons []geom.Vec
	// Technique overrides the technique named in Config.
	Technique redirect.Technique
	// Rand defaults to a source seeded with 1.
	Rand     *rand.Rand
	Clock    timeutil.Clock
	Sink     Sink
	Notifier Notifier
}

// Session is the redirection state machine. See the package documentation
// for the tick order.
type Session struct {
	cfg      Config
	pool     *redirect.Pool
	selector *redirect.Selector
	rng      *rand.Rand
	clock    timeutil.Clock
	sink     Sink
	notify   Notifier

	technique redirect.Technique // default
	active    redirect.Technique // technique of the current target

	pins       *pin.Generator
	schedule   *study.Schedule
	breakTimer *study.BreakTimer

	target     *redirect.Target
	lastTarget *redirect.Target
	warpOrigin geom.Pose

	targetSelected    bool
	warpOriginSet     bool
	redirectionActive bool
	handBehindKeypad  bool

	shiftMode    bool
	shiftPending bool

	keypadInitial geom.Vec
	keypad        geom.Vec
	keypadScale   float64
	diagonal      float64
	buttonLayout  []geom.Vec
	buttons       []geom.Vec

	setup         study.Setup
	hasSetup      bool
	pendingSetup  *study.Setup
	questionnaire bool
	finished      bool
	hand          tracking.Hand

	attemptID    uuid.UUID
	attemptStart time.Time

	lastReal    geom.Pose
	lastVirtual geom.Pose
	lastBody    geom.Pose
	warnedDegen bool
	aborted     error
	stats       Stats
}

// New validates cfg, builds the technique, PIN generator and schedule, and
// draws the first PIN. Configuration problems are returned as errors
// wrapping redirect.ErrConfiguration.
func New(cfg Config, opts Options) (*Session, error) {
	if opts.Pool.Len() == 0 {
		return nil, redirect.ErrEmptyPool
	}
	if cfg.PinThreshold < 1 {
		return nil, configError("pin threshold must be at least 1, got %d", cfg.PinThreshold)
	}
	if cfg.PinAttemptsBeforeBreak < 1 {
		return nil, configError("pin attempts before break must be at least 1, got %d", cfg.PinAttemptsBeforeBreak)
	}

	tech := opts.Technique
	if tech == nil {
		var err error
		tech, err = redirect.NewTechnique(cfg.Technique, cfg.ZeroWarpDistance, cfg.Curve)
		if err != nil {
			return nil, wrapConfigError("technique", err)
		}
	}
	if _, ok := tech.(*redirect.CurveBodyWarp); ok && cfg.Threshold <= 0 {
		return nil, fmt.Errorf("threshold %v: %w", cfg.Threshold, redirect.ErrZeroWarpPath)
	}

	gen, err := pin.NewGenerator(cfg.PinLength)
	if err != nil {
		return nil, wrapConfigError("pin generator", err)
	}

	s := &Session{
		cfg:           cfg,
		pool:          opts.Pool,
		rng:           opts.Rand,
		clock:         opts.Clock,
		sink:          opts.Sink,
		notify:        opts.Notifier,
		technique:     tech,
		pins:          gen,
		keypadInitial: opts.Keypad,
		keypad:        opts.Keypad,
		diagonal:      study.DiagonalDistance(opts.Buttons),
		buttonLayout:  append([]geom.Vec(nil), opts.Buttons...),
		buttons:       append([]geom.Vec(nil), opts.Buttons...),
		hand:          cfg.DominantHand,
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(1))
	}
	if s.clock == nil {
		s.clock = timeutil.RealClock{}
	}
	if s.sink == nil {
		s.sink = NopSink{}
	}
	if s.notify == nil {
		s.notify = NopNotifier{}
	}

	s.selector = redirect.NewSelector(cfg.Selection, s.rng)
	s.selector.MaxAngleDeg = cfg.MaxRedirectionAngleDeg
	s.selector.Threshold = cfg.Threshold
	s.selector.UseResetPosition = cfg.UseResetPosition

	now := s.clock.Now()
	if err := s.generatePin(now); err != nil {
		return nil, wrapConfigError("pin generator", err)
	}

	if cfg.StudyMode {
		if _, ok := tech.(*redirect.CurveBodyWarp); !ok {
			monitoring.Warnf("session: %s has no retargeting curve, study conditions only vary angle, keypad and selection", tech.Name())
		}
		s.schedule, err = study.NewSchedule(cfg.Participant, cfg.StartStep)
		if err != nil {
			return nil, wrapConfigError("schedule", err)
		}
		s.breakTimer = study.NewBreakTimer(s.clock, cfg.BreakDuration)
		setup, err := s.schedule.SetupCondition()
		switch {
		case errors.Is(err, study.ErrScheduleFinished):
			s.finish()
		case err != nil:
			return nil, wrapConfigError("schedule", err)
		default:
			s.applySetup(setup, now)
		}
	} else {
		s.shiftMode = cfg.Curve == redirect.CurveShift
		s.shiftPending = s.shiftMode
		s.keypadScale = study.KeypadScaleFactor(cfg.MaxRedirectionAngleDeg, cfg.Threshold, s.diagonal)
	}

	s.notify.Prompt(false)
	return s, nil
}

// Tick advances the state machine by one frame and returns the virtual hand
// pose. depth is the real hand's distance in front of the keypad plane.
// After a configuration error the session is aborted: the real hand is
// passed through and every Tick returns an error wrapping ErrSessionAborted.
func (s *Session) Tick(realHand, head, body geom.Pose, depth float64, press PressSignal) (geom.Pose, error) {
	realHand = realHand.Normalized()
	if s.aborted != nil {
		return realHand, fmt.Errorf("%w: %w", ErrSessionAborted, s.aborted)
	}

	s.stats.Frames++
	now := s.clock.Now()
	s.lastReal = realHand
	s.lastBody = body

	if s.finished || s.questionnaire || s.inBreak(now) {
		s.lastVirtual = realHand
		return realHand, nil
	}

	if !s.targetSelected && depth > s.cfg.Threshold {
		if err := s.onRetracted(now); err != nil {
			s.abort(err)
			s.lastVirtual = realHand
			return realHand, err
		}
	} else if s.targetSelected && depth < s.cfg.Threshold && !s.warpOriginSet {
		s.warpOrigin = realHand
		s.warpOriginSet = true
		if s.redirectionEnabled() && s.target != nil {
			s.redirectionActive = true
		}
	}

	// A PIN completed above may have started a break or finished the study.
	if press.Pressed && !s.handBehindKeypad && !s.finished && !s.questionnaire && !s.inBreak(now) {
		s.onPress(press)
	}

	virtual := realHand
	if s.redirectionActive && s.target != nil {
		virtual = s.apply(realHand, body)
	}
	s.lastVirtual = virtual

	if !s.finished && !s.questionnaire && !s.inBreak(now) {
		s.recordTick(now, realHand, virtual, head, body, depth)
	}
	return virtual, nil
}

func (s *Session) onRetracted(now time.Time) error {
	if s.redirectionEnabled() {
		if _, err := s.SelectNewTarget(); err != nil {
			return err
		}
		s.redirectionActive = false
	} else if s.shiftPending {
		s.shiftKeypad()
	}

	s.notify.Prompt(true)
	s.targetSelected = true
	s.handBehindKeypad = false
	s.warpOriginSet = false

	s.checkPin(now)
	return nil
}

func (s *Session) onPress(press PressSignal) {
	s.handBehindKeypad = true
	s.notify.Prompt(false)
	s.shiftPending = false
	s.DeactivateTarget()

	digit := press.Digit
	if digit < 0 {
		digit = s.pool.Nearest(s.lastVirtual.Position)
	}
	if !s.pins.RecordDigit(digit) {
		s.stats.InputOverflows++
		monitoring.Warnf("session: dropped digit %d, pin input already has %d digits", digit, s.pins.InputCount())
	}
}

func (s *Session) apply(realHand, body geom.Pose) geom.Pose {
	virtual := s.active.ApplyRedirection(realHand, &s.warpOrigin, s.target, body)
	if d, ok := s.active.(redirect.DegenerateReporter); ok && d.Degenerate() {
		s.stats.DegenerateTicks++
		if !s.warnedDegen {
			s.warnedDegen = true
			monitoring.Warnf("session: degenerate warp geometry for target %d (%s), using fallback", s.target.ID, s.active.Name())
		}
	}
	s.target.SetLastOffset(r3.Sub(virtual.Position, realHand.Position))
	return virtual
}

// SelectNewTarget ends the current target's redirection, picks the next
// target with the configured selection policy and initialises its technique.
func (s *Session) SelectNewTarget() (*redirect.Target, error) {
	if s.target != nil {
		s.active.EndRedirection()
		s.lastTarget = s.target
	}
	lastID := redirect.NoTarget
	if s.lastTarget != nil {
		lastID = s.lastTarget.ID
	}

	t, err := s.selector.Select(s.pool, lastID)
	if err != nil {
		return nil, err
	}
	s.target = t
	s.active = t.TechniqueOr(s.technique)
	s.active.Init(t, s.lastBody, s.warpOrigin, s.lastReal)
	s.warnedDegen = false
	s.stats.TargetsSelected++
	return t, nil
}

// DeactivateTarget ends the active redirection and clears the target flags.
// It is a no-op when nothing is active.
func (s *Session) DeactivateTarget() {
	s.EndRedirection()
	s.targetSelected = false
	s.warpOriginSet = false
}

// EndRedirection stops applying the active technique. It is idempotent.
func (s *Session) EndRedirection() {
	if s.target != nil && s.active != nil && (s.redirectionActive || s.targetSelected) {
		s.active.EndRedirection()
	}
	s.redirectionActive = false
}

func (s *Session) redirectionEnabled() bool {
	return !s.shiftMode && !s.questionnaire
}

func (s *Session) shiftKeypad() {
	offset := redirect.RandomVectorOffset(s.rng, s.cfg.MaxRedirectionAngleDeg, s.cfg.Threshold)
	s.shiftPending = false
	s.keypad = r3.Add(s.keypadInitial, offset)
	s.stats.KeypadShifts++
	s.notify.KeypadMoved(s.keypad)
}

func (s *Session) resetKeypad() {
	if s.keypad != s.keypadInitial {
		s.keypad = s.keypadInitial
		s.notify.KeypadMoved(s.keypad)
	}
}

func (s *Session) abort(err error) {
	s.aborted = err
	s.DeactivateTarget()
	monitoring.Logf("session: aborted: %v", err)
}

func (s *Session) recordTick(now time.Time, real, virtual, head, body geom.Pose, depth float64) {
	offset := r3.Sub(virtual.Position, real.Position)
	rec := TickRecord{
		Frame:           s.stats.Frames,
		Time:            now,
		RealHand:        real,
		VirtualHand:     virtual,
		Head:            head,
		Body:            body,
		Depth:           depth,
		TargetID:        redirect.NoTarget,
		Technique:       s.technique.Name(),
		Offset:          offset,
		OffsetMagnitude: r3.Norm(offset),
		TargetDigit:     -1,
		LastInput:       -1,
		ConditionIndex:  -1,
		Participant:     s.cfg.Participant,
		Redirecting:     s.redirectionActive,
	}
	if t := s.ActiveTarget(); t != nil {
		rec.TargetID = t.ID
		rec.Technique = s.active.Name()
	}
	if d, ok := s.pins.NextDigit(); ok {
		rec.TargetDigit = d
	}
	if d, ok := s.pins.LastInput(); ok {
		rec.LastInput = d
	}
	if s.hasSetup {
		rec.ConditionIndex = s.setup.ConditionIndex
	}
	s.sink.RecordTick(rec)
}

// ActiveTarget returns the selected target, or nil.
func (s *Session) ActiveTarget() *redirect.Target {
	if !s.targetSelected {
		return nil
	}
	return s.target
}

// IsRedirecting reports whether the technique is applied on this tick.
func (s *Session) IsRedirecting() bool { return s.redirectionActive }

// CurrentPinDigitCount is the number of digits entered for the current PIN.
func (s *Session) CurrentPinDigitCount() int { return s.pins.InputCount() }

// Pin returns a copy of the current PIN.
func (s *Session) Pin() []int { return s.pins.Pin() }

// WarpOrigin returns the warp origin and whether it is anchored.
func (s *Session) WarpOrigin() (geom.Pose, bool) { return s.warpOrigin, s.warpOriginSet }

// Keypad returns the current keypad centre.
func (s *Session) Keypad() geom.Vec { return s.keypad }

// KeypadScale is the scale factor of the keypad under the current
// condition, or 0 when no buttons were configured.
func (s *Session) KeypadScale() float64 { return s.keypadScale }

// Buttons returns the button positions at the current keypad scale.
func (s *Session) Buttons() []geom.Vec { return append([]geom.Vec(nil), s.buttons...) }

// Setup returns the applied study setup.
func (s *Session) Setup() (study.Setup, bool) { return s.setup, s.hasSetup }

// Hand returns the hand currently driving press detection.
func (s *Session) Hand() tracking.Hand { return s.hand }

func (s *Session) Finished() bool            { return s.finished }
func (s *Session) QuestionnaireActive() bool { return s.questionnaire }
func (s *Session) Stats() Stats              { return s.stats }

// Err returns the configuration error that aborted the session, or nil.
func (s *Session) Err() error { return s.aborted }

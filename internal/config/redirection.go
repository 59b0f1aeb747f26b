package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultConfigPath is the path to the canonical redirection defaults file.
const DefaultConfigPath = "config/redirect.defaults.json"

// RedirectionConfig is the run configuration of the redirection engine and
// the study around it. Nil fields fall back to the defaults returned by the
// Get* accessors, so partial files are safe.
type RedirectionConfig struct {
	// Technique params
	Technique        *string  `json:"technique,omitempty"` // "body_warp_zero_zone" or "curve_body_warp"
	Selection        *string  `json:"selection,omitempty"` // "sequential", "random_point" or "random_vector"
	Curve            *string  `json:"curve,omitempty"`
	ZeroWarpDistance *float64 `json:"zero_warp_distance,omitempty"`

	// Reach geometry, metres from the keypad plane
	Threshold              *float64 `json:"threshold,omitempty"`
	PressNear              *float64 `json:"press_near,omitempty"`
	PressFar               *float64 `json:"press_far,omitempty"`
	MaxRedirectionAngleDeg *float64 `json:"max_redirection_angle_deg,omitempty"`
	UseResetPosition       *bool    `json:"use_reset_position,omitempty"`

	// PIN task
	PinLength              *int    `json:"pin_length,omitempty"`
	PinThreshold           *int    `json:"pin_threshold,omitempty"`
	PinAttemptsBeforeBreak *int    `json:"pin_attempts_before_break,omitempty"`
	BreakDuration          *string `json:"break_duration,omitempty"` // duration string like "30s"

	// Study
	Participant       *int    `json:"participant,omitempty"`
	StartStep         *int    `json:"start_step,omitempty"`
	StudyMode         *bool   `json:"study_mode,omitempty"`
	ShowQuestionnaire *bool   `json:"show_questionnaire,omitempty"`
	DominantHand      *string `json:"dominant_hand,omitempty"`

	// Runtime
	TickRate        *float64 `json:"tick_rate,omitempty"` // Hz
	RecordQueueSize *int     `json:"record_queue_size,omitempty"`
	Seed            *int64   `json:"seed,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }

// EmptyRedirectionConfig returns a config with every field nil.
func EmptyRedirectionConfig() *RedirectionConfig {
	return &RedirectionConfig{}
}

// DefaultRedirectionConfig returns the values of the canonical defaults
// file with every field set.
func DefaultRedirectionConfig() *RedirectionConfig {
	return &RedirectionConfig{
		Technique:              ptrString("curve_body_warp"),
		Selection:              ptrString("random_vector"),
		Curve:                  ptrString("linear"),
		ZeroWarpDistance:       ptrFloat64(0),
		Threshold:              ptrFloat64(0.2),
		PressNear:              ptrFloat64(0.02),
		PressFar:               ptrFloat64(0.1),
		MaxRedirectionAngleDeg: ptrFloat64(10),
		UseResetPosition:       ptrBool(false),
		PinLength:              ptrInt(4),
		PinThreshold:           ptrInt(1),
		PinAttemptsBeforeBreak: ptrInt(20),
		BreakDuration:          ptrString("30s"),
		Participant:            ptrInt(0),
		StartStep:              ptrInt(0),
		StudyMode:              ptrBool(true),
		ShowQuestionnaire:      ptrBool(false),
		DominantHand:           ptrString("right"),
		TickRate:               ptrFloat64(90),
		RecordQueueSize:        ptrInt(4096),
		Seed:                   ptrInt64(1),
	}
}

// LoadRedirectionConfig loads a RedirectionConfig from a JSON file.
// The file must have a .json extension and be at most 1MB.
func LoadRedirectionConfig(path string) (*RedirectionConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyRedirectionConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching upwards from the
// working directory. Panics if the file cannot be loaded, intended for test
// setup.
func MustLoadDefaultConfig() *RedirectionConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/<pkg>/
		"../../../" + DefaultConfigPath, // from cmd/<bin>/ subpackages
	}
	for _, path := range candidates {
		if cfg, err := LoadRedirectionConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

var (
	validTechniques = []string{"body_warp_zero_zone", "curve_body_warp"}
	validSelections = []string{"sequential", "random_point", "random_vector"}
	validCurves     = []string{"none", "linear", "ease_in", "ease_out", "shift"}
	validHands      = []string{"left", "right"}
)

func oneOf(field, v string, allowed []string) error {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", field, strings.Join(allowed, ", "), v)
}

// Validate checks the values that are set.
func (c *RedirectionConfig) Validate() error {
	if c.Technique != nil {
		if err := oneOf("technique", *c.Technique, validTechniques); err != nil {
			return err
		}
	}
	if c.Selection != nil {
		if err := oneOf("selection", *c.Selection, validSelections); err != nil {
			return err
		}
	}
	if c.Curve != nil {
		if err := oneOf("curve", *c.Curve, validCurves); err != nil {
			return err
		}
	}
	if c.DominantHand != nil {
		if err := oneOf("dominant_hand", *c.DominantHand, validHands); err != nil {
			return err
		}
	}

	if c.ZeroWarpDistance != nil && *c.ZeroWarpDistance < 0 {
		return fmt.Errorf("zero_warp_distance must be non-negative, got %f", *c.ZeroWarpDistance)
	}
	if c.Threshold != nil && *c.Threshold < 0 {
		return fmt.Errorf("threshold must be non-negative, got %f", *c.Threshold)
	}
	if near, far := c.GetPressNear(), c.GetPressFar(); near >= far {
		return fmt.Errorf("press_near (%f) must be less than press_far (%f)", near, far)
	}
	if c.MaxRedirectionAngleDeg != nil {
		if a := *c.MaxRedirectionAngleDeg; a < 0 || a >= 90 {
			return fmt.Errorf("max_redirection_angle_deg must be in [0, 90), got %f", a)
		}
	}

	if c.PinLength != nil && *c.PinLength < 1 {
		return fmt.Errorf("pin_length must be at least 1, got %d", *c.PinLength)
	}
	if c.PinThreshold != nil && *c.PinThreshold < 1 {
		return fmt.Errorf("pin_threshold must be at least 1, got %d", *c.PinThreshold)
	}
	if c.PinAttemptsBeforeBreak != nil && *c.PinAttemptsBeforeBreak < 1 {
		return fmt.Errorf("pin_attempts_before_break must be at least 1, got %d", *c.PinAttemptsBeforeBreak)
	}
	if c.BreakDuration != nil && *c.BreakDuration != "" {
		if _, err := time.ParseDuration(*c.BreakDuration); err != nil {
			return fmt.Errorf("invalid break_duration '%s': %w", *c.BreakDuration, err)
		}
	}

	if c.Participant != nil && (*c.Participant < 0 || *c.Participant >= 30) {
		return fmt.Errorf("participant must be in [0, 30), got %d", *c.Participant)
	}
	if c.StartStep != nil && (*c.StartStep < 0 || *c.StartStep > 16) {
		return fmt.Errorf("start_step must be in [0, 16], got %d", *c.StartStep)
	}

	if c.TickRate != nil && *c.TickRate <= 0 {
		return fmt.Errorf("tick_rate must be positive, got %f", *c.TickRate)
	}
	if c.RecordQueueSize != nil && *c.RecordQueueSize < 1 {
		return fmt.Errorf("record_queue_size must be at least 1, got %d", *c.RecordQueueSize)
	}

	return nil
}

// GetTechnique returns the technique name or the default.
func (c *RedirectionConfig) GetTechnique() string {
	if c.Technique == nil {
		return "curve_body_warp"
	}
	return strings.ToLower(*c.Technique)
}

// GetSelection returns the selection policy name or the default.
func (c *RedirectionConfig) GetSelection() string {
	if c.Selection == nil {
		return "random_vector"
	}
	return strings.ToLower(*c.Selection)
}

// GetCurve returns the curve name or the default.
func (c *RedirectionConfig) GetCurve() string {
	if c.Curve == nil {
		return "linear"
	}
	return strings.ToLower(*c.Curve)
}

func (c *RedirectionConfig) GetZeroWarpDistance() float64 {
	if c.ZeroWarpDistance == nil {
		return 0
	}
	return *c.ZeroWarpDistance
}

// GetThreshold returns the retract plane distance or the default.
func (c *RedirectionConfig) GetThreshold() float64 {
	if c.Threshold == nil {
		return 0.2
	}
	return *c.Threshold
}

func (c *RedirectionConfig) GetPressNear() float64 {
	if c.PressNear == nil {
		return 0.02
	}
	return *c.PressNear
}

func (c *RedirectionConfig) GetPressFar() float64 {
	if c.PressFar == nil {
		return 0.1
	}
	return *c.PressFar
}

// GetMaxRedirectionAngleDeg returns the maximum redirection angle or the default.
func (c *RedirectionConfig) GetMaxRedirectionAngleDeg() float64 {
	if c.MaxRedirectionAngleDeg == nil {
		return 10
	}
	return *c.MaxRedirectionAngleDeg
}

func (c *RedirectionConfig) GetUseResetPosition() bool {
	if c.UseResetPosition == nil {
		return false
	}
	return *c.UseResetPosition
}

// GetPinLength returns the PIN length or the default.
func (c *RedirectionConfig) GetPinLength() int {
	if c.PinLength == nil {
		return 4
	}
	return *c.PinLength
}

// GetPinThreshold returns how many PINs are entered per condition.
func (c *RedirectionConfig) GetPinThreshold() int {
	if c.PinThreshold == nil {
		return 1
	}
	return *c.PinThreshold
}

func (c *RedirectionConfig) GetPinAttemptsBeforeBreak() int {
	if c.PinAttemptsBeforeBreak == nil {
		return 20
	}
	return *c.PinAttemptsBeforeBreak
}

// GetBreakDuration parses and returns BreakDuration as a time.Duration.
func (c *RedirectionConfig) GetBreakDuration() time.Duration {
	if c.BreakDuration == nil || *c.BreakDuration == "" {
		return 30 * time.Second // default
	}
	d, err := time.ParseDuration(*c.BreakDuration)
	if err != nil {
		return 30 * time.Second // default on parse error
	}
	return d
}

func (c *RedirectionConfig) GetParticipant() int {
	if c.Participant == nil {
		return 0
	}
	return *c.Participant
}

func (c *RedirectionConfig) GetStartStep() int {
	if c.StartStep == nil {
		return 0
	}
	return *c.StartStep
}

// GetStudyMode reports whether the condition schedule drives the session.
func (c *RedirectionConfig) GetStudyMode() bool {
	if c.StudyMode == nil {
		return true
	}
	return *c.StudyMode
}

func (c *RedirectionConfig) GetShowQuestionnaire() bool {
	if c.ShowQuestionnaire == nil {
		return false
	}
	return *c.ShowQuestionnaire
}

// GetDominantHand returns "left" or "right".
func (c *RedirectionConfig) GetDominantHand() string {
	if c.DominantHand == nil {
		return "right"
	}
	return strings.ToLower(*c.DominantHand)
}

// GetTickRate returns the simulation tick rate in Hz.
func (c *RedirectionConfig) GetTickRate() float64 {
	if c.TickRate == nil {
		return 90
	}
	return *c.TickRate
}

// GetTickInterval is the period of GetTickRate.
func (c *RedirectionConfig) GetTickInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.GetTickRate())
}

func (c *RedirectionConfig) GetRecordQueueSize() int {
	if c.RecordQueueSize == nil {
		return 4096
	}
	return *c.RecordQueueSize
}

// GetSeed returns the random seed; 0 means seed from the clock.
func (c *RedirectionConfig) GetSeed() int64 {
	if c.Seed == nil {
		return 1
	}
	return *c.Seed
}

package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/banshee-data/handwarp/internal/db"
)

// Status is a snapshot of a running session.
type Status struct {
	RunID               string  `json:"run_id"`
	Frames              uint64  `json:"frames"`
	Participant         int     `json:"participant"`
	Step                int     `json:"step"`
	ConditionIndex      int     `json:"condition_index"`
	Condition           string  `json:"condition,omitempty"`
	PinDigitsEntered    int     `json:"pin_digits_entered"`
	Redirecting         bool    `json:"redirecting"`
	InBreak             bool    `json:"in_break"`
	BreakRemainingSec   float64 `json:"break_remaining_sec"`
	BreakText           string  `json:"break_text,omitempty"`
	QuestionnaireActive bool    `json:"questionnaire_active"`
	Finished            bool    `json:"finished"`
	KeypadScale         float64 `json:"keypad_scale"`
	TargetsSelected     int     `json:"targets_selected"`
	PinsCompleted       int     `json:"pins_completed"`
	PinsCorrect         int     `json:"pins_correct"`
	RecordsDropped      uint64  `json:"records_dropped"`
}

// RunJSON is the wire form of db.Run.
type RunJSON struct {
	RunID          string     `json:"run_id"`
	Participant    int        `json:"participant"`
	StartStep      int        `json:"start_step"`
	Technique      string     `json:"technique"`
	Selection      string     `json:"selection"`
	Curve          string     `json:"curve"`
	StudyMode      bool       `json:"study_mode"`
	Source         string     `json:"source"`
	Started        time.Time  `json:"started"`
	Finished       *time.Time `json:"finished,omitempty"`
	Frames         uint64     `json:"frames"`
	PinsCompleted  int        `json:"pins_completed"`
	PinsCorrect    int        `json:"pins_correct"`
	DroppedRecords uint64     `json:"dropped_records"`
}

// RunToJSON converts a run for the API. An unfinished run has no finished
// time.
func RunToJSON(r db.Run) RunJSON {
	out := RunJSON{
		RunID:          r.RunID,
		Participant:    r.Participant,
		StartStep:      r.StartStep,
		Technique:      r.Technique,
		Selection:      r.Selection,
		Curve:          r.Curve,
		StudyMode:      r.StudyMode,
		Source:         r.Source,
		Started:        r.Started,
		Frames:         r.Frames,
		PinsCompleted:  r.PinsCompleted,
		PinsCorrect:    r.PinsCorrect,
		DroppedRecords: r.DroppedRecords,
	}
	if !r.Finished.IsZero() {
		f := r.Finished
		out.Finished = &f
	}
	return out
}

// ConditionJSON is one row of a run's PIN summary.
type ConditionJSON struct {
	ConditionIndex int     `json:"condition_index"`
	Condition      string  `json:"condition,omitempty"`
	Attempts       int     `json:"attempts"`
	Correct        int     `json:"correct"`
	SuccessRate    float64 `json:"success_rate"`
	MeanDurationMs float64 `json:"mean_duration_ms"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode json response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
}

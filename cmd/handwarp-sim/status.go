package main

import (
	"sync/atomic"
	"time"

	"github.com/banshee-data/handwarp/internal/api"
	"github.com/banshee-data/handwarp/internal/session"
	"github.com/banshee-data/handwarp/internal/study"
)

// liveStatus publishes session snapshots from the tick loop to the HTTP
// handlers.
type liveStatus struct {
	runID   string
	dropped func() uint64
	every   uint64 // publish period in frames
	current atomic.Pointer[api.Status]
}

func newLiveStatus(runID string, dropped func() uint64, every uint64) *liveStatus {
	if every == 0 {
		every = 1
	}
	ls := &liveStatus{runID: runID, dropped: dropped, every: every}
	ls.current.Store(&api.Status{RunID: runID})
	return ls
}

func (l *liveStatus) Status() api.Status { return *l.current.Load() }

// observe stores a snapshot every l.every frames and whenever the session
// is paused or finished.
func (l *liveStatus) observe(s *session.Session) {
	st := s.Stats()
	if st.Frames%l.every != 0 && !s.InBreak() && !s.QuestionnaireActive() && !s.Finished() {
		return
	}
	snap := &api.Status{
		RunID:               l.runID,
		Frames:              st.Frames,
		ConditionIndex:      -1,
		PinDigitsEntered:    s.CurrentPinDigitCount(),
		Redirecting:         s.IsRedirecting(),
		InBreak:             s.InBreak(),
		BreakRemainingSec:   s.BreakRemaining().Round(time.Millisecond).Seconds(),
		QuestionnaireActive: s.QuestionnaireActive(),
		Finished:            s.Finished(),
		TargetsSelected:     st.TargetsSelected,
		PinsCompleted:       st.PinsCompleted,
		PinsCorrect:         st.PinsCorrect,
		KeypadScale:         s.KeypadScale(),
	}
	if snap.InBreak {
		snap.BreakText = study.FormatRemaining(s.BreakRemaining())
	}
	if setup, ok := s.Setup(); ok {
		snap.Participant = setup.Participant
		snap.Step = setup.Step
		snap.ConditionIndex = setup.ConditionIndex
		snap.Condition = setup.Condition.String()
	}
	if l.dropped != nil {
		snap.RecordsDropped = l.dropped()
	}
	l.current.Store(snap)
}

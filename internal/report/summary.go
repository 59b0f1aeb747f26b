package report

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/handwarp/internal/session"
	"github.com/banshee-data/handwarp/internal/study"
)

// ConditionSummary aggregates the PIN attempts made under one condition.
type ConditionSummary struct {
	ConditionIndex int
	Condition      string // empty outside study mode
	Attempts       int
	Correct        int
	MeanDuration   time.Duration
}

// SuccessRate is Correct/Attempts, or 0 without attempts.
func (c ConditionSummary) SuccessRate() float64 {
	if c.Attempts == 0 {
		return 0
	}
	return float64(c.Correct) / float64(c.Attempts)
}

// SummarisePins groups attempts by condition index, in ascending index
// order. Attempts outside study mode carry index -1.
func SummarisePins(attempts []session.PinRecord) []ConditionSummary {
	conditions := study.Conditions()
	byIndex := make(map[int]*ConditionSummary)
	totals := make(map[int]time.Duration)
	for _, a := range attempts {
		s, ok := byIndex[a.ConditionIndex]
		if !ok {
			s = &ConditionSummary{ConditionIndex: a.ConditionIndex}
			if a.ConditionIndex >= 0 && a.ConditionIndex < len(conditions) {
				s.Condition = conditions[a.ConditionIndex].String()
			}
			byIndex[a.ConditionIndex] = s
		}
		s.Attempts++
		if a.Success {
			s.Correct++
		}
		totals[a.ConditionIndex] += a.Duration()
	}

	out := make([]ConditionSummary, 0, len(byIndex))
	for idx, s := range byIndex {
		s.MeanDuration = totals[idx] / time.Duration(s.Attempts)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConditionIndex < out[j].ConditionIndex })
	return out
}

// WriteSummary prints summaries as an aligned table.
func WriteSummary(w io.Writer, summaries []ConditionSummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CONDITION\tNAME\tATTEMPTS\tCORRECT\tRATE\tMEAN")
	for _, s := range summaries {
		name := s.Condition
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%.0f%%\t%s\n",
			s.ConditionIndex, name, s.Attempts, s.Correct, 100*s.SuccessRate(), s.MeanDuration.Round(time.Millisecond))
	}
	return tw.Flush()
}

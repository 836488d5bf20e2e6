// Package observ measures where an assemble call spends its time.
package observ

import (
	"fmt"
	"io"
	"time"
)

type stage struct {
	name    string
	started time.Time
	took    time.Duration
	note    string
}

// Timer records stages (building the source, each engine attempt,
// translation) in the order they began. Not safe for concurrent use; a nil
// Timer records nothing.
type Timer struct {
	stages []stage
}

func NewTimer() *Timer { return &Timer{stages: make([]stage, 0, 4)} }

// Begin opens a stage. The index is -1 for a nil Timer.
func (t *Timer) Begin(name string) int {
	if t == nil {
		return -1
	}
	t.stages = append(t.stages, stage{name: name, started: time.Now()})
	return len(t.stages) - 1
}

// End closes the stage at idx; unknown indexes are ignored.
func (t *Timer) End(idx int, note string) {
	if t == nil || idx < 0 || idx >= len(t.stages) {
		return
	}
	st := &t.stages[idx]
	st.took, st.note = time.Since(st.started), note
}

// StageReport is one stage in milliseconds.
type StageReport struct {
	Name       string  `json:"name" msgpack:"name"`
	DurationMS float64 `json:"duration_ms" msgpack:"duration_ms"`
	Note       string  `json:"note,omitempty" msgpack:"note,omitempty"`
}

// Report is what a Timer measured, ready for json or msgpack.
type Report struct {
	TotalMS float64       `json:"total_ms" msgpack:"total_ms"`
	Stages  []StageReport `json:"stages" msgpack:"stages"`
}

func (t *Timer) Report() Report {
	var r Report
	if t == nil {
		return r
	}
	var sum time.Duration
	for _, st := range t.stages {
		sum += st.took
		r.Stages = append(r.Stages, StageReport{Name: st.name, DurationMS: ms(st.took), Note: st.note})
	}
	r.TotalMS = ms(sum)
	return r
}

// WriteTable prints the stages under title, one per line, then the total.
func (r Report) WriteTable(w io.Writer, title string) error {
	if _, err := fmt.Fprintf(w, "%s:\n", title); err != nil {
		return err
	}
	for _, s := range r.Stages {
		line := fmt.Sprintf("  %-20s %7.2f ms", s.Name, s.DurationMS)
		if s.Note != "" {
			line += "  // " + s.Note
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "  %-20s %7.2f ms\n", "total", r.TotalMS)
	return err
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

package main

import (
	"fmt"
	"io"
	"time"

	"fasmgo/internal/buildpipeline"
)

var timingStages = []struct {
	stage buildpipeline.Stage
	label string
}{
	{buildpipeline.StageLoad, "loaded"},
	{buildpipeline.StageAssemble, "assembled"},
	{buildpipeline.StageGrow, "regrown"},
	{buildpipeline.StageTranslate, "translated"},
	{buildpipeline.StageBatch, "total"},
}

func printStageTimings(out io.Writer, timings buildpipeline.Timings) {
	if out == nil {
		return
	}
	for _, st := range timingStages {
		if !timings.Has(st.stage) {
			continue
		}
		fmt.Fprintf(out, "%s %.1f ms\n", st.label, toMillis(timings.Duration(st.stage)))
	}
}

// printJobTimings lists the stages of every job that ran.
func printJobTimings(out io.Writer, jobs []buildpipeline.JobResult) {
	for _, jr := range jobs {
		if jr.Result == nil {
			continue
		}
		if err := jr.Result.Timings.WriteTable(out, jr.Name); err != nil {
			return
		}
	}
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

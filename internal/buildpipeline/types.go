package buildpipeline

import "time"

// Stage describes a phase of one job.
type Stage string

const (
	// StageLoad builds the source: reads files, joins fragments.
	StageLoad Stage = "load"
	// StageAssemble is an engine invocation.
	StageAssemble Stage = "assemble"
	// StageGrow is a retry with a larger work region.
	StageGrow Stage = "grow"
	// StageTranslate turns the engine report into a result.
	StageTranslate Stage = "translate"
	// StageBatch is used for events about the batch as a whole.
	StageBatch Stage = "batch"
)

// Status is where a job stands within a stage.
type Status string

const (
	// StatusQueued: not started yet.
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	// StatusError: the job failed or was skipped.
	StatusError Status = "error"
)

// Event reports progress for a job (or for the whole batch when File is empty).
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// Timings holds stage durations summed over every job, in the order
// stages were first recorded.
type Timings struct {
	spans []stageSpan
}

type stageSpan struct {
	stage Stage
	dur   time.Duration
}

func (t *Timings) slot(stage Stage) *time.Duration {
	for i := range t.spans {
		if t.spans[i].stage == stage {
			return &t.spans[i].dur
		}
	}
	t.spans = append(t.spans, stageSpan{stage: stage})
	return &t.spans[len(t.spans)-1].dur
}

// Set replaces the duration of stage.
func (t *Timings) Set(stage Stage, dur time.Duration) { *t.slot(stage) = dur }

// Add accumulates into stage.
func (t *Timings) Add(stage Stage, dur time.Duration) { *t.slot(stage) += dur }

func (t Timings) Has(stage Stage) bool {
	_, ok := t.lookup(stage)
	return ok
}

// Duration is zero for stages never recorded.
func (t Timings) Duration(stage Stage) time.Duration {
	d, _ := t.lookup(stage)
	return d
}

func (t Timings) lookup(stage Stage) (time.Duration, bool) {
	for _, s := range t.spans {
		if s.stage == stage {
			return s.dur, true
		}
	}
	return 0, false
}

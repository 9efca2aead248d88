package assembly

import (
	"time"
)

// Outcome is the terminal state of one time point.
type Outcome string

const (
	OutcomeAssembled Outcome = "assembled"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Reason explains a skipped or failed time point.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonUnreadable          Reason = "unreadable"
	ReasonMetadataUnavailable Reason = "metadata_unavailable"
	ReasonWriterInit          Reason = "writer_init"
	ReasonWriteError          Reason = "write_error"
	ReasonFinalizeError       Reason = "finalize_error"
	ReasonCanceled            Reason = "canceled"
)

// Result records what happened to one time point. Results live only as long
// as the run's Report.
type Result struct {
	TimePoint string
	Outcome   Outcome
	Reason    Reason
	Err       error
	// Output is the committed file path; empty unless Outcome is assembled.
	Output   string
	Width    int
	Height   int
	Tiles    int
	Bytes    uint64
	BigTIFF  bool
	Duration time.Duration
}

// Report summarizes a run. Results are ordered like the discovered time
// points, whatever order workers finished them in.
type Report struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Results   []Result
	Assembled int
	Skipped   int
	Failed    int
	// StalePartials lists leftover partial files removed before the run.
	StalePartials []string
}

func (r *Report) tally() {
	r.Assembled, r.Skipped, r.Failed = 0, 0, 0
	for _, res := range r.Results {
		switch res.Outcome {
		case OutcomeAssembled:
			r.Assembled++
		case OutcomeSkipped:
			r.Skipped++
		case OutcomeFailed:
			r.Failed++
		}
	}
}

// Outputs returns the committed file paths in time point order.
func (r Report) Outputs() []string {
	var outputs []string
	for _, res := range r.Results {
		if res.Outcome == OutcomeAssembled {
			outputs = append(outputs, res.Output)
		}
	}
	return outputs
}

package history

import "time"

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is one protocol execution.
type Run struct {
	ID           string        `json:"id" yaml:"id"`
	Protocol     string        `json:"protocol" yaml:"protocol"`
	Kind         string        `json:"kind" yaml:"kind"`
	NumSamples   int           `json:"num_samples" yaml:"num_samples"`
	Status       Status        `json:"status" yaml:"status"`
	StartedAt    time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt   time.Time     `json:"finished_at,omitzero" yaml:"finished_at,omitempty"`
	TipsUsed     int           `json:"tips_used" yaml:"tips_used"`
	TipRefills   int           `json:"tip_refills" yaml:"tip_refills"`
	ErrorKind    string        `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	LogPath      string        `json:"log_path,omitempty" yaml:"log_path,omitempty"`
	ReagentsJSON string        `json:"-" yaml:"-"`
	Steps        []Step        `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// Duration returns the run's wall-clock time, or zero while it is running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Step is one row of a run's execution log.
type Step struct {
	Number      int           `json:"number" yaml:"number"`
	Description string        `json:"description" yaml:"description"`
	Executed    bool          `json:"executed" yaml:"executed"`
	WaitSeconds int           `json:"wait_seconds" yaml:"wait_seconds"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
}

// Outcome carries the fields recorded when a run ends.
type Outcome struct {
	Status       Status
	TipsUsed     int
	TipRefills   int
	ErrorKind    string
	ErrorMessage string
	ReagentsJSON string
	Steps        []Step
}

package workflow

import "liquidplan/internal/protocol"

const (
	journalFileName = "commands.jsonl"
	timeLogFileName = "time_log.tsv"
	runLogFileName  = "run.log"
)

// Report describes one executed run and where its artifacts live.
type Report struct {
	RunID       string           `json:"run_id" yaml:"run_id"`
	RunDir      string           `json:"run_dir" yaml:"run_dir"`
	JournalPath string           `json:"journal_path" yaml:"journal_path"`
	TimeLogPath string           `json:"time_log_path" yaml:"time_log_path"`
	LogPath     string           `json:"log_path" yaml:"log_path"`
	Result      *protocol.Result `json:"result,omitempty" yaml:"result,omitempty"`
}

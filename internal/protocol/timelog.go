package protocol

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// TimeLogHeader is the first row of the execution log.
var TimeLogHeader = []string{"STEP", "execution", "description", "wait_time", "execution_time"}

// WriteTimeLog writes the tab-separated execution log, one row per step.
// execution_time is empty for steps that did not run.
func WriteTimeLog(path string, steps []Step) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create time log directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create time log: %w", err)
	}

	w := csv.NewWriter(file)
	w.Comma = '\t'
	rows := make([][]string, 0, len(steps)+1)
	rows = append(rows, TimeLogHeader)
	for _, step := range steps {
		elapsed := ""
		if step.Ran {
			elapsed = step.Elapsed.String()
		}
		rows = append(rows, []string{
			strconv.Itoa(step.Number),
			strconv.FormatBool(step.Execute),
			step.Description,
			strconv.Itoa(step.WaitSeconds),
			elapsed,
		})
	}
	if err := w.WriteAll(rows); err != nil {
		_ = file.Close()
		return fmt.Errorf("write time log: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close time log: %w", err)
	}
	return nil
}

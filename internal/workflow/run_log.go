package workflow

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"liquidplan/internal/logging"
)

// runLog is the per-run JSON log file. Records written through its logger
// also reach the manager's own logger.
type runLog struct {
	path   string
	file   *os.File
	logger *slog.Logger
}

func (m *Manager) openRunLog(dir, runID string) (*runLog, error) {
	path := filepath.Join(dir, runLogFileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}

	level := "info"
	if strings.TrimSpace(m.cfg.Logging.Level) != "" {
		level = m.cfg.Logging.Level
	}
	fileLogger, err := logging.New(logging.Options{
		Level:  level,
		Format: "json",
		Writer: file,
	})
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	handler := slog.NewMultiHandler(m.logger.Handler(), fileLogger.Handler())
	return &runLog{
		path:   path,
		file:   file,
		logger: slog.New(handler).With(logging.String(logging.FieldRunID, runID)),
	}, nil
}

func (r *runLog) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	return r.file.Close()
}

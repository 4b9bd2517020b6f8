package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"liquidplan/internal/history"
	"liquidplan/internal/liquid"
	"liquidplan/internal/logging"
	"liquidplan/internal/metrics"
	"liquidplan/internal/protocol"
	"liquidplan/internal/services"
)

// Execute runs the configured protocol once under the deck lock. The returned
// Report is non-nil whenever a run directory was created, including when the
// protocol itself failed.
func (m *Manager) Execute(ctx context.Context) (*Report, error) {
	p, err := protocol.New(m.cfg)
	if err != nil {
		return nil, err
	}
	if err := m.cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	lock := flock.New(m.cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrRunInProgress
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			m.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	report := &Report{
		RunID:  runID,
		RunDir: filepath.Join(m.cfg.Paths.OutputDir, runID),
	}
	if err := os.MkdirAll(report.RunDir, 0o755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}
	report.JournalPath = filepath.Join(report.RunDir, journalFileName)
	report.TimeLogPath = filepath.Join(report.RunDir, timeLogFileName)

	runLog, err := m.openRunLog(report.RunDir, runID)
	if err != nil {
		return report, err
	}
	defer runLog.Close()
	report.LogPath = runLog.path
	logger := runLog.logger

	if !m.skipPreflight {
		if err := m.runPreflightChecks(ctx, logger); err != nil {
			m.handleRunFailure(ctx, logger, p.Name(), err)
			return report, err
		}
	}

	store, err := history.Open(m.cfg)
	if err != nil {
		return report, fmt.Errorf("open run history: %w", err)
	}
	defer store.Close()

	if err := store.StartRun(ctx, history.Run{
		ID:         runID,
		Protocol:   p.Name(),
		Kind:       p.Kind(),
		NumSamples: m.cfg.Protocol.NumSamples,
		StartedAt:  m.now(),
		LogPath:    report.LogPath,
	}); err != nil {
		return report, fmt.Errorf("record run start: %w", err)
	}

	journal, err := os.Create(report.JournalPath)
	if err != nil {
		return report, fmt.Errorf("create command journal: %w", err)
	}
	defer journal.Close()

	collector := metrics.New()
	session, err := protocol.NewSession(protocol.Options{
		Config: m.cfg,
		Handler: liquid.NewSimulator(liquid.SimulatorOptions{
			Pipette: m.cfg.Pipette.Name,
			Journal: journal,
			Logger:  logger,
		}),
		Waiter:   m.waiter,
		Logger:   logger,
		Metrics:  collector,
		Notifier: m.notifier,
	})
	if err != nil {
		return report, err
	}

	result, runErr := session.Run(ctx, p)
	report.Result = result
	// Bookkeeping below must land even when the caller's context was cancelled.
	finishCtx := context.WithoutCancel(ctx)

	if err := protocol.WriteTimeLog(report.TimeLogPath, result.Steps); err != nil {
		logging.WarnWithContext(logger, "execution log not written", "time_log_failed",
			logging.String("path", report.TimeLogPath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check output directory permissions"),
			logging.String(logging.FieldImpact, "run history still records the steps"),
		)
	}

	status := history.StatusCompleted
	if runErr != nil {
		status = history.StatusFailed
	}
	if err := store.FinishRun(finishCtx, runID, outcomeFor(status, result, runErr)); err != nil {
		logging.WarnWithContext(logger, "run history not updated", "history_update_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the history database"),
		)
	}

	collector.RunFinished(p.Name(), string(status))
	if err := collector.WriteTextfile(m.cfg.Metrics.TextfilePath); err != nil {
		logging.WarnWithContext(logger, "metrics textfile not written", "metrics_export_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "metrics for this run are lost"),
		)
	}

	if runErr != nil {
		m.handleRunFailure(finishCtx, logger, p.Name(), runErr)
		return report, runErr
	}
	m.notifyRunCompleted(finishCtx, logger, result)
	logger.Info("run finished",
		logging.String(logging.FieldEventType, "run_completed"),
		logging.Int("tips_used", result.TipsUsed()),
		logging.Int("tip_refills", result.TipRefills()),
		logging.Duration("elapsed", result.Elapsed),
		logging.String("run_dir", report.RunDir),
	)
	return report, nil
}

// Plan runs the configured protocol against the simulator with no lock,
// history, or notifications. Delays are recorded, not slept.
func (m *Manager) Plan(ctx context.Context) (*protocol.Result, error) {
	p, err := protocol.New(m.cfg)
	if err != nil {
		return nil, err
	}
	session, err := protocol.NewSession(protocol.Options{
		Config:  m.cfg,
		Handler: liquid.NewSimulator(liquid.SimulatorOptions{Pipette: m.cfg.Pipette.Name, Logger: m.logger}),
		Logger:  m.logger,
	})
	if err != nil {
		return nil, err
	}
	return session.Run(ctx, p)
}

func outcomeFor(status history.Status, result *protocol.Result, runErr error) history.Outcome {
	outcome := history.Outcome{
		Status:     status,
		TipsUsed:   result.TipsUsed(),
		TipRefills: result.TipRefills(),
		Steps:      make([]history.Step, 0, len(result.Steps)),
	}
	if runErr != nil {
		outcome.ErrorKind = services.Kind(runErr)
		outcome.ErrorMessage = runErr.Error()
	}
	if data, err := json.Marshal(result.Reagents); err == nil {
		outcome.ReagentsJSON = string(data)
	}
	for _, step := range result.Steps {
		outcome.Steps = append(outcome.Steps, history.Step{
			Number:      step.Number,
			Description: step.Description,
			Executed:    step.Ran,
			WaitSeconds: step.WaitSeconds,
			Duration:    step.Elapsed,
		})
	}
	return outcome
}

func isShutdown(err error) bool {
	return errors.Is(err, context.Canceled)
}

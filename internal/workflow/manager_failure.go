package workflow

import (
	"context"
	"errors"
	"log/slog"

	"liquidplan/internal/logging"
	"liquidplan/internal/reagent"
	"liquidplan/internal/services"
	"liquidplan/internal/tips"
)

func (m *Manager) handleRunFailure(ctx context.Context, logger *slog.Logger, protocolName string, runErr error) {
	if logger == nil {
		logger = m.logger
	}
	logger = logging.WithContext(ctx, logger)

	if isShutdown(runErr) {
		logger.Info("run cancelled", logging.String(logging.FieldEventType, "run_cancelled"))
		return
	}

	attrs := []logging.Attr{
		logging.String("protocol", protocolName),
		logging.String("error_kind", services.Kind(runErr)),
		logging.String(logging.FieldErrorHint, failureHint(runErr)),
		logging.Error(runErr),
	}
	if services.Severity(runErr) == slog.LevelWarn {
		logging.WarnWithContext(logger, "run stopped", "run_stopped", attrs...)
	} else {
		logging.ErrorWithContext(logger, "run failed", "run_failed", attrs...)
	}

	m.notifyRunError(ctx, logger, protocolName, runErr)
}

func failureHint(err error) string {
	var exhausted *reagent.ChannelExhaustionError
	var tooLarge *reagent.TripTooLargeError
	var full *reagent.ReservoirFullError
	var parked *tips.ParkedTipNotFoundError
	switch {
	case errors.As(err, &exhausted):
		return "provision more channels or lower the sample count"
	case errors.As(err, &tooLarge):
		return "raise max_volume_allowed or the channel volume for the reagent"
	case errors.As(err, &full):
		return "free reservoir wells or move the reagent's first_well"
	case errors.As(err, &parked):
		return "re-enable the step that parks tips or turn tip recycling off"
	case errors.Is(err, tips.ErrTipSupplyExhausted):
		return "replace the tip racks and start a new run"
	case errors.Is(err, services.ErrCollaborator):
		return "check the liquid handler command journal"
	default:
		return "check logs for details"
	}
}

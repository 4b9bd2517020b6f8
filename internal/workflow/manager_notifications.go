package workflow

import (
	"context"
	"log/slog"

	"liquidplan/internal/logging"
	"liquidplan/internal/notifications"
	"liquidplan/internal/protocol"
)

func (m *Manager) notifyRunCompleted(ctx context.Context, logger *slog.Logger, result *protocol.Result) {
	if m.notifier == nil || result == nil {
		return
	}
	if err := m.notifier.Publish(ctx, notifications.EventRunCompleted, notifications.Payload{
		"protocol": result.Protocol,
		"samples":  result.Samples,
		"duration": result.Elapsed,
		"tips":     result.TipsUsed(),
	}); err != nil {
		if isShutdown(err) {
			logger.Debug("run cancelled, could not send completion notification")
		} else {
			logger.Debug("run completion notification failed", logging.Error(err))
		}
	}
}

func (m *Manager) notifyRunError(ctx context.Context, logger *slog.Logger, protocolName string, runErr error) {
	if m.notifier == nil || runErr == nil {
		return
	}
	if err := m.notifier.Publish(ctx, notifications.EventError, notifications.Payload{
		"error":   runErr,
		"context": protocolName,
	}); err != nil {
		if isShutdown(err) {
			logger.Debug("run cancelled, could not send error notification")
		} else {
			logger.Debug("run error notification failed", logging.Error(err))
		}
	}
}

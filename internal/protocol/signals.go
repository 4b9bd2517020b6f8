package protocol

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"liquidplan/internal/logging"
	"liquidplan/internal/metrics"
	"liquidplan/internal/notifications"
)

// operatorSignals fans tip tracker events out to metrics and notifications.
// Publishing happens off the tracker's goroutine; wait drains it.
type operatorSignals struct {
	notifier notifications.Service
	metrics  *metrics.Collector
	logger   *slog.Logger

	mu  sync.Mutex
	ctx context.Context
	wg  sync.WaitGroup
}

func newOperatorSignals(notifier notifications.Service, collector *metrics.Collector, logger *slog.Logger) *operatorSignals {
	return &operatorSignals{
		notifier: notifier,
		metrics:  collector,
		logger:   logger,
		ctx:      context.Background(),
	}
}

func (o *operatorSignals) bind(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ctx = ctx
}

func (o *operatorSignals) TipRefillRequired(pipette string, refill, parked int) {
	if o.metrics != nil {
		o.metrics.TipRefill(pipette)
	}
	o.publish(notifications.EventTipRefill, notifications.Payload{
		"pipette": pipette,
		"refill":  refill,
		"parked":  parked,
	})
}

func (o *operatorSignals) WasteBinFull(pipette string, dropped int) {
	if o.metrics != nil {
		o.metrics.WasteBinFull(pipette)
	}
	o.publish(notifications.EventWasteBinFull, notifications.Payload{
		"pipette": pipette,
		"dropped": dropped,
	})
}

func (o *operatorSignals) publish(event notifications.Event, payload notifications.Payload) {
	if o.notifier == nil {
		return
	}
	o.mu.Lock()
	ctx := o.ctx
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if err := o.notifier.Publish(ctx, event, payload); err != nil {
			if errors.Is(err, context.Canceled) {
				o.logger.Debug("run cancelled, operator notification dropped", logging.String("event", string(event)))
				return
			}
			logging.WarnWithContext(o.logger, "operator notification failed", "notification_failed",
				logging.String("event", string(event)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
				logging.String(logging.FieldImpact, "operator relies on the console prompt"),
			)
		}
	}()
}

func (o *operatorSignals) wait() {
	o.wg.Wait()
}

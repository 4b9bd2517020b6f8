package logging

import (
	"context"
	"log/slog"

	"liquidplan/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized key for run identifiers.
	FieldRunID = "run_id"
	// FieldStep is the standardized key for 1-based protocol step numbers.
	FieldStep = "step"
	// FieldReagent is the standardized key for reagent names.
	FieldReagent = "reagent"
	// FieldColumn is the standardized key for 0-based plate columns.
	FieldColumn = "column"
	// FieldPipette is the standardized key for pipette instrument names.
	FieldPipette = "pipette"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to do next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldDecisionType names a bookkeeping decision (rollover, refill, park).
	FieldDecisionType = "decision_type"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if step, ok := services.StepFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldStep, step))
	}
	if name, ok := services.ReagentFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldReagent, name))
	}
	if col, ok := services.ColumnFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldColumn, col))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}

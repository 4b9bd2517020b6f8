package services

import "context"

type contextKey string

const (
	runIDKey   contextKey = "run_id"
	stepKey    contextKey = "step"
	reagentKey contextKey = "reagent"
	columnKey  contextKey = "column"
)

// WithRunID annotates context with the run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStep annotates context with the 1-based protocol step number.
func WithStep(ctx context.Context, step int) context.Context {
	if step <= 0 {
		return ctx
	}
	return context.WithValue(ctx, stepKey, step)
}

// StepFromContext returns the protocol step number if present.
func StepFromContext(ctx context.Context) (int, bool) {
	v := ctx.Value(stepKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	default:
		return 0, false
	}
}

// WithReagent annotates context with the reagent being handled.
func WithReagent(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, reagentKey, name)
}

// ReagentFromContext returns the reagent name if present.
func ReagentFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(reagentKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithColumn annotates context with the 0-based plate column being processed.
func WithColumn(ctx context.Context, column int) context.Context {
	if column < 0 {
		return ctx
	}
	return context.WithValue(ctx, columnKey, column)
}

// ColumnFromContext returns the plate column if present.
func ColumnFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(columnKey).(int)
	return v, ok
}

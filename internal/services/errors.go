package services

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var (
	// ErrConfiguration marks failures caused by the run configuration
	// (insufficient provisioning, impossible volumes). Not retryable.
	ErrConfiguration = errors.New("configuration error")
	// ErrLogic marks bookkeeping violations such as retrieving a tip that was
	// never parked. The run must abort.
	ErrLogic = errors.New("logic error")
	// ErrOperator marks conditions resolved by operator action (tip rack
	// replacement). They surface only when the operator flow itself fails.
	ErrOperator = errors.New("operator intervention required")
	// ErrCollaborator marks failures reported by the liquid-handling collaborator.
	ErrCollaborator = errors.New("liquid handler error")
)

// Wrap builds an error message that includes step context while tagging it with
// the provided marker for later severity classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, step, operation, message string, err error) error {
	detail := buildDetail(step, operation, message)
	if marker == nil {
		marker = ErrCollaborator
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Severity maps an error to the log level it should be reported at. Operator
// conditions are warnings; everything else aborts the run and is an error.
func Severity(err error) slog.Level {
	switch {
	case err == nil:
		return slog.LevelInfo
	case errors.Is(err, ErrOperator):
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// Kind returns a short classification for structured logs and run history.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrLogic):
		return "logic"
	case errors.Is(err, ErrOperator):
		return "operator"
	case errors.Is(err, ErrCollaborator):
		return "collaborator"
	default:
		return "unknown"
	}
}

func buildDetail(step, operation, message string) string {
	parts := make([]string, 0, 3)
	if step = strings.TrimSpace(step); step != "" {
		parts = append(parts, step)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "protocol failure"
	}
	return strings.Join(parts, ": ")
}

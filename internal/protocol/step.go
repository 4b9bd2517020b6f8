package protocol

import (
	"context"
	"time"

	"liquidplan/internal/config"
)

// RunFunc performs one step. wait is the effective wait time in seconds.
type RunFunc func(ctx context.Context, s *Session, wait int) error

// Definition is one step a protocol contributes.
type Definition struct {
	Number      int
	Description string
	WaitSeconds int
	Run         RunFunc
}

// Step is the execution record of one step.
type Step struct {
	Number      int           `json:"number" yaml:"number"`
	Description string        `json:"description" yaml:"description"`
	Execute     bool          `json:"execute" yaml:"execute"`
	WaitSeconds int           `json:"wait_seconds" yaml:"wait_seconds"`
	Ran         bool          `json:"ran" yaml:"ran"`
	Elapsed     time.Duration `json:"elapsed" yaml:"elapsed"`
}

// resolveSteps merges configured overrides into the protocol's defaults.
func resolveSteps(defs []Definition, cfg *config.Config) []Step {
	steps := make([]Step, len(defs))
	for i, def := range defs {
		step := Step{
			Number:      def.Number,
			Description: def.Description,
			Execute:     true,
			WaitSeconds: def.WaitSeconds,
		}
		if override, ok := cfg.Step(def.Number); ok {
			if override.Execute != nil {
				step.Execute = *override.Execute
			}
			if override.WaitSeconds != nil {
				step.WaitSeconds = *override.WaitSeconds
			}
		}
		steps[i] = step
	}
	return steps
}

package protocol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"liquidplan/internal/config"
	"liquidplan/internal/liquid"
	"liquidplan/internal/logging"
	"liquidplan/internal/metrics"
	"liquidplan/internal/notifications"
	"liquidplan/internal/reagent"
	"liquidplan/internal/services"
	"liquidplan/internal/tips"
)

// Protocol is a workflow made of numbered steps.
type Protocol interface {
	Name() string
	Kind() string
	Steps() []Definition
	// Begin runs before the first step and Finish after the last one.
	Begin(ctx context.Context, s *Session) error
	Finish(ctx context.Context, s *Session) error
}

// New returns the workflow selected by protocol.kind.
func New(cfg *config.Config) (Protocol, error) {
	switch cfg.Protocol.Kind {
	case config.ProtocolExtraction:
		return newExtraction(cfg), nil
	case config.ProtocolDispense:
		return newDispense(cfg), nil
	default:
		return nil, fmt.Errorf("%w: unknown protocol kind %q", services.ErrConfiguration, cfg.Protocol.Kind)
	}
}

// Options configure a Session.
type Options struct {
	Config  *config.Config
	Handler liquid.Handler
	// Waiter blocks for delays and operator pauses. Defaults to a RecordingWaiter.
	Waiter   liquid.Waiter
	Logger   *slog.Logger
	Metrics  *metrics.Collector
	Notifier notifications.Service
}

// Session holds the run-scoped state shared by a protocol's steps.
type Session struct {
	cfg     *config.Config
	handler liquid.Handler
	waiter  liquid.Waiter
	logger  *slog.Logger
	metrics *metrics.Collector
	signals *operatorSignals
	tracker *tips.Tracker
	ledger  *reagent.Ledger
	pipette string

	ran         bool
	airGap      float64
	waited      int
	aspirations []AspirationRecord
}

// NewSession provisions the reagent ledger and registers the pipette's tip racks.
func NewSession(opts Options) (*Session, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.Handler == nil {
		return nil, errors.New("liquid handler is required")
	}
	cfg := opts.Config
	waiter := opts.Waiter
	if waiter == nil {
		waiter = &liquid.RecordingWaiter{}
	}
	logger := logging.NewComponentLogger(opts.Logger, "protocol")

	var recorder reagent.Recorder
	if opts.Metrics != nil {
		recorder = opts.Metrics
	}
	ledger, err := reagent.NewLedgerFromConfig(cfg, opts.Logger, recorder)
	if err != nil {
		return nil, fmt.Errorf("provision reagents: %w", err)
	}

	signals := newOperatorSignals(opts.Notifier, opts.Metrics, logger)
	tracker := tips.NewTracker(tips.Options{
		WasteCapacity: cfg.Tips.WasteCapacity,
		DryRun:        cfg.Tips.DryRunReturn,
	}, waiter, signals, opts.Logger)
	if err := tracker.Register(tips.Pipette{
		Name:        cfg.Pipette.Name,
		Channels:    cfg.Pipette.Channels,
		Racks:       cfg.Pipette.TipRacks,
		TipCapacity: cfg.Pipette.TipCapacity,
	}); err != nil {
		return nil, fmt.Errorf("register pipette: %w", err)
	}

	return &Session{
		cfg:     cfg,
		handler: opts.Handler,
		waiter:  waiter,
		logger:  logger,
		metrics: opts.Metrics,
		signals: signals,
		tracker: tracker,
		ledger:  ledger,
		pipette: cfg.Pipette.Name,
	}, nil
}

// Ledger exposes the reagent ledger.
func (s *Session) Ledger() *reagent.Ledger { return s.ledger }

// Tracker exposes the tip tracker.
func (s *Session) Tracker() *tips.Tracker { return s.tracker }

// Result summarizes a run.
type Result struct {
	Protocol    string             `json:"protocol" yaml:"protocol"`
	Kind        string             `json:"kind" yaml:"kind"`
	Samples     int                `json:"samples" yaml:"samples"`
	Columns     int                `json:"columns" yaml:"columns"`
	Steps       []Step             `json:"steps" yaml:"steps"`
	Tips        []tips.Report      `json:"tips" yaml:"tips"`
	Reagents    []reagent.Status   `json:"reagents" yaml:"reagents"`
	Aspirations []AspirationRecord `json:"aspirations,omitempty" yaml:"aspirations,omitempty"`
	WaitSeconds int                `json:"wait_seconds" yaml:"wait_seconds"`
	Elapsed     time.Duration      `json:"elapsed" yaml:"elapsed"`
}

// TipsUsed sums tip usage across pipettes.
func (r *Result) TipsUsed() int {
	total := 0
	for _, report := range r.Tips {
		total += report.Used
	}
	return total
}

// TipRefills sums rack refills across pipettes.
func (r *Result) TipRefills() int {
	total := 0
	for _, report := range r.Tips {
		total += report.Refills
	}
	return total
}

// Run executes every enabled step in order. The returned Result is populated
// even when a step fails.
func (s *Session) Run(ctx context.Context, p Protocol) (*Result, error) {
	if s.ran {
		return nil, errors.New("session already ran")
	}
	s.ran = true
	s.signals.bind(ctx)
	defer s.signals.wait()

	defs := p.Steps()
	steps := resolveSteps(defs, s.cfg)
	logger := logging.WithContext(ctx, s.logger)

	enabled := 0
	for _, step := range steps {
		if step.Execute {
			enabled++
		}
	}
	logger.Info("protocol started",
		logging.String(logging.FieldEventType, "protocol_start"),
		logging.String("protocol", p.Name()),
		logging.String("kind", p.Kind()),
		logging.Int("samples", s.cfg.Protocol.NumSamples),
		logging.Int("columns", s.cfg.Columns()),
		logging.Int("steps_enabled", enabled),
	)
	for _, line := range VolumeReport(s.ledger.Statuses()) {
		logger.Info("reagent volume", logging.String("detail", line))
	}

	started := time.Now()
	runErr := s.execute(ctx, p, defs, steps)

	result := &Result{
		Protocol:    p.Name(),
		Kind:        p.Kind(),
		Samples:     s.cfg.Protocol.NumSamples,
		Columns:     s.cfg.Columns(),
		Steps:       steps,
		Tips:        s.tracker.Reports(),
		Reagents:    s.ledger.Statuses(),
		Aspirations: s.aspirations,
		WaitSeconds: s.waited,
		Elapsed:     time.Since(started),
	}
	if s.metrics != nil {
		for _, report := range result.Tips {
			s.metrics.SetTipsUsed(report.Pipette, report.Used)
		}
	}
	if runErr != nil {
		return result, runErr
	}

	logger.Info("protocol completed",
		logging.String(logging.FieldEventType, "protocol_complete"),
		logging.Int("tips_used", result.TipsUsed()),
		logging.Int("tip_refills", result.TipRefills()),
		logging.Int("wait_seconds", result.WaitSeconds),
		logging.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

func (s *Session) execute(ctx context.Context, p Protocol, defs []Definition, steps []Step) error {
	if err := p.Begin(ctx, s); err != nil {
		return err
	}
	for i := range steps {
		step := &steps[i]
		if err := ctx.Err(); err != nil {
			return err
		}
		stepCtx := services.WithStep(ctx, step.Number)
		logger := logging.WithContext(stepCtx, s.logger)
		if !step.Execute {
			logger.Info("step skipped", logging.Args(append(
				logging.DecisionAttrs("step_override", "skip", "disabled in configuration"),
				logging.String("description", step.Description),
			)...)...)
			continue
		}

		logger.Info("step started",
			logging.String(logging.FieldEventType, "step_start"),
			logging.String("description", step.Description),
			logging.Int("wait_seconds", step.WaitSeconds),
		)
		started := time.Now()
		err := defs[i].Run(stepCtx, s, step.WaitSeconds)
		step.Elapsed = time.Since(started)
		step.Ran = true
		if s.metrics != nil {
			s.metrics.ObserveStep(step.Number, step.Elapsed)
		}
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", step.Number, step.Description, err)
		}
		logger.Info("step completed",
			logging.String(logging.FieldEventType, "step_complete"),
			logging.Duration("step_duration", step.Elapsed),
		)
	}
	return p.Finish(ctx, s)
}

// reagent returns a provisioned reagent, or nil when no volume is required.
func (s *Session) reagent(ctx context.Context, key string) (*reagent.Reagent, error) {
	r, err := s.ledger.Reagent(key)
	if err != nil {
		return nil, err
	}
	if !r.Provisioned() {
		logging.WithContext(ctx, s.logger).Info("step has nothing to transfer", logging.Args(append(
			logging.DecisionAttrs("reagent_skip", "skip", "reagent volume is zero"),
			logging.String(logging.FieldReagent, key),
		)...)...)
		return nil, nil
	}
	return r, nil
}

func (s *Session) plan(ctx context.Context, r *reagent.Reagent, column, trip int, required float64) (reagent.Aspiration, error) {
	plan, err := r.PlanAspiration(required)
	if err != nil {
		return plan, err
	}
	step, _ := services.StepFromContext(ctx)
	s.aspirations = append(s.aspirations, newAspirationRecord(step, column, trip, r.Key(), plan))
	return plan, nil
}

func (s *Session) delay(seconds int, message string) {
	if seconds <= 0 {
		return
	}
	s.waited += seconds
	s.waiter.Delay(seconds, message)
}

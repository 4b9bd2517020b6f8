package workflow

import (
	"errors"
	"log/slog"
	"time"

	"liquidplan/internal/config"
	"liquidplan/internal/liquid"
	"liquidplan/internal/logging"
	"liquidplan/internal/notifications"
)

// ErrRunInProgress is returned when another run holds the deck lock.
var ErrRunInProgress = errors.New("another liquidplan run is already using this output directory")

// Manager coordinates protocol runs against one configuration.
type Manager struct {
	cfg      *config.Config
	logger   *slog.Logger
	notifier notifications.Service
	waiter   liquid.Waiter
	now      func() time.Time

	skipPreflight bool
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithNotifier replaces the ntfy-backed notifier (used in tests).
func WithNotifier(notifier notifications.Service) ManagerOption {
	return func(m *Manager) {
		m.notifier = notifier
	}
}

// WithWaiter sets how delays and operator pauses block during Execute.
func WithWaiter(waiter liquid.Waiter) ManagerOption {
	return func(m *Manager) {
		m.waiter = waiter
	}
}

// WithoutPreflight skips the checks Execute runs before touching the deck.
func WithoutPreflight() ManagerOption {
	return func(m *Manager) {
		m.skipPreflight = true
	}
}

// NewManager constructs a run manager.
func NewManager(cfg *config.Config, logger *slog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "workflow-manager"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.notifier == nil {
		m.notifier = notifications.NewService(cfg)
	}
	if m.waiter == nil {
		m.waiter = &liquid.RecordingWaiter{}
	}
	return m
}

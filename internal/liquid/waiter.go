package liquid

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"liquidplan/internal/logging"
)

// RecordingWaiter returns immediately and remembers every delay and pause.
type RecordingWaiter struct {
	mu     sync.Mutex
	delays []int
	pauses []string
}

func (w *RecordingWaiter) Delay(seconds int, _ string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.delays = append(w.delays, seconds)
}

func (w *RecordingWaiter) Pause(message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pauses = append(w.pauses, message)
}

// Delays returns the recorded delay lengths in seconds.
func (w *RecordingWaiter) Delays() []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]int(nil), w.delays...)
}

// Pauses returns the recorded pause messages.
func (w *RecordingWaiter) Pauses() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.pauses...)
}

// TotalDelay sums every recorded delay.
func (w *RecordingWaiter) TotalDelay() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	var total int
	for _, d := range w.delays {
		total += d
	}
	return time.Duration(total) * time.Second
}

// ConsoleWaiter sleeps through delays and prompts the operator on pauses.
type ConsoleWaiter struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
	logger      *slog.Logger
	sleep       func(time.Duration)
}

// NewConsoleWaiter reads operator confirmations from in. When in is not a
// terminal, pauses are logged and the run continues.
func NewConsoleWaiter(in *os.File, out io.Writer, logger *slog.Logger) *ConsoleWaiter {
	if in == nil {
		return newConsoleWaiter(nil, out, false, logger, time.Sleep)
	}
	fd := in.Fd()
	interactive := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	return newConsoleWaiter(in, out, interactive, logger, time.Sleep)
}

func newConsoleWaiter(in io.Reader, out io.Writer, interactive bool, logger *slog.Logger, sleep func(time.Duration)) *ConsoleWaiter {
	w := &ConsoleWaiter{
		out:         out,
		interactive: interactive,
		logger:      logging.NewComponentLogger(logger, "operator"),
		sleep:       sleep,
	}
	if in != nil {
		w.in = bufio.NewReader(in)
	}
	return w
}

func (w *ConsoleWaiter) Delay(seconds int, message string) {
	if seconds <= 0 {
		return
	}
	w.logger.Info("waiting", logging.Int("seconds", seconds), logging.String("reason", message))
	w.sleep(time.Duration(seconds) * time.Second)
}

func (w *ConsoleWaiter) Pause(message string) {
	logging.WarnWithContext(w.logger, "operator action required", "operator_pause",
		logging.String("message", message),
		logging.Bool("interactive", w.interactive),
		logging.String(logging.FieldImpact, "run blocked until resumed"),
	)
	if !w.interactive || w.in == nil {
		return
	}
	if w.out != nil {
		fmt.Fprintf(w.out, "\n%s\nPress Enter to resume... ", message)
	}
	_, _ = w.in.ReadString('\n')
}

package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"liquidplan/internal/config"
	"liquidplan/internal/liquid"
	"liquidplan/internal/protocol"
	"liquidplan/internal/reagent"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckReservoir provisions every configured reagent and reports how many
// reservoir wells the run occupies.
func CheckReservoir(cfg *config.Config) Result {
	const name = "Reservoir"

	ledger, err := reagent.NewLedgerFromConfig(cfg, nil, nil)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	used := 0
	for _, st := range ledger.Statuses() {
		used += st.Channels
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d of %d wells provisioned", used, cfg.Reservoir.Wells)}
}

// CheckSimulation runs the configured protocol against the simulator with no
// delays. Channel exhaustion and parked-tip mistakes surface here instead of
// halfway through a real run.
func CheckSimulation(ctx context.Context, cfg *config.Config) Result {
	const name = "Protocol simulation"

	p, err := protocol.New(cfg)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	session, err := protocol.NewSession(protocol.Options{
		Config:  cfg,
		Handler: liquid.NewSimulator(liquid.SimulatorOptions{Pipette: cfg.Pipette.Name}),
	})
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	result, err := session.Run(ctx, p)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	detail := fmt.Sprintf("%d steps, %d tips", len(result.Steps), result.TipsUsed())
	if refills := result.TipRefills(); refills > 0 {
		detail += fmt.Sprintf(", %d tip rack refill(s) will pause the run", refills)
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckNtfy verifies that the ntfy server behind topic answers its health
// endpoint.
func CheckNtfy(ctx context.Context, topic string) Result {
	const name = "ntfy"

	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Result{Name: name, Detail: "missing topic url"}
	}
	parsed, err := url.Parse(topic)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return Result{Name: name, Detail: fmt.Sprintf("invalid topic url %q", topic)}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health := url.URL{Scheme: parsed.Scheme, Host: parsed.Host, Path: "/v1/health"}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, health.String(), nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%v)", err)}
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeHTTPError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

func summarizeHTTPError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (server unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (server unreachable)"
	}
	return fmt.Sprintf("health check failed (%v)", err)
}

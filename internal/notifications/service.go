package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"liquidplan/internal/config"
)

const userAgent = "liquidplan/0.1.0"

// Event identifies an operator signal.
type Event string

const (
	EventRunStarted   Event = "run_started"
	EventTipRefill    Event = "tip_refill"
	EventWasteBinFull Event = "waste_bin_full"
	EventRunCompleted Event = "run_completed"
	EventError        Event = "error"
	EventTest         Event = "test"
)

// Payload carries event fields.
type Payload map[string]any

// Service publishes operator signals.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventTipRefill:    cfg.Notifications.TipReplacement,
			EventWasteBinFull: cfg.Notifications.WasteBin,
			EventRunCompleted: cfg.Notifications.RunCompleted,
			EventError:        cfg.Notifications.Errors,
			EventTest:         true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventTipRefill:
		body := fmt.Sprintf("Replace the tip racks for %s (refill %s).", payload.str("pipette"), payload.str("refill"))
		if parked := payload.str("parked"); parked != "" && parked != "0" {
			body += fmt.Sprintf("\nLeave the %s parked tip column(s) in place.", parked)
		}
		return message{
			title:    "liquidplan - Tip Racks Empty",
			body:     body,
			tags:     []string{"liquidplan", "tips", "operator"},
			priority: "high",
		}, true
	case EventWasteBinFull:
		return message{
			title: "liquidplan - Waste Bin Full",
			body:  fmt.Sprintf("Empty the tip waste bin: %s tips dropped by %s.", payload.str("dropped"), payload.str("pipette")),
			tags:  []string{"liquidplan", "waste", "operator"},
		}, true
	case EventRunCompleted:
		return message{
			title: "liquidplan - Run Complete",
			body: fmt.Sprintf("%s finished for %s samples in %s.\nTips used: %s",
				payload.str("protocol"), payload.str("samples"), payload.str("duration"), payload.str("tips")),
			tags: []string{"liquidplan", "run", "completed"},
		}, true
	case EventError:
		label := payload.str("context")
		body := "Error"
		if label != "" {
			body += " in " + label
		}
		errText := payload.str("error")
		if errText == "" {
			errText = "unknown"
		}
		return message{
			title:    "liquidplan - Error",
			body:     body + ": " + errText,
			tags:     []string{"liquidplan", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "liquidplan - Test",
			body:     "Notification system test",
			tags:     []string{"liquidplan", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (p Payload) str(key string) string {
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case time.Duration:
		return v.Round(time.Second).String()
	default:
		return fmt.Sprint(v)
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }

package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"spyglass/internal/config"
)

const userAgent = "Spyglass/0.1.0"

// Event identifies a notable pipeline moment worth pushing to the user.
type Event string

const (
	EventTaskCompleted Event = "task_completed"
	EventTaskFailed    Event = "task_failed"
	EventDaemonStarted Event = "daemon_started"
	EventDaemonStopped Event = "daemon_stopped"
	EventTest          Event = "test"
)

// Payload carries event-specific values into the rendered message.
type Payload map[string]any

// Service publishes pipeline events. Implementations must never block the
// pipeline on delivery problems; callers log returned errors and move on.
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
		events:   cfg.Notifications,
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
	events   config.Notifications
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	data, ok := n.render(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, data)
}

// render maps an event onto an ntfy message. The second return is false when
// the event is suppressed by configuration or unknown.
func (n *ntfyService) render(event Event, payload Payload) (message, bool) {
	switch event {
	case EventTaskCompleted:
		if !n.events.TaskCompleted {
			return message{}, false
		}
		return message{
			title: "Spyglass - Analysis Complete",
			body: fmt.Sprintf("✅ Analysis complete: %s (%s, %s)",
				profileLabel(payload), text(payload, "depth"), text(payload, "source")),
			tags: []string{"spyglass", "task", "completed"},
		}, true
	case EventTaskFailed:
		if !n.events.TaskFailed {
			return message{}, false
		}
		detail := text(payload, "detail")
		if detail == "" {
			detail = "unknown error"
		}
		return message{
			title:    "Spyglass - Analysis Failed",
			body:     fmt.Sprintf("❌ Analysis failed for %s: %s", profileLabel(payload), detail),
			tags:     []string{"spyglass", "task", "failed"},
			priority: "high",
		}, true
	case EventDaemonStarted:
		if !n.events.DaemonEvents {
			return message{}, false
		}
		body := "Spyglass daemon started"
		if bind := text(payload, "bind"); bind != "" {
			body = fmt.Sprintf("%s, API on %s", body, bind)
		}
		return message{
			title: "Spyglass - Daemon",
			body:  body,
			tags:  []string{"spyglass", "daemon", "started"},
		}, true
	case EventDaemonStopped:
		if !n.events.DaemonEvents {
			return message{}, false
		}
		body := "Spyglass daemon stopped"
		if uptime := durationText(payload, "uptime"); uptime != "" {
			body = fmt.Sprintf("%s after %s", body, uptime)
		}
		return message{
			title: "Spyglass - Daemon",
			body:  body,
			tags:  []string{"spyglass", "daemon", "stopped"},
		}, true
	case EventTest:
		return message{
			title:    "Spyglass - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"spyglass", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func profileLabel(payload Payload) string {
	platform := text(payload, "platform")
	identifier := text(payload, "identifier")
	switch {
	case platform != "" && identifier != "":
		return platform + "/" + identifier
	case identifier != "":
		return identifier
	case platform != "":
		return platform
	default:
		return "profile"
	}
}

func text(payload Payload, key string) string {
	value, ok := payload[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func durationText(payload Payload, key string) string {
	value, ok := payload[key]
	if !ok || value == nil {
		return ""
	}
	duration, ok := value.(time.Duration)
	if !ok {
		return text(payload, key)
	}
	duration = duration.Round(time.Second)
	if duration <= 0 {
		return "0s"
	}
	return duration.String()
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

package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hotfolder/internal/config"
	"hotfolder/internal/textutil"
)

const userAgent = "hotfolder/0.1.0"

// Event identifies a notification kind.
type Event string

const (
	EventIngested     Event = "ingested"
	EventQuarantined  Event = "quarantined"
	EventCycleSkipped Event = "cycle_skipped"
	EventError        Event = "error"
	EventTest         Event = "test"
)

// Payload carries event fields. Keys are event specific.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
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
			EventIngested:     cfg.Notifications.Ingested,
			EventQuarantined:  cfg.Notifications.Quarantine,
			EventCycleSkipped: cfg.Notifications.Errors,
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
	if n == nil || !n.enabled[event] {
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
	case EventIngested:
		body := fmt.Sprintf("📥 Ingested %s as unit #%s", payload.text("entry"), payload.text("unitID"))
		if files := payload.text("files"); files != "" {
			body += fmt.Sprintf(" (%s files)", files)
		}
		return message{
			title: "Hotfolder - Ingested",
			body:  body,
			tags:  []string{"hotfolder", "ingest", "completed"},
		}, true
	case EventQuarantined:
		body := fmt.Sprintf("🚧 Quarantined %s at %s", payload.text("entry"), payload.text("stage"))
		if reason := payload.text("error"); reason != "" {
			body += ": " + reason
		}
		if hint := payload.text("hint"); hint != "" {
			body += "\nNext: " + hint
		}
		return message{
			title:    "Hotfolder - Quarantined",
			body:     body,
			tags:     []string{"hotfolder", "quarantine", textutil.SanitizeToken(payload.text("reason"))},
			priority: "high",
		}, true
	case EventCycleSkipped:
		return message{
			title:    "Hotfolder - Cycle Skipped",
			body:     fmt.Sprintf("⏸️ Poll cycle skipped: %s", payload.text("error")),
			tags:     []string{"hotfolder", "cycle", "skipped"},
			priority: "high",
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if label := payload.text("context"); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		if errText := payload.text("error"); errText != "" {
			builder.WriteString(errText)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "Hotfolder - Error",
			body:     builder.String(),
			tags:     []string{"hotfolder", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Hotfolder - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"hotfolder", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	if err, ok := value.(error); ok {
		return strings.TrimSpace(err.Error())
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n.client == nil {
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
	tags := make([]string, 0, len(data.tags))
	for _, tag := range data.tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	if len(tags) > 0 {
		req.Header.Set("Tags", strings.Join(tags, ","))
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

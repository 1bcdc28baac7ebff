package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"anchorcast/internal/config"
)

const userAgent = "Anchorcast-Go/0.1.0"

// Service defines the notification surface exposed to the workflow.
type Service interface {
	NotifyPublished(ctx context.Context, itemID, title string) error
	NotifyCycleFailed(ctx context.Context, err error, itemID string) error
	NotifyCursorLost(ctx context.Context, lastID string) error
	TestNotification(ctx context.Context) error
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

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyPublished(ctx context.Context, itemID, title string) error {
	itemID = strings.TrimSpace(itemID)
	title = strings.TrimSpace(title)
	message := fmt.Sprintf("Published: %s", itemID)
	if title != "" {
		message = fmt.Sprintf("Published: %s\n%s", title, itemID)
	}
	data := payload{
		title:   "Anchorcast - Published",
		message: message,
		tags:    []string{"anchorcast", "publish", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCycleFailed(ctx context.Context, err error, itemID string) error {
	var builder strings.Builder
	builder.WriteString("Cycle failed")
	if itemID = strings.TrimSpace(itemID); itemID != "" {
		builder.WriteString(" for ")
		builder.WriteString(itemID)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Anchorcast - Error",
		message:  builder.String(),
		tags:     []string{"anchorcast", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCursorLost(ctx context.Context, lastID string) error {
	lastID = strings.TrimSpace(lastID)
	data := payload{
		title:    "Anchorcast - Cursor Lost",
		message:  fmt.Sprintf("Last published item %s no longer appears in the feed\nManual cursor reset required", lastID),
		tags:     []string{"anchorcast", "cursor", "review"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Anchorcast - Test",
		message:  "Notification system test",
		tags:     []string{"anchorcast", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
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

func (noopService) NotifyPublished(context.Context, string, string) error { return nil }
func (noopService) NotifyCycleFailed(context.Context, error, string) error {
	return nil
}
func (noopService) NotifyCursorLost(context.Context, string) error { return nil }
func (noopService) TestNotification(context.Context) error        { return nil }

package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"md5watch/internal/config"
	"md5watch/internal/report"
)

const userAgent = "md5watch/0.1.0"

// Service defines the notification surface exposed to the verifier and CLI.
type Service interface {
	NotifyClassification(ctx context.Context, res report.Result) error
	NotifyRelocationFailed(ctx context.Context, name string, err error) error
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
	return &ntfyService{
		endpoint:   topic,
		client:     &http.Client{Timeout: timeout},
		bad:        cfg.Notifications.Bad,
		invalid:    cfg.Notifications.Invalid,
		relocation: cfg.Notifications.Relocation,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	bad        bool
	invalid    bool
	relocation bool
}

func (n *ntfyService) NotifyClassification(ctx context.Context, res report.Result) error {
	var data payload
	switch res.Classification {
	case report.Bad:
		if !n.bad {
			return nil
		}
		data = payload{
			title:    "md5watch - Corrupted File",
			message:  fmt.Sprintf("BAD: %s\nexpected %s\nactual   %s", res.Name, res.Expected, res.Actual),
			tags:     []string{"md5watch", "bad", "warning"},
			priority: "high",
		}
	case report.Invalid:
		if !n.invalid {
			return nil
		}
		data = payload{
			title:   "md5watch - Invalid Name",
			message: fmt.Sprintf("INVALID: %s carries no MD5 token", res.Name),
			tags:    []string{"md5watch", "invalid"},
		}
	default:
		return nil
	}
	if res.SourceTag > 0 {
		data.message = fmt.Sprintf("%s\nsource: [%d]", data.message, res.SourceTag)
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRelocationFailed(ctx context.Context, name string, err error) error {
	if !n.relocation {
		return nil
	}
	reason := "unknown"
	if err != nil {
		reason = strings.TrimSpace(err.Error())
	}
	return n.send(ctx, payload{
		title:    "md5watch - Relocation Failed",
		message:  fmt.Sprintf("Could not move %s into the holding directory: %s", strings.TrimSpace(name), reason),
		tags:     []string{"md5watch", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "md5watch - Test",
		message:  "Notification system test",
		tags:     []string{"md5watch", "test"},
		priority: "low",
	})
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

func (noopService) NotifyClassification(context.Context, report.Result) error   { return nil }
func (noopService) NotifyRelocationFailed(context.Context, string, error) error { return nil }
func (noopService) TestNotification(context.Context) error                      { return nil }

// Package notifications delivers push notifications for pipeline events via
// ntfy. An empty topic yields a no-op service, so callers never nil-check.
package notifications

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"clipwatch/internal/config"
	"clipwatch/internal/job"
	"clipwatch/internal/logging"
	"clipwatch/internal/services"
)

// Service sends user-facing notifications for pipeline events. Methods are
// gated by configuration; a suppressed event returns nil.
type Service interface {
	NotifyStageStuck(ctx context.Context, jobID string, stage job.StageName, waited time.Duration) error
	NotifyStageFailed(ctx context.Context, jobID string, stage job.StageName, detail string) error
	NotifyPipelineCompleted(ctx context.Context, jobID, title string) error
	NotifyConnectionLost(ctx context.Context, jobID, lastError string) error
	NotifySagaFinished(ctx context.Context, jobID, summary string, ok bool) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service from configuration. An empty
// topic disables notifications entirely.
func NewService(cfg config.Notifications, logger *slog.Logger) Service {
	if strings.TrimSpace(cfg.NtfyTopic) == "" {
		return &noopService{}
	}
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		topicURL: strings.TrimRight(cfg.NtfyTopic, "/"),
		cfg:      cfg,
		client:   &http.Client{Timeout: timeout},
		logger:   logging.NewComponentLogger(logger, "notifications"),
	}
}

type ntfyService struct {
	topicURL string
	cfg      config.Notifications
	client   *http.Client
	logger   *slog.Logger
}

func (s *ntfyService) NotifyStageStuck(ctx context.Context, jobID string, stage job.StageName, waited time.Duration) error {
	if !s.cfg.Stuck {
		return nil
	}
	body := fmt.Sprintf("%s has been running for %s on job %s", stage.Label(), waited.Round(time.Minute), jobID)
	return s.publish(ctx, "Stage stuck", "warning", body)
}

func (s *ntfyService) NotifyStageFailed(ctx context.Context, jobID string, stage job.StageName, detail string) error {
	if !s.cfg.Failures {
		return nil
	}
	body := fmt.Sprintf("%s failed on job %s", stage.Label(), jobID)
	if detail != "" {
		body += ": " + detail
	}
	return s.publish(ctx, "Stage failed", "x", body)
}

func (s *ntfyService) NotifyPipelineCompleted(ctx context.Context, jobID, title string) error {
	if !s.cfg.Saga {
		return nil
	}
	if title == "" {
		title = jobID
	}
	return s.publish(ctx, "Pipeline complete", "white_check_mark",
		fmt.Sprintf("%s finished all stages", title))
}

func (s *ntfyService) NotifyConnectionLost(ctx context.Context, jobID, lastError string) error {
	if !s.cfg.Connection {
		return nil
	}
	body := fmt.Sprintf("push channel for job %s is down, falling back to polling", jobID)
	if lastError != "" {
		body += " (" + lastError + ")"
	}
	return s.publish(ctx, "Connection lost", "warning", body)
}

func (s *ntfyService) NotifySagaFinished(ctx context.Context, jobID, summary string, ok bool) error {
	if !s.cfg.Saga {
		return nil
	}
	title := "Processing finished"
	tag := "white_check_mark"
	if !ok {
		title = "Processing finished with errors"
		tag = "warning"
	}
	return s.publish(ctx, title, tag, fmt.Sprintf("job %s: %s", jobID, summary))
}

func (s *ntfyService) TestNotification(ctx context.Context) error {
	return s.publish(ctx, "Test notification", "bell", "clipwatch notifications are working")
}

func (s *ntfyService) publish(ctx context.Context, title, tags, body string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.topicURL, strings.NewReader(body))
	if err != nil {
		return services.Wrap(services.ErrValidation, "notifications", "publish", "build request", err)
	}
	req.Header.Set("Title", title)
	req.Header.Set("Tags", tags)

	resp, err := s.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "notifications", "publish", "send notification", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 512))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return services.Wrap(services.ErrTransient, "notifications", "publish",
			fmt.Sprintf("ntfy returned %d", resp.StatusCode), nil)
	}
	s.logger.Debug("notification sent", logging.String("title", title))
	return nil
}

type noopService struct{}

func (noopService) NotifyStageStuck(context.Context, string, job.StageName, time.Duration) error {
	return nil
}

func (noopService) NotifyStageFailed(context.Context, string, job.StageName, string) error {
	return nil
}

func (noopService) NotifyPipelineCompleted(context.Context, string, string) error { return nil }

func (noopService) NotifyConnectionLost(context.Context, string, string) error { return nil }

func (noopService) NotifySagaFinished(context.Context, string, string, bool) error { return nil }

func (noopService) TestNotification(context.Context) error { return nil }

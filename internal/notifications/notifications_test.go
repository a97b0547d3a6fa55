package notifications_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"clipwatch/internal/config"
	"clipwatch/internal/job"
	"clipwatch/internal/notifications"
)

type captured struct {
	title string
	tags  string
	body  string
}

func newCapture(t *testing.T, cfg config.Notifications) (notifications.Service, func() []captured) {
	t.Helper()
	var mu sync.Mutex
	var got []captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 1024)
		n, _ := r.Body.Read(buf)
		mu.Lock()
		got = append(got, captured{
			title: r.Header.Get("Title"),
			tags:  r.Header.Get("Tags"),
			body:  string(buf[:n]),
		})
		mu.Unlock()
	}))
	t.Cleanup(server.Close)
	cfg.NtfyTopic = server.URL + "/clipwatch"
	return notifications.NewService(cfg, nil), func() []captured {
		mu.Lock()
		defer mu.Unlock()
		out := make([]captured, len(got))
		copy(out, got)
		return out
	}
}

func TestEmptyTopicIsNoop(t *testing.T) {
	service := notifications.NewService(config.Notifications{Stuck: true}, nil)
	if err := service.NotifyStageStuck(context.Background(), "job-1", job.StageTranscription, time.Minute); err != nil {
		t.Fatalf("noop service returned error: %v", err)
	}
}

func TestStuckNotificationPublishes(t *testing.T) {
	service, messages := newCapture(t, config.Notifications{Stuck: true})

	err := service.NotifyStageStuck(context.Background(), "job-1", job.StageTranscription, 3*time.Minute)
	if err != nil {
		t.Fatalf("NotifyStageStuck failed: %v", err)
	}
	got := messages()
	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
	if got[0].title != "Stage stuck" {
		t.Fatalf("title = %q", got[0].title)
	}
}

func TestDisabledCategoriesAreSuppressed(t *testing.T) {
	service, messages := newCapture(t, config.Notifications{Stuck: false, Failures: false})

	if err := service.NotifyStageStuck(context.Background(), "job-1", job.StageDownload, time.Minute); err != nil {
		t.Fatalf("suppressed event returned error: %v", err)
	}
	if err := service.NotifyStageFailed(context.Background(), "job-1", job.StageDownload, "boom"); err != nil {
		t.Fatalf("suppressed event returned error: %v", err)
	}
	if got := messages(); len(got) != 0 {
		t.Fatalf("expected no messages, got %d", len(got))
	}
}

func TestSagaFinishedCarriesOutcome(t *testing.T) {
	service, messages := newCapture(t, config.Notifications{Saga: true})

	if err := service.NotifySagaFinished(context.Background(), "job-1", "upload failed", false); err != nil {
		t.Fatalf("NotifySagaFinished failed: %v", err)
	}
	got := messages()
	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
	if got[0].title != "Processing finished with errors" {
		t.Fatalf("title = %q", got[0].title)
	}
}

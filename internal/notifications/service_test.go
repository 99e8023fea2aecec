package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"md5watch/internal/config"
	"md5watch/internal/notifications"
	"md5watch/internal/report"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func newCaptureServer(t *testing.T) (*httptest.Server, func() []captured) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []captured
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []captured {
		mu.Lock()
		defer mu.Unlock()
		return append([]captured(nil), reqs...)
	}
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyClassification(context.Background(), report.Result{Name: "x", Classification: report.Bad}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNotifyClassificationHonoursToggles(t *testing.T) {
	srv, requests := newCaptureServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	cfg.Notifications.Bad = true
	cfg.Notifications.Invalid = false
	svc := notifications.NewService(&cfg)
	ctx := context.Background()

	for _, res := range []report.Result{
		{Name: "good", Classification: report.Good},
		{Name: "bad", Classification: report.Bad, Expected: "aa", Actual: "bb", SourceTag: 2},
		{Name: "invalid", Classification: report.Invalid},
	} {
		if err := svc.NotifyClassification(ctx, res); err != nil {
			t.Fatalf("NotifyClassification(%s): %v", res.Name, err)
		}
	}

	got := requests()
	if len(got) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(got))
	}
	if got[0].title != "md5watch - Corrupted File" || got[0].priority != "high" {
		t.Fatalf("unexpected headers %+v", got[0])
	}
	if !strings.Contains(got[0].body, "BAD: bad") || !strings.Contains(got[0].body, "source: [2]") {
		t.Fatalf("unexpected body %q", got[0].body)
	}
}

func TestNotifyRelocationFailed(t *testing.T) {
	srv, requests := newCaptureServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	cfg.Notifications.Relocation = true
	svc := notifications.NewService(&cfg)

	if err := svc.NotifyRelocationFailed(context.Background(), "f.bin", errors.New("permission denied")); err != nil {
		t.Fatal(err)
	}
	got := requests()
	if len(got) != 1 || !strings.Contains(got[0].body, "permission denied") || got[0].tags != "md5watch,error,alert" {
		t.Fatalf("unexpected notification %+v", got)
	}
}

func TestSendReportsServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "topic blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	err := notifications.NewService(&cfg).TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}

package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"worker-transcribe/config"
	"worker-transcribe/constant"
	"worker-transcribe/dto"
)

func testWebhookConfig() config.Webhook {
	return config.Webhook{
		Timeout:    2 * time.Second,
		MaxRetries: 3,
	}
}

func TestWebhookNotifierDelivers(t *testing.T) {
	var gotEvent string
	var gotPayload dto.WebhookPayload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotEvent = r.Header.Get("X-Event-Type")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotPayload); err != nil {
			t.Errorf("unmarshal payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	id := uuid.New()
	n := NewWebhookNotifier(testWebhookConfig())
	err := n.Notify(context.Background(), srv.URL, constant.EventTranscriptionCompleted, dto.WebhookPayload{
		Event:  string(constant.EventTranscriptionCompleted),
		JobId:  id,
		Status: "completed",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}

	if gotEvent != "transcription.completed" {
		t.Fatalf("event header = %q", gotEvent)
	}
	if gotPayload.JobId != id {
		t.Fatalf("payload job id = %s, want %s", gotPayload.JobId, id)
	}
}

func TestWebhookNotifierRetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(testWebhookConfig())
	err := n.Notify(context.Background(), srv.URL, constant.EventTranscriptionFailed, dto.WebhookPayload{})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestWebhookNotifierGivesUpAfterBound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(testWebhookConfig())
	err := n.Notify(context.Background(), srv.URL, constant.EventTranscriptionFailed, dto.WebhookPayload{})
	if err == nil {
		t.Fatal("expected delivery failure")
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sbs27/salespipe/adapter"
	"github.com/sbs27/salespipe/types"
)

func testEvent() *adapter.RunCompletedEvent {
	return &adapter.RunCompletedEvent{
		Version:          types.Version,
		EventType:        adapter.EventTypeRunCompleted,
		RunID:            "run-001",
		Trigger:          "schedule",
		Source:           "sales_csv",
		Day:              "2024-01-03",
		Outcome:          "success",
		RecordsExtracted: 3,
		RecordsInserted:  3,
		TotalRevenue:     103000,
		DurationMs:       42,
		Timestamp:        "2024-01-03T12:00:00Z",
	}
}

func TestPublish_Success(t *testing.T) {
	var gotBody adapter.RunCompletedEvent
	var gotMethod, gotContentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a, err := New(Config{URL: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if err := a.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("method = %q, want POST", gotMethod)
	}
	if gotContentType != "application/json" {
		t.Errorf("content-type = %q, want application/json", gotContentType)
	}
	if gotBody.RunID != "run-001" {
		t.Errorf("run_id = %q, want run-001", gotBody.RunID)
	}
	if gotBody.EventType != adapter.EventTypeRunCompleted {
		t.Errorf("event_type = %q, want %q", gotBody.EventType, adapter.EventTypeRunCompleted)
	}
	if gotBody.Outcome != "success" {
		t.Errorf("outcome = %q, want success", gotBody.Outcome)
	}
	if gotBody.RecordsInserted != 3 {
		t.Errorf("records_inserted = %d, want 3", gotBody.RecordsInserted)
	}
	if gotBody.TotalRevenue != 103000 {
		t.Errorf("total_revenue = %d, want 103000", gotBody.TotalRevenue)
	}
}

func TestPublish_CustomHeaders(t *testing.T) {
	var gotAuth, gotCustom string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCustom = r.Header.Get("X-Pipeline")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a, err := New(Config{
		URL: srv.URL,
		Headers: map[string]string{
			"Authorization": "Bearer token123",
			"X-Pipeline":    "salespipe",
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if err := a.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if gotAuth != "Bearer token123" {
		t.Errorf("Authorization = %q, want Bearer token123", gotAuth)
	}
	if gotCustom != "salespipe" {
		t.Errorf("X-Pipeline = %q, want salespipe", gotCustom)
	}
}

func TestPublish_RunIdentityHeaders(t *testing.T) {
	var gotEvent, gotRunID, gotOutcome string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotEvent = r.Header.Get("X-Salespipe-Event")
		gotRunID = r.Header.Get("X-Salespipe-Run-Id")
		gotOutcome = r.Header.Get("X-Salespipe-Outcome")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a, err := New(Config{URL: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if err := a.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if gotEvent != adapter.EventTypeRunCompleted {
		t.Errorf("X-Salespipe-Event = %q, want %q", gotEvent, adapter.EventTypeRunCompleted)
	}
	if gotRunID != "run-001" {
		t.Errorf("X-Salespipe-Run-Id = %q, want run-001", gotRunID)
	}
	if gotOutcome != "success" {
		t.Errorf("X-Salespipe-Outcome = %q, want success", gotOutcome)
	}
}

func TestPublish_RetriesOnFailure(t *testing.T) {
	var attempts atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a, err := New(Config{URL: srv.URL, Retries: 3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if err := a.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestPublish_ExhaustsRetries(t *testing.T) {
	var attempts atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a, err := New(Config{URL: srv.URL, Retries: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	err = a.Publish(t.Context(), testEvent())
	if err == nil {
		t.Fatal("Publish succeeded, want error after exhausting retries")
	}

	// 1 initial + 2 retries
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestPublish_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a, err := New(Config{URL: srv.URL, Retries: 5})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if err := a.Publish(ctx, testEvent()); err == nil {
		t.Fatal("Publish succeeded with canceled context, want error")
	}
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := New(Config{})
	if err == nil {
		t.Fatal("New accepted empty URL, want error")
	}
}

func TestNew_RejectsNegativeRetries(t *testing.T) {
	_, err := New(Config{URL: "http://example.com", Retries: -1})
	if err == nil {
		t.Fatal("New accepted negative retries, want error")
	}
}

func TestNew_DefaultTimeout(t *testing.T) {
	a, err := New(Config{URL: "http://example.com"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.config.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", a.config.Timeout, DefaultTimeout)
	}
}

func TestNew_ExplicitTimeout(t *testing.T) {
	a, err := New(Config{URL: "http://example.com", Timeout: 3 * time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.config.Timeout != 3*time.Second {
		t.Errorf("timeout = %v, want 3s", a.config.Timeout)
	}
}

func TestPublish_Accepts2xxRange(t *testing.T) {
	for _, code := range []int{200, 201, 202, 204} {
		t.Run(fmt.Sprintf("%d", code), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(code)
			}))
			defer srv.Close()

			a, err := New(Config{URL: srv.URL})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer a.Close()

			if err := a.Publish(t.Context(), testEvent()); err != nil {
				t.Errorf("Publish with status %d: %v", code, err)
			}
		})
	}
}

func TestPublish_4xxFailsImmediately(t *testing.T) {
	for _, code := range []int{400, 401, 403, 404, 422} {
		t.Run(fmt.Sprintf("%d", code), func(t *testing.T) {
			var attempts atomic.Int32

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				w.WriteHeader(code)
			}))
			defer srv.Close()

			a, err := New(Config{URL: srv.URL, Retries: 3})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer a.Close()

			err = a.Publish(t.Context(), testEvent())
			if err == nil {
				t.Fatalf("Publish succeeded with status %d, want error", code)
			}

			// 4xx must not be retried
			if got := attempts.Load(); got != 1 {
				t.Errorf("attempts = %d, want 1", got)
			}
		})
	}
}

func TestPublish_5xxRetriesAndFails(t *testing.T) {
	for _, code := range []int{500, 502, 503} {
		t.Run(fmt.Sprintf("%d", code), func(t *testing.T) {
			var attempts atomic.Int32

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				w.WriteHeader(code)
			}))
			defer srv.Close()

			a, err := New(Config{URL: srv.URL, Retries: 2})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer a.Close()

			err = a.Publish(t.Context(), testEvent())
			if err == nil {
				t.Fatalf("Publish succeeded with status %d, want error", code)
			}

			if got := attempts.Load(); got != 3 {
				t.Errorf("attempts = %d, want 3", got)
			}
		})
	}
}

package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/ipl-snapshot/internal/domain/tournament"
	"github.com/riskibarqy/ipl-snapshot/internal/platform/resilience"
)

func TestClient_GetJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/score" || r.URL.Query().Get("id") != "current" {
			http.NotFound(w, r)
			return
		}
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "ipl-snapshot/") {
			t.Errorf("missing user agent header")
		}
		_, _ = w.Write([]byte(`{"title":"IPL 2025"}`))
	}))
	defer srv.Close()

	client := New(Config{Name: "livescore", BaseURL: srv.URL + "/", Timeout: time.Second})

	var out struct {
		Title string `json:"title"`
	}
	if err := client.GetJSON(context.Background(), "/score", url.Values{"id": {"current"}}, &out); err != nil {
		t.Fatalf("get json: %v", err)
	}
	if out.Title != "IPL 2025" {
		t.Fatalf("unexpected title %q", out.Title)
	}
}

func TestClient_NonSuccessStatusIsFetchFailed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := New(Config{Name: "iplsite", BaseURL: srv.URL, Timeout: time.Second})
	_, err := client.Get(context.Background(), "/matches", nil)
	if !errors.Is(err, tournament.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "status=502") {
		t.Fatalf("expected status detail in %q", err.Error())
	}
}

func TestClient_DecodeErrorIsParseFailed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	client := New(Config{Name: "cricapi", BaseURL: srv.URL})
	var out map[string]any
	err := client.GetJSON(context.Background(), "/currentMatches", nil, &out)
	if !errors.Is(err, tournament.ErrParseFailed) {
		t.Fatalf("expected ErrParseFailed, got %v", err)
	}
}

func TestClient_TimeoutIsFetchFailed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := New(Config{Name: "iplsite", BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	started := time.Now()
	_, err := client.Get(context.Background(), "/", nil)
	if !errors.Is(err, tournament.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
	if time.Since(started) > time.Second {
		t.Fatalf("timeout not enforced")
	}
}

func TestClient_RedactsAPIKey(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	client := New(Config{Name: "cricapi", BaseURL: baseURL, Secrets: []string{"secret-key-123"}})
	_, err := client.Get(context.Background(), "/currentMatches", url.Values{"apikey": {"secret-key-123"}})
	if err == nil {
		t.Fatalf("expected connection error")
	}
	if strings.Contains(err.Error(), "secret-key-123") {
		t.Fatalf("api key leaked in error: %v", err)
	}
}

func TestClient_CircuitBreakerStopsCalls(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := New(Config{
		Name:    "livescore",
		BaseURL: srv.URL,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 2,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	})

	for i := 0; i < 4; i++ {
		if _, err := client.Get(context.Background(), "/score", nil); !errors.Is(err, tournament.ErrFetchFailed) {
			t.Fatalf("call %d: expected ErrFetchFailed, got %v", i, err)
		}
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("expected breaker to stop after 2 upstream hits, got %d", got)
	}
}

func TestClient_CallerCancellationDoesNotTripBreaker(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("slow") == "1" {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(2 * time.Second):
			}
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := New(Config{
		Name:    "cricapi",
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 2,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	})

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
		time.AfterFunc(5*time.Millisecond, cancel)
		if _, err := client.Get(ctx, "/currentMatches", url.Values{"slow": {"1"}}); !errors.Is(err, tournament.ErrFetchFailed) {
			t.Fatalf("call %d: expected ErrFetchFailed, got %v", i, err)
		}
		cancel()
	}

	if _, err := client.Get(context.Background(), "/currentMatches", nil); err != nil {
		t.Fatalf("healthy upstream rejected after cancelled calls: %v", err)
	}
	if state := client.breaker.State(); state != resilience.CircuitStateClosed {
		t.Fatalf("unexpected breaker state %s", state)
	}
}

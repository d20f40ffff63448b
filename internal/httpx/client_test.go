package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	clierr "github.com/Dimple-Kanwar/SafeStake.AI/internal/errors"
)

func TestGetJSONDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"symbol":"ETH","price":2500}`))
	}))
	defer srv.Close()

	client := New(2*time.Second, 0)
	var out struct {
		Symbol string  `json:"symbol"`
		Price  float64 `json:"price"`
	}
	if err := client.GetJSON(context.Background(), srv.URL, &out); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if out.Symbol != "ETH" || out.Price != 2500 {
		t.Fatalf("unexpected payload: %+v", out)
	}
}

func TestRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := New(2*time.Second, 2)
	var out struct {
		OK bool `json:"ok"`
	}
	if err := client.GetJSON(context.Background(), srv.URL, &out); err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 calls, got %d", got)
	}
	if !out.OK {
		t.Fatalf("unexpected payload: %+v", out)
	}
}

func TestRetriesExhaustedUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := New(2*time.Second, 1)
	var out map[string]any
	err := client.GetJSON(context.Background(), srv.URL, &out)
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if code := clierr.CodeOf(err); code != clierr.CodeUnavailable {
		t.Fatalf("expected unavailable error, got code %d (%v)", code, err)
	}
}

func TestNonRetryableStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := New(2*time.Second, 3)
	var out map[string]any
	err := client.GetJSON(context.Background(), srv.URL, &out)
	if err == nil {
		t.Fatal("expected error on 404")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("404 should not be retried, got %d calls", got)
	}
}

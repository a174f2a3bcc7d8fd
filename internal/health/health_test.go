package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okPing(context.Context) error { return nil }

func failingPing(msg string) func(context.Context) error {
	return func(context.Context) error { return errors.New(msg) }
}

// fixedChecker отдаёт заранее заданный статус, как проверка breaker'а событий.
type fixedChecker Check

func (c fixedChecker) Check(context.Context) Check { return Check(c) }

func TestHandler_StoreTopologies(t *testing.T) {
	tests := []struct {
		name       string
		checkers   map[string]Checker
		wantStatus Status
		wantCode   int
		wantReady  int
	}{
		{
			name:       "memory store",
			checkers:   map[string]Checker{"store": NewPingChecker("store", 0, okPing)},
			wantStatus: StatusHealthy,
			wantCode:   http.StatusOK,
			wantReady:  http.StatusOK,
		},
		{
			name: "mongo with postgres counter",
			checkers: map[string]Checker{
				"mongo":    NewPingChecker("mongo", 0, okPing),
				"postgres": NewPingChecker("postgres", 0, okPing),
			},
			wantStatus: StatusHealthy,
			wantCode:   http.StatusOK,
			wantReady:  http.StatusOK,
		},
		{
			name: "counter backend down",
			checkers: map[string]Checker{
				"mongo":    NewPingChecker("mongo", 0, okPing),
				"postgres": NewPingChecker("postgres", 0, failingPing("connection refused")),
			},
			wantStatus: StatusUnhealthy,
			wantCode:   http.StatusServiceUnavailable,
			wantReady:  http.StatusServiceUnavailable,
		},
		{
			name: "events degraded only",
			checkers: map[string]Checker{
				"mongo": NewPingChecker("mongo", 0, okPing),
				"kafka": fixedChecker{Name: "kafka", Status: StatusDegraded, Message: "event circuit breaker is open"},
			},
			wantStatus: StatusDegraded,
			wantCode:   http.StatusOK,
			wantReady:  http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler("v1.2.0")
			for name, checker := range tt.checkers {
				handler.RegisterChecker(name, checker)
			}

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if w.Code != tt.wantCode {
				t.Errorf("/healthz code = %d, want %d", w.Code, tt.wantCode)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}

			var resp Response
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode /healthz: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", resp.Status, tt.wantStatus)
			}
			if resp.Version != "v1.2.0" {
				t.Errorf("version = %q", resp.Version)
			}
			if len(resp.Checks) != len(tt.checkers) {
				t.Errorf("got %d checks, want %d", len(resp.Checks), len(tt.checkers))
			}

			ready := httptest.NewRecorder()
			handler.ReadinessHandler(ready, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			if ready.Code != tt.wantReady {
				t.Errorf("/readyz code = %d, want %d", ready.Code, tt.wantReady)
			}
		})
	}
}

func TestHandler_FailureMessageReachesClient(t *testing.T) {
	handler := NewHandler("dev")
	handler.RegisterChecker("postgres", NewPingChecker("postgres", 0, failingPing("sequence_counters table is missing, run migrations")))

	resp := handler.Run(context.Background())
	got := resp.Checks["postgres"]
	if got.Status != StatusUnhealthy || got.Message != "sequence_counters table is missing, run migrations" {
		t.Errorf("unexpected check %+v", got)
	}
}

func TestLivenessIgnoresStores(t *testing.T) {
	w := httptest.NewRecorder()
	LivenessHandler(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Errorf("/livez = %d %q", w.Code, w.Body.String())
	}
}

func TestPingChecker_TimeoutBoundsSlowStore(t *testing.T) {
	checker := NewPingChecker("mongo", 20*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	check := checker.Check(context.Background())
	if check.Status != StatusUnhealthy {
		t.Errorf("status = %s, want unhealthy", check.Status)
	}
	if check.DurationMs < 20 {
		t.Errorf("duration = %dms, want >= 20ms", check.DurationMs)
	}
	if NewPingChecker("x", 0, okPing).timeout != DefaultCheckTimeout {
		t.Error("zero timeout must fall back to DefaultCheckTimeout")
	}
}

func TestNames_SortedAndReplaced(t *testing.T) {
	handler := NewHandler("dev")
	handler.RegisterChecker("store", NewPingChecker("store", 0, okPing))
	handler.RegisterChecker("kafka", NewPingChecker("kafka", 0, okPing))
	handler.RegisterChecker("store", NewPingChecker("store", 0, failingPing("down")))

	names := handler.Names()
	if len(names) != 2 || names[0] != "kafka" || names[1] != "store" {
		t.Errorf("names = %v", names)
	}
	if handler.Run(context.Background()).Status != StatusUnhealthy {
		t.Error("re-registered checker must replace the previous one")
	}
}

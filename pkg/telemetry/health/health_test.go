package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mercator-hq/custodian/pkg/records"
	"mercator-hq/custodian/pkg/records/store"
)

type failingStore struct{}

func (failingStore) QueryHolds(ctx context.Context, filter *records.HoldFilter) ([]*records.LegalHold, error) {
	return nil, errors.New("connection refused")
}

type policyState struct{ err error }

func (p policyState) LastLoadError() error { return p.err }

type runner bool

func (r runner) IsRunning() bool { return bool(r) }

func TestCheckReadiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus string
		unhealthy  []string
	}{
		{
			name:       "no checks",
			wantStatus: StatusReady,
		},
		{
			name: "all healthy",
			checks: map[string]CheckFunc{
				"record_store": StoreCheck(store.NewMemoryStore()),
				"policies":     PolicyCheck(policyState{}),
				"scheduler":    SchedulerCheck(runner(true)),
			},
			wantStatus: StatusReady,
		},
		{
			name: "store down and scheduler stopped",
			checks: map[string]CheckFunc{
				"record_store": StoreCheck(failingStore{}),
				"policies":     PolicyCheck(policyState{}),
				"scheduler":    SchedulerCheck(runner(false)),
			},
			wantStatus: StatusDegraded,
			unhealthy:  []string{"record_store", "scheduler"},
		},
		{
			name: "failed reload",
			checks: map[string]CheckFunc{
				"policies": PolicyCheck(policyState{err: errors.New("duplicate policy id")}),
			},
			wantStatus: StatusDegraded,
			unhealthy:  []string{"policies"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(time.Second)
			for name, check := range tt.checks {
				c.RegisterCheck(name, check)
			}

			status := c.CheckReadiness(context.Background())
			if status.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", status.Status, tt.wantStatus)
			}
			if len(status.Checks) != len(tt.checks) {
				t.Errorf("got %d check results, want %d", len(status.Checks), len(tt.checks))
			}
			for _, name := range tt.unhealthy {
				if got := status.Checks[name].Status; got != StatusUnhealthy {
					t.Errorf("check %s status = %q, want unhealthy", name, got)
				}
				if status.Checks[name].Message == "" {
					t.Errorf("check %s has no message", name)
				}
			}
		})
	}
}

func TestCheckReadiness_Timeout(t *testing.T) {
	c := New(20 * time.Millisecond)
	c.RegisterCheck("slow", func(ctx context.Context) error {
		time.Sleep(time.Second)
		return nil
	})

	status := c.CheckReadiness(context.Background())
	if got := status.Checks["slow"]; got.Status != StatusUnhealthy || got.Message != ErrCheckTimeout.Error() {
		t.Errorf("slow check = %+v, want timeout", got)
	}
}

func TestListChecks(t *testing.T) {
	c := New(0)
	c.RegisterCheck("scheduler", SchedulerCheck(runner(true)))
	c.RegisterCheck("policies", PolicyCheck(policyState{}))
	c.RegisterCheck("policies", PolicyCheck(policyState{}))

	got := c.ListChecks()
	if len(got) != 2 || got[0] != "policies" || got[1] != "scheduler" {
		t.Errorf("ListChecks() = %v", got)
	}
}

func TestEndpoints(t *testing.T) {
	c := New(time.Second)
	c.RegisterCheck("scheduler", SchedulerCheck(runner(false)))

	mux := http.NewServeMux()
	c.Mount("1.2.0", "abc123", "2026-01-02")(mux)

	tests := []struct {
		method   string
		path     string
		wantCode int
		wantKey  string
	}{
		{http.MethodGet, LivenessPath, http.StatusOK, "status"},
		{http.MethodGet, ReadinessPath, http.StatusServiceUnavailable, "checks"},
		{http.MethodGet, VersionPath, http.StatusOK, "go_version"},
		{http.MethodPost, LivenessPath, http.StatusMethodNotAllowed, ""},
		{http.MethodHead, VersionPath, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("status code = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantKey == "" {
				if tt.method == http.MethodHead && rec.Body.Len() != 0 {
					t.Errorf("HEAD response has a body: %q", rec.Body.String())
				}
				return
			}

			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("response is not JSON: %v", err)
			}
			if _, ok := body[tt.wantKey]; !ok {
				t.Errorf("response %v missing %q", body, tt.wantKey)
			}
		})
	}
}

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestChecker_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		catalogErr error
		filesErr   error
		want       string
	}{
		{"all healthy", nil, nil, StatusReady},
		{"files down", nil, errors.New("bucket missing"), StatusDegraded},
		{"catalog down", errors.New("locked"), nil, StatusUnhealthy},
		{"both down", errors.New("locked"), errors.New("bucket missing"), StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(time.Second)
			c.Register("catalog", PingCheck(fakePinger{tt.catalogErr}), true)
			c.Register("files", PingCheck(fakePinger{tt.filesErr}), false)

			report := c.Readiness(context.Background())
			if report.Status != tt.want {
				t.Errorf("status = %q, want %q", report.Status, tt.want)
			}
			if len(report.Checks) != 2 {
				t.Errorf("expected 2 check results, got %d", len(report.Checks))
			}
		})
	}
}

func TestChecker_Timeout(t *testing.T) {
	c := New(10 * time.Millisecond)
	c.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return nil
	}, true)

	report := c.Readiness(context.Background())
	got := report.Checks["slow"]
	if got.Status != StatusUnhealthy || got.Message != "health check timeout" {
		t.Errorf("unexpected result %+v", got)
	}
}

func TestChecker_PanickingCheck(t *testing.T) {
	c := New(time.Second)
	c.Register("boom", func(context.Context) error { panic("nil store") }, false)

	report := c.Readiness(context.Background())
	if report.Status != StatusDegraded {
		t.Errorf("status = %q, want %q", report.Status, StatusDegraded)
	}
}

func TestChecker_NilPinger(t *testing.T) {
	if err := PingCheck(nil)(context.Background()); err == nil {
		t.Error("expected error for nil pinger")
	}
}

func TestChecker_Names(t *testing.T) {
	c := New(0)
	c.Register("files", PingCheck(fakePinger{}), false)
	c.Register("catalog", PingCheck(fakePinger{}), true)
	c.Unregister("files")
	c.Register("queue", PingCheck(fakePinger{}), false)

	if diff := cmp.Diff([]string{"catalog", "queue"}, c.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}

func TestReadinessHandler(t *testing.T) {
	c := New(time.Second)
	c.Register("catalog", PingCheck(fakePinger{errors.New("down")}), true)

	rec := httptest.NewRecorder()
	c.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if report.Checks["catalog"].Message != "down" {
		t.Errorf("unexpected body %+v", report)
	}
}

func TestLivenessHandler(t *testing.T) {
	c := New(time.Second)

	rec := httptest.NewRecorder()
	c.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	c.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestVersionHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	VersionHandler(NewVersionInfo("1.2.3", "abc", "today")).ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/version", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body for HEAD, got %q", rec.Body.String())
	}
}

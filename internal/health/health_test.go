package health

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/securizon/internal/cache"
	"github.com/securizon/internal/tenant"
)

type fakeCheck struct {
	name   string
	status HealthStatus
}

func (f fakeCheck) Name() string { return f.name }
func (f fakeCheck) Check(ctx context.Context) HealthResult {
	return HealthResult{Name: f.name, Status: f.status}
}

func TestOverallStatusUnhealthyDominates(t *testing.T) {
	hc := NewHealthChecker()
	results := map[string]HealthResult{
		"a": {Status: StatusHealthy},
		"b": {Status: StatusDegraded},
		"c": {Status: StatusUnhealthy},
	}
	if got := hc.OverallStatus(results); got != StatusUnhealthy {
		t.Errorf("OverallStatus = %s, want unhealthy", got)
	}
}

func TestOverallStatusDegradedWithoutUnhealthy(t *testing.T) {
	hc := NewHealthChecker()
	results := map[string]HealthResult{
		"a": {Status: StatusHealthy},
		"b": {Status: StatusDegraded},
	}
	if got := hc.OverallStatus(results); got != StatusDegraded {
		t.Errorf("OverallStatus = %s, want degraded", got)
	}
}

func TestOverallStatusHealthy(t *testing.T) {
	hc := NewHealthChecker()
	results := map[string]HealthResult{"a": {Status: StatusHealthy}}
	if got := hc.OverallStatus(results); got != StatusHealthy {
		t.Errorf("OverallStatus = %s, want healthy", got)
	}
}

func TestCheckRunsAllRegisteredChecks(t *testing.T) {
	hc := NewHealthChecker()
	hc.Register(fakeCheck{name: "one", status: StatusHealthy})
	hc.Register(fakeCheck{name: "two", status: StatusDegraded})

	results := hc.Check(context.Background())
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results["one"].Status != StatusHealthy {
		t.Errorf("one.Status = %s, want healthy", results["one"].Status)
	}
	if results["two"].Status != StatusDegraded {
		t.Errorf("two.Status = %s, want degraded", results["two"].Status)
	}
}

func TestCacheHealthCheckHealthyWithLocalCache(t *testing.T) {
	check := &CacheHealthCheck{Manager: cache.NewManager("", 0)}
	res := check.Check(context.Background())
	if res.Status != StatusHealthy {
		t.Errorf("Status = %s, want healthy, message=%q", res.Status, res.Message)
	}
}

func TestTenantStoreHealthCheckHealthy(t *testing.T) {
	check := &TenantStoreHealthCheck{Store: tenant.NewMemStore()}
	res := check.Check(context.Background())
	if res.Status != StatusHealthy {
		t.Errorf("Status = %s, want healthy", res.Status)
	}
}

func TestHTTPHandlerReturnsServiceUnavailableWhenUnhealthy(t *testing.T) {
	hc := NewHealthChecker()
	hc.Register(fakeCheck{name: "broken", status: StatusUnhealthy})

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	hc.HTTPHandler()(rec, req)

	if rec.Code != 503 {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestLivenessHandlerAlwaysOK(t *testing.T) {
	req := httptest.NewRequest("GET", "/health/live", nil)
	rec := httptest.NewRecorder()
	LivenessHandler()(rec, req)

	if rec.Code != 200 {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

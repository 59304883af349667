package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheckerHealthAggregation(t *testing.T) {
	c := NewChecker("test")

	health := c.Health()
	if health.Status != "healthy" {
		t.Errorf("empty checker should be healthy, got %s", health.Status)
	}

	c.Set("daemon", true, "")
	c.Set("peer", true, "")
	if got := c.Health().Status; got != "healthy" {
		t.Errorf("all healthy components, got %s", got)
	}

	c.Set("daemon", false, "docker ps failed")
	health = c.Health()
	if health.Status != "unhealthy" {
		t.Errorf("one unhealthy component should flip status, got %s", health.Status)
	}
	if health.Components["daemon"] != "unhealthy: docker ps failed" {
		t.Errorf("unexpected component detail: %q", health.Components["daemon"])
	}
	if health.Components["peer"] != "healthy" {
		t.Errorf("healthy component mislabeled: %q", health.Components["peer"])
	}
}

func TestCheckerReadinessRequiresCriticalComponents(t *testing.T) {
	c := NewChecker("test", "daemon", "session")

	readiness := c.Readiness()
	if readiness.Status != "not_ready" {
		t.Errorf("unregistered critical components should block readiness, got %s", readiness.Status)
	}
	if readiness.Components["daemon"] != "not registered" {
		t.Errorf("unexpected detail: %q", readiness.Components["daemon"])
	}

	c.Set("daemon", true, "")
	if got := c.Readiness().Status; got != "not_ready" {
		t.Errorf("one critical component missing, got %s", got)
	}

	c.Set("session", true, "")
	if got := c.Readiness().Status; got != "ready" {
		t.Errorf("all critical components healthy, got %s", got)
	}

	c.Set("daemon", false, "daemon down")
	readiness = c.Readiness()
	if readiness.Status != "not_ready" {
		t.Errorf("unhealthy critical component, got %s", readiness.Status)
	}
	if readiness.Message != "waiting for daemon" {
		t.Errorf("unexpected message: %q", readiness.Message)
	}
}

func TestCheckerReadinessIgnoresNonCritical(t *testing.T) {
	c := NewChecker("test", "daemon")
	c.Set("daemon", true, "")
	c.Set("collector", false, "sampling stalled")

	if got := c.Readiness().Status; got != "ready" {
		t.Errorf("non-critical component should not gate readiness, got %s", got)
	}
	if got := c.Health().Status; got != "unhealthy" {
		t.Errorf("non-critical component should still degrade health, got %s", got)
	}
}

func TestHealthHandlerStatusCodes(t *testing.T) {
	c := NewChecker("1.2.3")
	c.Set("daemon", true, "")

	rec := httptest.NewRecorder()
	c.HealthHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("healthy checker should answer 200, got %d", rec.Code)
	}

	var status Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if status.Version != "1.2.3" {
		t.Errorf("version not propagated: %q", status.Version)
	}

	c.Set("daemon", false, "gone")
	rec = httptest.NewRecorder()
	c.HealthHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy checker should answer 503, got %d", rec.Code)
	}
}

func TestReadyAndLiveHandlers(t *testing.T) {
	c := NewChecker("test", "daemon")

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("not-ready checker should answer 503, got %d", rec.Code)
	}

	c.Set("daemon", true, "")
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("ready checker should answer 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	c.LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("live handler should always answer 200, got %d", rec.Code)
	}
}

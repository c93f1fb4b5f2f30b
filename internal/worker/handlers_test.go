package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/resonancehq/resonance/internal/config"
)

// newTestService builds a service with routes wired but no database,
// mimicking the pre-init window.
func newTestService() *Service {
	ctx, cancel := context.WithCancel(context.Background())
	svc := &Service{
		version:   "test",
		config:    config.Default(),
		router:    chi.NewRouter(),
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
	svc.setupMiddleware()
	svc.setupRoutes()
	return svc
}

func TestHandleHealth_DuringInit(t *testing.T) {
	svc := newTestService()

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()
	svc.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200 even during init", rr.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if body["status"] != "starting" {
		t.Errorf("status = %v, want starting", body["status"])
	}
	if body["version"] != "test" {
		t.Errorf("version = %v, want test", body["version"])
	}
}

func TestHandleHealth_WhenReady(t *testing.T) {
	svc := newTestService()
	svc.ready.Store(true)

	req := httptest.NewRequest("GET", "/api/health", nil)
	rr := httptest.NewRecorder()
	svc.router.ServeHTTP(rr, req)

	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if body["status"] != "ready" {
		t.Errorf("status = %v, want ready", body["status"])
	}
}

func TestHandleReady_DuringInit(t *testing.T) {
	svc := newTestService()

	req := httptest.NewRequest("GET", "/api/ready", nil)
	rr := httptest.NewRecorder()
	svc.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("ready status = %d, want 503 during init", rr.Code)
	}
}

func TestHandleReady_AfterInit(t *testing.T) {
	svc := newTestService()
	svc.ready.Store(true)

	req := httptest.NewRequest("GET", "/api/ready", nil)
	rr := httptest.NewRecorder()
	svc.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("ready status = %d, want 200 after init", rr.Code)
	}
}

func TestHandleVersion(t *testing.T) {
	svc := newTestService()

	req := httptest.NewRequest("GET", "/api/version", nil)
	rr := httptest.NewRecorder()
	svc.router.ServeHTTP(rr, req)

	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if body["version"] != "test" {
		t.Errorf("version = %q, want test", body["version"])
	}
}

func TestRequireReady_GatesDBRoutes(t *testing.T) {
	svc := newTestService()

	routes := []struct {
		method string
		path   string
	}{
		{"GET", "/api/owners/alice/tasks/top"},
		{"GET", "/api/tasks/1/score"},
		{"POST", "/api/scoring/recalculate"},
		{"GET", "/api/owners/alice/weights"},
		{"GET", "/api/owners/alice/plans"},
		{"POST", "/api/plans/run"},
	}

	for _, rt := range routes {
		req := httptest.NewRequest(rt.method, rt.path, nil)
		rr := httptest.NewRecorder()
		svc.router.ServeHTTP(rr, req)

		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("%s %s = %d, want 503 before init", rt.method, rt.path, rr.Code)
		}
	}
}

func TestHandleExplainScore_InvalidID(t *testing.T) {
	svc := newTestService()
	svc.ready.Store(true)

	req := httptest.NewRequest("GET", "/api/tasks/not-a-number/score", nil)
	rr := httptest.NewRecorder()
	svc.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for non-numeric id", rr.Code)
	}
}

func TestHandleRunPlans_InvalidKind(t *testing.T) {
	svc := newTestService()
	svc.ready.Store(true)

	req := httptest.NewRequest("POST", "/api/plans/run?kind=monthly", nil)
	rr := httptest.NewRecorder()
	svc.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for unknown plan kind", rr.Code)
	}
}

func TestHandleRunPlans_BodyKindValidated(t *testing.T) {
	svc := newTestService()
	svc.ready.Store(true)

	req := httptest.NewRequest("POST", "/api/plans/run", strings.NewReader(`{"kind":"monthly"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	svc.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for unknown plan kind in body", rr.Code)
	}
}

func TestHandleRunPlans_MalformedBody(t *testing.T) {
	svc := newTestService()
	svc.ready.Store(true)

	req := httptest.NewRequest("POST", "/api/plans/run", strings.NewReader(`{"kind":`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	svc.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for malformed body", rr.Code)
	}
}

func TestHandleRunPlans_SchedulerSecretEnforced(t *testing.T) {
	svc := newTestService()
	svc.config.SchedulerSecret = "s3cret"
	svc.ready.Store(true)

	req := httptest.NewRequest("POST", "/api/plans/run", nil)
	rr := httptest.NewRecorder()
	svc.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 without scheduler secret", rr.Code)
	}
}

func TestHandleUpdateWeights_Validation(t *testing.T) {
	svc := newTestService()
	svc.ready.Store(true)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"empty weights", `{"weights": []}`},
		{"unknown domain", `{"weights": [{"domain_a": "money", "domain_b": "career", "weight": 0.5}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("PUT", "/api/owners/alice/weights", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			svc.router.ServeHTTP(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rr.Code)
			}
		})
	}
}

func TestParseIntParam(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"limit=5", 5},
		{"limit=0", 10},
		{"limit=-3", 10},
		{"limit=abc", 10},
		{"", 10},
	}

	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/test?"+tt.query, nil)
		if got := parseIntParam(req, "limit", 10); got != tt.want {
			t.Errorf("parseIntParam(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}

// Package worker provides the HTTP worker service for resonance.
package worker

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/resonancehq/resonance/pkg/models"
)

// DefaultPlanHistoryLimit is the default number of plan events
// returned by the plan history endpoint.
const DefaultPlanHistoryLimit = 20

// RunPlansRequest is the scheduler trigger payload. Both fields are
// optional; an absent kind means daily, an absent owner means every
// owner with a weight profile.
type RunPlansRequest struct {
	Kind  models.PlanKind `json:"kind"`
	Owner string          `json:"owner"`
}

// handleRunPlans triggers plan generation. The request body carries
// {kind, owner?}; for body-less triggers the same fields are accepted
// as query parameters.
// POST /api/plans/run
func (s *Service) handleRunPlans(w http.ResponseWriter, r *http.Request) {
	var req RunPlansRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}
	if req.Kind == "" {
		req.Kind = models.PlanKind(r.URL.Query().Get("kind"))
	}
	if req.Owner == "" {
		req.Owner = r.URL.Query().Get("owner")
	}

	if req.Kind == "" {
		req.Kind = models.PlanDaily
	}
	if !req.Kind.IsValid() {
		http.Error(w, "kind must be daily or weekly", http.StatusBadRequest)
		return
	}
	kind := req.Kind

	s.initMu.RLock()
	runner := s.runner
	s.initMu.RUnlock()

	if runner == nil {
		http.Error(w, "service not ready", http.StatusServiceUnavailable)
		return
	}

	if owner := req.Owner; owner != "" {
		event, err := runner.Run(r.Context(), kind, owner)
		if err != nil {
			http.Error(w, "plan generation failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]interface{}{
			"status": "ok",
			"plan":   event,
		})
		return
	}

	summary, err := runner.RunAll(r.Context(), kind)
	if err != nil {
		http.Error(w, "plan run failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"status":  "ok",
		"summary": summary,
	})
}

// handleGetPlans returns the owner's plan history, newest first.
// GET /api/owners/{owner}/plans
func (s *Service) handleGetPlans(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	if owner == "" {
		http.Error(w, "owner is required", http.StatusBadRequest)
		return
	}
	limit := parseIntParam(r, "limit", DefaultPlanHistoryLimit)

	s.initMu.RLock()
	planStore := s.planStore
	s.initMu.RUnlock()

	if planStore == nil {
		http.Error(w, "service not ready", http.StatusServiceUnavailable)
		return
	}

	events, err := planStore.ListByOwner(r.Context(), owner, limit)
	if err != nil {
		http.Error(w, "failed to list plans", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []*models.PlanEvent{}
	}

	writeJSON(w, map[string]interface{}{
		"owner": owner,
		"plans": events,
	})
}

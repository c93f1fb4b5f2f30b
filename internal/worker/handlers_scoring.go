// Package worker provides the HTTP worker service for resonance.
package worker

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// DefaultTopTasksLimit is the default number of ranked tasks returned
// by the top-tasks endpoint.
const DefaultTopTasksLimit = 10

// handleTopTasks returns the owner's highest-scoring incomplete tasks.
// GET /api/owners/{owner}/tasks/top
func (s *Service) handleTopTasks(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	if owner == "" {
		http.Error(w, "owner is required", http.StatusBadRequest)
		return
	}
	limit := parseIntParam(r, "limit", DefaultTopTasksLimit)

	s.initMu.RLock()
	selector := s.selector
	s.initMu.RUnlock()

	if selector == nil {
		http.Error(w, "service not ready", http.StatusServiceUnavailable)
		return
	}

	// TopN degrades to an empty list on store failure, so this
	// endpoint never returns a 5xx for ranking queries.
	ranked := selector.TopN(r.Context(), owner, limit)

	writeJSON(w, map[string]interface{}{
		"owner": owner,
		"tasks": ranked,
	})
}

// handleExplainScore returns a breakdown of how a task's score was
// calculated.
// GET /api/tasks/{id}/score?owner=
func (s *Service) handleExplainScore(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "invalid task id", http.StatusBadRequest)
		return
	}

	s.initMu.RLock()
	taskStore := s.taskStore
	weightStore := s.weightStore
	calculator := s.calculator
	s.initMu.RUnlock()

	if taskStore == nil || calculator == nil {
		http.Error(w, "service not ready", http.StatusServiceUnavailable)
		return
	}

	task, err := taskStore.GetTaskByID(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to get task", http.StatusInternalServerError)
		return
	}
	if task == nil {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}

	weights, err := weightStore.LoadWeights(r.Context(), task.OwnerID)
	if err != nil {
		http.Error(w, "failed to load weights", http.StatusInternalServerError)
		return
	}

	components := calculator.CalculateComponents(task, weights)

	writeJSON(w, map[string]interface{}{
		"id":         id,
		"owner":      task.OwnerID,
		"components": components,
		"config":     calculator.GetConfig(),
	})
}

// handleTriggerRecalculation triggers a score recalculation.
// With an owner query parameter the recalculation runs synchronously
// for that owner; without one, a full background pass over all owners.
// POST /api/scoring/recalculate?owner=
func (s *Service) handleTriggerRecalculation(w http.ResponseWriter, r *http.Request) {
	s.initMu.RLock()
	recalculator := s.recalculator
	s.initMu.RUnlock()

	if recalculator == nil {
		http.Error(w, "recalculator not available", http.StatusServiceUnavailable)
		return
	}

	owner := r.URL.Query().Get("owner")
	if owner != "" {
		updated, err := recalculator.RecalcForUser(r.Context(), owner)
		if err != nil {
			http.Error(w, "recalculation failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]interface{}{
			"status":  "ok",
			"owner":   owner,
			"updated": updated,
		})
		return
	}

	// Run full recalculation in background; the service context keeps
	// it alive after this request returns.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := recalculator.RecalcAll(s.ctx); err != nil {
			log.Warn().Err(err).Msg("Background score recalculation failed")
		}
	}()

	writeJSON(w, map[string]string{"status": "recalculation triggered"})
}

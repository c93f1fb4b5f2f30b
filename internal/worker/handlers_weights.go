// Package worker provides the HTTP worker service for resonance.
package worker

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/resonancehq/resonance/pkg/models"
)

// MaxWeightEntries caps a single weight update request. Nine domains
// give at most 81 directed pairs.
const MaxWeightEntries = 100

// UpdateWeightsRequest is the request body for a weight map update.
type UpdateWeightsRequest struct {
	Weights []models.AffinityWeight `json:"weights"`
}

// handleGetWeights returns the owner's affinity weight map.
// GET /api/owners/{owner}/weights
func (s *Service) handleGetWeights(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	if owner == "" {
		http.Error(w, "owner is required", http.StatusBadRequest)
		return
	}

	s.initMu.RLock()
	weightStore := s.weightStore
	s.initMu.RUnlock()

	if weightStore == nil {
		http.Error(w, "service not ready", http.StatusServiceUnavailable)
		return
	}

	weights, err := weightStore.LoadWeights(r.Context(), owner)
	if err != nil {
		http.Error(w, "failed to load weights", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"owner":   owner,
		"weights": weights,
	})
}

// handleUpdateWeights upserts entries into the owner's weight map and
// triggers a rescore so rankings reflect the new weights.
// PUT /api/owners/{owner}/weights
func (s *Service) handleUpdateWeights(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	if owner == "" {
		http.Error(w, "owner is required", http.StatusBadRequest)
		return
	}

	var req UpdateWeightsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Weights) == 0 {
		http.Error(w, "weights are required", http.StatusBadRequest)
		return
	}
	if len(req.Weights) > MaxWeightEntries {
		http.Error(w, "too many weight entries", http.StatusBadRequest)
		return
	}

	for _, entry := range req.Weights {
		if !entry.DomainA.IsValid() || !entry.DomainB.IsValid() {
			http.Error(w, "unknown domain in weight entry", http.StatusBadRequest)
			return
		}
	}

	s.initMu.RLock()
	weightStore := s.weightStore
	recalculator := s.recalculator
	s.initMu.RUnlock()

	if weightStore == nil {
		http.Error(w, "service not ready", http.StatusServiceUnavailable)
		return
	}

	if err := weightStore.UpsertWeights(r.Context(), owner, req.Weights); err != nil {
		http.Error(w, "failed to update weights", http.StatusInternalServerError)
		return
	}

	// Rescore synchronously so the caller's next ranking query sees
	// the effect of the new weights.
	updated := 0
	if recalculator != nil {
		n, err := recalculator.RecalcForUser(r.Context(), owner)
		if err != nil {
			http.Error(w, "weights saved but rescore failed", http.StatusInternalServerError)
			return
		}
		updated = n
	}

	writeJSON(w, map[string]interface{}{
		"status":   "ok",
		"owner":    owner,
		"saved":    len(req.Weights),
		"rescored": updated,
	})
}

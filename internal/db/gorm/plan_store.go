// Package gorm provides GORM-based database operations for resonance.
package gorm

import (
	"context"

	"github.com/google/uuid"

	"github.com/resonancehq/resonance/pkg/models"
)

// PlanStore provides plan-event persistence operations.
type PlanStore struct {
	store *Store
}

// NewPlanStore creates a new PlanStore.
func NewPlanStore(store *Store) *PlanStore {
	return &PlanStore{store: store}
}

// AppendPlanEvent writes one immutable plan event and returns its id.
// An id is generated when the caller left it empty. Plan events are
// never updated after creation.
func (s *PlanStore) AppendPlanEvent(ctx context.Context, event *models.PlanEvent) (string, error) {
	id := event.ID
	if id == "" {
		id = uuid.NewString()
	}

	row := PlanEvent{
		ID:               id,
		OwnerID:          event.OwnerID,
		Kind:             string(event.Kind),
		SelectedTaskIDs:  event.SelectedTaskIDs,
		CandidateCount:   event.CandidateCount,
		GeneratedAtEpoch: event.GeneratedAtEpoch,
	}

	if err := s.store.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return "", classifyStoreErr("append plan event", err)
	}
	return id, nil
}

// ListByOwner returns the owner's plan events, newest first.
func (s *PlanStore) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*models.PlanEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows []PlanEvent
	err := s.store.DB.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("generated_at_epoch DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, classifyStoreErr("list plan events", err)
	}

	events := make([]*models.PlanEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, toModelPlanEvent(row))
	}
	return events, nil
}

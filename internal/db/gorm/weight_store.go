// Package gorm provides GORM-based database operations for resonance.
package gorm

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/resonancehq/resonance/pkg/models"
)

// WeightStore provides affinity-weight persistence operations.
type WeightStore struct {
	store *Store
}

// NewWeightStore creates a new WeightStore.
func NewWeightStore(store *Store) *WeightStore {
	return &WeightStore{store: store}
}

// LoadWeights returns the owner's full directed weight map. Owners with
// no configured weights get an empty map, not an error. Values are
// clamped on read; they were already clamped on write.
func (s *WeightStore) LoadWeights(ctx context.Context, ownerID string) (models.WeightMap, error) {
	var rows []AffinityWeight
	err := s.store.DB.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Find(&rows).Error
	if err != nil {
		return nil, classifyStoreErr("load weights", err)
	}

	weights := make(models.WeightMap, len(rows))
	for _, row := range rows {
		weights.Set(models.Domain(row.DomainA), models.Domain(row.DomainB), row.Weight)
	}
	return weights, nil
}

// UpsertWeights stores a batch of directed weight entries for one
// owner, keyed on (owner_id, domain_a, domain_b). The editing surface
// saves the map wholesale, so every entry is an upsert. Weights are
// clamped to [0,1] at this boundary.
func (s *WeightStore) UpsertWeights(ctx context.Context, ownerID string, entries []models.AffinityWeight) error {
	if len(entries) == 0 {
		return nil
	}

	now := time.Now().Format(time.RFC3339)
	rows := make([]AffinityWeight, 0, len(entries))
	for _, e := range entries {
		if !e.DomainA.IsValid() || !e.DomainB.IsValid() {
			return fmt.Errorf("upsert weights: unknown domain pair (%s, %s)", e.DomainA, e.DomainB)
		}
		rows = append(rows, AffinityWeight{
			OwnerID:   ownerID,
			DomainA:   string(e.DomainA),
			DomainB:   string(e.DomainB),
			Weight:    models.Clamp01(e.Weight),
			UpdatedAt: now,
		})
	}

	err := s.store.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "owner_id"},
				{Name: "domain_a"},
				{Name: "domain_b"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"weight", "updated_at"}),
		}).Create(&rows).Error
	})
	if err != nil {
		return classifyStoreErr("upsert weights", err)
	}
	return nil
}

// ListOwners returns the distinct owners with at least one configured
// weight entry. The orchestrator uses this to resolve "all owners".
func (s *WeightStore) ListOwners(ctx context.Context) ([]string, error) {
	var owners []string
	err := s.store.DB.WithContext(ctx).
		Model(&AffinityWeight{}).
		Distinct("owner_id").
		Order("owner_id").
		Pluck("owner_id", &owners).Error
	if err != nil {
		return nil, classifyStoreErr("list weight owners", err)
	}
	return owners, nil
}

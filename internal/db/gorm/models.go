// Package gorm provides GORM-based database operations for resonance.
package gorm

import (
	"database/sql"
	"time"

	"gorm.io/gorm"

	"github.com/resonancehq/resonance/pkg/models"
)

// GORM Models
//
// JSON column types (JSONFloatMap, JSONStringArray, JSONInt64Array) are
// imported from pkg/models and already implement sql.Scanner and
// driver.Valuer.

// Task represents a user-authored task row.
// Field order optimized for memory alignment (fieldalignment).
type Task struct {
	EffectMap        models.JSONFloatMap    `gorm:"type:text;not null"`
	SecondaryDomains models.JSONStringArray `gorm:"type:text"`
	OwnerID          string                 `gorm:"index:idx_tasks_owner;index:idx_tasks_owner_score,priority:1;not null"`
	Title            string                 `gorm:"type:text;not null"`
	CreatedAt        string                 `gorm:"not null"`
	DueAt            sql.NullTime
	ScoreUpdatedAt   sql.NullInt64 `gorm:"column:score_updated_at_epoch"`
	ID               int64         `gorm:"primaryKey;autoIncrement"`
	Effort           float64       `gorm:"type:real;not null"`
	PurposeScore     float64       `gorm:"type:real;not null"`
	Score            float64       `gorm:"type:real;default:0;index:idx_tasks_owner_score,priority:2,sort:desc"`
	CreatedAtEpoch   int64         `gorm:"index:idx_tasks_created,sort:desc;not null"`
	Completed        bool          `gorm:"default:false;index:idx_tasks_completed"`
}

func (Task) TableName() string { return "tasks" }

// BeforeCreate hook to ensure timestamps are set.
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.CreatedAtEpoch == 0 {
		t.CreatedAtEpoch = time.Now().UnixMilli()
	}
	if t.CreatedAt == "" {
		t.CreatedAt = time.Now().Format(time.RFC3339)
	}
	return nil
}

// AffinityWeight represents a directed domain-pair weight row, scoped
// to one owner. Upserted wholesale by the weight-editing surface.
type AffinityWeight struct {
	OwnerID   string  `gorm:"primaryKey;type:text"`
	DomainA   string  `gorm:"primaryKey;type:text"`
	DomainB   string  `gorm:"primaryKey;type:text"`
	UpdatedAt string  `gorm:"not null"`
	Weight    float64 `gorm:"type:real;not null;default:0"`
}

func (AffinityWeight) TableName() string { return "affinity_weights" }

// BeforeCreate hook to ensure the timestamp is set.
func (w *AffinityWeight) BeforeCreate(tx *gorm.DB) error {
	if w.UpdatedAt == "" {
		w.UpdatedAt = time.Now().Format(time.RFC3339)
	}
	return nil
}

// PlanEvent represents one orchestrator run's selection. Append-only;
// rows are never updated after creation.
type PlanEvent struct {
	ID               string                `gorm:"primaryKey;type:text"`
	OwnerID          string                `gorm:"index:idx_plan_events_owner;not null"`
	Kind             string                `gorm:"type:text;check:kind IN ('daily', 'weekly');not null"`
	SelectedTaskIDs  models.JSONInt64Array `gorm:"type:text"`
	GeneratedAt      string                `gorm:"not null"`
	CandidateCount   int                   `gorm:"default:0"`
	GeneratedAtEpoch int64                 `gorm:"index:idx_plan_events_generated,sort:desc;not null"`
}

func (PlanEvent) TableName() string { return "plan_events" }

// BeforeCreate hook to ensure timestamps are set.
func (p *PlanEvent) BeforeCreate(tx *gorm.DB) error {
	if p.GeneratedAtEpoch == 0 {
		p.GeneratedAtEpoch = time.Now().UnixMilli()
	}
	if p.GeneratedAt == "" {
		p.GeneratedAt = time.Now().Format(time.RFC3339)
	}
	return nil
}

// toModelTask converts a row to the shared domain model.
func toModelTask(t Task) *models.Task {
	task := &models.Task{
		ID:               t.ID,
		OwnerID:          t.OwnerID,
		Title:            t.Title,
		EffectMap:        t.EffectMap,
		SecondaryDomains: t.SecondaryDomains,
		Effort:           t.Effort,
		PurposeScore:     t.PurposeScore,
		Completed:        t.Completed,
		Score:            t.Score,
		CreatedAtEpoch:   t.CreatedAtEpoch,
	}
	if t.DueAt.Valid {
		due := t.DueAt.Time
		task.DueAt = &due
	}
	if t.ScoreUpdatedAt.Valid {
		task.ScoreUpdatedAt = t.ScoreUpdatedAt.Int64
	}
	return task
}

// toModelTasks converts a slice of rows to domain models.
func toModelTasks(rows []Task) []*models.Task {
	tasks := make([]*models.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, toModelTask(row))
	}
	return tasks
}

// toModelPlanEvent converts a row to the shared domain model.
func toModelPlanEvent(p PlanEvent) *models.PlanEvent {
	return &models.PlanEvent{
		ID:               p.ID,
		OwnerID:          p.OwnerID,
		Kind:             models.PlanKind(p.Kind),
		SelectedTaskIDs:  p.SelectedTaskIDs,
		CandidateCount:   p.CandidateCount,
		GeneratedAtEpoch: p.GeneratedAtEpoch,
	}
}

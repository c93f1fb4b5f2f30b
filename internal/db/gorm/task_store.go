// Package gorm provides GORM-based database operations for resonance.
package gorm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/resonancehq/resonance/pkg/models"
)

// DefaultTaskPageLimit bounds how many incomplete tasks one owner can
// contribute to a recalculation batch. Pathological accounts get their
// newest tasks scored first.
const DefaultTaskPageLimit = 2000

// TaskStore provides task persistence operations.
type TaskStore struct {
	store *Store
}

// NewTaskStore creates a new TaskStore.
func NewTaskStore(store *Store) *TaskStore {
	return &TaskStore{store: store}
}

// CreateTask inserts a task authored by the external task surface.
// Effort and purpose are clamped defensively; the full validation
// happens at the authoring boundary.
func (s *TaskStore) CreateTask(ctx context.Context, task *models.Task) (int64, error) {
	if len(task.EffectMap) == 0 {
		return 0, fmt.Errorf("create task: effect map requires at least one domain entry")
	}

	row := Task{
		OwnerID:          task.OwnerID,
		Title:            task.Title,
		EffectMap:        task.EffectMap,
		SecondaryDomains: task.SecondaryDomains,
		Effort:           clampRange(task.Effort, models.MinEffort, models.MaxEffort),
		PurposeScore:     models.Clamp01(task.PurposeScore),
		Completed:        task.Completed,
	}
	if task.DueAt != nil {
		row.DueAt.Time = *task.DueAt
		row.DueAt.Valid = true
	}

	if err := s.store.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, classifyStoreErr("create task", err)
	}
	return row.ID, nil
}

// GetTaskByID returns one task, or nil when it does not exist.
func (s *TaskStore) GetTaskByID(ctx context.Context, id int64) (*models.Task, error) {
	var rows []Task
	err := s.store.DB.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, classifyStoreErr("get task", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return toModelTask(rows[0]), nil
}

// GetTasksByIDs returns the tasks for the given ids, in no particular
// order. Missing ids are silently absent from the result.
func (s *TaskStore) GetTasksByIDs(ctx context.Context, ids []int64) ([]*models.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var rows []Task
	err := s.store.DB.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, classifyStoreErr("get tasks by ids", err)
	}
	return toModelTasks(rows), nil
}

// ListIncompleteByOwner returns the owner's incomplete tasks, newest
// first, bounded by limit (DefaultTaskPageLimit when <= 0).
func (s *TaskStore) ListIncompleteByOwner(ctx context.Context, ownerID string, limit int) ([]*models.Task, error) {
	if limit <= 0 {
		limit = DefaultTaskPageLimit
	}

	var rows []Task
	err := s.store.DB.WithContext(ctx).
		Where("owner_id = ? AND completed = false", ownerID).
		Order("created_at_epoch DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, classifyStoreErr("list incomplete tasks", err)
	}
	return toModelTasks(rows), nil
}

// ListOwners returns the distinct owners that have at least one
// incomplete task.
func (s *TaskStore) ListOwners(ctx context.Context) ([]string, error) {
	var owners []string
	err := s.store.DB.WithContext(ctx).
		Model(&Task{}).
		Where("completed = false").
		Distinct("owner_id").
		Order("owner_id").
		Pluck("owner_id", &owners).Error
	if err != nil {
		return nil, classifyStoreErr("list task owners", err)
	}
	return owners, nil
}

// UpdateScores bulk-overwrites task scores. Scores are always full
// recomputations, never increments, so last-write-wins is safe.
func (s *TaskStore) UpdateScores(ctx context.Context, scores map[int64]float64) error {
	if len(scores) == 0 {
		return nil
	}

	// For small batches, plain per-row updates are cheaper than
	// building the CASE expression.
	if len(scores) <= 5 {
		return s.updateScoresIndividually(ctx, scores)
	}
	return s.updateScoresBatch(ctx, scores)
}

func (s *TaskStore) updateScoresIndividually(ctx context.Context, scores map[int64]float64) error {
	now := time.Now().UnixMilli()

	for id, score := range scores {
		err := s.store.DB.WithContext(ctx).
			Model(&Task{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"score":                  score,
				"score_updated_at_epoch": now,
			}).Error
		if err != nil {
			return classifyStoreErr("update task score", err)
		}
	}
	return nil
}

// updateScoresBatch updates multiple scores in a single SQL statement
// using CASE/WHEN (O(1) queries instead of O(n)).
func (s *TaskStore) updateScoresBatch(ctx context.Context, scores map[int64]float64) error {
	now := time.Now().UnixMilli()

	ids := make([]int64, 0, len(scores))
	caseBuilder := strings.Builder{}
	caseBuilder.WriteString("CASE id ")

	for id, score := range scores {
		ids = append(ids, id)
		caseBuilder.WriteString(fmt.Sprintf("WHEN %d THEN %f ", id, score))
	}
	caseBuilder.WriteString("END")

	sql := fmt.Sprintf(
		"UPDATE tasks SET score = %s, score_updated_at_epoch = ? WHERE id IN ?",
		caseBuilder.String(),
	)

	if err := s.store.DB.WithContext(ctx).Exec(sql, now, ids).Error; err != nil {
		return classifyStoreErr("update task scores", err)
	}
	return nil
}

// TopScoring returns the owner's highest-scoring incomplete tasks as
// id+score projections, descending. Ties keep the newer task first,
// which is just "some total order", not a contract.
func (s *TaskStore) TopScoring(ctx context.Context, ownerID string, limit int) ([]models.ScoredTask, error) {
	var results []models.ScoredTask
	err := s.store.DB.WithContext(ctx).
		Model(&Task{}).
		Select("id, score").
		Where("owner_id = ? AND completed = false", ownerID).
		Order("score DESC, created_at_epoch DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, classifyStoreErr("top scoring tasks", err)
	}
	return results, nil
}

// SetTaskCompleted flips the completion flag; completed tasks drop out
// of recalculation and ranking.
func (s *TaskStore) SetTaskCompleted(ctx context.Context, id int64, completed bool) error {
	err := s.store.DB.WithContext(ctx).
		Model(&Task{}).
		Where("id = ?", id).
		Update("completed", completed).Error
	if err != nil {
		return classifyStoreErr("set task completed", err)
	}
	return nil
}

func clampRange(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}

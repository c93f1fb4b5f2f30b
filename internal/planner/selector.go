// Package planner provides ranking and diversity-constrained selection
// of scored tasks.
package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/resonancehq/resonance/internal/db/gorm"
	"github.com/resonancehq/resonance/pkg/models"
)

// DefaultTargetSize is how many tasks a daily plan selects.
const DefaultTargetSize = 3

// DefaultPoolSize is how many top-scoring candidates are considered
// before the diversity constraint is applied.
const DefaultPoolSize = 10

// TaskSource defines the task storage operations needed by the
// selector.
type TaskSource interface {
	TopScoring(ctx context.Context, ownerID string, limit int) ([]models.ScoredTask, error)
	GetTasksByIDs(ctx context.Context, ids []int64) ([]*models.Task, error)
}

// PlanSink defines the plan-event persistence needed by the selector.
type PlanSink interface {
	AppendPlanEvent(ctx context.Context, event *models.PlanEvent) (string, error)
}

// Rescorer triggers a full score recomputation for one owner before
// selection so the ranking reflects current weights.
type Rescorer interface {
	RecalcForUser(ctx context.Context, ownerID string) (int, error)
}

// Selector ranks scored tasks and builds diversity-constrained daily
// plans with a fallback policy when the constraint cannot be met.
type Selector struct {
	log        zerolog.Logger
	tasks      TaskSource
	plans      PlanSink
	rescorer   Rescorer
	targetSize int
	poolSize   int
}

// NewSelector creates a new plan selector.
func NewSelector(tasks TaskSource, plans PlanSink, rescorer Rescorer, log zerolog.Logger) *Selector {
	return &Selector{
		tasks:      tasks,
		plans:      plans,
		rescorer:   rescorer,
		log:        log.With().Str("component", "planner").Logger(),
		targetSize: DefaultTargetSize,
		poolSize:   DefaultPoolSize,
	}
}

// SetSizes overrides the plan target and candidate pool sizes.
// Non-positive values keep the current setting.
func (s *Selector) SetSizes(target, pool int) {
	if target > 0 {
		s.targetSize = target
	}
	if pool > 0 {
		s.poolSize = pool
	}
}

// TopN returns the owner's n highest-scoring incomplete tasks as
// id+score pairs, descending. This is the interactive display path: a
// store hiccup degrades to an empty list instead of propagating, so a
// transient failure never breaks the user-facing surface. An empty
// result means "no eligible tasks yet", never an error state.
func (s *Selector) TopN(ctx context.Context, ownerID string, n int) []models.ScoredTask {
	if n <= 0 {
		n = DefaultPoolSize
	}

	ranked, err := s.tasks.TopScoring(ctx, ownerID, n)
	if err != nil {
		s.log.Warn().Err(err).
			Str("owner", ownerID).
			Msg("top-n query failed, degrading to empty result")
		return []models.ScoredTask{}
	}
	if ranked == nil {
		return []models.ScoredTask{}
	}
	return ranked
}

// SelectDailyPlan rescores the owner, picks a diversity-constrained
// subset of the candidate pool, and persists it as an immutable plan
// event. Domino tasks (three or more distinct effect-map domains) are
// preferred in score order; when too few exist the remaining slots are
// filled from the full pool rather than under-filling the plan.
func (s *Selector) SelectDailyPlan(ctx context.Context, ownerID string, kind models.PlanKind, targetSize int) (*models.PlanEvent, error) {
	if targetSize <= 0 {
		targetSize = s.targetSize
	}
	if !kind.IsValid() {
		kind = models.PlanDaily
	}

	// Fresh scores first, so selection reflects current weights.
	if _, err := s.rescorer.RecalcForUser(ctx, ownerID); err != nil {
		return nil, fmt.Errorf("rescore %s: %w", ownerID, err)
	}

	pool, err := s.tasks.TopScoring(ctx, ownerID, s.poolSize)
	if err != nil {
		return nil, fmt.Errorf("candidate pool for %s: %w", ownerID, err)
	}

	selected := s.pickDiverse(ctx, pool, targetSize)

	event := &models.PlanEvent{
		OwnerID:          ownerID,
		Kind:             kind,
		SelectedTaskIDs:  selected,
		CandidateCount:   len(pool),
		GeneratedAtEpoch: time.Now().UnixMilli(),
	}
	id, err := s.plans.AppendPlanEvent(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("persist plan event for %s: %w", ownerID, err)
	}
	event.ID = id

	s.log.Info().
		Str("owner", ownerID).
		Str("kind", string(kind)).
		Int("candidates", len(pool)).
		Ints64("selected", []int64(selected)).
		Msg("daily plan selected")

	return event, nil
}

// pickDiverse greedily selects domino tasks from the pool in score
// order, then falls back to the full pool to fill remaining slots. The
// plan is under-filled only when the pool itself is exhausted.
func (s *Selector) pickDiverse(ctx context.Context, pool []models.ScoredTask, targetSize int) models.JSONInt64Array {
	if len(pool) == 0 {
		return models.JSONInt64Array{}
	}

	counts := s.domainCounts(ctx, pool)

	selected := make(models.JSONInt64Array, 0, targetSize)
	taken := make(map[int64]bool, targetSize)

	// Pass 1: domino tasks only, best score first.
	for _, candidate := range pool {
		if len(selected) >= targetSize {
			break
		}
		if counts[candidate.ID] >= models.DominoDomainThreshold {
			selected = append(selected, candidate.ID)
			taken[candidate.ID] = true
		}
	}

	// Pass 2: relax the constraint rather than under-filling.
	for _, candidate := range pool {
		if len(selected) >= targetSize {
			break
		}
		if !taken[candidate.ID] {
			selected = append(selected, candidate.ID)
			taken[candidate.ID] = true
		}
	}

	return selected
}

// domainCounts loads the candidates' effect maps and returns distinct
// domain counts per task id. TopScoring only projects id+score, so the
// maps come from a second bounded fetch. A load failure degrades to
// zero counts, which simply disables the domino preference for this
// run instead of failing the plan.
func (s *Selector) domainCounts(ctx context.Context, pool []models.ScoredTask) map[int64]int {
	ids := make([]int64, 0, len(pool))
	for _, candidate := range pool {
		ids = append(ids, candidate.ID)
	}

	counts := make(map[int64]int, len(ids))
	tasks, err := s.tasks.GetTasksByIDs(ctx, ids)
	if err != nil {
		s.log.Warn().Err(err).Msg("domain-count fetch failed, domino preference disabled")
		return counts
	}
	for _, task := range tasks {
		counts[task.ID] = task.DomainCount()
	}
	return counts
}

// Ensure the gorm stores satisfy the interfaces.
var (
	_ TaskSource = (*gorm.TaskStore)(nil)
	_ PlanSink   = (*gorm.PlanStore)(nil)
)

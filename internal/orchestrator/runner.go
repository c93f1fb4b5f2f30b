// Package orchestrator ties recalculation and plan selection together
// for externally-triggered daily and weekly runs.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/resonancehq/resonance/internal/db/gorm"
	"github.com/resonancehq/resonance/pkg/models"
)

// DefaultOwnerConcurrency bounds how many owners are planned in
// parallel. Owner runs touch disjoint rows and need no coordination.
const DefaultOwnerConcurrency = 4

// PlanSelector builds and persists one owner's plan.
type PlanSelector interface {
	SelectDailyPlan(ctx context.Context, ownerID string, kind models.PlanKind, targetSize int) (*models.PlanEvent, error)
}

// OwnerSource resolves "all owners": every owner with at least one
// configured weight entry.
type OwnerSource interface {
	ListOwners(ctx context.Context) ([]string, error)
}

// RunSummary reports the outcome of one orchestrator run.
type RunSummary struct {
	Kind         models.PlanKind `json:"kind"`
	Owners       int             `json:"owners"`
	PlansWritten int             `json:"plans_written"`
	Failed       []string        `json:"failed,omitempty"`
	Elapsed      time.Duration   `json:"elapsed_ms"`
}

// Runner is the externally-triggered entry point for daily and weekly
// planning. Authentication is the caller's responsibility; the runner
// trusts whoever invokes it.
type Runner struct {
	log         zerolog.Logger
	selector    PlanSelector
	owners      OwnerSource
	concurrency int
}

// NewRunner creates a new orchestrator runner.
func NewRunner(selector PlanSelector, owners OwnerSource, log zerolog.Logger) *Runner {
	return &Runner{
		selector:    selector,
		owners:      owners,
		log:         log.With().Str("component", "orchestrator").Logger(),
		concurrency: DefaultOwnerConcurrency,
	}
}

// Run plans a single owner.
func (r *Runner) Run(ctx context.Context, kind models.PlanKind, ownerID string) (*models.PlanEvent, error) {
	event, err := r.selector.SelectDailyPlan(ctx, ownerID, kind, 0)
	if err != nil {
		return nil, fmt.Errorf("plan run for %s: %w", ownerID, err)
	}
	return event, nil
}

// RunAll plans every owner with configured weights. A failure for one
// owner is logged and the run continues to the next; there are no
// retries within a run. Only resolving the owner list is fatal.
func (r *Runner) RunAll(ctx context.Context, kind models.PlanKind) (*RunSummary, error) {
	start := time.Now()

	owners, err := r.owners.ListOwners(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve owners: %w", err)
	}

	summary := &RunSummary{Kind: kind, Owners: len(owners)}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)

	for _, owner := range owners {
		g.Go(func() error {
			if _, err := r.selector.SelectDailyPlan(ctx, owner, kind, 0); err != nil {
				r.log.Error().Err(err).
					Str("owner", owner).
					Str("kind", string(kind)).
					Msg("owner plan run failed, continuing")
				mu.Lock()
				summary.Failed = append(summary.Failed, owner)
				mu.Unlock()
				return nil
			}
			mu.Lock()
			summary.PlansWritten++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	summary.Elapsed = time.Since(start)

	r.log.Info().
		Str("kind", string(kind)).
		Int("owners", summary.Owners).
		Int("plans", summary.PlansWritten).
		Int("failed", len(summary.Failed)).
		Dur("elapsed", summary.Elapsed).
		Msg("orchestrator run complete")

	return summary, nil
}

// Ensure the gorm store satisfies the interface.
var _ OwnerSource = (*gorm.WeightStore)(nil)

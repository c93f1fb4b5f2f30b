// Package scoring provides priority score calculation for tasks.
package scoring

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/resonancehq/resonance/internal/db/gorm"
	"github.com/resonancehq/resonance/pkg/models"
)

// DefaultChunkSize is how many score updates are persisted per write.
// Each chunk is an independent write; a failed chunk does not roll back
// prior chunks.
const DefaultChunkSize = 100

// DefaultOwnerConcurrency bounds how many owners are recalculated in
// parallel. Owners touch disjoint rows, so no coordination is needed
// beyond the connection pool.
const DefaultOwnerConcurrency = 4

// TaskSource defines the task storage operations needed by the
// recalculator.
type TaskSource interface {
	ListIncompleteByOwner(ctx context.Context, ownerID string, limit int) ([]*models.Task, error)
	ListOwners(ctx context.Context) ([]string, error)
	UpdateScores(ctx context.Context, scores map[int64]float64) error
}

// WeightSource defines the weight storage operations needed by the
// recalculator.
type WeightSource interface {
	LoadWeights(ctx context.Context, ownerID string) (models.WeightMap, error)
}

// Recalculator recomputes task priority scores in bulk for one owner
// or for every owner. It is stateless between invocations; each call
// runs to completion or failure.
type Recalculator struct {
	log         zerolog.Logger
	tasks       TaskSource
	weights     WeightSource
	calculator  *Calculator
	chunkSize   int
	pageLimit   int
	concurrency int
}

// NewRecalculator creates a new batch recalculator.
func NewRecalculator(tasks TaskSource, weights WeightSource, calc *Calculator, log zerolog.Logger) *Recalculator {
	return &Recalculator{
		tasks:       tasks,
		weights:     weights,
		calculator:  calc,
		log:         log.With().Str("component", "recalculator").Logger(),
		chunkSize:   DefaultChunkSize,
		pageLimit:   gorm.DefaultTaskPageLimit,
		concurrency: DefaultOwnerConcurrency,
	}
}

// RecalcForUser rescores every incomplete task of one owner and
// persists the results in chunks. The returned count reflects only
// successfully written tasks; callers detect partial failure by
// comparing against the candidate count they expect. Failures loading
// tasks or weights abort the whole batch.
func (r *Recalculator) RecalcForUser(ctx context.Context, ownerID string) (int, error) {
	tasks, err := r.tasks.ListIncompleteByOwner(ctx, ownerID, r.pageLimit)
	if err != nil {
		return 0, fmt.Errorf("load tasks for %s: %w", ownerID, err)
	}
	if len(tasks) == 0 {
		return 0, nil
	}

	// One weight load per owner, not per task.
	weights, err := r.weights.LoadWeights(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("load weights for %s: %w", ownerID, err)
	}

	updated := 0
	for start := 0; start < len(tasks); start += r.chunkSize {
		end := start + r.chunkSize
		if end > len(tasks) {
			end = len(tasks)
		}
		chunk := tasks[start:end]

		scores := r.calculator.BatchCalculate(chunk, weights)
		if err := r.tasks.UpdateScores(ctx, scores); err != nil {
			// Independent chunks: log, skip, keep going.
			r.log.Error().Err(err).
				Str("owner", ownerID).
				Int("chunk_start", start).
				Int("chunk_len", len(chunk)).
				Msg("failed to persist score chunk")
			continue
		}
		updated += len(chunk)
	}

	r.log.Info().
		Str("owner", ownerID).
		Int("candidates", len(tasks)).
		Int("updated", updated).
		Msg("recalculated task scores")

	return updated, nil
}

// RecalcAll rescores every owner's incomplete tasks. Tasks are grouped
// by owner so each weight map is loaded exactly once regardless of
// task count; owners are processed with bounded parallelism since
// their rows are disjoint. A failure for one owner is logged and the
// run continues to the next; only resolving the owner list is fatal.
func (r *Recalculator) RecalcAll(ctx context.Context) (int, error) {
	owners, err := r.tasks.ListOwners(ctx)
	if err != nil {
		return 0, fmt.Errorf("list owners: %w", err)
	}
	if len(owners) == 0 {
		return 0, nil
	}

	var total, failed atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)

	for _, owner := range owners {
		g.Go(func() error {
			n, err := r.RecalcForUser(ctx, owner)
			if err != nil {
				r.log.Error().Err(err).
					Str("owner", owner).
					Msg("owner recalculation failed, continuing")
				failed.Add(1)
				return nil
			}
			total.Add(int64(n))
			return nil
		})
	}
	_ = g.Wait()

	r.log.Info().
		Int("owners", len(owners)).
		Int64("failed", failed.Load()).
		Int64("updated", total.Load()).
		Msg("recalculated scores for all owners")

	return int(total.Load()), nil
}

// Ensure the gorm stores satisfy the interfaces.
var (
	_ TaskSource   = (*gorm.TaskStore)(nil)
	_ WeightSource = (*gorm.WeightStore)(nil)
)

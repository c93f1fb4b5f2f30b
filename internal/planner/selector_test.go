// Package planner selects diversity-constrained daily plans.
package planner

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonancehq/resonance/pkg/models"
)

// MockTaskSource is a mock implementation of TaskSource for testing.
type MockTaskSource struct {
	ranked   []models.ScoredTask
	tasks    map[int64]*models.Task
	rankErr  error
	fetchErr error
	mu       sync.Mutex
}

func NewMockTaskSource() *MockTaskSource {
	return &MockTaskSource{tasks: make(map[int64]*models.Task)}
}

func (m *MockTaskSource) TopScoring(ctx context.Context, ownerID string, limit int) ([]models.ScoredTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rankErr != nil {
		return nil, m.rankErr
	}
	ranked := m.ranked
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (m *MockTaskSource) GetTasksByIDs(ctx context.Context, ids []int64) ([]*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	result := make([]*models.Task, 0, len(ids))
	for _, id := range ids {
		if task, ok := m.tasks[id]; ok {
			result = append(result, task)
		}
	}
	return result, nil
}

// AddRanked registers a candidate with a score and a given number of
// distinct effect-map domains.
func (m *MockTaskSource) AddRanked(id int64, score float64, domainCount int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	allDomains := []string{
		"vitality", "finances", "career", "relationships",
		"learning", "creativity", "home", "community", "spirit",
	}
	effect := make(models.JSONFloatMap, domainCount)
	for i := 0; i < domainCount && i < len(allDomains); i++ {
		effect[allDomains[i]] = 0.5
	}

	m.ranked = append(m.ranked, models.ScoredTask{ID: id, Score: score})
	m.tasks[id] = &models.Task{ID: id, EffectMap: effect, Effort: 1, PurposeScore: 1}
}

// MockPlanSink is a mock implementation of PlanSink for testing.
type MockPlanSink struct {
	events    []*models.PlanEvent
	appendErr error
	mu        sync.Mutex
}

func (m *MockPlanSink) AppendPlanEvent(ctx context.Context, event *models.PlanEvent) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return "", m.appendErr
	}
	m.events = append(m.events, event)
	return "event-1", nil
}

func (m *MockPlanSink) Events() []*models.PlanEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events
}

// MockRescorer is a mock implementation of Rescorer for testing.
type MockRescorer struct {
	calls     int
	recalcErr error
	mu        sync.Mutex
}

func (m *MockRescorer) RecalcForUser(ctx context.Context, ownerID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.recalcErr != nil {
		return 0, m.recalcErr
	}
	return 0, nil
}

func (m *MockRescorer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func newTestSelector(tasks *MockTaskSource, plans *MockPlanSink, rescorer *MockRescorer) *Selector {
	return NewSelector(tasks, plans, rescorer, zerolog.Nop())
}

func TestTopN_ReturnsRankedTasks(t *testing.T) {
	tasks := NewMockTaskSource()
	tasks.AddRanked(1, 2.4, 3)
	tasks.AddRanked(2, 1.1, 1)

	s := newTestSelector(tasks, &MockPlanSink{}, &MockRescorer{})
	ranked := s.TopN(context.Background(), "alice", 10)

	require.Len(t, ranked, 2)
	assert.Equal(t, int64(1), ranked[0].ID)
	assert.InDelta(t, 2.4, ranked[0].Score, 1e-9)
}

func TestTopN_DegradesToEmptyOnStoreFailure(t *testing.T) {
	tasks := NewMockTaskSource()
	tasks.rankErr = errors.New("connection refused")

	s := newTestSelector(tasks, &MockPlanSink{}, &MockRescorer{})
	ranked := s.TopN(context.Background(), "alice", 10)

	assert.NotNil(t, ranked)
	assert.Empty(t, ranked, "store failure must degrade to empty, never error")
}

func TestTopN_NonPositiveLimitUsesDefault(t *testing.T) {
	tasks := NewMockTaskSource()
	for i := int64(1); i <= 15; i++ {
		tasks.AddRanked(i, float64(20-i), 1)
	}

	s := newTestSelector(tasks, &MockPlanSink{}, &MockRescorer{})
	ranked := s.TopN(context.Background(), "alice", 0)

	assert.Len(t, ranked, DefaultPoolSize)
}

func TestSelectDailyPlan_PrefersDominoTasks(t *testing.T) {
	tasks := NewMockTaskSource()
	// Highest scores first, as TopScoring returns them.
	tasks.AddRanked(1, 5.0, 1) // not domino
	tasks.AddRanked(2, 4.0, 3) // domino
	tasks.AddRanked(3, 3.0, 1) // not domino
	tasks.AddRanked(4, 2.0, 4) // domino
	tasks.AddRanked(5, 1.0, 3) // domino

	s := newTestSelector(tasks, &MockPlanSink{}, &MockRescorer{})
	event, err := s.SelectDailyPlan(context.Background(), "alice", models.PlanDaily, 3)

	require.NoError(t, err)
	assert.Equal(t, models.JSONInt64Array{2, 4, 5}, event.SelectedTaskIDs,
		"domino tasks fill the plan in score order before any fallback")
}

func TestSelectDailyPlan_FallbackFillsRemainingSlots(t *testing.T) {
	tasks := NewMockTaskSource()
	tasks.AddRanked(1, 5.0, 1)
	tasks.AddRanked(2, 4.0, 3) // only domino task
	tasks.AddRanked(3, 3.0, 2)

	s := newTestSelector(tasks, &MockPlanSink{}, &MockRescorer{})
	event, err := s.SelectDailyPlan(context.Background(), "alice", models.PlanDaily, 3)

	require.NoError(t, err)
	assert.Equal(t, models.JSONInt64Array{2, 1, 3}, event.SelectedTaskIDs,
		"remaining slots fill from the full pool in score order")
}

func TestSelectDailyPlan_ExactlyMinTargetPool(t *testing.T) {
	// Always min(targetSize, poolSize) selections, even with zero
	// domino candidates.
	for _, poolSize := range []int{0, 1, 2, 3, 5} {
		tasks := NewMockTaskSource()
		for i := 1; i <= poolSize; i++ {
			tasks.AddRanked(int64(i), float64(10-i), 1)
		}

		s := newTestSelector(tasks, &MockPlanSink{}, &MockRescorer{})
		event, err := s.SelectDailyPlan(context.Background(), "alice", models.PlanDaily, 3)

		require.NoError(t, err)
		want := poolSize
		if want > 3 {
			want = 3
		}
		assert.Len(t, event.SelectedTaskIDs, want, "pool size %d", poolSize)
	}
}

func TestSelectDailyPlan_RescoresBeforeSelection(t *testing.T) {
	tasks := NewMockTaskSource()
	tasks.AddRanked(1, 1.0, 1)
	rescorer := &MockRescorer{}

	s := newTestSelector(tasks, &MockPlanSink{}, rescorer)
	_, err := s.SelectDailyPlan(context.Background(), "alice", models.PlanDaily, 3)

	require.NoError(t, err)
	assert.Equal(t, 1, rescorer.Calls())
}

func TestSelectDailyPlan_RescoreFailurePropagates(t *testing.T) {
	rescorer := &MockRescorer{recalcErr: errors.New("connection refused")}

	s := newTestSelector(NewMockTaskSource(), &MockPlanSink{}, rescorer)
	_, err := s.SelectDailyPlan(context.Background(), "alice", models.PlanDaily, 3)

	require.Error(t, err, "plan generation is a batch path, store failures propagate")
}

func TestSelectDailyPlan_PersistFailurePropagates(t *testing.T) {
	tasks := NewMockTaskSource()
	tasks.AddRanked(1, 1.0, 1)
	plans := &MockPlanSink{appendErr: errors.New("connection refused")}

	s := newTestSelector(tasks, plans, &MockRescorer{})
	_, err := s.SelectDailyPlan(context.Background(), "alice", models.PlanDaily, 3)

	require.Error(t, err)
}

func TestSelectDailyPlan_DomainFetchFailureDisablesDominoPreference(t *testing.T) {
	tasks := NewMockTaskSource()
	tasks.AddRanked(1, 5.0, 1)
	tasks.AddRanked(2, 4.0, 3)
	tasks.AddRanked(3, 3.0, 3)
	tasks.fetchErr = errors.New("connection refused")

	s := newTestSelector(tasks, &MockPlanSink{}, &MockRescorer{})
	event, err := s.SelectDailyPlan(context.Background(), "alice", models.PlanDaily, 3)

	require.NoError(t, err, "domain-count fetch failure degrades, never fails the plan")
	assert.Equal(t, models.JSONInt64Array{1, 2, 3}, event.SelectedTaskIDs,
		"with no domain counts the plan falls back to pure score order")
}

func TestSelectDailyPlan_RecordsCandidateCount(t *testing.T) {
	tasks := NewMockTaskSource()
	for i := int64(1); i <= 7; i++ {
		tasks.AddRanked(i, float64(10-i), 1)
	}
	plans := &MockPlanSink{}

	s := newTestSelector(tasks, plans, &MockRescorer{})
	event, err := s.SelectDailyPlan(context.Background(), "alice", models.PlanDaily, 3)

	require.NoError(t, err)
	assert.Equal(t, 7, event.CandidateCount)
	assert.Equal(t, "event-1", event.ID)
	require.Len(t, plans.Events(), 1)
	assert.Equal(t, models.PlanDaily, plans.Events()[0].Kind)
	assert.NotZero(t, plans.Events()[0].GeneratedAtEpoch)
}

func TestSelectDailyPlan_InvalidKindDefaultsToDaily(t *testing.T) {
	tasks := NewMockTaskSource()
	tasks.AddRanked(1, 1.0, 1)
	plans := &MockPlanSink{}

	s := newTestSelector(tasks, plans, &MockRescorer{})
	event, err := s.SelectDailyPlan(context.Background(), "alice", models.PlanKind("monthly"), 3)

	require.NoError(t, err)
	assert.Equal(t, models.PlanDaily, event.Kind)
}

// Package scoring provides priority score calculation for tasks.
package scoring

import (
	"github.com/resonancehq/resonance/pkg/models"
)

// Gate reasons reported in ScoreComponents when a task is excluded
// from ranking outright rather than scored low.
const (
	GateNone      = ""
	GateNoDomains = "no_domains"
	GatePurpose   = "purpose_below_threshold"
	GateEffort    = "non_positive_effort"
)

// Config contains scoring parameters.
type Config struct {
	// PurposeGate is the conviction threshold below which a task is
	// excluded from ranking entirely, not merely penalized.
	PurposeGate float64 `json:"purpose_gate"`

	// DominoStep is the per-domain increment of the domino bonus.
	// A task touching n distinct domains multiplies its raw sum by
	// 1 + DominoStep*max(1, n).
	DominoStep float64 `json:"domino_step"`

	// WeightFloor is the minimum per-domain amplification. Affinity
	// weights only ever amplify a domain's own contribution, never
	// dampen it.
	WeightFloor float64 `json:"weight_floor"`
}

// DefaultConfig returns the default scoring configuration.
func DefaultConfig() *Config {
	return &Config{
		PurposeGate: 0.5,
		DominoStep:  0.2,
		WeightFloor: 1.0,
	}
}

// Calculator computes priority scores for tasks.
type Calculator struct {
	config *Config
}

// NewCalculator creates a new scoring calculator.
// If config is nil, uses the default configuration.
func NewCalculator(config *Config) *Calculator {
	if config == nil {
		config = DefaultConfig()
	}
	return &Calculator{config: config}
}

// Calculate computes the priority score for a task against an owner's
// weight map. Deterministic for fixed inputs; pure, no side effects.
//
// The scoring formula:
//
//	Score = (RawSum × DominoBonus × Purpose) / Effort
//
// Where:
//   - RawSum = Σ over effect-map domains s of w(s) × clamp01(effect[s])
//   - w(s) = max(floor, max over other effect-map domains t of
//     ResolveSymmetric(weights, s, t)) — weights amplify, never dampen
//   - DominoBonus = 1 + step × max(1, distinct domain count)
//   - Purpose = clamp01(purpose score); below the gate the task scores 0
//   - Effort <= 0 scores 0
//
// Malformed tasks (empty effect map) score 0 rather than erroring;
// callers treat 0 as "not viable".
func (c *Calculator) Calculate(task *models.Task, weights models.WeightMap) float64 {
	return c.CalculateComponents(task, weights).FinalScore
}

// ScoreComponents contains the breakdown of a priority score
// calculation. Useful for explaining scores to users: a gated task and
// a genuinely low-priority task both return 0, and Gate is the only
// way to tell them apart.
type ScoreComponents struct {
	RawSum      float64 `json:"raw_sum"`
	DominoBonus float64 `json:"domino_bonus"`
	Purpose     float64 `json:"purpose"`
	Effort      float64 `json:"effort"`
	DomainCount int     `json:"domain_count"`
	FinalScore  float64 `json:"final_score"`
	Gate        string  `json:"gate,omitempty"`
}

// CalculateComponents returns the individual components of the priority
// score. This is the core calculation method - Calculate() delegates
// to this.
func (c *Calculator) CalculateComponents(task *models.Task, weights models.WeightMap) ScoreComponents {
	components := ScoreComponents{Effort: task.Effort}

	// 1. Distinct effect-map domains. Secondary domains do not count
	// unless they also appear as effect-map keys.
	domains := task.Domains()
	components.DomainCount = len(domains)
	if len(domains) == 0 {
		components.Gate = GateNoDomains
		return components
	}

	// 2+3. Per-domain amplification, floored so that a domain with no
	// reinforcing partner in this task still contributes its full raw
	// effect, then sum the amplified clamped magnitudes.
	rawSum := 0.0
	for _, s := range domains {
		w := c.config.WeightFloor
		for _, t := range domains {
			if t == s {
				continue
			}
			if resolved := weights.ResolveSymmetric(s, t); resolved > w {
				w = resolved
			}
		}
		rawSum += w * models.Clamp01(task.EffectMap[string(s)])
	}
	components.RawSum = rawSum

	// 5. Cross-domain leverage bonus, linear in distinct-domain count.
	dominoCount := len(domains)
	if dominoCount < 1 {
		dominoCount = 1
	}
	components.DominoBonus = 1 + c.config.DominoStep*float64(dominoCount)

	// 6. Purpose gate: low-conviction tasks are excluded from ranking
	// entirely.
	purpose := models.Clamp01(task.PurposeScore)
	components.Purpose = purpose
	if purpose < c.config.PurposeGate {
		components.Gate = GatePurpose
		return components
	}

	// 7. Effort gate.
	if task.Effort <= 0 {
		components.Gate = GateEffort
		return components
	}

	components.FinalScore = (rawSum * components.DominoBonus * purpose) / task.Effort
	return components
}

// BatchCalculate computes scores for multiple tasks against one weight
// map. Returns a map of task ID to calculated score.
func (c *Calculator) BatchCalculate(tasks []*models.Task, weights models.WeightMap) map[int64]float64 {
	scores := make(map[int64]float64, len(tasks))
	for _, task := range tasks {
		scores[task.ID] = c.Calculate(task, weights)
	}
	return scores
}

// GetConfig returns the current scoring configuration.
func (c *Calculator) GetConfig() *Config {
	return c.config
}

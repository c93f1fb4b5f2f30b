// Package models contains domain models for resonance.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Effort bounds accepted from the task-authoring surface.
const (
	MinEffort = 0.5
	MaxEffort = 5.0
)

// DominoDomainThreshold is the minimum distinct-domain count for a
// task to qualify as a domino task.
const DominoDomainThreshold = 3

// Task is a user-authored task with a per-domain effect map and a
// derived priority score. The engine only reads tasks and rewrites
// Score; every other field is owned by the authoring surface.
type Task struct {
	ID               int64           `db:"id" json:"id"`
	OwnerID          string          `db:"owner_id" json:"owner_id"`
	Title            string          `db:"title" json:"title"`
	EffectMap        JSONFloatMap    `db:"effect_map" json:"effect_map"`
	SecondaryDomains JSONStringArray `db:"secondary_domains" json:"secondary_domains,omitempty"`
	Effort           float64         `db:"effort" json:"effort"`
	PurposeScore     float64         `db:"purpose_score" json:"purpose_score"`
	DueAt            *time.Time      `db:"due_at" json:"due_at,omitempty"`
	Completed        bool            `db:"completed" json:"completed"`
	Score            float64         `db:"score" json:"score"`
	ScoreUpdatedAt   int64           `db:"score_updated_at_epoch" json:"score_updated_at_epoch,omitempty"`
	CreatedAtEpoch   int64           `db:"created_at_epoch" json:"created_at_epoch"`
}

// Domains returns the distinct effect-map domains of the task.
// Secondary domains are not included unless they also appear as
// effect-map keys.
func (t *Task) Domains() []Domain {
	domains := make([]Domain, 0, len(t.EffectMap))
	for code := range t.EffectMap {
		domains = append(domains, Domain(code))
	}
	return domains
}

// DomainCount returns the number of distinct effect-map domains.
func (t *Task) DomainCount() int {
	return len(t.EffectMap)
}

// IsDomino reports whether the task spans at least three distinct
// effect-map domains.
func (t *Task) IsDomino() bool {
	return t.DomainCount() >= DominoDomainThreshold
}

// ScoredTask is the id+score projection returned by ranking queries.
type ScoredTask struct {
	ID    int64   `db:"id" json:"id"`
	Score float64 `db:"score" json:"score"`
}

// JSONFloatMap is a custom type for handling JSON float maps stored in
// a text column.
type JSONFloatMap map[string]float64

// Scan implements sql.Scanner for JSONFloatMap.
func (j *JSONFloatMap) Scan(src interface{}) error {
	if src == nil {
		*j = nil
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("JSONFloatMap: unsupported type %T", src)
	}

	if len(data) == 0 {
		*j = nil
		return nil
	}

	return json.Unmarshal(data, j)
}

// Value implements driver.Valuer for JSONFloatMap.
func (j JSONFloatMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// JSONStringArray is a custom type for handling JSON string arrays
// stored in a text column.
type JSONStringArray []string

// Scan implements sql.Scanner for JSONStringArray.
func (j *JSONStringArray) Scan(src interface{}) error {
	if src == nil {
		*j = nil
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("JSONStringArray: unsupported type %T", src)
	}

	if len(data) == 0 {
		*j = nil
		return nil
	}

	return json.Unmarshal(data, j)
}

// Value implements driver.Valuer for JSONStringArray.
func (j JSONStringArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

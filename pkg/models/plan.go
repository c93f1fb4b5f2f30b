// Package models contains domain models for resonance.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// PlanKind distinguishes daily from weekly orchestrator runs.
type PlanKind string

const (
	PlanDaily  PlanKind = "daily"
	PlanWeekly PlanKind = "weekly"
)

// IsValid reports whether the kind is a known plan kind.
func (k PlanKind) IsValid() bool {
	return k == PlanDaily || k == PlanWeekly
}

// PlanEvent is an immutable, append-only record of one orchestrator
// run's task selection. Never updated after creation.
type PlanEvent struct {
	ID               string         `db:"id" json:"id"`
	OwnerID          string         `db:"owner_id" json:"owner_id"`
	Kind             PlanKind       `db:"kind" json:"kind"`
	SelectedTaskIDs  JSONInt64Array `db:"selected_task_ids" json:"selected_task_ids"`
	CandidateCount   int            `db:"candidate_count" json:"candidate_count"`
	GeneratedAtEpoch int64          `db:"generated_at_epoch" json:"generated_at_epoch"`
}

// JSONInt64Array is a custom type for handling JSON int64 arrays
// stored in a text column.
type JSONInt64Array []int64

// Scan implements sql.Scanner for JSONInt64Array.
func (j *JSONInt64Array) Scan(src interface{}) error {
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
		return fmt.Errorf("JSONInt64Array: unsupported type %T", src)
	}

	if len(data) == 0 {
		*j = nil
		return nil
	}

	return json.Unmarshal(data, j)
}

// Value implements driver.Valuer for JSONInt64Array.
func (j JSONInt64Array) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Package gorm provides GORM-based database operations for resonance.
package gorm

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// runMigrations runs all database migrations using gormigrate.
func runMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		// Migration 001: Core tables (Task, AffinityWeight)
		{
			ID: "001_core_tables",
			Migrate: func(tx *gorm.DB) error {
				// AutoMigrate creates tables with all indexes from struct tags
				if err := tx.AutoMigrate(&Task{}); err != nil {
					return err
				}
				return tx.AutoMigrate(&AffinityWeight{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("tasks", "affinity_weights")
			},
		},

		// Migration 002: Plan events table
		{
			ID: "002_plan_events",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&PlanEvent{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("plan_events")
			},
		},

		// Migration 003: Partial index for ranking incomplete tasks.
		// The owner+score composite from struct tags covers completed
		// rows too; ranking only ever reads incomplete ones.
		{
			ID: "003_incomplete_ranking_index",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec(`
					CREATE INDEX IF NOT EXISTS idx_tasks_owner_incomplete_score
					ON tasks (owner_id, score DESC)
					WHERE completed = false
				`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec("DROP INDEX IF EXISTS idx_tasks_owner_incomplete_score").Error
			},
		},
	})

	return m.Migrate()
}

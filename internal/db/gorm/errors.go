// Package gorm provides GORM-based database operations for resonance.
package gorm

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrStoreUnavailable marks failures where the persistent store could
// not be reached or returned a schema/connectivity error. Batch callers
// treat it as fatal; interactive read paths degrade to empty results.
var ErrStoreUnavailable = errors.New("store unavailable")

// PostgreSQL error classes that indicate the store itself is broken
// rather than the query: 08 connection exceptions, 53 insufficient
// resources, 57 operator intervention, 58 system errors.
var unavailableClasses = map[string]bool{
	"08": true,
	"53": true,
	"57": true,
	"58": true,
}

// classifyStoreErr wraps connectivity and schema failures with
// ErrStoreUnavailable so callers can branch on the taxonomy without
// inspecting driver internals. gorm.ErrRecordNotFound is passed through
// untouched; callers treat it as an empty result.
func classifyStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if len(pgErr.Code) >= 2 && unavailableClasses[pgErr.Code[:2]] {
			return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
		}
		// Undefined table/column means migrations are out of step.
		if pgErr.Code == "42P01" || pgErr.Code == "42703" {
			return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}

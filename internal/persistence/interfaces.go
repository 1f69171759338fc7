// Package persistence defines the storage contracts for model evaluation
// history, daily tier records, and reference price bars.
package persistence

import (
	"context"
	"time"

	"github.com/optispark/tiercast/internal/domain"
)

// ObservationStore reads and writes per-model evaluation rows.
type ObservationStore interface {
	// ForDate returns zero or one observation per model for the date.
	// Missing models are a normal condition, not an error.
	ForDate(ctx context.Context, models []string, date time.Time) ([]domain.ModelObservation, error)

	// Before returns all observations strictly before the date for the
	// models, ordered by date ascending.
	Before(ctx context.Context, models []string, date time.Time) ([]domain.ModelObservation, error)

	// LatestDate returns the most recent observation date across the models.
	// domain.ErrNotFound when no rows exist.
	LatestDate(ctx context.Context, models []string) (time.Time, error)

	// UpsertBatch writes observations keyed by (model, date).
	UpsertBatch(ctx context.Context, obs []domain.ModelObservation) error
}

// TierStore reads and writes daily tier records, keyed by date.
type TierStore interface {
	// Upsert is idempotent per date; repeated runs overwrite.
	Upsert(ctx context.Context, rec domain.DailyTierRecord) error

	// Get returns the record for an exact date. domain.ErrNotFound when
	// absent.
	Get(ctx context.Context, date time.Time) (*domain.DailyTierRecord, error)

	// LatestBefore returns the most recent record strictly before the date,
	// or nil when none exists.
	LatestBefore(ctx context.Context, date time.Time) (*domain.DailyTierRecord, error)

	// Latest returns the most recent record overall. domain.ErrNotFound
	// when the table is empty.
	Latest(ctx context.Context) (*domain.DailyTierRecord, error)
}

// PriceStore reads daily bars for the reference instrument.
type PriceStore interface {
	// LatestBefore returns the most recent bar strictly before the date for
	// the ticker, or nil when none exists.
	LatestBefore(ctx context.Context, ticker string, date time.Time) (*domain.PriceBar, error)

	// Upsert writes a bar keyed by (ticker, date).
	Upsert(ctx context.Context, bar domain.PriceBar) error
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/optispark/tiercast/internal/domain"
	"github.com/optispark/tiercast/internal/persistence"
)

// tiersRepo implements TierStore over the daily_tiers table. Scores and
// tiers are duplicated into flat columns for ad-hoc queries; the details
// jsonb column is authoritative for reads.
type tiersRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewTierStore creates a PostgreSQL-backed tier store.
func NewTierStore(db *sqlx.DB, timeout time.Duration) persistence.TierStore {
	return &tiersRepo{db: db, timeout: timeout}
}

// tierDetails is the jsonb payload for one record.
type tierDetails struct {
	Long  domain.TierAssignment `json:"long"`
	Short domain.TierAssignment `json:"short"`
}

func (r *tiersRepo) Upsert(ctx context.Context, rec domain.DailyTierRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	detailsJSON, err := json.Marshal(tierDetails{Long: rec.Long, Short: rec.Short})
	if err != nil {
		return fmt.Errorf("failed to marshal tier details: %w", err)
	}

	query := `
		INSERT INTO daily_tiers
		(as_of_date, long_score, long_tier, short_score, short_tier, details)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (as_of_date) DO UPDATE SET
			long_score = EXCLUDED.long_score,
			long_tier = EXCLUDED.long_tier,
			short_score = EXCLUDED.short_score,
			short_tier = EXCLUDED.short_tier,
			details = EXCLUDED.details`

	_, err = r.db.ExecContext(ctx, query,
		rec.Date, rec.Long.Score, rec.Long.Tier, rec.Short.Score, rec.Short.Tier, detailsJSON)
	if err != nil {
		return fmt.Errorf("failed to upsert daily tiers for %s: %w", domain.DateOnly(rec.Date), err)
	}
	return nil
}

func (r *tiersRepo) Get(ctx context.Context, date time.Time) (*domain.DailyTierRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT as_of_date, details FROM daily_tiers WHERE as_of_date = $1`
	rec, err := r.scanRecord(r.db.QueryRowxContext(ctx, query, date))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query daily tiers for %s: %w", domain.DateOnly(date), err)
	}
	return rec, nil
}

func (r *tiersRepo) LatestBefore(ctx context.Context, date time.Time) (*domain.DailyTierRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT as_of_date, details
		FROM daily_tiers
		WHERE as_of_date < $1
		ORDER BY as_of_date DESC
		LIMIT 1`

	rec, err := r.scanRecord(r.db.QueryRowxContext(ctx, query, date))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query prior daily tiers: %w", err)
	}
	return rec, nil
}

func (r *tiersRepo) Latest(ctx context.Context) (*domain.DailyTierRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT as_of_date, details
		FROM daily_tiers
		ORDER BY as_of_date DESC
		LIMIT 1`

	rec, err := r.scanRecord(r.db.QueryRowxContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query latest daily tiers: %w", err)
	}
	return rec, nil
}

func (r *tiersRepo) scanRecord(row *sqlx.Row) (*domain.DailyTierRecord, error) {
	var (
		rec         domain.DailyTierRecord
		detailsJSON []byte
	)
	if err := row.Scan(&rec.Date, &detailsJSON); err != nil {
		return nil, err
	}

	var details tierDetails
	if err := json.Unmarshal(detailsJSON, &details); err != nil {
		return nil, fmt.Errorf("failed to decode tier details: %w", err)
	}
	rec.Long = details.Long
	rec.Short = details.Short
	return &rec, nil
}

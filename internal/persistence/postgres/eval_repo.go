package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/optispark/tiercast/internal/domain"
	"github.com/optispark/tiercast/internal/persistence"
)

// evalRepo implements ObservationStore over the model_eval_summary table.
// Per-horizon vectors are stored as jsonb arrays of nullable numbers.
type evalRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewObservationStore creates a PostgreSQL-backed observation store.
func NewObservationStore(db *sqlx.DB, timeout time.Duration) persistence.ObservationStore {
	return &evalRepo{db: db, timeout: timeout}
}

const evalColumns = `model_name, as_of_date, predictions, rmse_pct, acc_pct`

func (r *evalRepo) ForDate(ctx context.Context, models []string, date time.Time) ([]domain.ModelObservation, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT ` + evalColumns + `
		FROM model_eval_summary
		WHERE model_name = ANY($1) AND as_of_date = $2
		ORDER BY model_name`

	rows, err := r.db.QueryxContext(ctx, query, pq.Array(models), date)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations for date: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

func (r *evalRepo) Before(ctx context.Context, models []string, date time.Time) ([]domain.ModelObservation, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT ` + evalColumns + `
		FROM model_eval_summary
		WHERE model_name = ANY($1) AND as_of_date < $2
		ORDER BY as_of_date ASC, model_name`

	rows, err := r.db.QueryxContext(ctx, query, pq.Array(models), date)
	if err != nil {
		return nil, fmt.Errorf("failed to query observation history: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

func (r *evalRepo) LatestDate(ctx context.Context, models []string) (time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT MAX(as_of_date)
		FROM model_eval_summary
		WHERE model_name = ANY($1)`

	var latest sql.NullTime
	if err := r.db.QueryRowxContext(ctx, query, pq.Array(models)).Scan(&latest); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, domain.ErrNotFound
		}
		return time.Time{}, fmt.Errorf("failed to query latest observation date: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, domain.ErrNotFound
	}
	return latest.Time, nil
}

func (r *evalRepo) UpsertBatch(ctx context.Context, obs []domain.ModelObservation) error {
	if len(obs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO model_eval_summary (model_name, as_of_date, predictions, rmse_pct, acc_pct)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (model_name, as_of_date) DO UPDATE SET
			predictions = EXCLUDED.predictions,
			rmse_pct = EXCLUDED.rmse_pct,
			acc_pct = EXCLUDED.acc_pct`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin observation upsert: %w", err)
	}
	defer tx.Rollback()

	for _, o := range obs {
		predJSON, err := json.Marshal(o.Pred)
		if err != nil {
			return fmt.Errorf("failed to marshal predictions: %w", err)
		}
		rmseJSON, err := json.Marshal(o.RMSEPct)
		if err != nil {
			return fmt.Errorf("failed to marshal rmse: %w", err)
		}
		accJSON, err := json.Marshal(o.Acc)
		if err != nil {
			return fmt.Errorf("failed to marshal accuracy: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, o.Model, o.Date, predJSON, rmseJSON, accJSON); err != nil {
			return fmt.Errorf("failed to upsert observation %s/%s: %w", o.Model, domain.DateOnly(o.Date), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit observation upsert: %w", err)
	}
	return nil
}

func scanObservations(rows *sqlx.Rows) ([]domain.ModelObservation, error) {
	var out []domain.ModelObservation
	for rows.Next() {
		var (
			o                            domain.ModelObservation
			predJSON, rmseJSON, accJSON []byte
		)
		if err := rows.Scan(&o.Model, &o.Date, &predJSON, &rmseJSON, &accJSON); err != nil {
			return nil, fmt.Errorf("failed to scan observation row: %w", err)
		}
		if len(predJSON) > 0 {
			if err := json.Unmarshal(predJSON, &o.Pred); err != nil {
				return nil, fmt.Errorf("failed to decode predictions for %s: %w", o.Model, err)
			}
		}
		if len(rmseJSON) > 0 {
			if err := json.Unmarshal(rmseJSON, &o.RMSEPct); err != nil {
				return nil, fmt.Errorf("failed to decode rmse for %s: %w", o.Model, err)
			}
		}
		if len(accJSON) > 0 {
			if err := json.Unmarshal(accJSON, &o.Acc); err != nil {
				return nil, fmt.Errorf("failed to decode accuracy for %s: %w", o.Model, err)
			}
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate observation rows: %w", err)
	}
	return out, nil
}

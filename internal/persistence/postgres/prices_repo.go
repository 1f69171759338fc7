package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/optispark/tiercast/internal/domain"
	"github.com/optispark/tiercast/internal/persistence"
)

// pricesRepo implements PriceStore over the price_history table.
type pricesRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPriceStore creates a PostgreSQL-backed price store.
func NewPriceStore(db *sqlx.DB, timeout time.Duration) persistence.PriceStore {
	return &pricesRepo{db: db, timeout: timeout}
}

func (r *pricesRepo) LatestBefore(ctx context.Context, ticker string, date time.Time) (*domain.PriceBar, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT ticker, date, open_price, high_price, low_price, close_price, volume
		FROM price_history
		WHERE ticker = $1 AND date < $2
		ORDER BY date DESC
		LIMIT 1`

	var bar domain.PriceBar
	err := r.db.QueryRowxContext(ctx, query, ticker, date).Scan(
		&bar.Ticker, &bar.Date, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query prior price bar for %s: %w", ticker, err)
	}
	return &bar, nil
}

func (r *pricesRepo) Upsert(ctx context.Context, bar domain.PriceBar) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO price_history
		(ticker, date, open_price, high_price, low_price, close_price, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (ticker, date) DO UPDATE SET
			open_price = EXCLUDED.open_price,
			high_price = EXCLUDED.high_price,
			low_price = EXCLUDED.low_price,
			close_price = EXCLUDED.close_price,
			volume = EXCLUDED.volume`

	_, err := r.db.ExecContext(ctx, query,
		bar.Ticker, bar.Date, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
	if err != nil {
		return fmt.Errorf("failed to upsert price bar %s/%s: %w", bar.Ticker, domain.DateOnly(bar.Date), err)
	}
	return nil
}

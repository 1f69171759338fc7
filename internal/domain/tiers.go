package domain

import "time"

// TierAssignment is the discretized outcome for one posture on one date.
// Percentile is nil when the historical distribution was empty.
type TierAssignment struct {
	Score         float64            `json:"score"`
	Percentile    *float64           `json:"percentile"`
	Tier          string             `json:"tier"`
	Bias          string             `json:"bias"`
	ModelWeights  map[string]float64 `json:"model_weights"`
	ModelSignals  map[string]float64 `json:"model_signals"`
	CutsTopCumPct []float64          `json:"cuts_top_cum_pct"`
}

// DailyTierRecord is the persisted aggregate for one calendar date. It is
// uniquely keyed by Date; recomputation upserts over any prior record.
type DailyTierRecord struct {
	Date  time.Time      `json:"date"`
	Long  TierAssignment `json:"long"`
	Short TierAssignment `json:"short"`
}

// PriceBar is one daily OHLC bar for the reference instrument.
type PriceBar struct {
	Ticker string    `json:"ticker"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Package compensation grades yesterday's tier call against the realized
// price move and estimates how strongly today's market may compensate.
package compensation

import (
	"math"

	"github.com/optispark/tiercast/internal/domain"
	"github.com/optispark/tiercast/internal/tier"
)

// Direction of a realized close-vs-open move.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
	DirectionFlat = "flat"
)

// Strength buckets shared by realized moves and inferred predictions.
const (
	StrengthStrong   = "strong"
	StrengthModerate = "moderate"
	StrengthWeak     = "weak"
)

// Analysis labels.
const (
	AnalysisInsufficientData     = "insufficient_data"
	AnalysisNoPriceData          = "no_price_data"
	AnalysisNeutralMarket        = "neutral_market"
	AnalysisStrongCompensation   = "strong_compensation"
	AnalysisModerateCompensation = "moderate_compensation"
	AnalysisWeakCompensation     = "weak_compensation"
	AnalysisCorrectStrong        = "correct_strong"
	AnalysisCorrectModerate      = "correct_moderate"
)

// Movement summarizes one daily price bar relative to its open.
type Movement struct {
	CloseOpenChange  float64 `json:"close_open_change"`
	CloseOpenPct     float64 `json:"close_open_pct"`
	HighOpenPct      float64 `json:"high_open_pct"`
	LowOpenPct       float64 `json:"low_open_pct"`
	IntradayRangePct float64 `json:"intraday_range_pct"`
	Direction        string  `json:"direction"`
	Strength         string  `json:"strength"`
}

// ClassifyMovement derives direction and strength from a daily bar. ok is
// false for a bar with a zero open, which cannot be expressed in percent
// terms.
func ClassifyMovement(bar domain.PriceBar) (Movement, bool) {
	if bar.Open == 0 {
		return Movement{}, false
	}

	m := Movement{
		CloseOpenChange:  bar.Close - bar.Open,
		HighOpenPct:      (bar.High - bar.Open) / bar.Open * 100,
		LowOpenPct:       (bar.Low - bar.Open) / bar.Open * 100,
		IntradayRangePct: (bar.High - bar.Low) / bar.Open * 100,
	}
	m.CloseOpenPct = m.CloseOpenChange / bar.Open * 100

	switch {
	case m.CloseOpenPct > 0:
		m.Direction = DirectionUp
	case m.CloseOpenPct < 0:
		m.Direction = DirectionDown
	default:
		m.Direction = DirectionFlat
	}

	switch abs := math.Abs(m.CloseOpenPct); {
	case abs > 2:
		m.Strength = StrengthStrong
	case abs > 0.5:
		m.Strength = StrengthModerate
	default:
		m.Strength = StrengthWeak
	}
	return m, true
}

// Accuracy is the outcome of grading yesterday's prediction against the
// realized move. Factor is a heuristic reversal annotation in [0, 0.8], not
// a validated probability.
type Accuracy struct {
	Analysis           string    `json:"analysis"`
	Factor             float64   `json:"compensation_factor"`
	PredictedDirection string    `json:"predicted_direction,omitempty"`
	PredictionStrength string    `json:"prediction_strength,omitempty"`
	ActualDirection    string    `json:"actual_direction,omitempty"`
	ActualStrength     string    `json:"actual_strength,omitempty"`
	TierDifference     int       `json:"tier_difference,omitempty"`
	ScoreDifference    float64   `json:"score_difference,omitempty"`
	Movement           *Movement `json:"price_movement,omitempty"`
}

// Analyze grades yesterday's tier record against yesterday's realized bar.
// Either input being absent yields an insufficient-data result with a zero
// factor.
func Analyze(yesterday *domain.DailyTierRecord, bar *domain.PriceBar, strengths map[string]int) Accuracy {
	if yesterday == nil || bar == nil {
		return Accuracy{Analysis: AnalysisInsufficientData}
	}

	movement, ok := ClassifyMovement(*bar)
	if !ok {
		return Accuracy{Analysis: AnalysisNoPriceData}
	}

	tierDiff := tier.Strength(strengths, yesterday.Long.Tier) - tier.Strength(strengths, yesterday.Short.Tier)
	scoreDiff := finiteOrZero(yesterday.Long.Score) - finiteOrZero(yesterday.Short.Score)

	predicted, predStrength := inferPrediction(tierDiff, scoreDiff)

	out := Accuracy{
		Analysis:           AnalysisNeutralMarket,
		PredictedDirection: predicted,
		PredictionStrength: predStrength,
		ActualDirection:    movement.Direction,
		ActualStrength:     movement.Strength,
		TierDifference:     tierDiff,
		ScoreDifference:    scoreDiff,
		Movement:           &movement,
	}
	if predicted == "neutral" || movement.Direction == DirectionFlat {
		return out
	}

	correct := (predicted == "long" && movement.Direction == DirectionUp) ||
		(predicted == "short" && movement.Direction == DirectionDown)

	switch {
	case !correct && predStrength == StrengthStrong && movement.Strength == StrengthStrong:
		out.Factor, out.Analysis = 0.8, AnalysisStrongCompensation
	case !correct && predStrength != StrengthWeak && movement.Strength != StrengthWeak:
		out.Factor, out.Analysis = 0.6, AnalysisModerateCompensation
	case !correct:
		out.Factor, out.Analysis = 0.3, AnalysisWeakCompensation
	case predStrength == StrengthStrong && movement.Strength == StrengthStrong:
		out.Factor, out.Analysis = 0.1, AnalysisCorrectStrong
	default:
		out.Factor, out.Analysis = 0.2, AnalysisCorrectModerate
	}
	return out
}

// inferPrediction derives the direction implied by yesterday's tier pair.
// Tier difference dominates; scores only break near-ties.
func inferPrediction(tierDiff int, scoreDiff float64) (direction, strength string) {
	switch {
	case tierDiff >= 2:
		return "long", StrengthStrong
	case tierDiff <= -2:
		return "short", StrengthStrong
	case tierDiff == 1:
		return "long", StrengthModerate
	case tierDiff == -1:
		return "short", StrengthModerate
	case scoreDiff > 0.5:
		return "long", StrengthModerate
	case scoreDiff < -0.5:
		return "short", StrengthModerate
	}
	return "neutral", StrengthWeak
}

func finiteOrZero(s float64) float64 {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return s
}

// Relationship classifies today's long/short tier pair.
type Relationship struct {
	TierDifference  int     `json:"tier_difference"`
	ScoreDifference float64 `json:"score_difference"`
	MarketType      string  `json:"market_type"`
	Confidence      string  `json:"confidence"`
	BothStrong      bool    `json:"both_strong"`
	LongStrength    int     `json:"long_strength"`
	ShortStrength   int     `json:"short_strength"`
}

// bothStrongMin is the tier strength at which a posture counts as strong
// when judging a two-sided, choppy setup.
const bothStrongMin = 6

// Relate buckets the long/short tier pair into a market type with a
// qualitative confidence level, and flags two-sided strength.
func Relate(longTier, shortTier string, longScore, shortScore float64, strengths map[string]int) Relationship {
	ls := tier.Strength(strengths, longTier)
	ss := tier.Strength(strengths, shortTier)
	tierDiff := ls - ss
	scoreDiff := longScore - shortScore

	r := Relationship{
		TierDifference:  tierDiff,
		ScoreDifference: scoreDiff,
		BothStrong:      ls >= bothStrongMin && ss >= bothStrongMin,
		LongStrength:    ls,
		ShortStrength:   ss,
	}

	abs := tierDiff
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 3 && tierDiff > 0:
		r.MarketType, r.Confidence = "strong_bullish", "very_high"
	case abs >= 3:
		r.MarketType, r.Confidence = "strong_bearish", "very_high"
	case abs == 2 && tierDiff > 0:
		r.MarketType, r.Confidence = "bullish", "high"
	case abs == 2:
		r.MarketType, r.Confidence = "bearish", "high"
	case abs == 1 && tierDiff > 0:
		r.MarketType, r.Confidence = "slightly_bullish", "moderate"
	case abs == 1:
		r.MarketType, r.Confidence = "slightly_bearish", "moderate"
	case scoreDiff > 0.5:
		r.MarketType, r.Confidence = "slightly_bullish", "low"
	case scoreDiff < -0.5:
		r.MarketType, r.Confidence = "slightly_bearish", "low"
	default:
		r.MarketType, r.Confidence = "neutral", "very_low"
	}
	return r
}

package explain

import (
	"fmt"

	"github.com/optispark/tiercast/internal/compensation"
	"github.com/optispark/tiercast/internal/domain"
)

// Generator produces deterministic explanations from tier records. It holds
// only the tier strength table; no per-call state.
type Generator struct {
	strengths map[string]int
}

func NewGenerator(strengths map[string]int) *Generator {
	return &Generator{strengths: strengths}
}

// Generate builds the full report for today's record. Yesterday's record and
// price bar are optional; absence degrades the compensation block to an
// insufficient-data annotation with factor 0.
func (g *Generator) Generate(today domain.DailyTierRecord, yesterday *domain.DailyTierRecord, bar *domain.PriceBar) Explanation {
	rel := compensation.Relate(
		today.Long.Tier, today.Short.Tier,
		today.Long.Score, today.Short.Score,
		g.strengths,
	)
	acc := compensation.Analyze(yesterday, bar, g.strengths)

	return Explanation{
		Date:         domain.DateOnly(today.Date).Format("2006-01-02"),
		Summary:      summary(today.Long.Tier, today.Short.Tier, rel, acc),
		LongSignal:   today.Long.Tier,
		ShortSignal:  today.Short.Tier,
		Confidence:   confidenceLabel(rel.Confidence),
		Risk:         risk(rel, acc),
		Outlook:      outlook(rel, acc),
		Suggestions:  suggestions(rel, acc),
		Disclaimer:   Disclaimer,
		Long:         today.Long,
		Short:        today.Short,
		Relationship: rel,
		Compensation: acc,
	}
}

func summary(longTier, shortTier string, rel compensation.Relationship, acc compensation.Accuracy) string {
	abs := rel.TierDifference
	if abs < 0 {
		abs = -abs
	}

	var s string
	switch {
	case abs >= 2:
		direction := "LONG"
		if rel.TierDifference < 0 {
			direction = "SHORT"
		}
		strength := "MODERATE"
		if abs >= 3 {
			strength = "STRONG"
		}
		s = fmt.Sprintf("🎯 %s %s: %s vs %s", strength, direction, longTier, shortTier)
	case abs == 1:
		direction := "LONG"
		if rel.TierDifference < 0 {
			direction = "SHORT"
		}
		s = fmt.Sprintf("📊 %s BIAS: %s vs %s", direction, longTier, shortTier)
	default:
		s = fmt.Sprintf("⚖️ NEUTRAL: %s vs %s", longTier, shortTier)
	}

	switch {
	case acc.Factor > 0.6:
		s += " | 🔄 REVERSAL"
	case acc.Factor > 0.3:
		s += " | 🔄 CORRECTION"
	}

	switch rel.Confidence {
	case "very_high":
		s += " | ✅ HIGH"
	case "high":
		s += " | ✅ GOOD"
	case "moderate":
		s += " | ⚠️ MODERATE"
	default:
		s += " | ⚠️ LOW"
	}
	return s
}

func risk(rel compensation.Relationship, acc compensation.Accuracy) string {
	switch {
	case rel.BothStrong:
		return "HIGH - Choppy market"
	case rel.Confidence == "very_high" && acc.Factor < 0.3:
		return "LOW - Strong signal"
	case (rel.Confidence == "high" || rel.Confidence == "moderate") && acc.Factor < 0.5:
		return "MODERATE - Reasonable signal"
	}
	return "HIGH - Uncertain conditions"
}

var outlooks = map[string]string{
	"strong_bullish":   "Strong upward momentum",
	"strong_bearish":   "Strong downward momentum",
	"bullish":          "Upward bias with good confidence",
	"bearish":          "Downward bias with good confidence",
	"slightly_bullish": "Slight upward bias",
	"slightly_bearish": "Slight downward bias",
	"neutral":          "Balanced conditions",
}

func outlook(rel compensation.Relationship, acc compensation.Accuracy) string {
	base, ok := outlooks[rel.MarketType]
	if !ok {
		base = "Unclear conditions"
	}
	switch {
	case acc.Factor > 0.6:
		base += ". Yesterday's prediction was wrong - market may reverse today."
	case acc.Factor > 0.3:
		base += ". Market may correct yesterday's move."
	}
	return base
}

// suggestions is ordered: directional call first, then the reversal and
// choppy warnings, sizing note last. The choppy warning and the sizing note
// can both appear; a two-sided market still needs a sizing stance.
func suggestions(rel compensation.Relationship, acc compensation.Accuracy) []string {
	out := make([]string, 0, 4)

	switch {
	case rel.MarketType == "strong_bullish" && rel.Confidence == "very_high":
		out = append(out, "🚀 STRONG LONG: Consider aggressive long positions")
	case rel.MarketType == "strong_bearish" && rel.Confidence == "very_high":
		out = append(out, "📉 STRONG SHORT: Consider short positions or puts")
	case rel.MarketType == "bullish" || rel.MarketType == "slightly_bullish":
		out = append(out, "📈 BULLISH: Consider long positions with moderate size")
	case rel.MarketType == "bearish" || rel.MarketType == "slightly_bearish":
		out = append(out, "📉 BEARISH: Consider short positions or defensive strategies")
	default:
		out = append(out, "😐 NEUTRAL: Consider range-bound strategies")
	}

	switch {
	case acc.Factor > 0.6:
		out = append(out, "🔄 REVERSAL: Yesterday's prediction was wrong - market may reverse today")
	case acc.Factor > 0.3:
		out = append(out, "🔄 CORRECTION: Market may correct yesterday's move")
	}

	if rel.BothStrong {
		out = append(out, "⚡ CHOPPY: High volatility expected - take profits quickly")
	}
	if rel.Confidence == "very_high" || rel.Confidence == "high" {
		out = append(out, "✅ HIGH CONFIDENCE: Consider larger positions")
	} else {
		out = append(out, "⚠️ LOWER CONFIDENCE: Use smaller positions")
	}
	return out
}

var confidenceLabels = map[string]string{
	"very_high": "Very High",
	"high":      "High",
	"moderate":  "Moderate",
	"low":       "Low",
	"very_low":  "Very Low",
}

func confidenceLabel(c string) string {
	if l, ok := confidenceLabels[c]; ok {
		return l
	}
	return c
}

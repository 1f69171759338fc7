package ensemble

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/optispark/tiercast/internal/domain"
)

func metricObs(date int, acc, rmse float64) domain.ModelObservation {
	o := domain.ModelObservation{Model: "m", Date: day(date)}
	for i := 0; i < domain.Horizons; i++ {
		o.Acc[i] = ptr(acc)
		o.RMSEPct[i] = ptr(rmse)
	}
	return o
}

func TestSkill_Composite(t *testing.T) {
	var history []domain.ModelObservation
	for i := 0; i < 40; i++ {
		history = append(history, metricObs(i, 70, 30))
	}
	cfg := RollingConfig{Primary: 60, Fallback: 120, MinHistory: 30}

	s := Skill(domain.PostureLong, history, cfg)
	assert.InDelta(t, 0.6*70+0.4*(100-30), s, 1e-9)
}

func TestSkill_EmptyHistoryScoresZero(t *testing.T) {
	cfg := RollingConfig{Primary: 60, Fallback: 120, MinHistory: 30}

	assert.InDelta(t, 0.0, Skill(domain.PostureLong, nil, cfg), 1e-9)
}

func TestSkill_WidensBelowMinHistory(t *testing.T) {
	// 5 rows is under MinHistory for both windows; the full history is used
	// rather than refusing to score.
	var history []domain.ModelObservation
	for i := 0; i < 5; i++ {
		history = append(history, metricObs(i, 80, 20))
	}
	cfg := RollingConfig{Primary: 60, Fallback: 120, MinHistory: 30}

	s := Skill(domain.PostureLong, history, cfg)
	assert.InDelta(t, 0.6*80+0.4*(100-20), s, 1e-9)
}

func TestSkill_PrimaryWindowExcludesOldRows(t *testing.T) {
	// 100 poor rows followed by 60 strong rows: the primary window holds
	// exactly the strong tail, so the poor prefix must not bleed in.
	var history []domain.ModelObservation
	for i := 0; i < 100; i++ {
		history = append(history, metricObs(i, 10, 90))
	}
	for i := 100; i < 160; i++ {
		history = append(history, metricObs(i, 90, 10))
	}
	cfg := RollingConfig{Primary: 60, Fallback: 120, MinHistory: 30}

	s := Skill(domain.PostureLong, history, cfg)
	assert.InDelta(t, 0.6*90+0.4*(100-10), s, 1e-9)
}

func TestSkill_ClampsOutOfRangeMetrics(t *testing.T) {
	var history []domain.ModelObservation
	for i := 0; i < 40; i++ {
		history = append(history, metricObs(i, 250, 500))
	}
	cfg := RollingConfig{Primary: 60, Fallback: 120, MinHistory: 30}

	// acc clamps to 100, rmse to 200.
	s := Skill(domain.PostureLong, history, cfg)
	assert.InDelta(t, 0.6*100+0.4*(100-200), s, 1e-9)
}

func TestSkill_UnreportedMetricsUseNeutralMidpoint(t *testing.T) {
	var history []domain.ModelObservation
	for i := 0; i < 40; i++ {
		history = append(history, domain.ModelObservation{Model: "m", Date: day(i)})
	}
	cfg := RollingConfig{Primary: 60, Fallback: 120, MinHistory: 30}

	s := Skill(domain.PostureLong, history, cfg)
	assert.InDelta(t, 0.6*50+0.4*(100-50), s, 1e-9)
}

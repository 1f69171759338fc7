// Package explain renders a daily tier record into a structured, reader
// facing report. The field set is a stable contract for downstream
// consumers; additions are fine, renames and removals are not.
package explain

import (
	"github.com/optispark/tiercast/internal/compensation"
	"github.com/optispark/tiercast/internal/domain"
)

// Disclaimer is appended verbatim to every report.
const Disclaimer = "Educational content only - NOT financial advice. Trading involves risk."

// Explanation is the externally visible report for one trading date.
type Explanation struct {
	Date        string   `json:"date"`
	Summary     string   `json:"summary"`
	LongSignal  string   `json:"long_signal"`
	ShortSignal string   `json:"short_signal"`
	Confidence  string   `json:"confidence"`
	Risk        string   `json:"risk"`
	Outlook     string   `json:"outlook"`
	Suggestions []string `json:"suggestions"`
	Disclaimer  string   `json:"disclaimer"`

	Long         domain.TierAssignment     `json:"long"`
	Short        domain.TierAssignment     `json:"short"`
	Relationship compensation.Relationship `json:"relationship"`
	Compensation compensation.Accuracy     `json:"compensation"`
}

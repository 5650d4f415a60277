package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DataQualityIssue descreve um registro rejeitado ou suspeito durante a agregação.
type DataQualityIssue struct {
	Item   CostLineItem `json:"item"`
	Reason string       `json:"reason"`
}

// Evaluation is the result of one Evaluate call.
type Evaluation struct {
	RunID       string             `json:"run_id"`
	EvaluatedAt time.Time          `json:"evaluated_at"`
	Windows     WindowSet          `json:"windows"`
	Baseline    BaselineMode       `json:"baseline"`
	Policy      ThresholdPolicy    `json:"policy"`
	Summaries   []PeriodSummary    `json:"summaries"`
	Findings    []AnomalyFinding   `json:"findings"`
	Decisions   []DispatchDecision `json:"decisions"`
	Accounts    []Account          `json:"accounts,omitempty"`
	Budgets     []BudgetInfo       `json:"budgets,omitempty"`
	Issues      []DataQualityIssue `json:"data_quality_issues,omitempty"`
	// ComparisonSkipped é true quando faltava uma das janelas comparadas.
	ComparisonSkipped bool          `json:"comparison_skipped"`
	Notification      *Notification `json:"notification,omitempty"`
	TransportError    string        `json:"transport_error,omitempty"`
}

// Summary returns the summary for a window label.
func (e *Evaluation) Summary(label WindowLabel) (PeriodSummary, bool) {
	for _, s := range e.Summaries {
		if s.Window.Label == label {
			return s, true
		}
	}
	return PeriodSummary{}, false
}

// AccountName resolves a display name, falling back to the id.
func (e *Evaluation) AccountName(id string) string {
	for _, a := range e.Accounts {
		if a.ID == id && a.Name != "" {
			return a.Name
		}
	}
	return id
}

// TotalChangePercent compara o total de YesterdayFull com o baseline.
// ok is false when either side is unavailable or the baseline is zero.
func (e *Evaluation) TotalChangePercent() (decimal.Decimal, bool) {
	current, okCur := e.Summary(YesterdayFull)
	prior, okPrior := e.Summary(BaselineFull)
	if !okCur || !okPrior || !current.Available || !prior.Available || !prior.Total.IsPositive() {
		return decimal.Zero, false
	}
	return current.Total.Sub(prior.Total).Div(prior.Total).Mul(decimal.NewFromInt(100)), true
}

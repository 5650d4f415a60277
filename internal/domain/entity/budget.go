package entity

import "github.com/shopspring/decimal"

// BudgetInfo represents a budget with actual and forecasted spend.
type BudgetInfo struct {
	Name     string          `json:"name"`
	Limit    decimal.Decimal `json:"limit"`
	Actual   decimal.Decimal `json:"actual"`
	Forecast decimal.Decimal `json:"forecast,omitempty"`
}

// UsedPercent retorna o percentual do limite já consumido.
func (b BudgetInfo) UsedPercent() decimal.Decimal {
	if !b.Limit.IsPositive() {
		return decimal.Zero
	}
	return b.Actual.Div(b.Limit).Mul(decimal.NewFromInt(100))
}

// Exceeded reports whether actual spend passed the limit.
func (b BudgetInfo) Exceeded() bool {
	return b.Limit.IsPositive() && b.Actual.GreaterThan(b.Limit)
}

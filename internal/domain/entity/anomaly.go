package entity

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Severity classifica a gravidade de um achado.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Scope identifies what a finding is about: an account+service pair or the whole organization.
type Scope struct {
	AccountID        string `json:"account_id,omitempty"`
	ServiceName      string `json:"service_name,omitempty"`
	OrganizationWide bool   `json:"organization_wide,omitempty"`
}

// OrganizationScope é o escopo do total da organização.
var OrganizationScope = Scope{OrganizationWide: true}

// Key returns a stable textual key for the scope.
func (s Scope) Key() string {
	if s.OrganizationWide {
		return "organization"
	}
	return s.AccountID + "/" + s.ServiceName
}

func (s Scope) String() string {
	if s.OrganizationWide {
		return "Organization total"
	}
	return fmt.Sprintf("%s (account %s)", s.ServiceName, s.AccountID)
}

// AnomalyFinding is a single anomalous cost movement.
// DeltaPercent is expressed in percent units (50 means +50%). When NewCost is set the prior
// amount was zero and the percent change is unbounded; DeltaPercent is then left at zero.
type AnomalyFinding struct {
	Scope         Scope           `json:"scope"`
	PriorAmount   decimal.Decimal `json:"prior_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	DeltaAbsolute decimal.Decimal `json:"delta_absolute"`
	DeltaPercent  decimal.Decimal `json:"delta_percent"`
	NewCost       bool            `json:"new_cost"`
	IsAIService   bool            `json:"is_ai_service"`
	// Extreme marca a escalada por aumento extremo; implica SeverityCritical.
	Extreme  bool     `json:"extreme,omitempty"`
	Severity Severity `json:"severity"`
}

// PercentLabel formats the percent change for reports.
func (f AnomalyFinding) PercentLabel() string {
	if f.NewCost {
		return "new cost"
	}
	sign := ""
	if f.DeltaPercent.IsPositive() {
		sign = "+"
	}
	return sign + f.DeltaPercent.StringFixed(1) + "%"
}

// CountExtreme returns how many findings were escalated as extreme increases.
func CountExtreme(findings []AnomalyFinding) int {
	n := 0
	for _, f := range findings {
		if f.Extreme {
			n++
		}
	}
	return n
}

// HasCritical reports whether any finding is critical.
func HasCritical(findings []AnomalyFinding) bool {
	for _, f := range findings {
		if f.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

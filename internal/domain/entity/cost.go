package entity

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CostLineItem is a single raw cost observation returned by the metering source.
type CostLineItem struct {
	AccountID   string          `json:"account_id"`
	ServiceName string          `json:"service_name"`
	Amount      decimal.Decimal `json:"amount"`
	Window      WindowLabel     `json:"window"`
}

// AccountService é a chave composta conta+serviço.
type AccountService struct {
	AccountID   string `json:"account_id"`
	ServiceName string `json:"service_name"`
}

// PeriodSummary contains the aggregated costs of one window.
// Summaries are built once by the aggregator and must be treated as read-only.
type PeriodSummary struct {
	Window            TimeWindow                         `json:"window"`
	Total             decimal.Decimal                    `json:"total"`
	PerAccount        map[string]decimal.Decimal         `json:"per_account"`
	PerAccountService map[AccountService]decimal.Decimal `json:"-"`
	LineItems         int                                `json:"line_items"`
	// Available é false quando o upstream ainda não reportou a janela.
	Available bool `json:"available"`
}

// NewPeriodSummary creates an empty, available summary for the window.
func NewPeriodSummary(window TimeWindow) PeriodSummary {
	return PeriodSummary{
		Window:            window,
		Total:             decimal.Zero,
		PerAccount:        make(map[string]decimal.Decimal),
		PerAccountService: make(map[AccountService]decimal.Decimal),
		Available:         true,
	}
}

// AccountIDs returns the account ids ordered by descending cost, then id.
func (s PeriodSummary) AccountIDs() []string {
	ids := make([]string, 0, len(s.PerAccount))
	for id := range s.PerAccount {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ci, cj := s.PerAccount[ids[i]], s.PerAccount[ids[j]]
		if !ci.Equal(cj) {
			return ci.GreaterThan(cj)
		}
		return ids[i] < ids[j]
	})
	return ids
}

// ServicesFor returns the services billed to an account, ordered by descending cost.
func (s PeriodSummary) ServicesFor(accountID string) []ServiceCost {
	var services []ServiceCost
	for key, amount := range s.PerAccountService {
		if key.AccountID != accountID {
			continue
		}
		services = append(services, ServiceCost{ServiceName: key.ServiceName, Cost: amount})
	}
	sort.Slice(services, func(i, j int) bool {
		if !services[i].Cost.Equal(services[j].Cost) {
			return services[i].Cost.GreaterThan(services[j].Cost)
		}
		return services[i].ServiceName < services[j].ServiceName
	})
	return services
}

// ServiceCost represents a cost amount for a specific AWS service.
type ServiceCost struct {
	ServiceName string          `json:"service_name"`
	Cost        decimal.Decimal `json:"cost"`
}

// Account é uma conta membro da organização.
type Account struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

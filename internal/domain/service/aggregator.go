package service

import (
	"context"
	"strings"

	"github.com/diillson/aws-cost-monitor-go/internal/domain/entity"
	"github.com/diillson/aws-cost-monitor-go/internal/shared/types"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var oneCent = decimal.New(1, -2)

// AggregatorOptions controls line item validation.
type AggregatorOptions struct {
	// NegativeAmountBound rejects items with Amount < -NegativeAmountBound (credits and refunds
	// above it are treated as malformed).
	NegativeAmountBound decimal.Decimal
	// KnownAccounts, quando não vazio, faz contas desconhecidas gerarem aviso.
	KnownAccounts map[string]struct{}
	// ExcludeUnknownAccounts drops items from accounts not in KnownAccounts.
	ExcludeUnknownAccounts bool
}

// Aggregator turns raw line items into one PeriodSummary per window.
type Aggregator struct {
	opts AggregatorOptions
}

// NewAggregator creates a new Aggregator.
func NewAggregator(opts AggregatorOptions) *Aggregator {
	return &Aggregator{opts: opts}
}

// dropSubCent removes account+service sums that round to less than one cent. Multi-day windows
// sum the daily items first, so a service billing fractions of a cent per day still shows up
// once its window total reaches a cent.
func dropSubCent(perAccountService map[entity.AccountService]decimal.Decimal) {
	for key, amount := range perAccountService {
		if amount.Abs().Round(2).LessThan(oneCent) {
			delete(perAccountService, key)
		}
	}
}

// Aggregate groups items by window, account and account+service. Windows listed in
// unavailable produce summaries with Available=false and zero totals. Bad items are rejected
// one by one and returned as warnings; they never abort the aggregation.
func (a *Aggregator) Aggregate(
	ctx context.Context,
	items []entity.CostLineItem,
	windows []entity.TimeWindow,
	unavailable []entity.WindowLabel,
) ([]entity.PeriodSummary, []types.DataQualityWarning) {
	logger := zerolog.Ctx(ctx)

	summaries := make(map[entity.WindowLabel]*entity.PeriodSummary, len(windows))
	for _, w := range windows {
		s := entity.NewPeriodSummary(w)
		summaries[w.Label] = &s
	}
	for _, label := range unavailable {
		if s, ok := summaries[label]; ok {
			s.Available = false
		}
	}

	var warnings []types.DataQualityWarning
	reject := func(item entity.CostLineItem, reason string) {
		w := types.DataQualityWarning{Item: item, Reason: reason}
		warnings = append(warnings, w)
		logger.Warn().
			Str("account_id", item.AccountID).
			Str("service", item.ServiceName).
			Str("window", string(item.Window)).
			Str("amount", item.Amount.String()).
			Msg("data quality: " + reason)
	}

	unknownSeen := make(map[string]bool)

	for _, item := range items {
		summary, ok := summaries[item.Window]
		if !ok {
			reject(item, "unknown window label")
			continue
		}
		if !summary.Available {
			// O upstream marcou a janela como indisponível; não misturamos dados parciais.
			reject(item, "line item for unavailable window")
			continue
		}
		if strings.TrimSpace(item.AccountID) == "" || strings.TrimSpace(item.ServiceName) == "" {
			reject(item, "missing account or service")
			continue
		}
		if a.opts.NegativeAmountBound.IsPositive() && item.Amount.LessThan(a.opts.NegativeAmountBound.Neg()) {
			reject(item, "negative amount exceeds sanity bound")
			continue
		}
		if len(a.opts.KnownAccounts) > 0 {
			if _, known := a.opts.KnownAccounts[item.AccountID]; !known {
				if !unknownSeen[item.AccountID] {
					unknownSeen[item.AccountID] = true
					warnings = append(warnings, types.DataQualityWarning{Item: item, Reason: "unknown account id"})
					logger.Warn().Str("account_id", item.AccountID).Msg("data quality: account is not a known member of the organization")
				}
				if a.opts.ExcludeUnknownAccounts {
					continue
				}
			}
		}

		summary.Total = summary.Total.Add(item.Amount)
		summary.PerAccount[item.AccountID] = summary.PerAccount[item.AccountID].Add(item.Amount)
		summary.LineItems++

		key := entity.AccountService{AccountID: item.AccountID, ServiceName: item.ServiceName}
		summary.PerAccountService[key] = summary.PerAccountService[key].Add(item.Amount)
	}

	result := make([]entity.PeriodSummary, 0, len(windows))
	for _, w := range windows {
		s := summaries[w.Label]
		dropSubCent(s.PerAccountService)
		result = append(result, *s)
	}

	logger.Debug().Int("line_items", len(items)).Int("warnings", len(warnings)).Msg("cost data aggregated")
	return result, warnings
}

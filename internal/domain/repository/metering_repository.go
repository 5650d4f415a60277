package repository

import (
	"context"

	"github.com/diillson/aws-cost-monitor-go/internal/domain/entity"
)

// MeteringRepository defines the interface for retrieving raw cost data.
type MeteringRepository interface {
	// FetchCosts returns line items for every requested window. When the upstream has not
	// reported some windows yet it returns a *types.UpstreamUnavailableError together with
	// the items of the windows that were available.
	FetchCosts(ctx context.Context, windows []entity.TimeWindow) ([]entity.CostLineItem, error)

	// ListAccounts returns the active member accounts of the organization.
	ListAccounts(ctx context.Context) ([]entity.Account, error)
}

// BudgetRepository fornece os orçamentos exibidos no relatório.
type BudgetRepository interface {
	GetBudgets(ctx context.Context) ([]entity.BudgetInfo, error)
}

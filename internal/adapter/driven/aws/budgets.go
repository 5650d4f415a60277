package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/budgets"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/diillson/aws-cost-monitor-go/internal/domain/entity"
	"github.com/diillson/aws-cost-monitor-go/internal/domain/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type budgetsAPI interface {
	DescribeBudgets(ctx context.Context, params *budgets.DescribeBudgetsInput, optFns ...func(*budgets.Options)) (*budgets.DescribeBudgetsOutput, error)
}

type stsAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// BudgetRepositoryImpl lê os orçamentos da conta pagadora.
type BudgetRepositoryImpl struct {
	clients *Clients
	budgets budgetsAPI
	sts     stsAPI
}

// NewBudgetRepository creates the Budgets backed BudgetRepository.
func NewBudgetRepository(clients *Clients) repository.BudgetRepository {
	return &BudgetRepositoryImpl{clients: clients}
}

func (r *BudgetRepositoryImpl) apis(ctx context.Context) (budgetsAPI, stsAPI, error) {
	b, s := r.budgets, r.sts
	if b == nil {
		client, err := r.clients.Budgets(ctx)
		if err != nil {
			return nil, nil, err
		}
		b = client
	}
	if s == nil {
		client, err := r.clients.STS(ctx)
		if err != nil {
			return nil, nil, err
		}
		s = client
	}
	return b, s, nil
}

// GetBudgets returns the budgets of the caller account.
func (r *BudgetRepositoryImpl) GetBudgets(ctx context.Context) ([]entity.BudgetInfo, error) {
	budgetsClient, stsClient, err := r.apis(ctx)
	if err != nil {
		return nil, err
	}

	identity, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("error getting account ID: %w", err)
	}

	result, err := budgetsClient.DescribeBudgets(ctx, &budgets.DescribeBudgetsInput{
		AccountId: identity.Account,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe budgets: %w", err)
	}

	budgetsData := []entity.BudgetInfo{}
	for _, budget := range result.Budgets {
		b := entity.BudgetInfo{Name: aws.ToString(budget.BudgetName)}
		if budget.BudgetLimit != nil {
			b.Limit = parseAmount(ctx, budget.BudgetLimit.Amount)
		}
		if budget.CalculatedSpend != nil {
			if budget.CalculatedSpend.ActualSpend != nil {
				b.Actual = parseAmount(ctx, budget.CalculatedSpend.ActualSpend.Amount)
			}
			if budget.CalculatedSpend.ForecastedSpend != nil {
				b.Forecast = parseAmount(ctx, budget.CalculatedSpend.ForecastedSpend.Amount)
			}
		}
		budgetsData = append(budgetsData, b)
	}

	return budgetsData, nil
}

func parseAmount(ctx context.Context, amount *string) decimal.Decimal {
	v, err := decimal.NewFromString(aws.ToString(amount))
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("amount", aws.ToString(amount)).Msg("invalid budget amount")
		return decimal.Zero
	}
	return v
}

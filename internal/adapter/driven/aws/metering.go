package aws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	ceTypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	orgTypes "github.com/aws/aws-sdk-go-v2/service/organizations/types"
	"github.com/diillson/aws-cost-monitor-go/internal/domain/entity"
	"github.com/diillson/aws-cost-monitor-go/internal/domain/repository"
	"github.com/diillson/aws-cost-monitor-go/internal/shared/types"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	dateLayout      = "2006-01-02"
	costMetric      = "UnblendedCost"
	DefaultMaxPages = 20
)

var errPageLimit = errors.New("pagination limit reached")

type costExplorerAPI interface {
	GetCostAndUsage(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error)
}

// MeteringOptions configura o adapter de custos.
type MeteringOptions struct {
	// MaxPages limita as páginas lidas por janela; uma janela que excede o limite é tratada como indisponível.
	MaxPages int
	// Location converte as janelas UTC nas datas locais enviadas ao Cost Explorer.
	Location *time.Location
}

// MeteringRepositoryImpl lê custos do Cost Explorer e contas do Organizations.
type MeteringRepositoryImpl struct {
	clients *Clients
	ce      costExplorerAPI
	org     organizations.ListAccountsAPIClient
	opts    MeteringOptions
}

// NewMeteringRepository creates the Cost Explorer backed MeteringRepository.
func NewMeteringRepository(clients *Clients, opts MeteringOptions) repository.MeteringRepository {
	return newMeteringRepository(clients, nil, nil, opts)
}

func newMeteringRepository(clients *Clients, ce costExplorerAPI, org organizations.ListAccountsAPIClient, opts MeteringOptions) *MeteringRepositoryImpl {
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &MeteringRepositoryImpl{clients: clients, ce: ce, org: org, opts: opts}
}

func (r *MeteringRepositoryImpl) costExplorer(ctx context.Context) (costExplorerAPI, error) {
	if r.ce != nil {
		return r.ce, nil
	}
	return r.clients.CostExplorer(ctx)
}

func (r *MeteringRepositoryImpl) organizations(ctx context.Context) (organizations.ListAccountsAPIClient, error) {
	if r.org != nil {
		return r.org, nil
	}
	return r.clients.Organizations(ctx)
}

// FetchCosts queries every window separately, grouped by SERVICE and LINKED_ACCOUNT.
// Windows the upstream cannot serve yet are collected into a *types.UpstreamUnavailableError,
// returned together with the items of the other windows.
func (r *MeteringRepositoryImpl) FetchCosts(ctx context.Context, windows []entity.TimeWindow) ([]entity.CostLineItem, error) {
	logger := zerolog.Ctx(ctx)

	client, err := r.costExplorer(ctx)
	if err != nil {
		return nil, err
	}

	var items []entity.CostLineItem
	var missing []entity.WindowLabel

	for _, w := range windows {
		windowItems, err := r.fetchWindow(ctx, client, w)
		if err != nil {
			var unavailable *ceTypes.DataUnavailableException
			if errors.As(err, &unavailable) || errors.Is(err, errPageLimit) || errors.Is(err, types.ErrMeteringUnavailable) {
				logger.Warn().Err(err).Str("window", string(w.Label)).Msg("cost data unavailable for window")
				missing = append(missing, w.Label)
				continue
			}
			return nil, fmt.Errorf("failed to fetch costs for window %s: %w", w.Label, err)
		}
		items = append(items, windowItems...)
	}

	if len(missing) > 0 {
		return items, &types.UpstreamUnavailableError{Windows: missing}
	}
	return items, nil
}

func (r *MeteringRepositoryImpl) fetchWindow(ctx context.Context, client costExplorerAPI, w entity.TimeWindow) ([]entity.CostLineItem, error) {
	logger := zerolog.Ctx(ctx)
	start, end := dateRange(w, r.opts.Location)

	input := &costexplorer.GetCostAndUsageInput{
		TimePeriod: &ceTypes.DateInterval{
			Start: aws.String(start),
			End:   aws.String(end),
		},
		Granularity: ceTypes.GranularityDaily,
		Metrics:     []string{costMetric},
		GroupBy: []ceTypes.GroupDefinition{
			{Type: ceTypes.GroupDefinitionTypeDimension, Key: aws.String("SERVICE")},
			{Type: ceTypes.GroupDefinitionTypeDimension, Key: aws.String("LINKED_ACCOUNT")},
		},
	}

	var items []entity.CostLineItem
	results := 0

	for page := 0; ; page++ {
		if page >= r.opts.MaxPages {
			return nil, fmt.Errorf("window %s: %w after %d pages", w.Label, errPageLimit, r.opts.MaxPages)
		}

		out, err := client.GetCostAndUsage(ctx, input)
		if err != nil {
			return nil, err
		}

		for _, result := range out.ResultsByTime {
			results++
			for _, group := range result.Groups {
				if len(group.Keys) < 2 {
					logger.Warn().Strs("keys", group.Keys).Msg("unexpected cost group keys")
					continue
				}
				metric, ok := group.Metrics[costMetric]
				if !ok || metric.Amount == nil {
					continue
				}
				amount, err := decimal.NewFromString(*metric.Amount)
				if err != nil {
					logger.Warn().Err(err).Str("amount", *metric.Amount).Msg("unparseable cost amount")
					continue
				}
				items = append(items, entity.CostLineItem{
					AccountID:   group.Keys[1],
					ServiceName: group.Keys[0],
					Amount:      amount,
					Window:      w.Label,
				})
			}
		}

		if aws.ToString(out.NextPageToken) == "" {
			break
		}
		input.NextPageToken = out.NextPageToken
	}

	if results == 0 {
		return nil, fmt.Errorf("window %s: %w", w.Label, types.ErrMeteringUnavailable)
	}

	logger.Debug().Str("window", string(w.Label)).Str("start", start).Str("end", end).Int("items", len(items)).Msg("costs fetched")
	return items, nil
}

// dateRange converte a janela nas datas locais do Cost Explorer (End exclusivo).
// Windows ending mid-day include the current day.
func dateRange(w entity.TimeWindow, loc *time.Location) (string, string) {
	start := w.StartUTC.In(loc)
	end := w.EndUTC.In(loc)

	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	if end.Hour() != 0 || end.Minute() != 0 || end.Second() != 0 || end.Nanosecond() != 0 {
		endDay = endDay.AddDate(0, 0, 1)
	}
	if !endDay.After(startDay) {
		endDay = startDay.AddDate(0, 0, 1)
	}
	return startDay.Format(dateLayout), endDay.Format(dateLayout)
}

// ListAccounts returns the ACTIVE accounts of the organization.
func (r *MeteringRepositoryImpl) ListAccounts(ctx context.Context) ([]entity.Account, error) {
	client, err := r.organizations(ctx)
	if err != nil {
		return nil, err
	}

	var accounts []entity.Account
	paginator := organizations.NewListAccountsPaginator(client, &organizations.ListAccountsInput{})

	for page := 0; paginator.HasMorePages(); page++ {
		if page >= r.opts.MaxPages {
			zerolog.Ctx(ctx).Warn().Int("max_pages", r.opts.MaxPages).Msg("account listing truncated")
			break
		}
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list organization accounts: %w", err)
		}
		for _, account := range out.Accounts {
			if account.Status != orgTypes.AccountStatusActive {
				continue
			}
			accounts = append(accounts, entity.Account{
				ID:    aws.ToString(account.Id),
				Name:  aws.ToString(account.Name),
				Email: aws.ToString(account.Email),
			})
		}
	}

	return accounts, nil
}

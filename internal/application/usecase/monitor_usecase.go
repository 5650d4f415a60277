package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diillson/aws-cost-monitor-go/internal/domain/entity"
	"github.com/diillson/aws-cost-monitor-go/internal/domain/repository"
	"github.com/diillson/aws-cost-monitor-go/internal/domain/service"
	"github.com/diillson/aws-cost-monitor-go/internal/shared/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// MonitorUseCase runs one evaluation: windows, cost fetch, aggregation, classification and
// governed dispatch.
type MonitorUseCase struct {
	metering repository.MeteringRepository
	notifier repository.NotificationRepository
	budgets  repository.BudgetRepository
	store    repository.CounterStore
	renderer repository.ReportRenderer
	exporter repository.ExportRepository
	console  types.ConsoleInterface
	dryRun   bool
}

// NewMonitorUseCase creates a new monitor use case. budgets may be nil.
func NewMonitorUseCase(
	metering repository.MeteringRepository,
	notifier repository.NotificationRepository,
	budgets repository.BudgetRepository,
	store repository.CounterStore,
	renderer repository.ReportRenderer,
	exporter repository.ExportRepository,
	console types.ConsoleInterface,
) *MonitorUseCase {
	return &MonitorUseCase{
		metering: metering,
		notifier: notifier,
		budgets:  budgets,
		store:    store,
		renderer: renderer,
		exporter: exporter,
		console:  console,
	}
}

// SetDryRun faz o Evaluate decidir o envio sem consumir contadores nem chamar o transporte.
func (uc *MonitorUseCase) SetDryRun(dryRun bool) {
	uc.dryRun = dryRun
}

// Evaluate runs a full pass for now. Configuration is validated before any external call.
//
// The returned Evaluation is non-nil whenever the configuration was valid, even when an error
// is returned, so callers can still report what was computed.
func (uc *MonitorUseCase) Evaluate(ctx context.Context, now time.Time, cfg *types.Config) (*entity.Evaluation, error) {
	if cfg == nil {
		return nil, types.NewConfigurationError("config", "configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	policy := PolicyFromConfig(cfg)
	governorCfg, err := GovernorConfigFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	windows, err := service.CalculateWindows(cfg.Timezone, now, entity.BaselineMode(cfg.Baseline))
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := zerolog.Ctx(ctx).With().Str("run_id", runID).Logger()
	ctx = logger.WithContext(ctx)

	eval := &entity.Evaluation{
		RunID:       runID,
		EvaluatedAt: now.UTC(),
		Windows:     windows,
		Baseline:    entity.BaselineMode(cfg.Baseline),
		Policy:      policy,
	}
	logger.Info().Str("timezone", cfg.Timezone).Str("baseline", cfg.Baseline).Msg("evaluation started")

	accounts, err := uc.metering.ListAccounts(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("could not list organization accounts, continuing without names")
	} else {
		eval.Accounts = accounts
	}

	items, err := uc.metering.FetchCosts(ctx, windows.Windows)
	var unavailable []entity.WindowLabel
	if err != nil {
		var upstreamErr *types.UpstreamUnavailableError
		if !errors.As(err, &upstreamErr) {
			err = fmt.Errorf("failed to fetch cost data: %w", err)
			logger.Error().Err(err).Msg("evaluation aborted")
			uc.notifyFailure(ctx, cfg, eval, err, cfg.EmailTo)
			return eval, err
		}
		unavailable = upstreamErr.Windows
		logger.Warn().Err(err).Msg("some windows have no cost data yet")
	}

	aggregator := service.NewAggregator(service.AggregatorOptions{
		NegativeAmountBound:    decimal.NewFromFloat(cfg.NegativeAmountBound),
		KnownAccounts:          knownAccounts(eval.Accounts),
		ExcludeUnknownAccounts: cfg.ExcludeUnknownAccounts,
	})
	summaries, warnings := aggregator.Aggregate(ctx, items, windows.Windows, unavailable)
	eval.Summaries = summaries
	for _, w := range warnings {
		eval.Issues = append(eval.Issues, entity.DataQualityIssue{Item: w.Item, Reason: w.Reason})
	}

	current, _ := eval.Summary(entity.YesterdayFull)
	prior, _ := eval.Summary(entity.BaselineFull)
	classification := service.NewClassifier(policy).Classify(ctx, current, prior)
	eval.Findings = classification.All()
	eval.ComparisonSkipped = classification.Skipped

	if uc.budgets != nil {
		budgets, err := uc.budgets.GetBudgets(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("could not load budgets, report will omit them")
		} else {
			eval.Budgets = budgets
		}
	}

	logger.Info().
		Int("findings", len(eval.Findings)).
		Bool("critical", entity.HasCritical(eval.Findings)).
		Int("data_quality_issues", len(eval.Issues)).
		Msg("classification finished")

	if len(eval.Findings) == 0 && !cfg.AlwaysSendReport {
		logger.Info().Msg("no anomalies detected, nothing to send")
		return eval, nil
	}

	notification, err := uc.buildNotification(eval)
	if err != nil {
		return eval, err
	}
	eval.Notification = &notification

	governor := service.NewGovernor(governorCfg, uc.store, uc.notifier)
	if uc.dryRun {
		decisions, err := governor.Evaluate(ctx, now, notification, cfg.EmailTo)
		if err != nil {
			return eval, fmt.Errorf("dispatch evaluation failed: %w", err)
		}
		eval.Decisions = decisions
		logger.Info().Msg("dry run: notification not sent")
		return eval, nil
	}

	decisions, err := governor.Dispatch(ctx, now, notification, cfg.EmailTo)
	eval.Decisions = decisions
	if err != nil {
		var transportErr *types.TransportError
		if errors.As(err, &transportErr) {
			eval.TransportError = err.Error()
			logger.Error().Err(err).Msg("formatted notification failed, trying plain-text fallback")
			uc.notifyFailure(ctx, cfg, eval, err, admitted(decisions))
			return eval, err
		}
		return eval, fmt.Errorf("dispatch failed: %w", err)
	}
	return eval, nil
}

func (uc *MonitorUseCase) buildNotification(eval *entity.Evaluation) (entity.Notification, error) {
	html, err := uc.renderer.RenderHTML(eval)
	if err != nil {
		return entity.Notification{}, err
	}
	return entity.Notification{
		Subject:     uc.renderer.Subject(eval),
		HTMLBody:    html,
		TextBody:    uc.renderer.RenderText(eval),
		Fingerprint: service.Fingerprint(eval.Findings),
	}, nil
}

// notifyFailure envia o e-mail mínimo de erro. Falhas aqui só são logadas.
func (uc *MonitorUseCase) notifyFailure(ctx context.Context, cfg *types.Config, eval *entity.Evaluation, cause error, recipients []string) {
	logger := zerolog.Ctx(ctx)
	if uc.dryRun {
		return
	}

	var valid []string
	for _, r := range recipients {
		if service.ValidEmailAddress(r) {
			valid = append(valid, r)
		}
	}
	if len(valid) == 0 {
		logger.Warn().Err(types.ErrNoValidRecipients).Msg("error notification skipped")
		return
	}

	subject, body := uc.renderer.RenderFallback(eval, cause)
	if err := uc.notifier.SendPlainText(ctx, subject, body, valid); err != nil {
		logger.Error().Err(err).Msg("failed to send error notification")
		return
	}
	logger.Info().Int("recipients", len(valid)).Str("from", cfg.EmailFrom).Msg("error notification sent")
}

// PolicyFromConfig builds the threshold policy for one invocation.
func PolicyFromConfig(cfg *types.Config) entity.ThresholdPolicy {
	return entity.NewThresholdPolicy(
		decimal.NewFromFloat(cfg.AnomalyThresholdPct),
		decimal.NewFromFloat(cfg.AnomalyThresholdUSD),
		decimal.NewFromFloat(cfg.AIServiceMultiplier),
		decimal.NewFromFloat(cfg.CriticalAIDollarFloor),
		cfg.AIServices,
	).WithExtremeIncrease(
		decimal.NewFromFloat(cfg.ExtremeIncreasePct),
		decimal.NewFromFloat(cfg.ExtremeIncreaseMinUSD),
	)
}

// GovernorConfigFromConfig maps the dispatch keys. The counter scope is the sender, so two
// installations sharing a store only collide when they send as the same address.
func GovernorConfigFromConfig(cfg *types.Config) (service.GovernorConfig, error) {
	dedup, err := cfg.DedupDuration()
	if err != nil {
		return service.GovernorConfig{}, err
	}
	gc := service.DefaultGovernorConfig()
	gc.Scope = cfg.EmailFrom
	gc.RateLimitPerHour = cfg.RateLimitPerHour
	gc.DedupWindow = dedup
	gc.QuotaSafetyMargin = cfg.QuotaSafetyMargin
	return gc, nil
}

func knownAccounts(accounts []entity.Account) map[string]struct{} {
	if len(accounts) == 0 {
		return nil
	}
	known := make(map[string]struct{}, len(accounts))
	for _, a := range accounts {
		known[a.ID] = struct{}{}
	}
	return known
}

func admitted(decisions []entity.DispatchDecision) []string {
	var recipients []string
	for _, d := range decisions {
		if d.Allowed {
			recipients = append(recipients, d.Recipient)
		}
	}
	return recipients
}

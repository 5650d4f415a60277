package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/diillson/aws-cost-monitor-go/internal/adapter/driven/metrics"
	"github.com/diillson/aws-cost-monitor-go/internal/application/usecase"
	"github.com/diillson/aws-cost-monitor-go/internal/shared/types"
	"github.com/diillson/aws-cost-monitor-go/pkg/version"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func (app *CLIApp) newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run a single evaluation and send alerts when anomalies are found",
		Args:  cobra.NoArgs,
		RunE:  app.runCommand,
	}
}

func (app *CLIApp) newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run evaluations on a cron schedule and expose Prometheus metrics",
		Args:  cobra.NoArgs,
		RunE:  app.watchCommand,
	}
	cmd.Flags().String("schedule", "", "Cron expression (5 fields) in the configured timezone")
	cmd.Flags().String("metrics-addr", "", "Listen address for /metrics and /healthz")
	cmd.Flags().Bool("run-on-start", false, "Run one evaluation immediately before waiting for the schedule")
	return cmd
}

func (app *CLIApp) newWindowsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "windows",
		Short: "Print the report windows for the configured timezone",
		Args:  cobra.NoArgs,
		RunE:  app.windowsCommand,
	}
}

// runCommand é o ponto de entrada do comando run.
func (app *CLIApp) runCommand(cmd *cobra.Command, _ []string) error {
	ctx, cliArgs, cfg, err := app.prepare(cmd)
	if err != nil {
		return err
	}
	if !cliArgs.NoBanner {
		displayWelcomeBanner(app.version)
		go version.CheckLatestVersion(app.version)
	}

	// Falha antes de abrir store ou clientes AWS
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.ResolveStore(true)
	if cfg.Store == types.StoreMemory {
		zerolog.Ctx(ctx).Warn().
			Str("store", cfg.Store).
			Msg("counter store is not persisted: rate limit and dedup only apply within this run")
	}

	uc, closer, err := app.buildUseCase(ctx, cfg, cliArgs.DryRun)
	if err != nil {
		return err
	}
	defer closer.Close()

	status := app.console.Status("Evaluating AWS costs...")
	eval, err := uc.Evaluate(ctx, app.now(), cfg)
	status.Stop()

	uc.DisplayEvaluation(eval)
	uc.ExportReports(eval, cfg)
	return err
}

// watchCommand roda Evaluate no agendamento até receber SIGINT/SIGTERM.
func (app *CLIApp) watchCommand(cmd *cobra.Command, _ []string) error {
	ctx, cliArgs, cfg, err := app.prepare(cmd)
	if err != nil {
		return err
	}
	logger := zerolog.Ctx(ctx)
	if !cliArgs.NoBanner {
		displayWelcomeBanner(app.version)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.ResolveStore(false)
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return &types.ConfigurationError{Key: "schedule", Err: err}
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return &types.ConfigurationError{Key: "timezone", Err: err}
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	uc, closer, err := app.buildUseCase(ctx, cfg, cliArgs.DryRun)
	if err != nil {
		return err
	}
	defer closer.Close()

	collector := metrics.NewCollector(nil)
	server := metrics.NewServer(cfg.MetricsAddr, collector)
	server.Start(ctx)

	job := app.evaluationJob(ctx, uc, cfg, collector)

	scheduler := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	entryID, err := scheduler.AddFunc(cfg.Schedule, job)
	if err != nil {
		return &types.ConfigurationError{Key: "schedule", Err: err}
	}
	scheduler.Start()
	logger.Info().
		Str("schedule", cfg.Schedule).
		Str("timezone", cfg.Timezone).
		Time("next_run", scheduler.Entry(entryID).Next).
		Msg("watching costs")

	if cliArgs.RunOnStart {
		job()
	}

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	// Aguarda a avaliação em andamento terminar
	<-scheduler.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// evaluationJob é a função agendada; erros são logados e contabilizados, nunca param o watch.
func (app *CLIApp) evaluationJob(ctx context.Context, uc *usecase.MonitorUseCase, cfg *types.Config, collector *metrics.Collector) func() {
	return func() {
		logger := zerolog.Ctx(ctx)
		start := app.now()
		eval, err := uc.Evaluate(ctx, start, cfg)
		collector.RecordEvaluation(eval, time.Since(start), err)
		if err != nil {
			logger.Error().Err(err).Msg("scheduled evaluation failed")
			return
		}
		uc.ExportReports(eval, cfg)
		logger.Info().
			Str("run_id", eval.RunID).
			Int("findings", len(eval.Findings)).
			Int("decisions", len(eval.Decisions)).
			Msg("scheduled evaluation finished")
	}
}

func (app *CLIApp) windowsCommand(cmd *cobra.Command, _ []string) error {
	_, _, cfg, err := app.prepare(cmd)
	if err != nil {
		return err
	}
	return usecase.DisplayWindows(app.console, cfg, app.now())
}

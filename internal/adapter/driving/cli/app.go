package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/diillson/aws-cost-monitor-go/internal/application/usecase"
	"github.com/diillson/aws-cost-monitor-go/internal/domain/repository"
	"github.com/diillson/aws-cost-monitor-go/internal/shared/types"
	"github.com/diillson/aws-cost-monitor-go/pkg/version"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// UseCaseFactory monta o caso de uso (clientes AWS, store, renderer) para uma configuração.
// The returned closer releases the counter store.
type UseCaseFactory func(ctx context.Context, cfg *types.Config) (*usecase.MonitorUseCase, io.Closer, error)

// CLIApp represents the command-line interface application.
type CLIApp struct {
	rootCmd    *cobra.Command
	version    string
	configRepo repository.ConfigRepository
	console    types.ConsoleInterface
	factory    UseCaseFactory
	logOut     io.Writer
	now        func() time.Time
}

// NewCLIApp cria uma nova aplicação CLI.
func NewCLIApp(versionStr string, configRepo repository.ConfigRepository, console types.ConsoleInterface) *CLIApp {
	app := &CLIApp{
		version:    versionStr,
		configRepo: configRepo,
		console:    console,
		logOut:     os.Stderr,
		now:        time.Now,
	}

	// Obtem a versão formatada
	formattedVersion := version.FormatVersion()

	rootCmd := &cobra.Command{
		Use:           "aws-cost-monitor",
		Short:         "AWS cost anomaly monitor",
		Long:          "Compares yesterday's AWS costs per account and service against a baseline day and e-mails governed anomaly alerts.",
		Version:       formattedVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Personaliza a template para incluir mais informações de versão
	rootCmd.SetVersionTemplate(`{{printf "AWS Cost Monitor version: %s\n" .Version}}`)

	flags := rootCmd.PersistentFlags()
	flags.StringP("config-file", "C", "", "Path to a TOML, YAML, or JSON configuration file")
	flags.StringP("profile", "p", "", "AWS profile to use (default: SDK default chain)")
	flags.StringP("region", "r", "", "AWS region for SES and STS")
	flags.StringP("timezone", "z", "", "IANA timezone for day boundaries, e.g. America/Sao_Paulo")
	flags.StringSlice("email-to", nil, "Alert recipients (comma-separated)")
	flags.StringP("report-name", "n", "", "Base name for exported report files (without extension)")
	flags.StringSliceP("report-type", "y", nil, "Export types: csv, json, pdf")
	flags.StringP("dir", "d", "", "Directory to save the report files (default: current directory)")
	flags.Bool("dry-run", false, "Evaluate dispatch decisions without sending or consuming rate limits")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("log-format", "text", "Log format: text or json")
	flags.Bool("no-banner", false, "Do not print the welcome banner")

	rootCmd.AddCommand(
		app.newRunCommand(),
		app.newWatchCommand(),
		app.newWindowsCommand(),
	)

	app.rootCmd = rootCmd
	return app
}

// SetUseCaseFactory sets how run and watch build the monitor use case.
func (app *CLIApp) SetUseCaseFactory(factory UseCaseFactory) {
	app.factory = factory
}

// Execute runs the CLI application.
func (app *CLIApp) Execute() error {
	return app.rootCmd.Execute()
}

// ExecuteContext runs the CLI with a parent context.
func (app *CLIApp) ExecuteContext(ctx context.Context) error {
	return app.rootCmd.ExecuteContext(ctx)
}

// parseArgs parses command-line arguments into a CLIArgs struct.
func (app *CLIApp) parseArgs(cmd *cobra.Command) (*types.CLIArgs, error) {
	flags := cmd.Flags()
	configFile, _ := flags.GetString("config-file")
	profile, _ := flags.GetString("profile")
	region, _ := flags.GetString("region")
	timezone, _ := flags.GetString("timezone")
	emailTo, _ := flags.GetStringSlice("email-to")
	reportName, _ := flags.GetString("report-name")
	reportType, _ := flags.GetStringSlice("report-type")
	dir, _ := flags.GetString("dir")
	dryRun, _ := flags.GetBool("dry-run")
	logLevel, _ := flags.GetString("log-level")
	logFormat, _ := flags.GetString("log-format")
	noBanner, _ := flags.GetBool("no-banner")

	// Convert to absolute path
	if dir != "" {
		absDir, err := filepath.Abs(dir)
		if err != nil {
			return nil, err
		}
		dir = absDir
	}

	args := &types.CLIArgs{
		ConfigFile: configFile,
		Profile:    profile,
		Region:     region,
		Timezone:   timezone,
		EmailTo:    emailTo,
		ReportName: reportName,
		ReportType: reportType,
		Dir:        dir,
		DryRun:     dryRun,
		LogLevel:   logLevel,
		LogFormat:  logFormat,
		NoBanner:   noBanner,
	}

	if flags.Lookup("schedule") != nil {
		args.Schedule, _ = flags.GetString("schedule")
		args.MetricsAddr, _ = flags.GetString("metrics-addr")
		args.RunOnStart, _ = flags.GetBool("run-on-start")
	}
	return args, nil
}

// loadConfig aplica a precedência: defaults < arquivo < ambiente < flags.
func (app *CLIApp) loadConfig(cmd *cobra.Command, args *types.CLIArgs) (*types.Config, error) {
	cfg := types.DefaultConfig()
	if args.ConfigFile != "" {
		loaded, err := app.configRepo.LoadConfigFile(args.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}
	if err := app.configRepo.LoadEnvironment(&cfg); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}
	if changed("profile") {
		cfg.Profile = args.Profile
	}
	if changed("region") {
		cfg.Region = args.Region
	}
	if changed("timezone") {
		cfg.Timezone = args.Timezone
	}
	if changed("email-to") {
		cfg.EmailTo = args.EmailTo
	}
	if changed("report-name") {
		cfg.ReportName = args.ReportName
	}
	if changed("report-type") {
		cfg.ReportType = args.ReportType
	}
	if changed("dir") {
		cfg.Dir = args.Dir
	}
	if changed("schedule") {
		cfg.Schedule = args.Schedule
	}
	if changed("metrics-addr") {
		cfg.MetricsAddr = args.MetricsAddr
	}
	return &cfg, nil
}

// newLogger builds the root zerolog logger; text goes through ConsoleWriter.
func newLogger(out io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Nop(), types.NewConfigurationError("log_level", "invalid log level %q", level)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	switch strings.ToLower(format) {
	case "", "text":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	case "json":
	default:
		return zerolog.Nop(), types.NewConfigurationError("log_format", "unsupported log format %q (use text or json)", format)
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Str("app", "aws-cost-monitor").Logger(), nil
}

// prepare lê argumentos, configura log e carrega a configuração comum a todos os comandos.
func (app *CLIApp) prepare(cmd *cobra.Command) (context.Context, *types.CLIArgs, *types.Config, error) {
	cliArgs, err := app.parseArgs(cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	logger, err := newLogger(app.logOut, cliArgs.LogLevel, cliArgs.LogFormat)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.WithContext(ctx)

	cfg, err := app.loadConfig(cmd, cliArgs)
	if err != nil {
		return nil, nil, nil, err
	}
	return ctx, cliArgs, cfg, nil
}

func (app *CLIApp) buildUseCase(ctx context.Context, cfg *types.Config, dryRun bool) (*usecase.MonitorUseCase, io.Closer, error) {
	if app.factory == nil {
		return nil, nil, fmt.Errorf("monitor use case is not configured")
	}
	uc, closer, err := app.factory(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	uc.SetDryRun(dryRun)
	return uc, closer, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/diillson/aws-cost-monitor-go/internal/adapter/driven/aws"
	"github.com/diillson/aws-cost-monitor-go/internal/adapter/driven/config"
	"github.com/diillson/aws-cost-monitor-go/internal/adapter/driven/export"
	"github.com/diillson/aws-cost-monitor-go/internal/adapter/driven/store"
	"github.com/diillson/aws-cost-monitor-go/internal/adapter/driving/cli"
	"github.com/diillson/aws-cost-monitor-go/internal/application/usecase"
	"github.com/diillson/aws-cost-monitor-go/internal/domain/repository"
	"github.com/diillson/aws-cost-monitor-go/internal/shared/types"
	"github.com/diillson/aws-cost-monitor-go/pkg/console"
	"github.com/diillson/aws-cost-monitor-go/pkg/version"
)

func main() {
	consoleImpl := console.NewConsole()
	configRepo := config.NewConfigRepository()

	// Inicializa o aplicativo CLI
	app := cli.NewCLIApp(version.Version, configRepo, consoleImpl)

	// Os repositórios dependem de profile/região/fuso, então são montados por comando
	app.SetUseCaseFactory(func(_ context.Context, cfg *types.Config) (*usecase.MonitorUseCase, io.Closer, error) {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, nil, &types.ConfigurationError{Key: "timezone", Err: err}
		}

		counterStore, closer, err := openStore(cfg)
		if err != nil {
			return nil, nil, err
		}

		clients := aws.NewClients(cfg.Profile, cfg.Region)
		uc := usecase.NewMonitorUseCase(
			aws.NewMeteringRepository(clients, aws.MeteringOptions{MaxPages: cfg.MaxPages, Location: loc}),
			aws.NewNotificationRepository(clients, cfg.EmailFrom),
			aws.NewBudgetRepository(clients),
			counterStore,
			export.NewReportRenderer(),
			export.NewExportRepository(),
			consoleImpl,
		)
		return uc, closer, nil
	})

	// Executa o aplicativo
	if err := app.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var cfgErr *types.ConfigurationError
		if errors.As(err, &cfgErr) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStore escolhe o CounterStore: memória vale só para um processo; sqlite sobrevive entre execuções.
func openStore(cfg *types.Config) (repository.CounterStore, io.Closer, error) {
	switch cfg.Store {
	case types.StoreSQLite:
		s, err := store.NewSQLiteStore(cfg.StorePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open counter store: %w", err)
		}
		return s, s, nil
	default:
		return store.NewMemoryStore(), nopCloser{}, nil
	}
}

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/diillson/aws-cost-monitor-go/internal/adapter/driven/config"
	"github.com/diillson/aws-cost-monitor-go/internal/application/usecase"
	"github.com/diillson/aws-cost-monitor-go/internal/shared/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTable struct {
	rows []string
}

func (t *recordingTable) AddColumn(string, ...interface{}) {}
func (t *recordingTable) AddRow(cells ...interface{})     { t.rows = append(t.rows, fmt.Sprint(cells...)) }
func (t *recordingTable) Render() string                  { return strings.Join(t.rows, "\n") }

type noopStatus struct{}

func (noopStatus) Update(string) {}
func (noopStatus) Stop()         {}

type recordingConsole struct {
	buf bytes.Buffer
}

func (c *recordingConsole) Println(a ...interface{})               { fmt.Fprintln(&c.buf, a...) }
func (c *recordingConsole) LogInfo(f string, a ...interface{})    { fmt.Fprintf(&c.buf, f+"\n", a...) }
func (c *recordingConsole) LogWarning(f string, a ...interface{}) { fmt.Fprintf(&c.buf, f+"\n", a...) }
func (c *recordingConsole) LogError(f string, a ...interface{})   { fmt.Fprintf(&c.buf, f+"\n", a...) }
func (c *recordingConsole) LogSuccess(f string, a ...interface{}) { fmt.Fprintf(&c.buf, f+"\n", a...) }
func (c *recordingConsole) Status(string) types.StatusHandle      { return noopStatus{} }
func (c *recordingConsole) CreateTable() types.TableInterface     { return &recordingTable{} }
func (c *recordingConsole) Panel(title, content string)           { fmt.Fprintln(&c.buf, title, content) }

func newTestApp(t *testing.T) (*CLIApp, *recordingConsole, *bytes.Buffer) {
	t.Helper()
	out := &recordingConsole{}
	logs := &bytes.Buffer{}
	app := NewCLIApp("1.0.0", config.NewConfigRepository(), out)
	app.logOut = logs
	app.now = func() time.Time { return time.Date(2024, 3, 11, 15, 0, 0, 0, time.UTC) }
	return app, out, logs
}

func run(t *testing.T, app *CLIApp, args ...string) error {
	t.Helper()
	app.rootCmd.SetArgs(append(args, "--no-banner"))
	app.rootCmd.SetOut(io.Discard)
	app.rootCmd.SetErr(io.Discard)
	return app.ExecuteContext(context.Background())
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestWindowsCommand(t *testing.T) {
	app, out, _ := newTestApp(t)

	require.NoError(t, run(t, app, "windows", "--timezone", "America/New_York"))
	assert.Contains(t, out.buf.String(), "yesterday_full")
	assert.Contains(t, out.buf.String(), "23.00")
}

func TestWindowsCommand_InvalidTimezone(t *testing.T) {
	app, _, _ := newTestApp(t)

	err := run(t, app, "windows", "--timezone", "Nowhere/Special")
	var cfgErr *types.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "timezone", cfgErr.Key)
}

func TestRunCommand_ValidatesBeforeBuildingUseCase(t *testing.T) {
	app, _, _ := newTestApp(t)
	built := false
	app.SetUseCaseFactory(func(context.Context, *types.Config) (*usecase.MonitorUseCase, io.Closer, error) {
		built = true
		return nil, nil, errors.New("unexpected")
	})
	t.Setenv("COST_MONITOR_EMAIL_TO", "")
	t.Setenv("EMAIL_TO", "")

	err := run(t, app, "run")
	assert.ErrorIs(t, err, types.ErrNoRecipients)
	assert.False(t, built)
}

func TestRunCommand_FactoryErrorIsReturned(t *testing.T) {
	app, _, _ := newTestApp(t)
	app.SetUseCaseFactory(func(context.Context, *types.Config) (*usecase.MonitorUseCase, io.Closer, error) {
		return nil, nil, errors.New("cannot open store")
	})

	err := run(t, app, "run", "--email-to", "ops@example.com")
	assert.EqualError(t, err, "cannot open store")
}

func TestWatchCommand_InvalidSchedule(t *testing.T) {
	app, _, _ := newTestApp(t)

	err := run(t, app, "watch", "--email-to", "ops@example.com", "--schedule", "every five minutes")
	var cfgErr *types.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "schedule", cfgErr.Key)
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := writeConfig(t, `{"timezone": "Europe/Lisbon", "email_to": ["file@example.com"], "rate_limit_per_hour": 3}`)
	t.Setenv("COST_MONITOR_TIMEZONE", "Asia/Tokyo")
	t.Setenv("COST_MONITOR_REPORT_NAME", "from-env")

	app, _, _ := newTestApp(t)
	var got *types.Config
	app.SetUseCaseFactory(func(_ context.Context, cfg *types.Config) (*usecase.MonitorUseCase, io.Closer, error) {
		got = cfg
		return nil, nil, errors.New("stop here")
	})

	err := run(t, app, "run", "--config-file", path, "--timezone", "America/Sao_Paulo")
	require.EqualError(t, err, "stop here")
	require.NotNil(t, got)

	assert.Equal(t, "America/Sao_Paulo", got.Timezone, "flag wins over env and file")
	assert.Equal(t, "from-env", got.ReportName, "env wins over defaults")
	assert.Equal(t, []string{"file@example.com"}, got.EmailTo)
	assert.Equal(t, 3, got.RateLimitPerHour)
	assert.Equal(t, 50.0, got.AnomalyThresholdPct, "defaults are kept")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	app, _, _ := newTestApp(t)
	err := run(t, app, "windows", "--config-file", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "warn", "json")
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	logger.Warn().Str("run_id", "abc").Msg("visible")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"run_id":"abc"`)
	assert.Contains(t, buf.String(), `"app":"aws-cost-monitor"`)

	logger, err = newLogger(&buf, "", "text")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())

	_, err = newLogger(&buf, "loud", "json")
	assert.Error(t, err)
	_, err = newLogger(&buf, "info", "xml")
	assert.Error(t, err)
}

func TestRunCommand_DefaultsToPersistentStore(t *testing.T) {
	t.Setenv("COST_MONITOR_STORE", "")
	t.Setenv("STORE", "")

	app, _, logs := newTestApp(t)
	var got *types.Config
	app.SetUseCaseFactory(func(_ context.Context, cfg *types.Config) (*usecase.MonitorUseCase, io.Closer, error) {
		got = cfg
		return nil, nil, errors.New("stop here")
	})

	require.EqualError(t, run(t, app, "run", "--email-to", "ops@example.com"), "stop here")
	require.NotNil(t, got)
	assert.Equal(t, types.StoreSQLite, got.Store)
	assert.NotContains(t, logs.String(), "not persisted")
}

func TestRunCommand_WarnsOnMemoryStore(t *testing.T) {
	t.Setenv("COST_MONITOR_STORE", "memory")

	app, _, logs := newTestApp(t)
	var got *types.Config
	app.SetUseCaseFactory(func(_ context.Context, cfg *types.Config) (*usecase.MonitorUseCase, io.Closer, error) {
		got = cfg
		return nil, nil, errors.New("stop here")
	})

	require.EqualError(t, run(t, app, "run", "--email-to", "ops@example.com", "--log-format", "json"), "stop here")
	require.NotNil(t, got)
	assert.Equal(t, types.StoreMemory, got.Store)
	assert.Contains(t, logs.String(), "counter store is not persisted")
}

package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/diillson/aws-cost-monitor-go/internal/domain/entity"
	"github.com/diillson/aws-cost-monitor-go/internal/domain/service"
	"github.com/diillson/aws-cost-monitor-go/internal/shared/types"
	"github.com/diillson/aws-cost-monitor-go/pkg/console"
)

const consoleTime = "2006-01-02 15:04 MST"

// DisplayEvaluation imprime o resumo da avaliação no console.
func (uc *MonitorUseCase) DisplayEvaluation(eval *entity.Evaluation) {
	if eval == nil {
		return
	}

	totals := uc.console.CreateTable()
	totals.AddColumn("Window")
	totals.AddColumn("Period")
	totals.AddColumn("Total")
	for _, label := range entity.AllWindowLabels {
		s, ok := eval.Summary(label)
		if !ok {
			continue
		}
		amount := "data unavailable"
		if s.Available {
			amount = "$" + s.Total.StringFixed(2)
		}
		totals.AddRow(label.DisplayName(), windowPeriod(s.Window, eval.Windows.Location), amount)
	}
	uc.console.Println(totals.Render())

	if eval.ComparisonSkipped {
		uc.console.LogWarning("Comparison skipped: yesterday or baseline data is not available yet")
	}

	if len(eval.Findings) == 0 {
		uc.console.LogSuccess("No cost anomalies detected")
	} else {
		findings := uc.console.CreateTable()
		findings.AddColumn("Severity")
		findings.AddColumn("Scope")
		findings.AddColumn("Previous")
		findings.AddColumn("Current")
		findings.AddColumn("Change")
		for _, f := range eval.Findings {
			scope := f.Scope.String()
			if !f.Scope.OrganizationWide {
				scope = fmt.Sprintf("%s (%s)", f.Scope.ServiceName, eval.AccountName(f.Scope.AccountID))
			}
			findings.AddRow(
				console.Severity(strings.ToUpper(string(f.Severity))),
				scope,
				"$"+f.PriorAmount.StringFixed(2),
				"$"+f.CurrentAmount.StringFixed(2),
				fmt.Sprintf("$%s (%s)", f.DeltaAbsolute.StringFixed(2), f.PercentLabel()),
			)
		}
		uc.console.Panel("Cost anomalies", findings.Render())
	}

	if len(eval.Issues) > 0 {
		uc.console.LogWarning("%d cost records rejected by data quality checks", len(eval.Issues))
	}

	for _, d := range eval.Decisions {
		switch {
		case d.State == entity.StateSent:
			uc.console.LogSuccess("Sent to %s", d.Recipient)
		case d.Allowed:
			uc.console.LogInfo("Admitted for %s (not sent)", d.Recipient)
		default:
			uc.console.LogWarning("Not sent to %s: %s", d.Recipient, d.Reason)
		}
	}
	if eval.TransportError != "" {
		uc.console.LogError("Delivery failed: %s", eval.TransportError)
	}
}

// DisplayWindows imprime as janelas calculadas para o fuso configurado. Não faz chamadas à AWS.
func DisplayWindows(out types.ConsoleInterface, cfg *types.Config, now time.Time) error {
	set, err := service.CalculateWindows(cfg.Timezone, now, entity.BaselineMode(cfg.Baseline))
	if err != nil {
		return err
	}

	table := out.CreateTable()
	table.AddColumn("Window")
	table.AddColumn("Start (local)")
	table.AddColumn("End (local)")
	table.AddColumn("Start (UTC)")
	table.AddColumn("End (UTC)")
	table.AddColumn("Hours")
	table.AddColumn("Complete")
	for _, w := range set.Windows {
		table.AddRow(
			string(w.Label),
			w.StartUTC.In(set.Location).Format(consoleTime),
			w.EndUTC.In(set.Location).Format(consoleTime),
			w.StartUTC.Format(time.RFC3339),
			w.EndUTC.Format(time.RFC3339),
			fmt.Sprintf("%.2f", w.Duration().Hours()),
			w.IsComplete,
		)
	}
	out.Println(table.Render())
	return nil
}

// ExportReports grava os relatórios pedidos em report_type e retorna os caminhos gerados.
func (uc *MonitorUseCase) ExportReports(eval *entity.Evaluation, cfg *types.Config) []string {
	if eval == nil || uc.exporter == nil || cfg.ReportName == "" {
		return nil
	}

	var paths []string
	for _, reportType := range cfg.ReportType {
		var (
			path string
			err  error
		)
		switch strings.ToLower(reportType) {
		case "csv":
			path, err = uc.exporter.ExportToCSV(eval, cfg.ReportName, cfg.Dir)
		case "json":
			path, err = uc.exporter.ExportToJSON(eval, cfg.ReportName, cfg.Dir)
		case "pdf":
			path, err = uc.exporter.ExportToPDF(eval, cfg.ReportName, cfg.Dir)
		default:
			continue
		}
		if err != nil {
			uc.console.LogError("Failed to export to %s: %s", strings.ToUpper(reportType), err)
			continue
		}
		uc.console.LogSuccess("Successfully exported to %s: %s", strings.ToUpper(reportType), path)
		paths = append(paths, path)
	}
	return paths
}

func windowPeriod(w entity.TimeWindow, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return w.StartUTC.In(loc).Format(consoleTime) + " -> " + w.EndUTC.In(loc).Format(consoleTime)
}

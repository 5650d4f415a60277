package export

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/diillson/aws-cost-monitor-go/internal/domain/entity"
	"github.com/diillson/aws-cost-monitor-go/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// Acima deste aumento do total o assunto do relatório diário destaca a alta.
var costsUpSubjectPercent = decimal.NewFromInt(20)

// ReportRendererImpl gera assunto, HTML e texto do e-mail a partir de uma avaliação.
type ReportRendererImpl struct {
	html *template.Template
}

// NewReportRenderer creates the e-mail renderer.
func NewReportRenderer() repository.ReportRenderer {
	return &ReportRendererImpl{
		html: template.Must(template.New("report").Parse(reportHTML)),
	}
}

// Subject picks the subject line: critical alert, alert, costs up, or the plain daily report.
func (r *ReportRendererImpl) Subject(eval *entity.Evaluation) string {
	total := "n/a"
	if s, ok := eval.Summary(entity.YesterdayFull); ok && s.Available {
		total = money(s.Total)
	}

	switch {
	case entity.HasCritical(eval.Findings):
		return fmt.Sprintf("🚨 AWS Cost Alert - Immediate Action Required - %s", total)
	case len(eval.Findings) > 0:
		return fmt.Sprintf("⚠️ AWS Cost Alert - %d anomal%s detected - %s", len(eval.Findings), plural(len(eval.Findings)), total)
	}

	if pct, ok := eval.TotalChangePercent(); ok && pct.GreaterThan(costsUpSubjectPercent) {
		return fmt.Sprintf("⚠️ AWS Cost Report - Costs Up %s%% - %s", pct.StringFixed(1), total)
	}
	return fmt.Sprintf("✅ AWS Cost Report - %s Daily", total)
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

// RenderHTML renders the HTML body.
func (r *ReportRendererImpl) RenderHTML(eval *entity.Evaluation) (string, error) {
	var buf bytes.Buffer
	if err := r.html.Execute(&buf, buildView(eval)); err != nil {
		return "", fmt.Errorf("error rendering HTML report: %w", err)
	}
	return buf.String(), nil
}

// RenderText renders the plain-text alternative body.
func (r *ReportRendererImpl) RenderText(eval *entity.Evaluation) string {
	v := buildView(eval)
	var b strings.Builder

	fmt.Fprintf(&b, "AWS Cost Report - %s (%s)\n", v.Period, v.Timezone)
	fmt.Fprintf(&b, "Generated %s, run %s\n\n", v.GeneratedAt, v.RunID)

	writeFindings := func(title string, findings []findingView) {
		if len(findings) == 0 {
			return
		}
		fmt.Fprintf(&b, "%s\n", title)
		for _, f := range findings {
			ai := ""
			if f.AI {
				ai = " [AI]"
			}
			if f.Extreme {
				ai += " [EXTREME]"
			}
			fmt.Fprintf(&b, "  - %s%s: %s -> %s (%s, %s)\n", f.Scope, ai, f.Prior, f.Current, f.Delta, f.Percent)
		}
		b.WriteString("\n")
	}
	writeFindings("CRITICAL", v.Critical)
	writeFindings("Anomalies", v.Findings)

	if v.ComparisonSkipped {
		b.WriteString("Comparison skipped: baseline or current day data unavailable.\n\n")
	}

	b.WriteString("Totals\n")
	for _, t := range v.Totals {
		amount := t.Amount
		if !t.Available {
			amount = "data unavailable"
		}
		fmt.Fprintf(&b, "  %-16s %-32s %s\n", t.Name, t.Range, amount)
	}

	if v.Change.Available {
		fmt.Fprintf(&b, "\nChange vs baseline (%s): %s (%s)\n", v.BaselinePeriod, v.Change.Delta, v.Change.Percent)
	}

	for _, a := range v.Accounts {
		fmt.Fprintf(&b, "\nAccount %s (%s): %s %s\n", a.Name, a.ID, a.Total, a.Percent)
		for _, s := range a.Services {
			fmt.Fprintf(&b, "  %-40s %12s %12s %s\n", s.Name, s.Current, s.Delta, s.Percent)
		}
	}

	if len(v.Budgets) > 0 {
		b.WriteString("\nBudgets\n")
		for _, bv := range v.Budgets {
			fmt.Fprintf(&b, "  %s: %s of %s (%s)\n", bv.Name, bv.Actual, bv.Limit, bv.Used)
		}
	}

	if v.Issues > 0 {
		fmt.Fprintf(&b, "\n%d cost records were rejected by data quality checks.\n", v.Issues)
	}
	return b.String()
}

// RenderFallback builds the minimal plain-text message used when the formatted send failed or
// the run could not complete.
func (r *ReportRendererImpl) RenderFallback(eval *entity.Evaluation, cause error) (string, string) {
	subject := "❌ AWS Cost Monitor - Error Occurred"

	var b strings.Builder
	b.WriteString("An error occurred in the AWS Cost Monitor:\n\n")
	if cause != nil {
		b.WriteString(cause.Error())
		b.WriteString("\n")
	}

	if eval != nil {
		if eval.RunID != "" {
			fmt.Fprintf(&b, "\nRun: %s\n", eval.RunID)
		}
		if len(eval.Findings) > 0 {
			subject = "❌ AWS Cost Monitor - Alert delivery failed"
			b.WriteString("\nAnomalies detected in this run:\n")
			for _, f := range eval.Findings {
				fmt.Fprintf(&b, "  - [%s] %s: %s (%s)\n", f.Severity, f.Scope, signedMoney(f.DeltaAbsolute), f.PercentLabel())
			}
		}
	}
	return subject, b.String()
}

const reportHTML = `<html>
<head>
<style>
  body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
  .header { background-color: #232f3e; color: white; padding: 20px; text-align: center; }
  .alert { background-color: #ff5252; color: white; padding: 15px; margin: 10px 0; border-radius: 5px; }
  .warning { background-color: #ff9800; color: white; padding: 15px; margin: 10px 0; border-radius: 5px; }
  .summary { background-color: #f5f5f5; padding: 20px; margin: 20px 0; border-radius: 5px; }
  .unavailable { color: #9e9e9e; font-style: italic; }
  .increase { color: #d32f2f; font-weight: bold; }
  .decrease { color: #388e3c; font-weight: bold; }
  table { border-collapse: collapse; width: 100%; margin: 20px 0; }
  th, td { border: 1px solid #ddd; padding: 12px; text-align: left; }
  th { background-color: #232f3e; color: white; }
  tr:nth-child(even) { background-color: #f9f9f9; }
  .service-name { font-weight: bold; }
  .ai-service { background-color: #fff3cd; }
  .footer { margin-top: 30px; padding: 20px; background-color: #f5f5f5; text-align: center; font-size: 12px; }
</style>
</head>
<body>
<div class="header">
  <h1>AWS Cost Report</h1>
  <p>{{.Period}} ({{.Timezone}})</p>
</div>
{{if .Critical}}
<h2>🚨 Immediate Alerts</h2>
{{range .Critical}}<div class="alert">{{if .Extreme}}EXTREME INCREASE{{else}}CRITICAL{{end}}: {{.Scope}} increased by {{.Delta}} ({{.Percent}}), {{.Prior}} → {{.Current}}</div>
{{end}}{{end}}
{{if .Findings}}
<h2>⚠️ Anomalies</h2>
{{range .Findings}}<div class="warning">{{.Scope}}{{if .AI}} (AI service){{end}} increased by {{.Delta}} ({{.Percent}}), {{.Prior}} → {{.Current}}</div>
{{end}}{{end}}
<div class="summary">
  <h2>Cost Summary</h2>
  {{range .Totals}}<p><strong>{{.Name}}</strong> ({{.Range}}{{if .Partial}}, partial{{end}}): {{if .Available}}{{.Amount}}{{else}}<span class="unavailable">data unavailable</span>{{end}}</p>
  {{end}}
  {{if .Change.Available}}<p><strong>Change vs {{.BaselinePeriod}}:</strong> <span class="{{.Change.Class}}">{{.Change.Delta}} ({{.Change.Percent}})</span></p>{{end}}
  {{if .ComparisonSkipped}}<p class="unavailable">Comparison skipped: cost data for the compared days is not available yet.</p>{{end}}
  <p><em>Note: AWS Cost Explorer may have up to 24-hour delay.</em></p>
</div>
{{if .Accounts}}
<h2>Account Breakdown</h2>
{{range .Accounts}}
<h3>Account: {{.Name}} ({{.ID}})</h3>
<p>Total: {{.Total}} <span class="{{.Class}}">({{.Delta}}, {{.Percent}})</span></p>
{{if .Services}}<table>
  <tr><th>Service</th><th>Current Cost</th><th>Previous Cost</th><th>Change</th><th>% Change</th></tr>
  {{range .Services}}<tr class="{{if .AI}}ai-service{{end}}">
    <td class="service-name">{{.Name}}</td><td>{{.Current}}</td><td>{{.Previous}}</td>
    <td class="{{.Class}}">{{.Delta}}</td><td class="{{.Class}}">{{.Percent}}</td>
  </tr>
  {{end}}
</table>{{end}}
{{end}}{{end}}
{{if .Budgets}}
<h2>Budgets</h2>
<table>
  <tr><th>Budget</th><th>Limit</th><th>Actual</th><th>Forecast</th><th>Used</th></tr>
  {{range .Budgets}}<tr><td>{{.Name}}</td><td>{{.Limit}}</td><td class="{{if .Exceeded}}increase{{end}}">{{.Actual}}</td><td>{{.Forecast}}</td><td>{{.Used}}</td></tr>
  {{end}}
</table>
{{end}}
<div class="footer">
  {{if .Issues}}<p>{{.Issues}} cost records were rejected by data quality checks.</p>{{end}}
  <p>Yellow highlighted rows indicate AI services which are monitored with stricter thresholds.</p>
  <p>Generated {{.GeneratedAt}} · run {{.RunID}}</p>
</div>
</body>
</html>
`

package export

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/diillson/aws-cost-monitor-go/internal/domain/entity"
	"github.com/diillson/aws-cost-monitor-go/internal/domain/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	prodAccount = "111111111111"
	devAccount  = "222222222222"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testPolicy() entity.ThresholdPolicy {
	return entity.NewThresholdPolicy(d("50"), d("50"), d("0.5"), d("100"), entity.DefaultAIServices)
}

// summary monta um PeriodSummary a partir de "conta/serviço" -> valor.
func summary(w entity.TimeWindow, costs map[string]string) entity.PeriodSummary {
	s := entity.NewPeriodSummary(w)
	for key, amount := range costs {
		parts := strings.SplitN(key, "/", 2)
		v := d(amount)
		s.Total = s.Total.Add(v)
		s.PerAccount[parts[0]] = s.PerAccount[parts[0]].Add(v)
		s.PerAccountService[entity.AccountService{AccountID: parts[0], ServiceName: parts[1]}] = v
	}
	return s
}

// testEvaluation builds an evaluation for 2024-06-11 with yesterday vs the previous day.
func testEvaluation(t *testing.T, prior, current map[string]string, findings ...entity.AnomalyFinding) *entity.Evaluation {
	t.Helper()
	now := time.Date(2024, 6, 11, 13, 0, 0, 0, time.UTC)
	set, err := service.CalculateWindows("UTC", now, entity.BaselinePreviousDay)
	require.NoError(t, err)

	eval := &entity.Evaluation{
		RunID:       "run-1",
		EvaluatedAt: now,
		Windows:     set,
		Baseline:    entity.BaselinePreviousDay,
		Policy:      testPolicy(),
		Findings:    findings,
		Accounts: []entity.Account{
			{ID: prodAccount, Name: "production"},
			{ID: devAccount, Name: "development"},
		},
	}
	for _, w := range set.Windows {
		switch w.Label {
		case entity.YesterdayFull:
			eval.Summaries = append(eval.Summaries, summary(w, current))
		case entity.BaselineFull:
			eval.Summaries = append(eval.Summaries, summary(w, prior))
		default:
			eval.Summaries = append(eval.Summaries, entity.NewPeriodSummary(w))
		}
	}
	return eval
}

func finding(account, svc string, sev entity.Severity, prior, current string) entity.AnomalyFinding {
	p, c := d(prior), d(current)
	return entity.AnomalyFinding{
		Scope:         entity.Scope{AccountID: account, ServiceName: svc},
		PriorAmount:   p,
		CurrentAmount: c,
		DeltaAbsolute: c.Sub(p),
		DeltaPercent:  c.Sub(p).Div(p).Mul(decimal.NewFromInt(100)),
		IsAIService:   testPolicy().IsAIService(svc),
		Severity:      sev,
	}
}

func TestSubject(t *testing.T) {
	renderer := NewReportRenderer()

	tests := []struct {
		name     string
		prior    map[string]string
		current  map[string]string
		findings []entity.AnomalyFinding
		want     string
	}{
		{
			name:    "daily report",
			prior:   map[string]string{prodAccount + "/Amazon EC2": "100"},
			current: map[string]string{prodAccount + "/Amazon EC2": "105"},
			want:    "✅ AWS Cost Report - $105.00 Daily",
		},
		{
			name:    "costs up without findings",
			prior:   map[string]string{prodAccount + "/Amazon EC2": "100"},
			current: map[string]string{prodAccount + "/Amazon EC2": "130"},
			want:    "⚠️ AWS Cost Report - Costs Up 30.0% - $130.00",
		},
		{
			name:     "single warning",
			prior:    map[string]string{prodAccount + "/Amazon Bedrock": "40"},
			current:  map[string]string{prodAccount + "/Amazon Bedrock": "120"},
			findings: []entity.AnomalyFinding{finding(prodAccount, "Amazon Bedrock", entity.SeverityWarning, "40", "120")},
			want:     "⚠️ AWS Cost Alert - 1 anomaly detected - $120.00",
		},
		{
			name:    "critical wins",
			prior:   map[string]string{prodAccount + "/Amazon Bedrock": "40", devAccount + "/Amazon EC2": "100"},
			current: map[string]string{prodAccount + "/Amazon Bedrock": "145", devAccount + "/Amazon EC2": "200"},
			findings: []entity.AnomalyFinding{
				finding(prodAccount, "Amazon Bedrock", entity.SeverityCritical, "40", "145"),
				finding(devAccount, "Amazon EC2", entity.SeverityWarning, "100", "200"),
			},
			want: "🚨 AWS Cost Alert - Immediate Action Required - $345.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := testEvaluation(t, tt.prior, tt.current, tt.findings...)
			assert.Equal(t, tt.want, renderer.Subject(eval))
		})
	}
}

func TestSubject_PluralAnomalies(t *testing.T) {
	eval := testEvaluation(t,
		map[string]string{prodAccount + "/Amazon EC2": "100", devAccount + "/Amazon RDS": "100"},
		map[string]string{prodAccount + "/Amazon EC2": "200", devAccount + "/Amazon RDS": "200"},
		finding(prodAccount, "Amazon EC2", entity.SeverityWarning, "100", "200"),
		finding(devAccount, "Amazon RDS", entity.SeverityWarning, "100", "200"),
	)
	assert.Contains(t, NewReportRenderer().Subject(eval), "2 anomalies detected")
}

func TestSubject_UnavailableTotal(t *testing.T) {
	eval := testEvaluation(t, nil, nil)
	for i := range eval.Summaries {
		if eval.Summaries[i].Window.Label == entity.YesterdayFull {
			eval.Summaries[i].Available = false
		}
	}
	assert.Equal(t, "✅ AWS Cost Report - n/a Daily", NewReportRenderer().Subject(eval))
}

func TestRenderHTML_BreakdownAndHighlights(t *testing.T) {
	eval := testEvaluation(t,
		map[string]string{prodAccount + "/Amazon Bedrock": "40", prodAccount + "/Amazon EC2": "10"},
		map[string]string{
			prodAccount + "/Amazon Bedrock": "120",
			prodAccount + "/Amazon EC2":     "10",
			prodAccount + "/AWS KMS":        "0.004",
		},
		finding(prodAccount, "Amazon Bedrock", entity.SeverityWarning, "40", "120"),
	)

	body, err := NewReportRenderer().RenderHTML(eval)
	require.NoError(t, err)

	assert.Contains(t, body, "Account: production (111111111111)")
	assert.Contains(t, body, `class="ai-service"`)
	// html/template escapa "+" como &#43;
	assert.Contains(t, body, "Amazon Bedrock (production) (AI service) increased by &#43;$80.00 (&#43;200.0%)")
	assert.Contains(t, body, "Jun 10, 2024")
	assert.NotContains(t, body, "AWS KMS", "rows under one cent are skipped")
}

func TestRenderHTML_UnavailableWindow(t *testing.T) {
	eval := testEvaluation(t, nil, map[string]string{prodAccount + "/Amazon EC2": "10"})
	for i := range eval.Summaries {
		if eval.Summaries[i].Window.Label == entity.BaselineFull {
			eval.Summaries[i].Available = false
		}
	}
	eval.ComparisonSkipped = true

	body, err := NewReportRenderer().RenderHTML(eval)
	require.NoError(t, err)
	assert.Contains(t, body, "data unavailable")
	assert.Contains(t, body, "Comparison skipped")
}

func TestRenderHTML_EscapesServiceNames(t *testing.T) {
	eval := testEvaluation(t, nil, map[string]string{prodAccount + "/<script>alert(1)</script>": "10"})
	body, err := NewReportRenderer().RenderHTML(eval)
	require.NoError(t, err)
	assert.NotContains(t, body, "<script>alert(1)</script>")
}

func TestRenderHTML_Budgets(t *testing.T) {
	eval := testEvaluation(t, nil, nil)
	eval.Budgets = []entity.BudgetInfo{{Name: "monthly", Limit: d("1000"), Actual: d("1200"), Forecast: d("1500")}}

	body, err := NewReportRenderer().RenderHTML(eval)
	require.NoError(t, err)
	assert.Contains(t, body, "monthly")
	assert.Contains(t, body, "120.0%")
	assert.Contains(t, body, `class="increase">$1200.00`)
}

func TestRenderText(t *testing.T) {
	eval := testEvaluation(t,
		map[string]string{prodAccount + "/Amazon Bedrock": "40"},
		map[string]string{prodAccount + "/Amazon Bedrock": "145"},
		finding(prodAccount, "Amazon Bedrock", entity.SeverityCritical, "40", "145"),
	)
	eval.Issues = []entity.DataQualityIssue{{Reason: "missing account or service"}}

	text := NewReportRenderer().RenderText(eval)
	assert.Contains(t, text, "CRITICAL")
	assert.Contains(t, text, "Amazon Bedrock (production) [AI]: $40.00 -> $145.00 (+$105.00, +262.5%)")
	assert.Contains(t, text, "Change vs baseline (Jun 09, 2024)")
	assert.Contains(t, text, "1 cost records were rejected")
}

func TestRenderFallback(t *testing.T) {
	renderer := NewReportRenderer()

	subject, body := renderer.RenderFallback(nil, errors.New("cost explorer throttled"))
	assert.Equal(t, "❌ AWS Cost Monitor - Error Occurred", subject)
	assert.Contains(t, body, "cost explorer throttled")

	eval := testEvaluation(t,
		map[string]string{prodAccount + "/Amazon Bedrock": "40"},
		map[string]string{prodAccount + "/Amazon Bedrock": "145"},
		finding(prodAccount, "Amazon Bedrock", entity.SeverityCritical, "40", "145"),
	)
	subject, body = renderer.RenderFallback(eval, errors.New("ses unavailable"))
	assert.Equal(t, "❌ AWS Cost Monitor - Alert delivery failed", subject)
	assert.Contains(t, body, "Run: run-1")
	assert.Contains(t, body, "[critical] Amazon Bedrock (account 111111111111): +$105.00 (+262.5%)")
}

func TestPercentLabel(t *testing.T) {
	assert.Equal(t, "new", percentLabel(decimal.Zero, d("5")))
	assert.Equal(t, "0.0%", percentLabel(decimal.Zero, decimal.Zero))
	assert.Equal(t, "+50.0%", percentLabel(d("10"), d("15")))
	assert.Equal(t, "-50.0%", percentLabel(d("10"), d("5")))
}

func TestWindowRange(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	set, err := service.CalculateWindows("America/New_York", time.Date(2024, 3, 11, 15, 0, 0, 0, time.UTC), entity.BaselinePreviousDay)
	require.NoError(t, err)

	yesterday, _ := set.Get(entity.YesterdayFull)
	assert.Equal(t, "Mar 10, 2024", windowRange(yesterday, loc))

	prev, _ := set.Get(entity.PreviousMonthFull)
	assert.Equal(t, "Feb 01, 2024 to Feb 29, 2024", windowRange(prev, loc))

	today, _ := set.Get(entity.TodayPartial)
	assert.Equal(t, "Mar 11, 2024 to Mar 11, 11:00", windowRange(today, loc))
}

func TestRender_ExtremeIncrease(t *testing.T) {
	extreme := finding(devAccount, "Amazon EC2", entity.SeverityCritical, "3", "21")
	extreme.Extreme = true
	eval := testEvaluation(t,
		map[string]string{devAccount + "/Amazon EC2": "3"},
		map[string]string{devAccount + "/Amazon EC2": "21"},
		extreme,
	)
	renderer := NewReportRenderer()

	assert.Equal(t, "🚨 AWS Cost Alert - Immediate Action Required - $21.00", renderer.Subject(eval))

	html, err := renderer.RenderHTML(eval)
	require.NoError(t, err)
	assert.Contains(t, html, "EXTREME INCREASE: Amazon EC2 (development)")

	assert.Contains(t, renderer.RenderText(eval), "Amazon EC2 (development) [EXTREME]")
}

package export

import (
	"time"

	"github.com/diillson/aws-cost-monitor-go/internal/domain/entity"
	"github.com/shopspring/decimal"
)

const displayDate = "Jan 02, 2006"

var (
	oneCent = decimal.New(1, -2)
	hundred = decimal.NewFromInt(100)
)

// reportView é o modelo já formatado consumido pelos templates HTML/texto e pelo PDF.
type reportView struct {
	RunID             string
	GeneratedAt       string
	Timezone          string
	Period            string
	BaselinePeriod    string
	Critical          []findingView
	Findings          []findingView
	Totals            []totalView
	Change            changeView
	Accounts          []accountView
	Budgets           []budgetView
	Issues            int
	ComparisonSkipped bool
	Unavailable       []string
}

type findingView struct {
	Scope    string
	Prior    string
	Current  string
	Delta    string
	Percent  string
	Severity string
	AI       bool
	Extreme  bool
}

type totalView struct {
	Name      string
	Range     string
	Amount    string
	Available bool
	Partial   bool
}

type changeView struct {
	Available bool
	Current   string
	Previous  string
	Delta     string
	Percent   string
	Class     string
}

type accountView struct {
	ID       string
	Name     string
	Total    string
	Delta    string
	Percent  string
	Class    string
	Services []serviceRow
}

type serviceRow struct {
	Name     string
	Current  string
	Previous string
	Delta    string
	Percent  string
	Class    string
	AI       bool
}

type budgetView struct {
	Name     string
	Limit    string
	Actual   string
	Forecast string
	Used     string
	Exceeded bool
}

func buildView(eval *entity.Evaluation) reportView {
	loc := eval.Windows.Location
	if loc == nil {
		loc = time.UTC
	}

	v := reportView{
		RunID:             eval.RunID,
		GeneratedAt:       eval.EvaluatedAt.In(loc).Format("2006-01-02 15:04 MST"),
		Timezone:          eval.Windows.Timezone,
		Issues:            len(eval.Issues),
		ComparisonSkipped: eval.ComparisonSkipped,
	}

	if w, ok := eval.Windows.Get(entity.YesterdayFull); ok {
		v.Period = w.StartUTC.In(loc).Format(displayDate)
	}
	if w, ok := eval.Windows.Get(entity.BaselineFull); ok {
		v.BaselinePeriod = w.StartUTC.In(loc).Format(displayDate)
	}

	for _, f := range eval.Findings {
		fv := findingView{
			Scope:    f.Scope.String(),
			Prior:    money(f.PriorAmount),
			Current:  money(f.CurrentAmount),
			Delta:    signedMoney(f.DeltaAbsolute),
			Percent:  f.PercentLabel(),
			Severity: string(f.Severity),
			AI:       f.IsAIService,
			Extreme:  f.Extreme,
		}
		if !f.Scope.OrganizationWide {
			fv.Scope = f.Scope.ServiceName + " (" + eval.AccountName(f.Scope.AccountID) + ")"
		}
		if f.Severity == entity.SeverityCritical {
			v.Critical = append(v.Critical, fv)
			continue
		}
		v.Findings = append(v.Findings, fv)
	}

	for _, label := range entity.AllWindowLabels {
		s, ok := eval.Summary(label)
		if !ok {
			continue
		}
		tv := totalView{
			Name:      label.DisplayName(),
			Range:     windowRange(s.Window, loc),
			Available: s.Available,
			Partial:   !s.Window.IsComplete,
		}
		if s.Available {
			tv.Amount = money(s.Total)
		} else {
			v.Unavailable = append(v.Unavailable, label.DisplayName())
		}
		v.Totals = append(v.Totals, tv)
	}

	current, okCur := eval.Summary(entity.YesterdayFull)
	prior, okPrior := eval.Summary(entity.BaselineFull)
	if okCur && okPrior && current.Available && prior.Available {
		delta := current.Total.Sub(prior.Total)
		v.Change = changeView{
			Available: true,
			Current:   money(current.Total),
			Previous:  money(prior.Total),
			Delta:     signedMoney(delta),
			Percent:   percentLabel(prior.Total, current.Total),
			Class:     deltaClass(delta),
		}
		v.Accounts = buildAccounts(eval, current, prior)
	} else if okCur && current.Available {
		v.Accounts = buildAccounts(eval, current, entity.NewPeriodSummary(entity.TimeWindow{}))
	}

	for _, b := range eval.Budgets {
		bv := budgetView{
			Name:     b.Name,
			Limit:    money(b.Limit),
			Actual:   money(b.Actual),
			Used:     b.UsedPercent().StringFixed(1) + "%",
			Exceeded: b.Exceeded(),
		}
		if !b.Forecast.IsZero() {
			bv.Forecast = money(b.Forecast)
		}
		v.Budgets = append(v.Budgets, bv)
	}

	return v
}

// buildAccounts monta o detalhamento por conta, ignorando valores abaixo de um centavo.
func buildAccounts(eval *entity.Evaluation, current, prior entity.PeriodSummary) []accountView {
	var accounts []accountView
	for _, id := range current.AccountIDs() {
		total := current.PerAccount[id]
		if total.LessThan(oneCent) {
			continue
		}
		previous := prior.PerAccount[id]
		delta := total.Sub(previous)

		av := accountView{
			ID:      id,
			Name:    eval.AccountName(id),
			Total:   money(total),
			Delta:   signedMoney(delta),
			Percent: percentLabel(previous, total),
			Class:   deltaClass(delta),
		}

		for _, sc := range current.ServicesFor(id) {
			if sc.Cost.LessThan(oneCent) {
				continue
			}
			prev := prior.PerAccountService[entity.AccountService{AccountID: id, ServiceName: sc.ServiceName}]
			d := sc.Cost.Sub(prev)
			av.Services = append(av.Services, serviceRow{
				Name:     sc.ServiceName,
				Current:  money(sc.Cost),
				Previous: money(prev),
				Delta:    signedMoney(d),
				Percent:  percentLabel(prev, sc.Cost),
				Class:    deltaClass(d),
				AI:       eval.Policy.IsAIService(sc.ServiceName),
			})
		}
		accounts = append(accounts, av)
	}
	return accounts
}

func windowRange(w entity.TimeWindow, loc *time.Location) string {
	start := w.StartUTC.In(loc)
	end := w.EndUTC.In(loc)
	if w.IsComplete && end.Hour() == 0 && end.Minute() == 0 {
		// fim exclusivo: mostra o último dia incluído
		last := end.Add(-time.Nanosecond)
		if last.Format(displayDate) == start.Format(displayDate) {
			return start.Format(displayDate)
		}
		return start.Format(displayDate) + " to " + last.Format(displayDate)
	}
	return start.Format(displayDate) + " to " + end.Format("Jan 02, 15:04")
}

func money(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

func signedMoney(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + money(d)
	}
	return money(d)
}

func percentLabel(prior, current decimal.Decimal) string {
	if !prior.IsPositive() {
		if current.IsPositive() {
			return "new"
		}
		return "0.0%"
	}
	pct := current.Sub(prior).Div(prior).Mul(hundred)
	if pct.IsPositive() {
		return "+" + pct.StringFixed(1) + "%"
	}
	return pct.StringFixed(1) + "%"
}

func deltaClass(d decimal.Decimal) string {
	if d.IsPositive() {
		return "increase"
	}
	return "decrease"
}

package service

import (
	"context"
	"sort"

	"github.com/diillson/aws-cost-monitor-go/internal/domain/entity"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Classification is the classifier output.
type Classification struct {
	// Findings are the account+service findings, largest DeltaAbsolute first. Extreme increases
	// are included even when they miss the dual-threshold gate.
	Findings []entity.AnomalyFinding
	// Organization is the organization-wide candidate; always computed when the comparison ran.
	Organization entity.AnomalyFinding
	// OrganizationQualifies reports whether Organization passed the dual-threshold gate.
	OrganizationQualifies bool
	// Skipped é true quando uma das janelas não estava disponível (cold start).
	Skipped bool
}

// Extreme returns the findings escalated as extreme increases.
func (c Classification) Extreme() []entity.AnomalyFinding {
	var out []entity.AnomalyFinding
	for _, f := range c.Findings {
		if f.Extreme {
			out = append(out, f)
		}
	}
	return out
}

// All returns every qualifying finding, organization included, in descending delta order.
func (c Classification) All() []entity.AnomalyFinding {
	all := make([]entity.AnomalyFinding, 0, len(c.Findings)+1)
	all = append(all, c.Findings...)
	if c.OrganizationQualifies {
		all = append(all, c.Organization)
	}
	sortFindings(all)
	return all
}

// Classifier applies the ThresholdPolicy to a current/prior pair of summaries.
type Classifier struct {
	policy entity.ThresholdPolicy
}

// NewClassifier creates a classifier for the policy.
func NewClassifier(policy entity.ThresholdPolicy) *Classifier {
	return &Classifier{policy: policy}
}

// Classify compares current (YesterdayFull) against prior (the baseline day). When either
// summary is unavailable the comparison is skipped and no findings are returned.
func (c *Classifier) Classify(ctx context.Context, current, prior entity.PeriodSummary) Classification {
	logger := zerolog.Ctx(ctx)

	if !current.Available || !prior.Available {
		logger.Info().
			Bool("current_available", current.Available).
			Bool("prior_available", prior.Available).
			Msg("comparison skipped: window data unavailable")
		return Classification{Skipped: true}
	}

	keys := make(map[entity.AccountService]struct{}, len(current.PerAccountService)+len(prior.PerAccountService))
	for k := range current.PerAccountService {
		keys[k] = struct{}{}
	}
	for k := range prior.PerAccountService {
		keys[k] = struct{}{}
	}

	var findings []entity.AnomalyFinding
	for key := range keys {
		thresholds, isAI := c.policy.ThresholdsFor(key.ServiceName)
		f := newFinding(
			entity.Scope{AccountID: key.AccountID, ServiceName: key.ServiceName},
			prior.PerAccountService[key],
			current.PerAccountService[key],
		)
		f.IsAIService = isAI
		f.Extreme = c.policy.IsExtremeIncrease(f)
		if !f.Extreme && !qualifies(f, thresholds) {
			continue
		}
		f.Severity = entity.SeverityWarning
		if f.Extreme || (isAI && f.DeltaAbsolute.GreaterThan(c.policy.CriticalAIDollarFloor)) {
			f.Severity = entity.SeverityCritical
		}
		findings = append(findings, f)
	}
	sortFindings(findings)

	org := newFinding(entity.OrganizationScope, prior.Total, current.Total)
	org.Severity = entity.SeverityWarning
	orgQualifies := qualifies(org, c.policy.Normal())

	logger.Info().
		Int("findings", len(findings)).
		Int("extreme", entity.CountExtreme(findings)).
		Bool("organization_qualifies", orgQualifies).
		Str("organization_delta", org.DeltaAbsolute.StringFixed(2)).
		Msg("cost comparison classified")

	return Classification{
		Findings:              findings,
		Organization:          org,
		OrganizationQualifies: orgQualifies,
	}
}

func newFinding(scope entity.Scope, prior, current decimal.Decimal) entity.AnomalyFinding {
	f := entity.AnomalyFinding{
		Scope:         scope,
		PriorAmount:   prior,
		CurrentAmount: current,
		DeltaAbsolute: current.Sub(prior),
	}
	if prior.IsPositive() {
		f.DeltaPercent = f.DeltaAbsolute.Div(prior).Mul(hundred)
	} else if f.DeltaAbsolute.IsPositive() {
		f.NewCost = true
	}
	return f
}

// qualifies is the dual-threshold gate: percent AND dollar must both be exceeded.
// A new cost has an unbounded percent change, so only the dollar condition decides.
func qualifies(f entity.AnomalyFinding, t entity.Thresholds) bool {
	if !f.DeltaAbsolute.GreaterThan(t.Dollar) {
		return false
	}
	if f.NewCost {
		return true
	}
	return f.DeltaPercent.GreaterThan(t.Percent)
}

func sortFindings(findings []entity.AnomalyFinding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if !a.DeltaAbsolute.Equal(b.DeltaAbsolute) {
			return a.DeltaAbsolute.GreaterThan(b.DeltaAbsolute)
		}
		if a.Scope.AccountID != b.Scope.AccountID {
			return a.Scope.AccountID < b.Scope.AccountID
		}
		return a.Scope.ServiceName < b.Scope.ServiceName
	})
}

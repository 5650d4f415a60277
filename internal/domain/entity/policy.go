package entity

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultAIServices são os serviços de IA monitorados com limites mais sensíveis.
var DefaultAIServices = []string{
	"Amazon Comprehend",
	"Amazon Bedrock",
	"Amazon Textract",
	"Amazon Rekognition",
	"Amazon Transcribe",
	"Amazon Translate",
	"Amazon Polly",
	"Amazon SageMaker",
}

// Thresholds is the effective percent/dollar pair applied to one scope.
type Thresholds struct {
	Percent decimal.Decimal
	Dollar  decimal.Decimal
}

// ThresholdPolicy carries the normal thresholds, the AI scaling and the AI membership predicate.
// It is loaded once per invocation and never mutated.
type ThresholdPolicy struct {
	PercentThreshold      decimal.Decimal `json:"percent_threshold"`
	DollarThreshold       decimal.Decimal `json:"dollar_threshold"`
	AIMultiplier          decimal.Decimal `json:"ai_multiplier"`
	CriticalAIDollarFloor decimal.Decimal `json:"critical_ai_dollar_floor"`
	// ExtremePercent e ExtremeMinCurrent escalam aumentos extremos independentemente do gate duplo.
	// Zero ExtremePercent disables the escalation.
	ExtremePercent    decimal.Decimal `json:"extreme_percent"`
	ExtremeMinCurrent decimal.Decimal `json:"extreme_min_current"`
	aiServices        map[string]struct{}
}

// NewThresholdPolicy builds a policy; AI service names are matched case-insensitively.
func NewThresholdPolicy(percent, dollar, aiMultiplier, criticalFloor decimal.Decimal, aiServices []string) ThresholdPolicy {
	set := make(map[string]struct{}, len(aiServices))
	for _, name := range aiServices {
		set[normalizeServiceName(name)] = struct{}{}
	}
	return ThresholdPolicy{
		PercentThreshold:      percent,
		DollarThreshold:       dollar,
		AIMultiplier:          aiMultiplier,
		CriticalAIDollarFloor: criticalFloor,
		aiServices:            set,
	}
}

// WithExtremeIncrease returns a copy of the policy with the extreme-increase escalation set.
func (p ThresholdPolicy) WithExtremeIncrease(percent, minCurrent decimal.Decimal) ThresholdPolicy {
	p.ExtremePercent = percent
	p.ExtremeMinCurrent = minCurrent
	return p
}

// IsExtremeIncrease reports whether a finding rose more than ExtremePercent while its current
// amount is above ExtremeMinCurrent. New costs have no measurable percent and never qualify.
func (p ThresholdPolicy) IsExtremeIncrease(f AnomalyFinding) bool {
	if !p.ExtremePercent.IsPositive() || f.NewCost {
		return false
	}
	return f.CurrentAmount.GreaterThan(p.ExtremeMinCurrent) && f.DeltaPercent.GreaterThan(p.ExtremePercent)
}

// IsAIService reports whether the service is in the configured AI set.
func (p ThresholdPolicy) IsAIService(serviceName string) bool {
	_, ok := p.aiServices[normalizeServiceName(serviceName)]
	return ok
}

// Normal returns the unscaled thresholds.
func (p ThresholdPolicy) Normal() Thresholds {
	return Thresholds{Percent: p.PercentThreshold, Dollar: p.DollarThreshold}
}

// ThresholdsFor selects the thresholds for a service. AI services get both values scaled by
// AIMultiplier.
func (p ThresholdPolicy) ThresholdsFor(serviceName string) (Thresholds, bool) {
	if p.IsAIService(serviceName) {
		return Thresholds{
			Percent: p.PercentThreshold.Mul(p.AIMultiplier),
			Dollar:  p.DollarThreshold.Mul(p.AIMultiplier),
		}, true
	}
	return p.Normal(), false
}

func normalizeServiceName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

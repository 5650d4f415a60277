package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/diillson/aws-cost-monitor-go/internal/domain/entity"
	"github.com/diillson/aws-cost-monitor-go/internal/domain/repository"
	"github.com/diillson/aws-cost-monitor-go/internal/shared/types"
	"github.com/rs/zerolog"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidEmailAddress is the syntactic address check applied before any lookup.
func ValidEmailAddress(address string) bool {
	return emailPattern.MatchString(strings.TrimSpace(address))
}

// GovernorConfig holds the dispatch limits.
type GovernorConfig struct {
	// Scope separa os contadores de instalações diferentes que compartilham o mesmo store.
	Scope             string
	RateLimitPerHour  int
	RateWindow        time.Duration
	DedupWindow       time.Duration
	QuotaSafetyMargin float64
}

// DefaultGovernorConfig returns 10 sends per rolling hour, 30 minute dedup and an 80% quota margin.
func DefaultGovernorConfig() GovernorConfig {
	return GovernorConfig{
		Scope:             "cost-monitor",
		RateLimitPerHour:  10,
		RateWindow:        time.Hour,
		DedupWindow:       30 * time.Minute,
		QuotaSafetyMargin: 0.8,
	}
}

// Governor decides whether a notification may be sent to each recipient.
// It keeps no state of its own: counters live in the injected CounterStore.
type Governor struct {
	cfg      GovernorConfig
	store    repository.CounterStore
	notifier repository.NotificationRepository
}

// NewGovernor creates a Governor.
func NewGovernor(cfg GovernorConfig, store repository.CounterStore, notifier repository.NotificationRepository) *Governor {
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Hour
	}
	return &Governor{cfg: cfg, store: store, notifier: notifier}
}

// Fingerprint derives the dedup identifier from the sorted scope+severity set of the findings.
// Wall-clock values and amounts do not take part, so the same anomaly reported twice collides.
func Fingerprint(findings []entity.AnomalyFinding) string {
	parts := make([]string, 0, len(findings))
	for _, f := range findings {
		parts = append(parts, f.Scope.Key()+"|"+string(f.Severity))
	}
	sort.Strings(parts)
	sum := sha256.Sum256([]byte(strings.Join(parts, "\n")))
	return hex.EncodeToString(sum[:])
}

func (g *Governor) rateKey() string {
	return "ratelimit:" + g.cfg.Scope
}

func (g *Governor) dedupKey(fingerprint string) string {
	return "dedup:" + g.cfg.Scope + ":" + fingerprint
}

// Evaluate applies the checks in fixed order and returns one decision per recipient without
// consuming any counter. Order: address validity, suppression, rate limit, duplicate, quota.
func (g *Governor) Evaluate(ctx context.Context, now time.Time, n entity.Notification, recipients []string) ([]entity.DispatchDecision, error) {
	logger := zerolog.Ctx(ctx)

	decisions := make([]entity.DispatchDecision, len(recipients))
	var candidates []int

	for i, raw := range recipients {
		address := strings.TrimSpace(raw)
		decisions[i] = entity.DispatchDecision{Recipient: address, State: entity.StateIdle}

		if !ValidEmailAddress(address) {
			decisions[i] = reject(address, entity.ReasonInvalidAddress)
			continue
		}

		suppressed, err := g.notifier.IsSuppressed(ctx, address)
		if err != nil {
			logger.Warn().Err(err).Str("recipient", address).Msg("suppression lookup failed, assuming not suppressed")
		} else if suppressed {
			decisions[i] = reject(address, entity.ReasonSuppressedRecipient)
			continue
		}
		candidates = append(candidates, i)
	}

	if len(candidates) == 0 {
		return decisions, nil
	}

	reason, err := g.sharedReason(ctx, now, n, len(candidates))
	if err != nil {
		return nil, err
	}

	for _, i := range candidates {
		if reason != entity.ReasonOK {
			decisions[i] = reject(decisions[i].Recipient, reason)
			continue
		}
		decisions[i].Allowed = true
		decisions[i].Reason = entity.ReasonOK
		decisions[i].State = entity.StateAdmitted
	}
	return decisions, nil
}

// sharedReason runs the notification-level checks (3 to 5).
func (g *Governor) sharedReason(ctx context.Context, now time.Time, n entity.Notification, recipients int) (entity.DispatchReason, error) {
	logger := zerolog.Ctx(ctx)

	sent, err := g.store.Get(ctx, g.rateKey(), now)
	if err != nil {
		return "", fmt.Errorf("failed to read rate limit counter: %w", err)
	}
	if sent >= int64(g.cfg.RateLimitPerHour) {
		return entity.ReasonRateLimited, nil
	}

	seen, err := g.store.Get(ctx, g.dedupKey(n.Fingerprint), now)
	if err != nil {
		return "", fmt.Errorf("failed to read dedup counter: %w", err)
	}
	if seen > 0 {
		return entity.ReasonDuplicate, nil
	}

	quota, err := g.notifier.GetSendQuota(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("send quota lookup failed, assuming headroom")
		return entity.ReasonOK, nil
	}
	if projected := quota.ProjectedUtilization(recipients); projected > g.cfg.QuotaSafetyMargin {
		logger.Warn().
			Float64("sent_last_24h", quota.SentLast24Hours).
			Float64("max_24h", quota.Max24HourSend).
			Float64("projected", projected).
			Msg("approaching send quota")
		return entity.ReasonQuotaExhausted, nil
	}
	return entity.ReasonOK, nil
}

// Dispatch evaluates, consumes the rate-limit and dedup counters for admitted recipients and
// hands the notification to the transport. A transport failure is returned as
// *types.TransportError; the counters stay consumed and decisions stay Admitted.
func (g *Governor) Dispatch(ctx context.Context, now time.Time, n entity.Notification, recipients []string) ([]entity.DispatchDecision, error) {
	logger := zerolog.Ctx(ctx)

	decisions, err := g.Evaluate(ctx, now, n, recipients)
	if err != nil {
		return nil, err
	}

	var admitted []string
	for _, d := range decisions {
		if d.Allowed {
			admitted = append(admitted, d.Recipient)
			continue
		}
		logger.Info().Str("recipient", d.Recipient).Str("reason", string(d.Reason)).Msg("dispatch rejected")
	}
	if len(admitted) == 0 {
		return decisions, nil
	}

	if _, err := g.store.IncrementWithTTL(ctx, g.rateKey(), now, g.cfg.RateWindow); err != nil {
		return decisions, fmt.Errorf("failed to consume rate limit counter: %w", err)
	}
	if _, err := g.store.IncrementWithTTL(ctx, g.dedupKey(n.Fingerprint), now, g.cfg.DedupWindow); err != nil {
		return decisions, fmt.Errorf("failed to record dedup fingerprint: %w", err)
	}

	messageID, err := g.notifier.Send(ctx, n, admitted)
	if err != nil {
		return decisions, &types.TransportError{Err: err}
	}

	for i := range decisions {
		if decisions[i].State == entity.StateAdmitted {
			decisions[i].State = entity.StateSent
		}
	}
	logger.Info().Str("message_id", messageID).Int("recipients", len(admitted)).Msg("notification sent")
	return decisions, nil
}

func reject(recipient string, reason entity.DispatchReason) entity.DispatchDecision {
	return entity.DispatchDecision{
		Recipient: recipient,
		Allowed:   false,
		Reason:    reason,
		State:     entity.StateRejected,
	}
}

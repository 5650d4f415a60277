package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/diillson/aws-cost-monitor-go/internal/domain/entity"
	"github.com/diillson/aws-cost-monitor-go/internal/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore guarda uma expiração por unidade incrementada.
type fakeStore struct {
	mu     sync.Mutex
	units  map[string][]time.Time
	getErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{units: make(map[string][]time.Time)}
}

func (s *fakeStore) Get(_ context.Context, key string, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return 0, s.getErr
	}
	var n int64
	for _, exp := range s.units[key] {
		if exp.After(now) {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) IncrementWithTTL(ctx context.Context, key string, now time.Time, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	s.units[key] = append(s.units[key], now.Add(ttl))
	s.mu.Unlock()
	return s.Get(ctx, key, now)
}

type fakeNotifier struct {
	suppressed  map[string]bool
	suppressErr error
	quota       entity.SendQuota
	quotaErr    error
	sendErr     error

	suppressionCalls int
	sent             [][]string
	plain            []string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		suppressed: make(map[string]bool),
		quota:      entity.SendQuota{Max24HourSend: 200, SentLast24Hours: 0},
	}
}

func (n *fakeNotifier) IsSuppressed(_ context.Context, address string) (bool, error) {
	n.suppressionCalls++
	if n.suppressErr != nil {
		return false, n.suppressErr
	}
	return n.suppressed[address], nil
}

func (n *fakeNotifier) GetSendQuota(context.Context) (entity.SendQuota, error) {
	return n.quota, n.quotaErr
}

func (n *fakeNotifier) Send(_ context.Context, _ entity.Notification, recipients []string) (string, error) {
	if n.sendErr != nil {
		return "", n.sendErr
	}
	n.sent = append(n.sent, recipients)
	return "msg-1", nil
}

func (n *fakeNotifier) SendPlainText(_ context.Context, subject, _ string, _ []string) error {
	n.plain = append(n.plain, subject)
	return nil
}

func testGovernorConfig(limit int) GovernorConfig {
	cfg := DefaultGovernorConfig()
	cfg.RateLimitPerHour = limit
	return cfg
}

func notificationFor(findings ...entity.AnomalyFinding) entity.Notification {
	return entity.Notification{Subject: "AWS Cost Alert", Fingerprint: Fingerprint(findings)}
}

func bedrockFinding(severity entity.Severity, current string) entity.AnomalyFinding {
	return entity.AnomalyFinding{
		Scope:         entity.Scope{AccountID: acct, ServiceName: "Amazon Bedrock"},
		PriorAmount:   d("40"),
		CurrentAmount: d(current),
		DeltaAbsolute: d(current).Sub(d("40")),
		Severity:      severity,
	}
}

var t0 = time.Date(2024, 6, 11, 8, 0, 0, 0, time.UTC)

func TestGovernor_FirstDispatchIsSent(t *testing.T) {
	notifier := newFakeNotifier()
	g := NewGovernor(testGovernorConfig(10), newFakeStore(), notifier)

	decisions, err := g.Dispatch(context.Background(), t0, notificationFor(bedrockFinding(entity.SeverityWarning, "120")), []string{"ops@example.com"})

	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.True(t, decisions[0].Allowed)
	assert.Equal(t, entity.ReasonOK, decisions[0].Reason)
	assert.Equal(t, entity.StateSent, decisions[0].State)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, []string{"ops@example.com"}, notifier.sent[0])
}

func TestGovernor_DuplicateWithinWindow(t *testing.T) {
	store := newFakeStore()
	notifier := newFakeNotifier()
	g := NewGovernor(testGovernorConfig(10), store, notifier)
	n := notificationFor(bedrockFinding(entity.SeverityWarning, "120"))
	to := []string{"ops@example.com"}

	first, err := g.Dispatch(context.Background(), t0, n, to)
	require.NoError(t, err)
	assert.Equal(t, entity.ReasonOK, first[0].Reason)

	second, err := g.Dispatch(context.Background(), t0.Add(10*time.Minute), n, to)
	require.NoError(t, err)
	assert.False(t, second[0].Allowed)
	assert.Equal(t, entity.ReasonDuplicate, second[0].Reason)
	assert.Equal(t, entity.StateRejected, second[0].State)

	// Depois da janela de dedup o mesmo conteúdo volta a ser admitido.
	third, err := g.Dispatch(context.Background(), t0.Add(31*time.Minute), n, to)
	require.NoError(t, err)
	assert.Equal(t, entity.ReasonOK, third[0].Reason)
	assert.Len(t, notifier.sent, 2)
}

func TestGovernor_SeverityEscalationIsNotDuplicate(t *testing.T) {
	g := NewGovernor(testGovernorConfig(10), newFakeStore(), newFakeNotifier())
	to := []string{"ops@example.com"}

	_, err := g.Dispatch(context.Background(), t0, notificationFor(bedrockFinding(entity.SeverityWarning, "120")), to)
	require.NoError(t, err)

	decisions, err := g.Dispatch(context.Background(), t0.Add(5*time.Minute), notificationFor(bedrockFinding(entity.SeverityCritical, "145")), to)
	require.NoError(t, err)
	assert.Equal(t, entity.ReasonOK, decisions[0].Reason)
}

func TestGovernor_RateLimitBoundary(t *testing.T) {
	const limit = 3
	g := NewGovernor(testGovernorConfig(limit), newFakeStore(), newFakeNotifier())
	to := []string{"ops@example.com"}

	for i := 0; i < limit; i++ {
		// conteúdo diferente a cada envio para não cair no dedup
		n := notificationFor(bedrockFinding(entity.SeverityWarning, "120"))
		n.Fingerprint = n.Fingerprint + string(rune('a'+i))

		decisions, err := g.Dispatch(context.Background(), t0.Add(time.Duration(i)*time.Minute), n, to)
		require.NoError(t, err)
		assert.Equal(t, entity.ReasonOK, decisions[0].Reason, "send %d", i+1)
	}

	n := notificationFor()
	decisions, err := g.Dispatch(context.Background(), t0.Add(10*time.Minute), n, to)
	require.NoError(t, err)
	assert.Equal(t, entity.ReasonRateLimited, decisions[0].Reason)

	// A janela é móvel: uma hora após o primeiro envio abre espaço para mais um.
	decisions, err = g.Dispatch(context.Background(), t0.Add(time.Hour), n, to)
	require.NoError(t, err)
	assert.Equal(t, entity.ReasonOK, decisions[0].Reason)
}

func TestGovernor_ScenarioD_QuotaNearlyExhausted(t *testing.T) {
	notifier := newFakeNotifier()
	notifier.quota = entity.SendQuota{Max24HourSend: 200, SentLast24Hours: 164}
	g := NewGovernor(testGovernorConfig(10), newFakeStore(), notifier)

	decisions, err := g.Dispatch(context.Background(), t0, notificationFor(bedrockFinding(entity.SeverityCritical, "145")), []string{"ops@example.com"})

	require.NoError(t, err)
	assert.Equal(t, entity.ReasonQuotaExhausted, decisions[0].Reason)
	assert.Empty(t, notifier.sent)
}

func TestGovernor_UnlimitedQuota(t *testing.T) {
	notifier := newFakeNotifier()
	notifier.quota = entity.SendQuota{Max24HourSend: -1, SentLast24Hours: 5000}
	g := NewGovernor(testGovernorConfig(10), newFakeStore(), notifier)

	decisions, err := g.Dispatch(context.Background(), t0, notificationFor(), []string{"ops@example.com"})

	require.NoError(t, err)
	assert.Equal(t, entity.ReasonOK, decisions[0].Reason)
}

func TestGovernor_PerRecipientChecks(t *testing.T) {
	notifier := newFakeNotifier()
	notifier.suppressed["bounced@example.com"] = true
	g := NewGovernor(testGovernorConfig(10), newFakeStore(), notifier)

	decisions, err := g.Dispatch(context.Background(), t0, notificationFor(),
		[]string{"not-an-address", "bounced@example.com", " finops@example.com "})

	require.NoError(t, err)
	require.Len(t, decisions, 3)
	assert.Equal(t, entity.ReasonInvalidAddress, decisions[0].Reason)
	assert.Equal(t, entity.ReasonSuppressedRecipient, decisions[1].Reason)
	assert.Equal(t, entity.ReasonOK, decisions[2].Reason)
	assert.Equal(t, entity.StateSent, decisions[2].State)

	// endereço inválido nunca chega à consulta de supressão
	assert.Equal(t, 2, notifier.suppressionCalls)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, []string{"finops@example.com"}, notifier.sent[0])
}

func TestGovernor_InvalidAddressBeatsRateLimit(t *testing.T) {
	store := newFakeStore()
	g := NewGovernor(testGovernorConfig(1), store, newFakeNotifier())

	_, err := g.Dispatch(context.Background(), t0, notificationFor(), []string{"ops@example.com"})
	require.NoError(t, err)

	decisions, err := g.Evaluate(context.Background(), t0.Add(time.Minute), notificationFor(bedrockFinding(entity.SeverityWarning, "99")),
		[]string{"bad@", "ops@example.com"})
	require.NoError(t, err)
	assert.Equal(t, entity.ReasonInvalidAddress, decisions[0].Reason)
	assert.Equal(t, entity.ReasonRateLimited, decisions[1].Reason)
}

func TestGovernor_RateLimitCheckedBeforeDedup(t *testing.T) {
	g := NewGovernor(testGovernorConfig(1), newFakeStore(), newFakeNotifier())
	n := notificationFor()

	_, err := g.Dispatch(context.Background(), t0, n, []string{"ops@example.com"})
	require.NoError(t, err)

	decisions, err := g.Evaluate(context.Background(), t0.Add(time.Minute), n, []string{"ops@example.com"})
	require.NoError(t, err)
	assert.Equal(t, entity.ReasonRateLimited, decisions[0].Reason)
}

func TestGovernor_EvaluateDoesNotConsume(t *testing.T) {
	store := newFakeStore()
	g := NewGovernor(testGovernorConfig(1), store, newFakeNotifier())

	for i := 0; i < 3; i++ {
		decisions, err := g.Evaluate(context.Background(), t0, notificationFor(), []string{"ops@example.com"})
		require.NoError(t, err)
		assert.Equal(t, entity.ReasonOK, decisions[0].Reason)
	}
	assert.Empty(t, store.units)
}

func TestGovernor_TransportFailureStillConsumesCounters(t *testing.T) {
	store := newFakeStore()
	notifier := newFakeNotifier()
	notifier.sendErr = errors.New("throttled")
	g := NewGovernor(testGovernorConfig(10), store, notifier)
	n := notificationFor(bedrockFinding(entity.SeverityWarning, "120"))

	decisions, err := g.Dispatch(context.Background(), t0, n, []string{"ops@example.com"})

	var transportErr *types.TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, entity.StateAdmitted, decisions[0].State)

	// Retry imediato cai no dedup, evitando tempestade de e-mails.
	notifier.sendErr = nil
	decisions, err = g.Dispatch(context.Background(), t0.Add(time.Minute), n, []string{"ops@example.com"})
	require.NoError(t, err)
	assert.Equal(t, entity.ReasonDuplicate, decisions[0].Reason)
}

func TestGovernor_LookupFailuresFailOpen(t *testing.T) {
	notifier := newFakeNotifier()
	notifier.suppressErr = errors.New("ses unavailable")
	notifier.quotaErr = errors.New("ses unavailable")
	g := NewGovernor(testGovernorConfig(10), newFakeStore(), notifier)

	decisions, err := g.Dispatch(context.Background(), t0, notificationFor(), []string{"ops@example.com"})

	require.NoError(t, err)
	assert.Equal(t, entity.ReasonOK, decisions[0].Reason)
}

func TestGovernor_StoreErrorIsReturned(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("database is locked")
	notifier := newFakeNotifier()
	g := NewGovernor(testGovernorConfig(10), store, notifier)

	_, err := g.Dispatch(context.Background(), t0, notificationFor(), []string{"ops@example.com"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
	assert.Empty(t, notifier.sent)
}

func TestFingerprint_IgnoresAmountsAndOrder(t *testing.T) {
	a := bedrockFinding(entity.SeverityWarning, "120")
	b := entity.AnomalyFinding{Scope: entity.Scope{AccountID: acct, ServiceName: "Amazon EC2"}, Severity: entity.SeverityWarning}

	first := Fingerprint([]entity.AnomalyFinding{a, b})

	a.CurrentAmount = d("130")
	a.DeltaAbsolute = d("90")
	assert.Equal(t, first, Fingerprint([]entity.AnomalyFinding{b, a}))

	a.Severity = entity.SeverityCritical
	assert.NotEqual(t, first, Fingerprint([]entity.AnomalyFinding{a, b}))
}

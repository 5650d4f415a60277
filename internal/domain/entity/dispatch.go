package entity

// DispatchReason is the terminal reason of a dispatch decision.
type DispatchReason string

const (
	ReasonOK                  DispatchReason = "ok"
	ReasonRateLimited         DispatchReason = "rate_limited"
	ReasonDuplicate           DispatchReason = "duplicate"
	ReasonQuotaExhausted      DispatchReason = "quota_exhausted"
	ReasonSuppressedRecipient DispatchReason = "suppressed_recipient"
	ReasonInvalidAddress      DispatchReason = "invalid_address"
)

// DispatchState acompanha o ciclo Idle -> Admitted -> Sent, ou Idle -> Rejected.
type DispatchState string

const (
	StateIdle     DispatchState = "idle"
	StateAdmitted DispatchState = "admitted"
	StateSent     DispatchState = "sent"
	StateRejected DispatchState = "rejected"
)

// DispatchDecision is the outcome for one (recipient, notification) pair.
type DispatchDecision struct {
	Recipient string         `json:"recipient"`
	Allowed   bool           `json:"allowed"`
	Reason    DispatchReason `json:"reason"`
	State     DispatchState  `json:"state"`
}

// Notification is the content handed to the transport.
type Notification struct {
	Subject     string `json:"subject"`
	HTMLBody    string `json:"-"`
	TextBody    string `json:"-"`
	Fingerprint string `json:"fingerprint"`
}

// SendQuota is the externally reported sending quota.
// A negative Max24HourSend means the quota is unlimited.
type SendQuota struct {
	Max24HourSend   float64 `json:"max_24_hour_send"`
	SentLast24Hours float64 `json:"sent_last_24_hours"`
}

// Utilization retorna a fração do limite já utilizada.
func (q SendQuota) Utilization() float64 {
	if q.Max24HourSend < 0 {
		return 0
	}
	if q.Max24HourSend == 0 {
		return 1
	}
	return q.SentLast24Hours / q.Max24HourSend
}

// ProjectedUtilization returns the utilization after sending n more messages.
func (q SendQuota) ProjectedUtilization(n int) float64 {
	if q.Max24HourSend < 0 {
		return 0
	}
	if q.Max24HourSend == 0 {
		return 1
	}
	return (q.SentLast24Hours + float64(n)) / q.Max24HourSend
}

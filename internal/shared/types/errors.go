package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/diillson/aws-cost-monitor-go/internal/domain/entity"
)

var (
	ErrNoRecipients        = errors.New("no recipient e-mail addresses configured (email_to)")
	ErrNoSender            = errors.New("no sender e-mail address configured (email_from)")
	ErrNoValidRecipients   = errors.New("none of the configured recipients passed validation")
	ErrMeteringUnavailable = errors.New("cost data unavailable")
)

// ConfigurationError é fatal: aborta a execução antes de qualquer chamada externa.
type ConfigurationError struct {
	Key string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error (%s): %v", e.Key, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// NewConfigurationError builds a ConfigurationError for key.
func NewConfigurationError(key string, format string, a ...interface{}) *ConfigurationError {
	return &ConfigurationError{Key: key, Err: fmt.Errorf(format, a...)}
}

// UpstreamUnavailableError reports windows the metering source has not reported yet.
// Items for other windows returned alongside it are still valid.
type UpstreamUnavailableError struct {
	Windows []entity.WindowLabel
	Err     error
}

func (e *UpstreamUnavailableError) Error() string {
	labels := make([]string, 0, len(e.Windows))
	for _, w := range e.Windows {
		labels = append(labels, string(w))
	}
	msg := fmt.Sprintf("cost data unavailable for windows: %s", strings.Join(labels, ", "))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamUnavailableError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrMeteringUnavailable
}

// Has reports whether label is among the unavailable windows.
func (e *UpstreamUnavailableError) Has(label entity.WindowLabel) bool {
	for _, w := range e.Windows {
		if w == label {
			return true
		}
	}
	return false
}

// DataQualityWarning describes a line item that was rejected or flagged.
type DataQualityWarning struct {
	Item   entity.CostLineItem
	Reason string
}

func (w DataQualityWarning) Error() string {
	return fmt.Sprintf("data quality: %s (account=%q service=%q window=%q amount=%s)",
		w.Reason, w.Item.AccountID, w.Item.ServiceName, w.Item.Window, w.Item.Amount.String())
}

// TransportError wraps a failure of the outbound transport.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

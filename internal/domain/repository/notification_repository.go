package repository

import (
	"context"

	"github.com/diillson/aws-cost-monitor-go/internal/domain/entity"
)

// NotificationRepository defines the interface for the e-mail provider.
type NotificationRepository interface {
	// IsSuppressed reports whether the address is on the bounce/complaint suppression list.
	IsSuppressed(ctx context.Context, address string) (bool, error)
	GetSendQuota(ctx context.Context) (entity.SendQuota, error)
	Send(ctx context.Context, notification entity.Notification, recipients []string) (string, error)
	// SendPlainText é o caminho mínimo de fallback, sem formatação HTML.
	SendPlainText(ctx context.Context, subject, body string, recipients []string) error
}

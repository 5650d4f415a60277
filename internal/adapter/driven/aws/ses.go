package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sesTypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/diillson/aws-cost-monitor-go/internal/domain/entity"
	"github.com/diillson/aws-cost-monitor-go/internal/domain/repository"
	"github.com/rs/zerolog"
)

const charset = "UTF-8"

type sesAPI interface {
	GetSuppressedDestination(ctx context.Context, params *sesv2.GetSuppressedDestinationInput, optFns ...func(*sesv2.Options)) (*sesv2.GetSuppressedDestinationOutput, error)
	GetAccount(ctx context.Context, params *sesv2.GetAccountInput, optFns ...func(*sesv2.Options)) (*sesv2.GetAccountOutput, error)
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// NotificationRepositoryImpl envia e-mails pelo SES v2.
type NotificationRepositoryImpl struct {
	clients *Clients
	ses     sesAPI
	from    string
}

// NewNotificationRepository creates the SES backed NotificationRepository.
func NewNotificationRepository(clients *Clients, from string) repository.NotificationRepository {
	return &NotificationRepositoryImpl{clients: clients, from: from}
}

func (r *NotificationRepositoryImpl) client(ctx context.Context) (sesAPI, error) {
	if r.ses != nil {
		return r.ses, nil
	}
	return r.clients.SES(ctx)
}

// IsSuppressed consults the account-level suppression list. NotFound means the address is clean.
func (r *NotificationRepositoryImpl) IsSuppressed(ctx context.Context, address string) (bool, error) {
	client, err := r.client(ctx)
	if err != nil {
		return false, err
	}

	out, err := client.GetSuppressedDestination(ctx, &sesv2.GetSuppressedDestinationInput{
		EmailAddress: aws.String(address),
	})
	if err != nil {
		var notFound *sesTypes.NotFoundException
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check suppression list: %w", err)
	}

	if out == nil || out.SuppressedDestination == nil {
		return false, nil
	}
	zerolog.Ctx(ctx).Info().
		Str("recipient", address).
		Str("suppression_reason", string(out.SuppressedDestination.Reason)).
		Msg("recipient is on the suppression list")
	return true, nil
}

// GetSendQuota returns the 24h sending quota of the SES account.
func (r *NotificationRepositoryImpl) GetSendQuota(ctx context.Context) (entity.SendQuota, error) {
	client, err := r.client(ctx)
	if err != nil {
		return entity.SendQuota{}, err
	}

	out, err := client.GetAccount(ctx, &sesv2.GetAccountInput{})
	if err != nil {
		return entity.SendQuota{}, fmt.Errorf("failed to get send quota: %w", err)
	}
	if out.SendQuota == nil {
		return entity.SendQuota{}, errors.New("send quota not reported by SES")
	}

	return entity.SendQuota{
		Max24HourSend:   out.SendQuota.Max24HourSend,
		SentLast24Hours: out.SendQuota.SentLast24Hours,
	}, nil
}

// Send delivers the notification with both HTML and text bodies and returns the message id.
func (r *NotificationRepositoryImpl) Send(ctx context.Context, n entity.Notification, recipients []string) (string, error) {
	body := &sesTypes.Body{}
	if n.HTMLBody != "" {
		body.Html = &sesTypes.Content{Data: aws.String(n.HTMLBody), Charset: aws.String(charset)}
	}
	if n.TextBody != "" {
		body.Text = &sesTypes.Content{Data: aws.String(n.TextBody), Charset: aws.String(charset)}
	}
	return r.send(ctx, n.Subject, body, recipients)
}

// SendPlainText sends a text-only message.
func (r *NotificationRepositoryImpl) SendPlainText(ctx context.Context, subject, text string, recipients []string) error {
	body := &sesTypes.Body{Text: &sesTypes.Content{Data: aws.String(text), Charset: aws.String(charset)}}
	_, err := r.send(ctx, subject, body, recipients)
	return err
}

func (r *NotificationRepositoryImpl) send(ctx context.Context, subject string, body *sesTypes.Body, recipients []string) (string, error) {
	client, err := r.client(ctx)
	if err != nil {
		return "", err
	}

	out, err := client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(r.from),
		Destination:      &sesTypes.Destination{ToAddresses: recipients},
		Content: &sesTypes.EmailContent{
			Simple: &sesTypes.Message{
				Subject: &sesTypes.Content{Data: aws.String(subject), Charset: aws.String(charset)},
				Body:    body,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to send e-mail: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}

package notification

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	log "github.com/sirupsen/logrus"
)

type sendGridClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridMailer отправляет письма через SendGrid API.
type SendGridMailer struct {
	client   sendGridClient
	from     string
	fromName string
	logger   *log.Entry
}

// NewSendGridMailer создаёт mailer с API-ключом и адресом отправителя.
func NewSendGridMailer(apiKey, from, fromName string, logger *log.Entry) (*SendGridMailer, error) {
	if apiKey == "" {
		return nil, errors.New("sendgrid api key is empty")
	}
	if from == "" {
		return nil, errors.New("from address is empty")
	}
	if logger == nil {
		logger = log.WithField("component", "sendgrid-mailer")
	}
	return &SendGridMailer{
		client:   sendgrid.NewSendClient(apiKey),
		from:     from,
		fromName: fromName,
		logger:   logger,
	}, nil
}

// Send отправляет письмо. 429 и 5xx считаются временными ошибками.
func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("to address is empty")
	}

	email := mail.NewSingleEmail(
		mail.NewEmail(m.fromName, m.from),
		msg.Subject,
		mail.NewEmail(msg.ToName, msg.To),
		msg.Text,
		msg.HTML,
	)

	response, err := m.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w: %w", ErrTransient, err)
	}

	switch {
	case response.StatusCode == http.StatusTooManyRequests || response.StatusCode >= 500:
		return fmt.Errorf("sendgrid send failed: status=%d: %w", response.StatusCode, ErrTransient)
	case response.StatusCode >= 400:
		m.logger.WithFields(log.Fields{
			"status": response.StatusCode,
			"body":   response.Body,
		}).Error("sendgrid rejected message")
		return fmt.Errorf("sendgrid send failed: status=%d, body=%s", response.StatusCode, response.Body)
	}

	m.logger.WithFields(log.Fields{
		"status":  response.StatusCode,
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("mail sent")
	return nil
}

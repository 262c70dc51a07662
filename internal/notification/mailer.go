// Package notification доставляет клиенту письмо о созданном заказе.
package notification

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
)

// ErrTransient — временная ошибка доставки; сообщение можно отправить повторно.
var ErrTransient = errors.New("transient delivery failure")

// Message — готовое к отправке письмо.
type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Mailer отправляет письмо получателю.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer пишет письма в лог вместо отправки.
type LogMailer struct {
	logger *log.Entry
}

// NewLogMailer создаёт LogMailer.
func NewLogMailer(logger *log.Entry) *LogMailer {
	if logger == nil {
		logger = log.WithField("component", "log-mailer")
	}
	return &LogMailer{logger: logger}
}

// Send логирует письмо.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.WithFields(log.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("mail sent\n" + msg.Text)
	return nil
}

package notification

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
)

var ErrNoRecipients = errors.New("notification: no recipients")

type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers one message. Implementations must honour ctx cancellation.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	log logrus.FieldLogger
}

func NewLogSender(log logrus.FieldLogger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	s.log.WithFields(logrus.Fields{
		"to":      strings.Join(msg.To, ","),
		"subject": msg.Subject,
	}).Info("notification (log sender)\n" + msg.Text)
	return nil
}

// Package mailer delivers plain text notifications over SMTP.
package mailer

import (
	"bytes"
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-lms-gradesync/pkg/config"
)

// Attachment is an in-memory file added to a message.
type Attachment struct {
	Name string
	Data []byte
}

// Message is a single-recipient notification.
type Message struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender sends through the configured relay. One connection is dialled per message; result
// mails are rare enough that pooling buys nothing.
type SMTPSender struct {
	cfg config.MailConfig
}

// New returns an SMTP sender, or a LogSender when no relay host is configured.
func New(cfg config.MailConfig, logger *zap.Logger) Sender {
	if cfg.Host == "" {
		return NewLogSender(logger)
	}
	return &SMTPSender{cfg: cfg}
}

// Send builds and delivers msg.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := buildMessage(s.cfg.From, msg)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}

func buildMessage(from string, msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("set mail sender: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("set mail recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	for _, a := range msg.Attachments {
		m.AttachReadSeeker(a.Name, bytes.NewReader(a.Data))
	}
	return m, nil
}

// LogSender records messages in the log instead of delivering them.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	names := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		names = append(names, a.Name)
	}
	s.logger.Sugar().Infow("mail not sent, smtp disabled", "to", msg.To, "subject", msg.Subject, "attachments", names)
	return nil
}

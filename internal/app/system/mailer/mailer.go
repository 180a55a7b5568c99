// internal/app/system/mailer/mailer.go
package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Email is a single outgoing message.
type Email struct {
	To       string
	ReplyTo  string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers an Email.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// Deliver sends e through s and logs a failure instead of returning it.
// Handlers use it for notifications that must not fail the request.
func Deliver(s Sender, log *zap.Logger, e Email) {
	if s == nil || e.To == "" {
		return
	}
	if err := s.Send(context.Background(), e); err != nil && log != nil {
		log.Warn("email not sent", zap.String("to", e.To), zap.String("subject", e.Subject), zap.Error(err))
	}
}

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	// Enabled false logs messages instead of sending them.
	Enabled bool
}

// Mailer sends email over SMTP.
type Mailer struct {
	cfg Config
	log *zap.Logger
}

// New validates cfg and returns an SMTP mailer.
func New(cfg Config, log *zap.Logger) (*Mailer, error) {
	if cfg.Enabled {
		if cfg.Host == "" {
			return nil, errors.New("mailer: smtp host is required when mail is enabled")
		}
		if cfg.From == "" {
			return nil, errors.New("mailer: from address is required when mail is enabled")
		}
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Mailer{cfg: cfg, log: log}, nil
}

// Send delivers e. When mail is disabled the message is logged and
// dropped.
func (m *Mailer) Send(ctx context.Context, e Email) error {
	if e.To == "" {
		return errors.New("mailer: recipient is required")
	}
	if !m.cfg.Enabled {
		m.log.Info("email suppressed (mail disabled)",
			zap.String("to", e.To),
			zap.String("subject", e.Subject))
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(m.cfg.FromName, m.cfg.From); err != nil {
		return fmt.Errorf("mailer: from: %w", err)
	}
	if err := msg.To(e.To); err != nil {
		return fmt.Errorf("mailer: to: %w", err)
	}
	if e.ReplyTo != "" {
		if err := msg.ReplyTo(e.ReplyTo); err != nil {
			return fmt.Errorf("mailer: reply-to: %w", err)
		}
	}
	msg.Subject(e.Subject)
	msg.SetBodyString(mail.TypeTextPlain, e.TextBody)
	if e.HTMLBody != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, e.HTMLBody)
	}

	client, err := mail.NewClient(m.cfg.Host, m.clientOptions()...)
	if err != nil {
		return fmt.Errorf("mailer: client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	m.log.Debug("email sent", zap.String("to", e.To), zap.String("subject", e.Subject))
	return nil
}

func (m *Mailer) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	return opts
}

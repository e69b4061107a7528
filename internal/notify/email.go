package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/pbaille/portfolio/internal/config"
	"github.com/pbaille/portfolio/internal/domain"
	"github.com/wneessen/go-mail"
)

// mailSender is the part of *mail.Client used to deliver messages
type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Email notifies the site owner and sends the visitor a confirmation
type Email struct {
	cfg   config.SMTP
	owner string
	dial  func() (mailSender, error)
}

// NewEmail creates the email channel
func NewEmail(cfg config.SMTP, owner string, timeout time.Duration) *Email {
	e := &Email{cfg: cfg, owner: owner}
	e.dial = func() (mailSender, error) { return newMailClient(cfg, timeout) }
	return e
}

func newMailClient(cfg config.SMTP, timeout time.Duration) (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.User),
		mail.WithPassword(cfg.Password),
	}
	if timeout > 0 {
		opts = append(opts, mail.WithTimeout(timeout))
	}
	if cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	opts = append(opts, mail.WithPort(cfg.Port))

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return client, nil
}

// Name returns "email"
func (e *Email) Name() string { return "email" }

// Send delivers the owner notification then the visitor confirmation in one
// SMTP session. Both must go through for the send to count.
func (e *Email) Send(ctx context.Context, c domain.Contact) error {
	admin, err := e.adminMessage(c)
	if err != nil {
		return err
	}
	confirm, err := e.confirmationMessage(c)
	if err != nil {
		return err
	}

	client, err := e.dial()
	if err != nil {
		return err
	}
	if err := client.DialAndSendWithContext(ctx, admin, confirm); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func (e *Email) adminMessage(c domain.Contact) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(e.cfg.Sender()); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := m.To(e.cfg.Recipient); err != nil {
		return nil, fmt.Errorf("set recipient: %w", err)
	}
	if err := m.ReplyTo(c.Email); err != nil {
		return nil, fmt.Errorf("set reply-to: %w", err)
	}
	m.Subject("New contact from " + c.Name)
	m.SetBodyString(mail.TypeTextPlain, fmt.Sprintf(
		"Name: %s\nEmail: %s\nPhone: %s\n\n%s", c.Name, c.Email, c.Phone, c.Message,
	))
	return m, nil
}

func (e *Email) confirmationMessage(c domain.Contact) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(e.cfg.Sender()); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := m.To(c.Email); err != nil {
		return nil, fmt.Errorf("set visitor address: %w", err)
	}
	m.Subject("Thanks for contacting " + e.owner)
	m.SetBodyString(mail.TypeTextPlain, fmt.Sprintf(
		"Hello %s,\n\nThank you for reaching out! %s will contact you soon.\n\nYour message:\n%s\n\nRegards,\n%s",
		c.Name, e.owner, c.Message, e.owner,
	))
	return m, nil
}

// Package notify delivers contact submissions over email and WhatsApp.
//
// Delivery is best effort. Each channel is optional, attempted once, and its
// failure is logged rather than returned.
package notify

import (
	"context"
	"time"

	"github.com/pbaille/portfolio/internal/config"
	"github.com/pbaille/portfolio/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Channel is a single delivery mechanism
type Channel interface {
	Name() string
	Send(ctx context.Context, c domain.Contact) error
}

// ChannelError records which channel failed and why
type ChannelError struct {
	Channel string
	Err     error
}

func (e *ChannelError) Error() string { return e.Channel + ": " + e.Err.Error() }

func (e *ChannelError) Unwrap() error { return e.Err }

// Result reports which channels delivered
type Result struct {
	EmailSent bool
	ChatSent  bool
}

// Any reports whether at least one channel delivered
func (r Result) Any() bool { return r.EmailSent || r.ChatSent }

// Dispatcher fans a submission out to the configured channels
type Dispatcher struct {
	email   Channel
	chat    Channel
	timeout time.Duration
	logger  *zap.Logger
}

// NewDispatcher creates a Dispatcher. A nil channel is treated as not configured.
func NewDispatcher(email, chat Channel, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Dispatcher{email: email, chat: chat, timeout: timeout, logger: logger}
}

// FromConfig wires the channels whose settings are complete in cfg
func FromConfig(cfg *config.Config, logger *zap.Logger) *Dispatcher {
	var email, chat Channel
	if smtp := cfg.Email(); smtp != nil {
		email = NewEmail(*smtp, cfg.OwnerName, cfg.NotifyTimeout)
	}
	if tw := cfg.Chat(); tw != nil {
		chat = NewWhatsApp(*tw, cfg.OwnerName, cfg.NotifyTimeout)
	}
	logger.Info("notification channels",
		zap.Bool("email", email != nil),
		zap.Bool("whatsapp", chat != nil),
	)
	return NewDispatcher(email, chat, cfg.NotifyTimeout, logger)
}

// Notify runs both channels to completion, concurrently
func (d *Dispatcher) Notify(ctx context.Context, c domain.Contact) Result {
	var (
		res Result
		g   errgroup.Group
	)
	// send logs its own failure; returning it would stop Wait at the first one
	g.Go(func() error {
		res.EmailSent = d.send(ctx, d.email, c)
		return nil
	})
	g.Go(func() error {
		res.ChatSent = d.send(ctx, d.chat, c)
		return nil
	})
	g.Wait()
	return res
}

func (d *Dispatcher) send(ctx context.Context, ch Channel, c domain.Contact) bool {
	if ch == nil {
		return false
	}

	// a client hanging up must not abort a delivery already under way
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	if err := ch.Send(ctx, c); err != nil {
		d.logger.Error("notification failed", zap.Error(&ChannelError{Channel: ch.Name(), Err: err}))
		return false
	}
	d.logger.Debug("notification sent", zap.String("channel", ch.Name()))
	return true
}

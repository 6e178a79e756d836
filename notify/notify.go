// Package notify delivers auth notifications over the task queue. The
// enqueuer side implements auth.Notifier; the handler side renders the
// email and hands it to the configured sender.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/patshala/backend/auth"
	"github.com/patshala/backend/pkg/email"
	"github.com/patshala/backend/pkg/logger"
	"github.com/patshala/backend/pkg/queue"
)

// EmailTask is the queue payload for one auth email. Its qualified struct
// name doubles as the task name, pairing Enqueue with the registered
// handler.
type EmailTask struct {
	Recipient string                `json:"recipient"`
	Kind      auth.NotificationKind `json:"kind"`
	Data      map[string]string     `json:"data"`
}

// EmailNotifier enqueues auth notifications for asynchronous delivery.
type EmailNotifier struct {
	enqueuer *queue.Enqueuer
}

// NewEmailNotifier wraps the enqueuer.
func NewEmailNotifier(enqueuer *queue.Enqueuer) *EmailNotifier {
	return &EmailNotifier{enqueuer: enqueuer}
}

// Notify queues the notification. An enqueue failure is returned to the
// caller so the surrounding flow can fail loudly instead of silently
// dropping the email.
func (n *EmailNotifier) Notify(ctx context.Context, notification auth.Notification) error {
	task := EmailTask{
		Recipient: notification.Recipient,
		Kind:      notification.Kind,
		Data:      notification.Data,
	}
	if err := n.enqueuer.Enqueue(ctx, task); err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	return nil
}

// Deliverer renders and sends queued auth emails.
type Deliverer struct {
	sender email.EmailSender
	log    *slog.Logger
}

type DelivererOption func(*Deliverer)

// WithLogger sets a custom logger for the deliverer.
func WithLogger(log *slog.Logger) DelivererOption {
	return func(d *Deliverer) {
		d.log = log
	}
}

// NewDeliverer builds the worker-side email deliverer.
func NewDeliverer(sender email.EmailSender, opts ...DelivererOption) *Deliverer {
	d := &Deliverer{
		sender: sender,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handler returns the queue handler to register on the worker.
func (d *Deliverer) Handler() queue.Handler {
	return queue.NewTaskHandler(d.deliver)
}

func (d *Deliverer) deliver(ctx context.Context, task EmailTask) error {
	params, err := d.compose(task)
	if err != nil {
		return err
	}

	if err := d.sender.SendEmail(ctx, params); err != nil {
		d.log.Error("failed to send auth email",
			logger.Component("notify"),
			logger.Email(task.Recipient),
			slog.String("kind", string(task.Kind)),
			logger.Error(err),
		)
		return err
	}

	d.log.Info("auth email sent",
		logger.Component("notify"),
		slog.String("kind", string(task.Kind)),
	)
	return nil
}

func (d *Deliverer) compose(task EmailTask) (email.SendEmailParams, error) {
	var (
		subject    string
		html, text string
		err        error
	)

	switch task.Kind {
	case auth.NotificationOTP:
		subject = "Your verification code"
		html, text, err = email.RenderOTP(email.OTPEmailData{
			Name:      task.Data[auth.DataName],
			Code:      task.Data[auth.DataCode],
			TTLSecond: atoiOr(task.Data[auth.DataTTLSeconds], 60),
		})
	case auth.NotificationPasswordReset:
		subject = "Reset your password"
		html, text, err = email.RenderPasswordReset(email.ResetEmailData{
			Name:       task.Data[auth.DataName],
			ResetURL:   task.Data[auth.DataResetURL],
			TTLMinutes: atoiOr(task.Data[auth.DataTTLMinutes], 60),
		})
	default:
		return email.SendEmailParams{}, fmt.Errorf("unknown notification kind %q", task.Kind)
	}
	if err != nil {
		return email.SendEmailParams{}, fmt.Errorf("failed to render %s email: %w", task.Kind, err)
	}

	return email.SendEmailParams{
		SendTo:   task.Recipient,
		Subject:  subject,
		BodyHTML: html,
		BodyText: text,
		Tag:      string(task.Kind),
	}, nil
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

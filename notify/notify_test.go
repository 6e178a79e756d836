package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patshala/backend/auth"
	"github.com/patshala/backend/pkg/email"
	"github.com/patshala/backend/pkg/queue"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []email.SendEmailParams
	err  error
}

func (s *fakeSender) SendEmail(_ context.Context, params email.SendEmailParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, params)
	return nil
}

type failingRepo struct{}

func (failingRepo) CreateTask(context.Context, *queue.Task) error {
	return errors.New("storage unavailable")
}

func otpNotification() auth.Notification {
	return auth.Notification{
		Recipient: "ravi@example.com",
		Kind:      auth.NotificationOTP,
		Data: map[string]string{
			auth.DataName:       "Ravi Kumar",
			auth.DataCode:       "123456",
			auth.DataTTLSeconds: "60",
		},
	}
}

func TestEmailNotifier_Notify(t *testing.T) {
	t.Parallel()

	t.Run("queued task reaches the registered handler", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		defer storage.Close()
		enqueuer, err := queue.NewEnqueuer(storage)
		require.NoError(t, err)

		notifier := NewEmailNotifier(enqueuer)
		require.NoError(t, notifier.Notify(context.Background(), otpNotification()))

		task, err := storage.ClaimTask(context.Background(), uuid.New(), []string{"default"}, time.Minute)
		require.NoError(t, err)

		sender := &fakeSender{}
		handler := NewDeliverer(sender).Handler()
		require.Equal(t, task.TaskName, handler.Name())

		require.NoError(t, handler.Handle(context.Background(), task.Payload))
		require.Len(t, sender.sent, 1)
		assert.Equal(t, "ravi@example.com", sender.sent[0].SendTo)
		assert.Contains(t, sender.sent[0].BodyHTML, "123456")
		assert.Contains(t, sender.sent[0].BodyText, "123456")
	})

	t.Run("enqueue failure is surfaced", func(t *testing.T) {
		t.Parallel()

		enqueuer, err := queue.NewEnqueuer(failingRepo{})
		require.NoError(t, err)

		notifier := NewEmailNotifier(enqueuer)
		err = notifier.Notify(context.Background(), otpNotification())
		require.Error(t, err)
	})
}

func TestDeliverer(t *testing.T) {
	t.Parallel()

	t.Run("renders the reset email around the token url", func(t *testing.T) {
		t.Parallel()

		sender := &fakeSender{}
		d := NewDeliverer(sender)

		err := d.deliver(context.Background(), EmailTask{
			Recipient: "ravi@example.com",
			Kind:      auth.NotificationPasswordReset,
			Data: map[string]string{
				auth.DataName:       "Ravi Kumar",
				auth.DataResetURL:   "https://app.example.com/reset-password/tok123",
				auth.DataTTLMinutes: "60",
			},
		})
		require.NoError(t, err)
		require.Len(t, sender.sent, 1)
		assert.Equal(t, "Reset your password", sender.sent[0].Subject)
		assert.Contains(t, sender.sent[0].BodyHTML, "https://app.example.com/reset-password/tok123")
	})

	t.Run("unknown kind is rejected before sending", func(t *testing.T) {
		t.Parallel()

		sender := &fakeSender{}
		d := NewDeliverer(sender)

		err := d.deliver(context.Background(), EmailTask{Kind: "carrier-pigeon"})
		require.Error(t, err)
		assert.Empty(t, sender.sent)
	})

	t.Run("sender failure propagates for retry", func(t *testing.T) {
		t.Parallel()

		sender := &fakeSender{err: errors.New("postmark down")}
		d := NewDeliverer(sender)

		err := d.deliver(context.Background(), otpTask())
		require.Error(t, err)
	})
}

func otpTask() EmailTask {
	n := otpNotification()
	return EmailTask{Recipient: n.Recipient, Kind: n.Kind, Data: n.Data}
}

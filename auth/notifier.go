package auth

import "context"

// NotificationKind selects the message template.
type NotificationKind string

const (
	NotificationOTP           NotificationKind = "otp"
	NotificationPasswordReset NotificationKind = "password_reset"
)

// Well-known Data keys.
const (
	DataName       = "name"
	DataCode       = "code"
	DataTTLSeconds = "ttl_seconds"
	DataResetURL   = "reset_url"
	DataTTLMinutes = "ttl_minutes"
)

// Notification is a delivery request for the notification gateway. Data is
// flat strings so the payload serializes cleanly onto the task queue.
type Notification struct {
	Recipient string            `json:"recipient"`
	Kind      NotificationKind  `json:"kind"`
	Data      map[string]string `json:"data"`
}

// Notifier accepts notifications for asynchronous delivery. Notify returns
// an error only when the request could not be accepted; delivery itself is
// not confirmed.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

package application

import (
	"context"
	"log/slog"
)

// NotificationKind names the event a notification describes.
type NotificationKind string

const (
	NotifyAccountConfirmation     NotificationKind = "account_confirmation"
	NotifyPasswordReset           NotificationKind = "password_reset"
	NotifyReservationCreated      NotificationKind = "reservation_created"
	NotifyReservationStateChanged NotificationKind = "reservation_state_changed"
	NotifyReservationRescheduled  NotificationKind = "reservation_rescheduled"
	NotifyReservationCancelled    NotificationKind = "reservation_cancelled"
)

// Notification is a message for an account holder.
type Notification struct {
	Kind          NotificationKind  `json:"kind"`
	To            string            `json:"to"`
	Subject       string            `json:"subject"`
	Body          string            `json:"body"`
	ReservationID string            `json:"reservation_id,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Notifier delivers notifications.
type Notifier interface {
	Send(ctx context.Context, notification Notification) error
}

// ReservationMetrics records reservation attempt outcomes.
type ReservationMetrics interface {
	ObserveReservation(outcome string)
}

// deliver sends a notification without letting a delivery failure reach the caller.
func deliver(ctx context.Context, notifier Notifier, logger *slog.Logger, notification Notification) {
	if notifier == nil || notification.To == "" {
		return
	}
	if err := notifier.Send(ctx, notification); err != nil {
		logger.WarnContext(ctx, "notification delivery failed",
			"kind", notification.Kind,
			"error", err,
		)
	}
}

// Package notification delivers fire-and-forget messages to buyers and
// admins through the notification service. Failures are logged by callers,
// never propagated into state transitions.
package notification

import (
	"context"
	"log/slog"
)

// Priority labels admin alerts; high-priority alerts flag anomalies that need
// manual follow-up.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Notifier sends user notifications and admin alerts.
type Notifier interface {
	NotifyUser(ctx context.Context, userID int64, subject, message string) error
	NotifyAdmins(ctx context.Context, subject, message string, priority Priority) error
}

// LogNotifier writes notifications to the log. Used when no notification
// service address is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier constructs a log-only notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyUser(_ context.Context, userID int64, subject, message string) error {
	n.logger.Info("user notification",
		slog.Int64("user_id", userID),
		slog.String("subject", subject),
		slog.String("message", message),
	)
	return nil
}

func (n *LogNotifier) NotifyAdmins(_ context.Context, subject, message string, priority Priority) error {
	n.logger.Info("admin notification",
		slog.String("subject", subject),
		slog.String("message", message),
		slog.String("priority", string(priority)),
	)
	return nil
}
